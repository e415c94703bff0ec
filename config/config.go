package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration wraps time.Duration so it can be written as "10s" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// APIConfig describes the upstream Hacker News endpoints
type APIConfig struct {
	BaseURL    string `toml:"base_url"`
	RecentPath string `toml:"recent_path"`
	BestPath   string `toml:"best_path"`
	// ItemPath is a format string, %s is replaced by the story id
	ItemPath  string `toml:"item_path"`
	UserAgent string `toml:"user_agent"`
}

// HTTPConfig holds transport settings shared by every upstream call
type HTTPConfig struct {
	Timeout           Duration `toml:"timeout"`
	MaxRetries        int      `toml:"max_retries"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// PagingConfig controls how feeds grow
type PagingConfig struct {
	PageSize int `toml:"page_size"`
	Workers  int `toml:"workers"`
}

// Config represents the top-level configuration
type Config struct {
	API    APIConfig    `toml:"api"`
	HTTP   HTTPConfig   `toml:"http"`
	Paging PagingConfig `toml:"paging"`
}

const (
	DefaultBaseURL  = "https://hacker-news.firebaseio.com/v0"
	DefaultPageSize = 25
)

func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    DefaultBaseURL,
			RecentPath: "newstories.json",
			BestPath:   "topstories.json",
			ItemPath:   "item/%s.json",
			UserAgent:  "wovennews/0.1",
		},
		HTTP: HTTPConfig{
			Timeout:    Duration{10 * time.Second},
			MaxRetries: 1,
		},
		Paging: PagingConfig{
			PageSize: DefaultPageSize,
			Workers:  4,
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. A missing file at
// the default location is not an error when optional is set.
func LoadConfig(path string, optional bool) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return config, nil
		}
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.API.BaseURL) == "" {
		errs = append(errs, errors.New("api.base_url must not be empty"))
	}
	if !strings.Contains(c.API.ItemPath, "%s") {
		errs = append(errs, fmt.Errorf("api.item_path %q must contain %%s", c.API.ItemPath))
	}
	if c.Paging.PageSize < 1 {
		errs = append(errs, fmt.Errorf("paging.page_size must be positive, got %d", c.Paging.PageSize))
	}
	if c.Paging.Workers < 1 {
		errs = append(errs, fmt.Errorf("paging.workers must be positive, got %d", c.Paging.Workers))
	}
	if c.HTTP.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("http.max_retries must not be negative, got %d", c.HTTP.MaxRetries))
	}
	if c.HTTP.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("http.requests_per_second must not be negative, got %v", c.HTTP.RequestsPerSecond))
	}
	if c.HTTP.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("http.timeout must be positive"))
	}
	return errors.Join(errs...)
}
