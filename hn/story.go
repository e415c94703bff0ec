package hn

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wovennews/models"
)

// item mirrors the fields of a Hacker News item we care about. Score and
// time are kept raw since the API has served both numbers and strings.
type item struct {
	Title *string         `json:"title"`
	Score json.RawMessage `json:"score"`
	URL   string          `json:"url"`
	Time  json.RawMessage `json:"time"`
}

// DecodeStory builds a Story from an item body. Wrapper text around the JSON
// object is ignored. Stories without a url are rejected.
func DecodeStory(id string, body []byte, now time.Time) (models.Story, error) {
	start := bytes.IndexByte(body, '{')
	end := bytes.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return models.Story{}, &ParseError{ID: id, Err: errors.New("no JSON object in body")}
	}

	var it item
	if err := json.Unmarshal(body[start:end+1], &it); err != nil {
		return models.Story{}, &ParseError{ID: id, Err: err}
	}

	url := strings.TrimSpace(it.URL)
	if url == "" {
		return models.Story{}, &InvalidRecordError{ID: id, Field: "url"}
	}

	score, err := decodeScore(it.Score)
	if err != nil {
		return models.Story{}, &ParseError{ID: id, Err: err}
	}

	postedAt, err := decodeTime(it.Time, now)
	if err != nil {
		return models.Story{}, &ParseError{ID: id, Err: err}
	}

	title := models.DefaultTitle
	if it.Title != nil && strings.TrimSpace(*it.Title) != "" {
		title = *it.Title
	}

	return models.Story{
		ID:       id,
		Title:    title,
		Score:    score,
		URL:      url,
		PostedAt: postedAt,
	}, nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// unquote returns the numeric text of a JSON number or numeric string
func unquote(raw json.RawMessage) (string, error) {
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	return string(raw), nil
}

func decodeScore(raw json.RawMessage) (string, error) {
	if isAbsent(raw) {
		return models.DefaultScore, nil
	}
	text, err := unquote(raw)
	if err != nil {
		return "", fmt.Errorf("score: %w", err)
	}
	if text == "" {
		return models.DefaultScore, nil
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return "", fmt.Errorf("score %q is not numeric", text)
	}
	return text, nil
}

func decodeTime(raw json.RawMessage, now time.Time) (int64, error) {
	if isAbsent(raw) {
		return now.Unix(), nil
	}
	text, err := unquote(raw)
	if err != nil {
		return 0, fmt.Errorf("time: %w", err)
	}
	if text == "" {
		return now.Unix(), nil
	}
	if ts, err := strconv.ParseInt(text, 10, 64); err == nil {
		return ts, nil
	}
	ts, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("time %q is not a unix timestamp", text)
	}
	return int64(ts), nil
}
