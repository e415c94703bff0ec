package hn

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDeadlineTooSoon is returned when the request rate limit would hold a
// request past the context deadline. Nothing was sent upstream.
var ErrDeadlineTooSoon = errors.New("rate limit wait exceeds the context deadline")

// NetworkError is returned when a request could not be completed or the
// upstream answered with a non-2xx status.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Transient reports whether repeating the request could succeed
func (e *NetworkError) Transient() bool {
	if e.StatusCode == 0 {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// MalformedListError is returned when a listing body holds no bracketed list
type MalformedListError struct {
	Reason string
}

func (e *MalformedListError) Error() string {
	return "malformed id list: " + e.Reason
}

// ParseError is returned when an item body is not a decodable JSON object
type ParseError struct {
	ID  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse item %s: %v", e.ID, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InvalidRecordError is returned when an item lacks a required field
type InvalidRecordError struct {
	ID    string
	Field string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("item %s is missing required field %q", e.ID, e.Field)
}

// Skip reasons used for logging and metric labels
const (
	ReasonNetwork = "network"
	ReasonParse   = "parse"
	ReasonInvalid = "invalid"
	ReasonOther   = "other"
)

// SkipReason classifies an item resolution error
func SkipReason(err error) string {
	var (
		networkErr *NetworkError
		parseErr   *ParseError
		invalidErr *InvalidRecordError
	)
	switch {
	case errors.As(err, &invalidErr):
		return ReasonInvalid
	case errors.As(err, &parseErr):
		return ReasonParse
	case errors.As(err, &networkErr):
		return ReasonNetwork
	default:
		return ReasonOther
	}
}

func isTransient(err error) bool {
	var networkErr *NetworkError
	return errors.As(err, &networkErr) && networkErr.Transient()
}
