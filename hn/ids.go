package hn

import (
	"bytes"
	"fmt"
	"strings"
)

// ParseIDs turns a listing body such as "[1, 2, 3]\n" into its ordered ids.
// Anything before the first '[' or after the last ']' is ignored.
func ParseIDs(body []byte) ([]string, error) {
	start := bytes.IndexByte(body, '[')
	end := bytes.LastIndexByte(body, ']')
	if start < 0 || end < start {
		return nil, &MalformedListError{Reason: "no bracketed list in body"}
	}

	inner := strings.TrimSpace(string(body[start+1 : end]))
	if inner == "" {
		return []string{}, nil
	}

	parts := strings.Split(inner, ",")
	ids := make([]string, 0, len(parts))
	for i, part := range parts {
		id := strings.Trim(strings.TrimSpace(part), `"`)
		if id == "" {
			return nil, &MalformedListError{Reason: fmt.Sprintf("empty element at index %d", i)}
		}
		if strings.ContainsAny(id, "[]{}") {
			return nil, &MalformedListError{Reason: fmt.Sprintf("nested value at index %d", i)}
		}
		ids = append(ids, id)
	}

	return ids, nil
}
