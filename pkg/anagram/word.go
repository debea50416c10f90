// Package anagram groups a word corpus by letter signature and answers
// anagram queries against it.
package anagram

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWord is wrapped by every ValidationError.
var ErrInvalidWord = errors.New("invalid word")

// ValidationError reports raw query input that is not a single word of the
// working alphabet.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid word %q: %s", e.Input, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidWord }

// NormalizeEntry folds a raw corpus entry to its comparable form.
// It reports false when nothing remains after trimming.
func NormalizeEntry(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	return strings.ToLower(trimmed), true
}

// ParseWord validates raw query input and returns it lower-cased.
// Only ASCII letters are accepted; surrounding whitespace is not trimmed.
func ParseWord(raw string) (string, error) {
	if raw == "" {
		return "", &ValidationError{Input: raw, Reason: "word must be non-empty"}
	}
	for i := 0; i < len(raw); i++ {
		if !isLetter(raw[i]) {
			return "", &ValidationError{
				Input:  raw,
				Reason: "word must contain only the letters a-z",
			}
		}
	}
	return strings.ToLower(raw), nil
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
