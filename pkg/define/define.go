// Package define resolves English word definitions from a remote
// dictionary service, with an optional sqlite-backed cache in front.
package define

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the dictionary has no usable definition for the word.
	ErrNotFound = errors.New("definition not found")
	// ErrUnavailable means the dictionary could not be asked or did not answer sensibly.
	ErrUnavailable = errors.New("definition service unavailable")
)

// Resolver returns the definition of a normalized word.
type Resolver interface {
	Define(ctx context.Context, word string) (string, error)
}
