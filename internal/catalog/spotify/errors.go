package spotify

import (
	"fmt"

	"github.com/chaptifyapp/chaptify/internal/errors"
)

// Sentinel errors for Spotify API operations. Each carries the pipeline
// error code that governs retry behavior: rate limiting and server errors
// are transient, authorization and not-found are permanent.
var (
	ErrNotFound     = errors.CatalogNotFound("spotify: not found")
	ErrRateLimited  = errors.CatalogTransient("spotify: rate limited by server")
	ErrServer       = errors.CatalogTransient("spotify: server error")
	ErrTransport    = errors.CatalogTransient("spotify: request failed")
	ErrUnauthorized = errors.CatalogUnauthorized("spotify: unauthorized")
	ErrBadRequest   = errors.Internal("spotify: bad request")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // Operation: "authenticate", "search", "chapters"
	ID  string // Work ID, if applicable
	Err error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("spotify %s [%s]: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("spotify %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrapError creates an Error with context.
func wrapError(op, id string, err error) error {
	return &Error{Op: op, ID: id, Err: err}
}
