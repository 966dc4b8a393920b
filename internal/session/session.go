// Package session persists the local session record: the current user's
// profile snapshot plus the backend access token, keyed by an opaque id. The
// record gates the feed surface; its absence sends the browser to login.
package session

import (
	"context"
	"errors"
	"time"

	"waveline/internal/model"
)

// ErrNotFound is returned when no session exists for the id (never stored,
// expired, or logged out).
var ErrNotFound = errors.New("session not found")

// DefaultMaxAge is how long a session record lives without a re-login.
const DefaultMaxAge = 7 * 24 * time.Hour

// Store holds live session records.
type Store interface {
	Put(ctx context.Context, sess *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}
