// Package store is the backend access layer: one thin wrapper per table and
// operation, each taking primitive arguments and performing exactly one
// round trip against the backend client. No retries, no batching; backend
// errors pass through to the caller untouched.
package store

import "waveline/internal/backend"

// Store groups the per-table wrappers.
type Store struct {
	Users    *Users
	Posts    *Posts
	Likes    *Likes
	Comments *Comments
	Follows  *Follows
}

func New(client *backend.Client) *Store {
	return &Store{
		Users:    &Users{client: client},
		Posts:    &Posts{client: client},
		Likes:    &Likes{client: client},
		Comments: &Comments{client: client},
		Follows:  &Follows{client: client},
	}
}
