package model

import "time"

// Session is the persisted login state: the current user's profile
// snapshot plus the backend access token, keyed by an opaque id carried in a
// cookie. Read on every request to gate the feed surface; written at login and
// profile edit; cleared at logout.
type Session struct {
	ID          string    `json:"id"`
	User        User      `json:"user"`
	AccessToken string    `json:"access_token"`
	CreatedAt   time.Time `json:"created_at"`
}
