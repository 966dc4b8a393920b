package model

import (
	"errors"
)

// Post is a row in the posts table. LikeCount and CommentCount are not
// persisted; the client recomputes them from the likes and comments tables on
// every load. CreatedAt carries the backend's timestamp text unparsed; the
// view layer interprets it when rendering relative times.
type Post struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`

	// Author is populated by the embedded join (key = embedded table name).
	Author *UserSummary `json:"users,omitempty"`

	// Client-computed aggregates.
	LikeCount    int `json:"like_count"`
	CommentCount int `json:"comment_count"`
}

// NewPostRow is the insert payload for a post.
type NewPostRow struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

const (
	// MaxPostContentLength bounds post content in characters
	MaxPostContentLength = 500
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrNotPostOwner      = errors.New("not the owner of this post")
	ErrContentRequired   = errors.New("post content is required")
	ErrContentTooLong    = errors.New("post content too long")
)
