package model

import (
	"errors"
)

// Comment is a row in the comments table. Append-only: the client exposes no
// edit or delete for comments. CreatedAt carries the backend's timestamp
// text unparsed.
type Comment struct {
	ID        string `json:"id"`
	PostID    string `json:"post_id"`
	UserID    string `json:"user_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`

	// Author is populated by the embedded join.
	Author *UserSummary `json:"users,omitempty"`
}

// NewCommentRow is the insert payload for a comment.
type NewCommentRow struct {
	PostID  string `json:"post_id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

var (
	ErrCommentRequired = errors.New("comment content is required")
)
