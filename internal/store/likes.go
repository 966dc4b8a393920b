package store

import (
	"context"

	"waveline/internal/backend"
	"waveline/internal/model"
)

// Likes wraps the likes table. A (post, user) pair has at most one row;
// presence of the row is the like.
type Likes struct {
	client *backend.Client
}

// Exists checks for a like row for the pair.
func (s *Likes) Exists(ctx context.Context, postID, userID string) (bool, error) {
	var rows []struct {
		PostID string `json:"post_id"`
	}
	err := s.client.From("likes").
		Select("post_id").
		Eq("post_id", postID).
		Eq("user_id", userID).
		Limit(1).
		Fetch(ctx, &rows)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// CountForPost runs a count-only query for one post.
func (s *Likes) CountForPost(ctx context.Context, postID string) (int, error) {
	n, err := s.client.From("likes").Eq("post_id", postID).CountExact(ctx)
	return int(n), err
}

// Insert creates the like row.
func (s *Likes) Insert(ctx context.Context, postID, userID string) error {
	return s.client.From("likes").Insert(ctx, model.Like{PostID: postID, UserID: userID})
}

// Delete removes the like row.
func (s *Likes) Delete(ctx context.Context, postID, userID string) error {
	return s.client.From("likes").
		Eq("post_id", postID).
		Eq("user_id", userID).
		Delete(ctx)
}
