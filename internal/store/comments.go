package store

import (
	"context"

	"waveline/internal/backend"
	"waveline/internal/model"
)

// Comments wraps the comments table. Append-only from this client.
type Comments struct {
	client *backend.Client
}

// ForPost fetches a post's comments with authors, oldest first. All of them:
// the detail panel has no pagination.
func (s *Comments) ForPost(ctx context.Context, postID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := s.client.From("comments").
		Select(authorEmbed).
		Eq("post_id", postID).
		Order("created_at", false).
		Fetch(ctx, &comments)
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// CountForPost runs a count-only query for one post.
func (s *Comments) CountForPost(ctx context.Context, postID string) (int, error) {
	n, err := s.client.From("comments").Eq("post_id", postID).CountExact(ctx)
	return int(n), err
}

// Insert appends a comment row.
func (s *Comments) Insert(ctx context.Context, postID, userID, content string) error {
	return s.client.From("comments").
		Insert(ctx, model.NewCommentRow{PostID: postID, UserID: userID, Content: content})
}
