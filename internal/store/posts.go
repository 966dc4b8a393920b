package store

import (
	"context"

	"waveline/internal/backend"
	"waveline/internal/model"
)

// authorEmbed is the embedded join pulling the author's public fields with
// the post in a single call.
const authorEmbed = "*, users(id, username, avatar_url, full_name)"

// Posts wraps the posts table.
type Posts struct {
	client *backend.Client
}

// AllWithAuthors fetches every post joined with its author, newest first.
// The returned order is the render order; nothing re-sorts client-side.
func (s *Posts) AllWithAuthors(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	err := s.client.From("posts").
		Select(authorEmbed).
		Order("created_at", true).
		Fetch(ctx, &posts)
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// Insert creates a post and returns the stored row.
func (s *Posts) Insert(ctx context.Context, userID, content string) (*model.Post, error) {
	var rows []model.Post
	err := s.client.From("posts").
		InsertReturning(ctx, model.NewPostRow{UserID: userID, Content: content}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &backend.Error{Message: "insert returned no representation"}
	}
	return &rows[0], nil
}

// OwnerID fetches the owning user id of a post.
func (s *Posts) OwnerID(ctx context.Context, postID string) (string, error) {
	var rows []struct {
		UserID string `json:"user_id"`
	}
	if err := s.client.From("posts").Select("user_id").Eq("id", postID).Fetch(ctx, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", model.ErrPostNotFound
	}
	return rows[0].UserID, nil
}

// Delete removes a post row. Ownership is gated in the controller; the
// backend's row policies are the real enforcement.
func (s *Posts) Delete(ctx context.Context, postID string) error {
	return s.client.From("posts").Eq("id", postID).Delete(ctx)
}
