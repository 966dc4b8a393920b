package store

import (
	"context"

	"waveline/internal/backend"
	"waveline/internal/model"
)

// Users wraps the users table.
type Users struct {
	client *backend.Client
}

// All fetches every user row.
func (s *Users) All(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.client.From("users").Select("*").Fetch(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetByID fetches one user row. An empty result is the distinct not-found
// case, not a backend error.
func (s *Users) GetByID(ctx context.Context, id string) (*model.User, error) {
	var users []model.User
	if err := s.client.From("users").Select("*").Eq("id", id).Fetch(ctx, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, model.ErrUserNotFound
	}
	return &users[0], nil
}

// EmailByUsername resolves a username to the email the auth subsystem needs.
func (s *Users) EmailByUsername(ctx context.Context, username string) (string, error) {
	var rows []struct {
		Email string `json:"email"`
	}
	if err := s.client.From("users").Select("email").Eq("username", username).Fetch(ctx, &rows); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", model.ErrUserNotFound
	}
	return rows[0].Email, nil
}

// Insert writes a new profile row.
func (s *Users) Insert(ctx context.Context, user model.User) error {
	return s.client.From("users").Insert(ctx, user)
}

// Update patches profile fields on one row.
func (s *Users) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return s.client.From("users").Eq("id", id).Update(ctx, fields)
}
