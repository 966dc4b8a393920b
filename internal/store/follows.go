package store

import (
	"context"

	"waveline/internal/backend"
	"waveline/internal/model"
)

// Follows wraps the follows table. Presence of the (follower, following) row
// is the relationship; the user rows' denormalized counters are left alone.
type Follows struct {
	client *backend.Client
}

// Exists checks whether follower follows target.
func (s *Follows) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var rows []struct {
		FollowerID string `json:"follower_id"`
	}
	err := s.client.From("follows").
		Select("follower_id").
		Eq("follower_id", followerID).
		Eq("following_id", followingID).
		Limit(1).
		Fetch(ctx, &rows)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// Insert creates the follow row.
func (s *Follows) Insert(ctx context.Context, followerID, followingID string) error {
	return s.client.From("follows").
		Insert(ctx, model.Follow{FollowerID: followerID, FollowingID: followingID})
}

// Delete removes the follow row.
func (s *Follows) Delete(ctx context.Context, followerID, followingID string) error {
	return s.client.From("follows").
		Eq("follower_id", followerID).
		Eq("following_id", followingID).
		Delete(ctx)
}
