package model

import "errors"

// Follow is a (follower, following) pair in the follows table. Presence of the
// row is the relationship; the denormalized followers/following counters on
// user rows are not maintained by this client.
type Follow struct {
	FollowerID  string `json:"follower_id"`
	FollowingID string `json:"following_id"`
}

// Like is a (post, user) pair in the likes table. At most one row per pair;
// liking toggles the row's existence.
type Like struct {
	PostID string `json:"post_id"`
	UserID string `json:"user_id"`
}

var (
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
)
