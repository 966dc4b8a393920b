// Package view builds the declarative view models rendered to clients. A
// view is computed from the loaded snapshot plus the acting user; controls
// the actor cannot use (like deleting someone else's post) are simply
// absent from the model rather than disabled downstream.
package view

import (
	"fmt"
	"time"

	"waveline/internal/model"
)

// UserCard is the compact user rendering used in search results, suggested
// users, and post headers.
type UserCard struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Post is one rendered feed entry.
type Post struct {
	ID           string    `json:"id"`
	Author       *UserCard `json:"author,omitempty"`
	Content      string    `json:"content"`
	CreatedAt    string    `json:"created_at"`
	TimeAgo      string    `json:"time_ago"`
	LikeCount    int       `json:"like_count"`
	CommentCount int       `json:"comment_count"`
	IsOwn        bool      `json:"is_own"`
	CanDelete    bool      `json:"can_delete"`
}

// Feed is the home timeline, newest first.
type Feed struct {
	Posts []Post `json:"posts"`
}

// Comment is one rendered comment, oldest first inside a post detail.
type Comment struct {
	ID        string    `json:"id"`
	Author    *UserCard `json:"author,omitempty"`
	Content   string    `json:"content"`
	TimeAgo   string    `json:"time_ago"`
	CreatedAt string    `json:"created_at"`
}

// PostDetail is a post with its full comment list.
type PostDetail struct {
	Post     Post      `json:"post"`
	Comments []Comment `json:"comments"`
}

// Profile is a user profile page: the user, their posts, and the
// relationship to the acting user.
type Profile struct {
	User        model.User `json:"user"`
	Posts       []Post     `json:"posts"`
	PostCount   int        `json:"post_count"`
	IsSelf      bool       `json:"is_self"`
	IsFollowing bool       `json:"is_following"`
}

// Search is a user search result set.
type Search struct {
	Query   string     `json:"query"`
	Results []UserCard `json:"results"`
}

func userCard(s *model.UserSummary) *UserCard {
	if s == nil {
		return nil
	}
	return &UserCard{ID: s.ID, Username: s.Username, FullName: s.FullName, AvatarURL: s.AvatarURL}
}

// UserCardFrom renders a full user row as a card.
func UserCardFrom(u model.User) UserCard {
	return UserCard{ID: u.ID, Username: u.Username, FullName: u.FullName, AvatarURL: u.AvatarURL}
}

// BuildPost renders one post for the acting user.
func BuildPost(p model.Post, actorID string, now time.Time) Post {
	isOwn := p.UserID == actorID
	return Post{
		ID:           p.ID,
		Author:       userCard(p.Author),
		Content:      p.Content,
		CreatedAt:    p.CreatedAt,
		TimeAgo:      TimeAgo(p.CreatedAt, now),
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		IsOwn:        isOwn,
		CanDelete:    isOwn,
	}
}

// BuildFeed renders the timeline for the acting user.
func BuildFeed(posts []model.Post, actorID string, now time.Time) Feed {
	out := Feed{Posts: make([]Post, 0, len(posts))}
	for _, p := range posts {
		out.Posts = append(out.Posts, BuildPost(p, actorID, now))
	}
	return out
}

// BuildComment renders one comment.
func BuildComment(c model.Comment, now time.Time) Comment {
	return Comment{
		ID:        c.ID,
		Author:    userCard(c.Author),
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		TimeAgo:   TimeAgo(c.CreatedAt, now),
	}
}

// BuildPostDetail renders a post with its comments.
func BuildPostDetail(p model.Post, comments []model.Comment, actorID string, now time.Time) PostDetail {
	detail := PostDetail{
		Post:     BuildPost(p, actorID, now),
		Comments: make([]Comment, 0, len(comments)),
	}
	for _, c := range comments {
		detail.Comments = append(detail.Comments, BuildComment(c, now))
	}
	return detail
}

// BuildProfile renders a user's profile for the acting user. posts must
// already be filtered to the profile owner.
func BuildProfile(u model.User, posts []model.Post, actorID string, isFollowing bool, now time.Time) Profile {
	return Profile{
		User:        u,
		Posts:       BuildFeed(posts, actorID, now).Posts,
		PostCount:   len(posts),
		IsSelf:      u.ID == actorID,
		IsFollowing: isFollowing,
	}
}

// BuildSearch renders a search result set.
func BuildSearch(query string, users []model.User) Search {
	out := Search{Query: query, Results: make([]UserCard, 0, len(users))}
	for _, u := range users {
		out.Results = append(out.Results, UserCardFrom(u))
	}
	return out
}

// TimeAgo renders a timestamp as a relative age. Timestamps that fail to
// parse, or sit in the future, render as fixed strings rather than errors.
func TimeAgo(timestamp string, now time.Time) string {
	if timestamp == "" {
		return "unknown"
	}
	t, err := parseTimestamp(timestamp)
	if err != nil {
		return "unknown"
	}

	diff := now.Sub(t)
	if diff < 0 {
		return "just now"
	}

	secs := int(diff.Seconds())
	mins := int(diff.Minutes())
	hours := int(diff.Hours())
	days := hours / 24

	switch {
	case secs < 30:
		return "just now"
	case mins < 1:
		return fmt.Sprintf("%ds ago", secs)
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("2 Jan 2006")
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
