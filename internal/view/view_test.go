package view

import (
	"testing"
	"time"

	"waveline/internal/model"
)

var now = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

// =============================================================================
// POST VIEW TESTS
// =============================================================================

func TestBuildPost_DeleteControlOnlyForOwner(t *testing.T) {
	post := model.Post{
		ID:     "p1",
		UserID: "u2",
		Author: &model.UserSummary{ID: "u2", Username: "bob"},
	}

	other := BuildPost(post, "u1", now)
	if other.IsOwn || other.CanDelete {
		t.Errorf("non-owner view = IsOwn:%v CanDelete:%v, want false/false", other.IsOwn, other.CanDelete)
	}

	owner := BuildPost(post, "u2", now)
	if !owner.IsOwn || !owner.CanDelete {
		t.Errorf("owner view = IsOwn:%v CanDelete:%v, want true/true", owner.IsOwn, owner.CanDelete)
	}
}

func TestBuildPost_CarriesTimestampText(t *testing.T) {
	post := model.Post{
		ID:        "p1",
		UserID:    "u1",
		CreatedAt: "2026-08-15 11:54:30.123456+00",
	}

	built := BuildPost(post, "u1", now)
	if built.CreatedAt != post.CreatedAt {
		t.Errorf("CreatedAt = %q, want the wire text %q", built.CreatedAt, post.CreatedAt)
	}
	if built.TimeAgo == "unknown" {
		t.Errorf("TimeAgo = %q, wire layout should parse", built.TimeAgo)
	}
}

func TestBuildFeed_PreservesOrder(t *testing.T) {
	posts := []model.Post{
		{ID: "p2", UserID: "u1"},
		{ID: "p1", UserID: "u1"},
	}

	feed := BuildFeed(posts, "u1", now)
	if len(feed.Posts) != 2 || feed.Posts[0].ID != "p2" || feed.Posts[1].ID != "p1" {
		t.Errorf("feed order = %v", feed.Posts)
	}
}

func TestBuildProfile(t *testing.T) {
	user := model.User{ID: "u2", Username: "bob"}
	posts := []model.Post{{ID: "p1", UserID: "u2"}}

	p := BuildProfile(user, posts, "u1", true, now)
	if p.IsSelf {
		t.Error("IsSelf = true for another user's profile")
	}
	if !p.IsFollowing {
		t.Error("IsFollowing lost")
	}
	if p.PostCount != 1 {
		t.Errorf("PostCount = %d, want 1", p.PostCount)
	}

	self := BuildProfile(user, posts, "u2", false, now)
	if !self.IsSelf {
		t.Error("IsSelf = false for own profile")
	}
}

// =============================================================================
// TIME AGO TESTS
// =============================================================================

func TestTimeAgo(t *testing.T) {
	cases := []struct {
		name string
		ts   string
		want string
	}{
		{"empty", "", "unknown"},
		{"unparseable", "not-a-time", "unknown"},
		{"future", "2026-08-15T13:00:00Z", "just now"},
		{"under 30s", "2026-08-15T11:59:45Z", "just now"},
		{"seconds", "2026-08-15T11:59:15Z", "45s ago"},
		{"minutes", "2026-08-15T11:55:00Z", "5m ago"},
		{"hours", "2026-08-15T09:00:00Z", "3h ago"},
		{"days", "2026-08-12T12:00:00Z", "3d ago"},
		{"over a week", "2026-08-01T12:00:00Z", "1 Aug 2026"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := TimeAgo(tc.ts, now); got != tc.want {
				t.Errorf("TimeAgo(%q) = %q, want %q", tc.ts, got, tc.want)
			}
		})
	}
}

func TestTimeAgo_FractionalSecondsLayout(t *testing.T) {
	// Row timestamps come back without a zone suffix in some deployments
	if got := TimeAgo("2026-08-15T11:54:30.123456", now); got != "5m ago" {
		t.Errorf("got %q, want 5m ago", got)
	}
}
