package state

import (
	"fmt"
	"sync"
	"testing"

	"waveline/internal/model"
)

func seeded() *Store {
	s := New()
	s.ReplaceAll(
		[]model.User{{ID: "u1", Username: "alice"}, {ID: "u2", Username: "bob"}},
		[]model.Post{
			{ID: "p2", UserID: "u1", Content: "newer"},
			{ID: "p1", UserID: "u2", Content: "older"},
		},
	)
	return s
}

func TestStore_ReplaceAll_PreservesOrder(t *testing.T) {
	s := seeded()

	if !s.Loaded() {
		t.Error("Loaded() = false after ReplaceAll")
	}

	posts := s.Posts()
	if len(posts) != 2 || posts[0].ID != "p2" || posts[1].ID != "p1" {
		t.Errorf("posts order = %v", posts)
	}
	users := s.Users()
	if len(users) != 2 || users[0].ID != "u1" {
		t.Errorf("users order = %v", users)
	}
}

func TestStore_PrependPost(t *testing.T) {
	s := seeded()
	s.PrependPost(model.Post{ID: "p3", UserID: "u1", Content: "newest"})

	posts := s.Posts()
	if posts[0].ID != "p3" {
		t.Errorf("first post = %s, want p3", posts[0].ID)
	}
	if len(posts) != 3 {
		t.Errorf("posts = %d, want 3", len(posts))
	}

	// Prepending an existing id must not duplicate it
	s.PrependPost(model.Post{ID: "p3", UserID: "u1", Content: "edited"})
	if len(s.Posts()) != 3 {
		t.Errorf("posts = %d after duplicate prepend, want 3", len(s.Posts()))
	}
	if p, _ := s.Post("p3"); p.Content != "edited" {
		t.Errorf("Content = %q, want edited", p.Content)
	}
}

func TestStore_RemovePost(t *testing.T) {
	s := seeded()
	s.RemovePost("p2")

	if _, ok := s.Post("p2"); ok {
		t.Error("p2 still present")
	}
	posts := s.Posts()
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Errorf("posts = %v", posts)
	}

	// Removing a missing id is a no-op
	s.RemovePost("p2")
	if len(s.Posts()) != 1 {
		t.Error("second remove changed state")
	}
}

func TestStore_SetCounts(t *testing.T) {
	s := seeded()
	s.SetLikeCount("p1", 4)
	s.SetCommentCount("p1", 2)

	p, _ := s.Post("p1")
	if p.LikeCount != 4 || p.CommentCount != 2 {
		t.Errorf("counts = %d/%d, want 4/2", p.LikeCount, p.CommentCount)
	}

	// Unknown post id is ignored
	s.SetLikeCount("nope", 9)
}

func TestStore_PostsByUser(t *testing.T) {
	s := seeded()
	s.PrependPost(model.Post{ID: "p3", UserID: "u1"})

	posts := s.PostsByUser("u1")
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}
	if posts[0].ID != "p3" || posts[1].ID != "p2" {
		t.Errorf("order = [%s %s], want [p3 p2]", posts[0].ID, posts[1].ID)
	}
}

func TestStore_UpsertUser(t *testing.T) {
	s := seeded()

	s.UpsertUser(model.User{ID: "u1", Username: "alice", Bio: "updated"})
	if u, _ := s.User("u1"); u.Bio != "updated" {
		t.Errorf("Bio = %q", u.Bio)
	}
	if len(s.Users()) != 2 {
		t.Errorf("users = %d, want 2 (update, not append)", len(s.Users()))
	}

	s.UpsertUser(model.User{ID: "u3", Username: "carol"})
	users := s.Users()
	if len(users) != 3 || users[2].ID != "u3" {
		t.Errorf("users = %v", users)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := seeded()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.PrependPost(model.Post{ID: fmt.Sprintf("cp%d", n), UserID: "u1"})
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Posts()
			_, _ = s.Post("p1")
		}()
	}
	wg.Wait()

	if len(s.Posts()) != 22 {
		t.Errorf("posts = %d, want 22", len(s.Posts()))
	}
}
