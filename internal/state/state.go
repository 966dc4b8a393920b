// Package state holds the client's transient copy of backend data as a
// normalized store keyed by entity id. It replaces the ambient globals of the
// original design: every change goes through a defined update function, and
// the render layer only ever sees snapshots.
package state

import (
	"sync"

	"waveline/internal/model"
)

// Store is the normalized application state. Post order is the order the
// backend returned; snapshots preserve it without re-sorting.
type Store struct {
	mu        sync.RWMutex
	users     map[string]model.User
	userOrder []string
	posts     map[string]model.Post
	postOrder []string
	loaded    bool
}

func New() *Store {
	return &Store{
		users: make(map[string]model.User),
		posts: make(map[string]model.Post),
	}
}

// Loaded reports whether a full load has completed at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ReplaceAll overwrites the state wholesale with a fresh load's result.
func (s *Store) ReplaceAll(users []model.User, posts []model.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users = make(map[string]model.User, len(users))
	s.userOrder = s.userOrder[:0]
	for _, u := range users {
		if _, seen := s.users[u.ID]; !seen {
			s.userOrder = append(s.userOrder, u.ID)
		}
		s.users[u.ID] = u
	}

	s.posts = make(map[string]model.Post, len(posts))
	s.postOrder = s.postOrder[:0]
	for _, p := range posts {
		if _, seen := s.posts[p.ID]; !seen {
			s.postOrder = append(s.postOrder, p.ID)
		}
		s.posts[p.ID] = p
	}
	s.loaded = true
}

// Users returns the users in load order.
func (s *Store) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]model.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		users = append(users, s.users[id])
	}
	return users
}

// Posts returns the posts in feed order.
func (s *Store) Posts() []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := make([]model.Post, 0, len(s.postOrder))
	for _, id := range s.postOrder {
		posts = append(posts, s.posts[id])
	}
	return posts
}

// PostsByUser returns one user's posts in feed order.
func (s *Store) PostsByUser(userID string) []model.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var posts []model.Post
	for _, id := range s.postOrder {
		if p := s.posts[id]; p.UserID == userID {
			posts = append(posts, p)
		}
	}
	return posts
}

// User looks up one user by id.
func (s *Store) User(id string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// Post looks up one post by id.
func (s *Store) Post(id string) (model.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	return p, ok
}

// PrependPost puts a newly created post at the head of the feed.
func (s *Store) PrependPost(p model.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.posts[p.ID]; !seen {
		s.postOrder = append([]string{p.ID}, s.postOrder...)
	}
	s.posts[p.ID] = p
}

// RemovePost drops a post from the state.
func (s *Store) RemovePost(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		return
	}
	delete(s.posts, id)
	for i, pid := range s.postOrder {
		if pid == id {
			s.postOrder = append(s.postOrder[:i], s.postOrder[i+1:]...)
			break
		}
	}
}

// SetLikeCount patches one post's like count in place.
func (s *Store) SetLikeCount(postID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[postID]; ok {
		p.LikeCount = n
		s.posts[postID] = p
	}
}

// SetCommentCount patches one post's comment count in place.
func (s *Store) SetCommentCount(postID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[postID]; ok {
		p.CommentCount = n
		s.posts[postID] = p
	}
}

// UpsertUser patches or appends one user row.
func (s *Store) UpsertUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.users[u.ID]; !seen {
		s.userOrder = append(s.userOrder, u.ID)
	}
	s.users[u.ID] = u
}
