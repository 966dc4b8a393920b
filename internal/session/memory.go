package session

import (
	"context"
	"sync"
	"time"

	"waveline/internal/model"
)

// MemoryStore keeps sessions in process memory. The default when no Redis is
// configured; sessions do not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	maxAge time.Duration
	items  map[string]memoryItem
}

type memoryItem struct {
	session model.Session
	expires time.Time
}

func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &MemoryStore{
		maxAge: maxAge,
		items:  make(map[string]memoryItem),
	}
}

func (s *MemoryStore) Put(ctx context.Context, sess *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[sess.ID] = memoryItem{session: *sess, expires: time.Now().Add(s.maxAge)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.Session, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(item.expires) {
		s.mu.Lock()
		delete(s.items, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	sess := item.session
	return &sess, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}
