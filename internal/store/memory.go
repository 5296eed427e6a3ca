package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process PostStore. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]Post
}

var _ PostStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[string]Post)}
}

func (m *MemoryStore) CreatePost(_ context.Context, post *Post) (*Post, error) {
	p := *post
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.posts[p.ID]; exists {
		return nil, fmt.Errorf("post %s already exists", p.ID)
	}
	m.posts[p.ID] = p
	return &p, nil
}

func (m *MemoryStore) GetPost(_ context.Context, id string) (*Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryStore) ListPosts(_ context.Context, limit int) ([]*Post, error) {
	limit = ClampLimit(limit)

	m.mu.RLock()
	posts := make([]*Post, 0, len(m.posts))
	for _, p := range m.posts {
		p := p
		posts = append(posts, &p)
	}
	m.mu.RUnlock()

	sortNewestFirst(posts)
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}
