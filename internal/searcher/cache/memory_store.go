package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoryCapacity = 1024

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is a bounded, process-local store. Entries are evicted by
// recency once capacity is reached and expire after their TTL.
type MemoryStore struct {
	items *lru.Cache[string, memoryItem]
	now   func() time.Time
}

// NewMemoryStore creates a store holding at most capacity entries. A nil now
// uses the wall clock.
func NewMemoryStore(capacity int, now func() time.Time) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	if now == nil {
		now = time.Now
	}
	items, _ := lru.New[string, memoryItem](capacity)
	return &MemoryStore{items: items, now: now}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	item, ok := s.items.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !s.now().Before(item.expiresAt) {
		s.items.Remove(key)
		return nil, ErrMiss
	}
	return append([]byte(nil), item.value...), nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.items.Add(key, memoryItem{
		value:     append([]byte(nil), value...),
		expiresAt: s.now().Add(ttl),
	})
	return nil
}

func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	var n int64
	for _, key := range s.items.Keys() {
		if strings.HasPrefix(key, prefix) && s.items.Remove(key) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.items.Purge()
	return nil
}

func (s *MemoryStore) Describe() string {
	return fmt.Sprintf("memory (%d entries)", s.items.Len())
}
