// Package memory provides a threadsafe in-process cache store with per-entry
// TTL and LRU bounds on entry count and total bytes.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Store is an in-memory cache.Store. Expired entries are dropped lazily on
// access and eagerly when eviction runs.
type Store struct {
	mu         sync.Mutex
	ll         *list.List
	items      map[string]*list.Element
	maxEntries int
	maxBytes   int
	totalBytes int

	now func() time.Time
}

type Config struct {
	MaxEntries int
	MaxBytes   int
}

func New(cfg Config) *Store {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}
	return &Store{
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		now:        time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ele, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	ent := ele.Value.(*entry)
	if s.now().After(ent.expiresAt) {
		s.removeElement(ele)
		return nil, false, nil
	}
	s.ll.MoveToFront(ele)
	return append([]byte(nil), ent.value...), true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(ttl)
	if ele, ok := s.items[key]; ok {
		ent := ele.Value.(*entry)
		s.totalBytes -= len(ent.value)
		ent.value = append([]byte(nil), value...)
		ent.expiresAt = expiresAt
		s.totalBytes += len(ent.value)
		s.ll.MoveToFront(ele)
		s.evictLocked()
		return nil
	}

	ent := &entry{
		key:       key,
		value:     append([]byte(nil), value...),
		expiresAt: expiresAt,
	}
	s.items[key] = s.ll.PushFront(ent)
	s.totalBytes += len(ent.value)
	s.evictLocked()
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ele, ok := s.items[key]
	if !ok {
		return false, nil
	}
	if s.now().After(ele.Value.(*entry).expiresAt) {
		s.removeElement(ele)
		return false, nil
	}
	return true, nil
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	keys := make([]string, 0, len(s.items))
	for key, ele := range s.items {
		if now.After(ele.Value.(*entry).expiresAt) {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Store) Wipe(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := s.ll.Len()
	s.ll = list.New()
	s.items = make(map[string]*list.Element)
	s.totalBytes = 0
	return count, nil
}

func (s *Store) evictLocked() {
	for {
		if s.ll.Len() == 0 {
			return
		}
		if s.ll.Len() <= s.maxEntries && (s.maxBytes <= 0 || s.totalBytes <= s.maxBytes) {
			return
		}
		s.removeElement(s.ll.Back())
	}
}

func (s *Store) removeElement(ele *list.Element) {
	if ele == nil {
		return
	}
	s.ll.Remove(ele)
	ent := ele.Value.(*entry)
	delete(s.items, ent.key)
	s.totalBytes -= len(ent.value)
	if s.totalBytes < 0 {
		s.totalBytes = 0
	}
}
