// Package disk is a file-backed cache store for single-node deployments that
// need appraisals to survive process restarts without running an object
// store. Values live under root/data with hashed names; a JSON index carries
// keys, sizes, expiry and access times for TTL cleanup and LRU eviction.
package disk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gitworth/internal/cache"
)

type Config struct {
	Root       string
	MaxEntries int
	MaxBytes   int64
}

type indexEntry struct {
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	ExpiresAt  time.Time `json:"expires_at"`
	AccessedAt time.Time `json:"accessed_at"`
}

type index struct {
	Entries map[string]indexEntry `json:"entries"`
}

// Store implements cache.Store on the local filesystem.
type Store struct {
	mu sync.Mutex

	dataDir   string
	indexPath string

	maxEntries int
	maxBytes   int64

	totalBytes int64
	entries    map[string]indexEntry

	now func() time.Time
}

func New(cfg Config) (*Store, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("disk cache root is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1024
	}

	s := &Store{
		dataDir:    filepath.Join(root, "data"),
		indexPath:  filepath.Join(root, "index.json"),
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		entries:    map[string]indexEntry{},
		now:        time.Now,
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache dir: %v", cache.ErrUnavailable, err)
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	s.sweepLocked()
	if err := s.persistIndexLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(ent.ExpiresAt) {
		s.removeEntryLocked(key, ent)
		_ = s.persistIndexLocked()
		return nil, false, nil
	}

	raw, err := os.ReadFile(filepath.Join(s.dataDir, ent.File))
	if err != nil {
		if os.IsNotExist(err) {
			// Index and data drifted apart; treat as a miss and repair.
			s.removeEntryLocked(key, ent)
			_ = s.persistIndexLocked()
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: read %s: %v", cache.ErrUnavailable, key, err)
	}

	ent.AccessedAt = s.now()
	s.entries[key] = ent
	_ = s.persistIndexLocked()
	return raw, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("cache key is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	file := hashedName(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.dataDir, file), value, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", cache.ErrUnavailable, key, err)
	}

	now := s.now()
	if old, ok := s.entries[key]; ok {
		s.totalBytes -= old.Size
	}
	s.entries[key] = indexEntry{
		File:       file,
		Size:       int64(len(value)),
		ExpiresAt:  now.Add(ttl),
		AccessedAt: now,
	}
	s.totalBytes += int64(len(value))

	s.sweepLocked()
	return s.persistIndexLocked()
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if s.now().After(ent.ExpiresAt) {
		s.removeEntryLocked(key, ent)
		_ = s.persistIndexLocked()
		return false, nil
	}
	return true, nil
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	keys := make([]string, 0, len(s.entries))
	for key, ent := range s.entries {
		if now.After(ent.ExpiresAt) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Wipe(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := len(s.entries)
	for _, ent := range s.entries {
		_ = os.Remove(filepath.Join(s.dataDir, ent.File))
	}
	s.entries = map[string]indexEntry{}
	s.totalBytes = 0
	return count, s.persistIndexLocked()
}

func (s *Store) loadIndex() error {
	raw, err := os.ReadFile(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: read index: %v", cache.ErrUnavailable, err)
	}
	var idx index
	if err := json.Unmarshal(raw, &idx); err != nil {
		// A corrupt index forfeits the cache contents, not the process.
		s.entries = map[string]indexEntry{}
		return nil
	}
	if idx.Entries == nil {
		idx.Entries = map[string]indexEntry{}
	}
	s.entries = idx.Entries
	s.totalBytes = 0
	for _, ent := range s.entries {
		s.totalBytes += ent.Size
	}
	return nil
}

// sweepLocked drops expired and orphaned entries, then evicts by least recent
// access until the entry and byte budgets hold.
func (s *Store) sweepLocked() {
	now := s.now()
	for key, ent := range s.entries {
		if now.After(ent.ExpiresAt) {
			s.removeEntryLocked(key, ent)
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dataDir, ent.File)); os.IsNotExist(err) {
			s.removeEntryLocked(key, ent)
		}
	}
	for s.overBudgetLocked() {
		key, ent, ok := s.leastRecentLocked()
		if !ok {
			return
		}
		s.removeEntryLocked(key, ent)
	}
}

func (s *Store) overBudgetLocked() bool {
	if len(s.entries) == 0 {
		return false
	}
	if len(s.entries) > s.maxEntries {
		return true
	}
	return s.maxBytes > 0 && s.totalBytes > s.maxBytes
}

func (s *Store) leastRecentLocked() (string, indexEntry, bool) {
	var (
		oldestKey string
		oldest    indexEntry
		found     bool
	)
	for key, ent := range s.entries {
		if !found || ent.AccessedAt.Before(oldest.AccessedAt) ||
			(ent.AccessedAt.Equal(oldest.AccessedAt) && key < oldestKey) {
			oldestKey, oldest, found = key, ent, true
		}
	}
	return oldestKey, oldest, found
}

func (s *Store) removeEntryLocked(key string, ent indexEntry) {
	delete(s.entries, key)
	s.totalBytes -= ent.Size
	if s.totalBytes < 0 {
		s.totalBytes = 0
	}
	_ = os.Remove(filepath.Join(s.dataDir, ent.File))
}

func (s *Store) persistIndexLocked() error {
	raw, err := json.MarshalIndent(index{Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache index: %w", err)
	}
	tmp := s.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write index: %v", cache.ErrUnavailable, err)
	}
	if err := os.Rename(tmp, s.indexPath); err != nil {
		return fmt.Errorf("%w: replace index: %v", cache.ErrUnavailable, err)
	}
	return nil
}

func hashedName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".bin"
}
