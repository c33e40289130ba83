package memory

import (
	"context"
	"sort"
	"testing"
	"time"
)

func TestStoreRoundTripExactBytes(t *testing.T) {
	s := New(Config{})
	ctx := context.Background()
	payload := []byte(`{"status":"ok"}`)

	if err := s.Set(ctx, "appraisal:acme/widgets/", payload, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.Get(ctx, "appraisal:acme/widgets/")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got) != string(payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}

	// The returned slice is a copy; mutating it must not corrupt the entry.
	got[0] = 'X'
	again, _, _ := s.Get(ctx, "appraisal:acme/widgets/")
	if string(again) != string(payload) {
		t.Fatalf("cache entry mutated through returned slice")
	}
}

func TestStorePerEntryTTL(t *testing.T) {
	s := New(Config{})
	base := time.Now()
	s.now = func() time.Time { return base }
	ctx := context.Background()

	if err := s.Set(ctx, "short", []byte("a"), 10*time.Second); err != nil {
		t.Fatalf("set short: %v", err)
	}
	if err := s.Set(ctx, "long", []byte("b"), 24*time.Hour); err != nil {
		t.Fatalf("set long: %v", err)
	}

	s.now = func() time.Time { return base.Add(11 * time.Second) }
	if _, ok, _ := s.Get(ctx, "short"); ok {
		t.Fatalf("short entry survived its ttl")
	}
	if _, ok, _ := s.Get(ctx, "long"); !ok {
		t.Fatalf("long entry expired early")
	}
	if ok, _ := s.Exists(ctx, "short"); ok {
		t.Fatalf("exists reports expired entry")
	}
}

func TestStoreKeysSkipsExpired(t *testing.T) {
	s := New(Config{})
	base := time.Now()
	s.now = func() time.Time { return base }
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"), 5*time.Second)
	_ = s.Set(ctx, "b", []byte("2"), time.Hour)
	_ = s.Set(ctx, "c", []byte("3"), time.Hour)

	s.now = func() time.Time { return base.Add(time.Minute) }
	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
		t.Fatalf("keys = %v", keys)
	}
}

func TestStoreWipeReportsCount(t *testing.T) {
	s := New(Config{})
	ctx := context.Background()
	_ = s.Set(ctx, "a", []byte("1"), time.Hour)
	_ = s.Set(ctx, "b", []byte("2"), time.Hour)

	count, err := s.Wipe(ctx)
	if err != nil {
		t.Fatalf("wipe: %v", err)
	}
	if count != 2 {
		t.Fatalf("wipe count = %d, want 2", count)
	}
	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("entry survived wipe")
	}
	if keys, _ := s.Keys(ctx); len(keys) != 0 {
		t.Fatalf("keys after wipe = %v", keys)
	}
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	s := New(Config{MaxEntries: 2})
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("1"), time.Hour)
	_ = s.Set(ctx, "b", []byte("2"), time.Hour)
	if _, ok, _ := s.Get(ctx, "a"); !ok {
		t.Fatalf("touch a")
	}
	_ = s.Set(ctx, "c", []byte("3"), time.Hour)

	if _, ok, _ := s.Get(ctx, "b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if _, ok, _ := s.Get(ctx, "a"); !ok {
		t.Fatalf("expected a to remain")
	}
	if _, ok, _ := s.Get(ctx, "c"); !ok {
		t.Fatalf("expected c to remain")
	}
}

func TestStoreEvictsOnByteBudget(t *testing.T) {
	s := New(Config{MaxEntries: 100, MaxBytes: 10})
	ctx := context.Background()

	_ = s.Set(ctx, "a", []byte("12345"), time.Hour)
	_ = s.Set(ctx, "b", []byte("12345"), time.Hour)
	_ = s.Set(ctx, "c", []byte("12345"), time.Hour)

	if _, ok, _ := s.Get(ctx, "a"); ok {
		t.Fatalf("expected a to be evicted by byte budget")
	}
	if _, ok, _ := s.Get(ctx, "c"); !ok {
		t.Fatalf("expected newest entry to remain")
	}
}

func TestStoreSetOverwrites(t *testing.T) {
	s := New(Config{})
	ctx := context.Background()
	_ = s.Set(ctx, "k", []byte("old"), time.Hour)
	_ = s.Set(ctx, "k", []byte("new"), time.Hour)

	got, ok, _ := s.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	if keys, _ := s.Keys(ctx); len(keys) != 1 {
		t.Fatalf("overwrite duplicated entry: %v", keys)
	}
}
