package settings

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeBackend struct {
	values map[string]string
	gets   int
	failAll bool
}

func (f *fakeBackend) Get(_ context.Context, key string) (string, error) {
	f.gets++
	if f.failAll {
		return "", errors.New("backend down")
	}
	value, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (f *fakeBackend) Set(_ context.Context, key, value string) error {
	if f.failAll {
		return errors.New("backend down")
	}
	f.values[key] = value
	return nil
}

func newTestStore(backend Backend, ttl time.Duration) (*Store, *time.Time) {
	store := NewStore(backend, ttl, nil)
	current := time.Now()
	store.now = func() time.Time { return current }
	return store, &current
}

func TestStoreCachesWithinTTL(t *testing.T) {
	backend := &fakeBackend{values: map[string]string{"classifier.api_key": "sk-1"}}
	store, _ := newTestStore(backend, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if got := store.Get(ctx, "classifier.api_key", ""); got != "sk-1" {
			t.Fatalf("Get = %q, want sk-1", got)
		}
	}
	if backend.gets != 1 {
		t.Errorf("backend hit %d times, want 1", backend.gets)
	}
}

func TestStoreExpiresAfterTTL(t *testing.T) {
	backend := &fakeBackend{values: map[string]string{"k": "v1"}}
	store, current := newTestStore(backend, 30*time.Second)
	ctx := context.Background()

	store.Get(ctx, "k", "")
	backend.values["k"] = "v2"

	*current = current.Add(31 * time.Second)
	if got := store.Get(ctx, "k", ""); got != "v2" {
		t.Errorf("Get after TTL = %q, want v2", got)
	}
	if backend.gets != 2 {
		t.Errorf("backend hit %d times, want 2", backend.gets)
	}
}

func TestStoreMissingKeyReturnsFallbackAndCachesMiss(t *testing.T) {
	backend := &fakeBackend{values: map[string]string{}}
	store, _ := newTestStore(backend, 30*time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if got := store.Get(ctx, "absent", "fallback"); got != "fallback" {
			t.Fatalf("Get = %q, want fallback", got)
		}
	}
	if backend.gets != 1 {
		t.Errorf("misses should be cached; backend hit %d times", backend.gets)
	}
}

func TestStoreBackendErrorReturnsFallback(t *testing.T) {
	backend := &fakeBackend{failAll: true}
	store, _ := newTestStore(backend, 30*time.Second)

	if got := store.Get(context.Background(), "k", "fallback"); got != "fallback" {
		t.Errorf("Get = %q, want fallback on backend error", got)
	}
}

func TestStoreSetInvalidatesCache(t *testing.T) {
	backend := &fakeBackend{values: map[string]string{"k": "old"}}
	store, _ := newTestStore(backend, 30*time.Second)
	ctx := context.Background()

	store.Get(ctx, "k", "")
	if err := store.Set(ctx, "k", "new"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := store.Get(ctx, "k", ""); got != "new" {
		t.Errorf("Get after Set = %q, want new", got)
	}
}

func TestGetBool(t *testing.T) {
	backend := &fakeBackend{values: map[string]string{
		"flag.on":   "true",
		"flag.off":  "0",
		"flag.junk": "maybe",
	}}
	store, _ := newTestStore(backend, time.Second)
	ctx := context.Background()

	if !store.GetBool(ctx, "flag.on", false) {
		t.Error("flag.on should be true")
	}
	if store.GetBool(ctx, "flag.off", true) {
		t.Error("flag.off should be false")
	}
	if !store.GetBool(ctx, "flag.junk", true) {
		t.Error("unparseable value should fall back")
	}
	if store.GetBool(ctx, "flag.absent", false) {
		t.Error("absent flag should fall back")
	}
}
