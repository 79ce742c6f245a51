// Package settings provides the persisted key/value configuration store
// used for classifier credentials and other runtime-tunable values. Reads
// go through a short-lived cache because the store is consulted on every
// classification attempt.
package settings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by backends when a key has no stored value.
var ErrNotFound = errors.New("setting not found")

// DefaultCacheTTL bounds how stale a cached setting may be.
const DefaultCacheTTL = 30 * time.Second

// Backend is the persistence interface behind the cached store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Repository is the PostgreSQL settings backend.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the stored value for key, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.pool.QueryRow(ctx, `
		SELECT value FROM app_settings WHERE key = $1
	`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// Set upserts a setting.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO app_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

type cacheEntry struct {
	value     string
	found     bool
	expiresAt time.Time
}

// Store is the cached settings store handed to consumers.
type Store struct {
	backend Backend
	ttl     time.Duration
	log     *logger.Logger

	mu    sync.RWMutex
	cache map[string]cacheEntry
	now   func() time.Time
}

// NewStore wraps a backend with a TTL cache.
func NewStore(backend Backend, ttl time.Duration, log *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Store{
		backend: backend,
		ttl:     ttl,
		log:     log,
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Get returns the value for key, or fallback when the key is unset or the
// backend fails. Lookup errors are logged, never propagated; configuration
// reads must not take the classification pipeline down.
func (s *Store) Get(ctx context.Context, key, fallback string) string {
	if entry, ok := s.cached(key); ok {
		if !entry.found {
			return fallback
		}
		return entry.value
	}

	value, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.store(key, cacheEntry{found: false})
			return fallback
		}
		if s.log != nil {
			s.log.Warn("settings lookup failed", "key", key, "error", err)
		}
		return fallback
	}

	s.store(key, cacheEntry{value: value, found: true})
	return value
}

// GetBool parses the stored value as a boolean ("true"/"false", "1"/"0").
func (s *Store) GetBool(ctx context.Context, key string, fallback bool) bool {
	raw := s.Get(ctx, key, "")
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

// Set writes through to the backend and drops the cached entry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.backend.Set(ctx, key, value); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) cached(key string) (cacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[key]
	if !ok || s.now().After(entry.expiresAt) {
		return cacheEntry{}, false
	}
	return entry, true
}

func (s *Store) store(key string, entry cacheEntry) {
	entry.expiresAt = s.now().Add(s.ttl)
	s.mu.Lock()
	s.cache[key] = entry
	s.mu.Unlock()
}
