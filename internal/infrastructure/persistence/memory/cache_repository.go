package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/suppertime/v1/internal/ports/outbound"
)

// ErrCacheMiss is returned on a missing or expired key. Callers treat
// any Get error as a miss.
var ErrCacheMiss = errors.New("cache: key not found")

const defaultCacheTTL = 24 * time.Hour

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// CacheRepository is the in-process cache used in dev mode and tests.
type CacheRepository struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
}

// NewCacheRepository creates the cache and starts its janitor.
func NewCacheRepository() outbound.CacheRepository {
	repo := &CacheRepository{data: make(map[string]cacheEntry)}
	go repo.cleanup()
	return repo
}

// Get retrieves a value, treating expired entries as absent.
func (r *CacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.data[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value. A zero ttl falls back to the default.
func (r *CacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes one key.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, key)
	return nil
}

// DeleteByPrefix removes every key sharing the prefix.
func (r *CacheRepository) DeleteByPrefix(ctx context.Context, prefix string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.data {
		if strings.HasPrefix(key, prefix) {
			delete(r.data, key)
		}
	}
	return nil
}

// Exists reports whether the key holds a live entry.
func (r *CacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.data[key]
	return ok && time.Now().Before(entry.expiresAt), nil
}

// cleanup sweeps expired entries so long-lived processes don't grow
// without bound.
func (r *CacheRepository) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		r.mu.Lock()
		for key, entry := range r.data {
			if now.After(entry.expiresAt) {
				delete(r.data, key)
			}
		}
		r.mu.Unlock()
	}
}
