// Package cache provides the optional response-cache collaborator. The
// services treat it as advisory: a nil *Store is valid and means every read
// recomputes from source rows.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Store is an in-process TTL cache keyed by string. Values cached here are
// never authoritative; any mutation that could affect a cached read must
// call Invalidate.
type Store struct {
	entries sync.Map // key -> entry
}

func NewStore() *Store {
	return &Store{}
}

// GetOrCompute returns the cached value for key if present and fresh,
// otherwise calls fetcher, caches its result for ttl and returns it.
// A nil receiver always computes.
func (s *Store) GetOrCompute(key string, ttl time.Duration, fetcher func() (interface{}, error)) (interface{}, error) {
	if s == nil {
		return fetcher()
	}

	if e, ok := s.entries.Load(key); ok {
		cached := e.(entry)
		if time.Now().Before(cached.expiresAt) {
			return cached.value, nil
		}
		s.entries.Delete(key)
	}

	value, err := fetcher()
	if err != nil {
		return nil, err
	}

	s.entries.Store(key, entry{value: value, expiresAt: time.Now().Add(ttl)})
	return value, nil
}

// Invalidate removes every entry whose key matches keyOrPrefix exactly or
// starts with it. A nil receiver is a no-op.
func (s *Store) Invalidate(keyOrPrefix string) {
	if s == nil {
		return
	}
	s.entries.Range(func(k, _ interface{}) bool {
		if key := k.(string); key == keyOrPrefix || strings.HasPrefix(key, keyOrPrefix) {
			s.entries.Delete(k)
		}
		return true
	})
}
