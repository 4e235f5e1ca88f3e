// Package memory implements the identity registry as an in-process
// map. This is the default store: cache entries live exactly as long
// as the process and cost one map lookup.
package memory

import (
	"sync"

	"github.com/h5works/restfs/pkg/registry"
)

// Config holds memory-store options.
type Config struct {
	// MaxEntries bounds the cache size. 0 means unlimited. When the
	// bound is reached, Insert drops the entire parent bucket of the
	// incoming entry first; eviction never leaves a parent bucket
	// partially populated, which would violate the one-authoritative-
	// mapping invariant.
	MaxEntries int `mapstructure:"max_entries"`
}

// Store is a mutex-guarded two-level map: (domain, parent) → segment → uri.
type Store struct {
	mu      sync.RWMutex
	buckets map[bucketKey]map[string]string
	entries int
	max     int
}

type bucketKey struct {
	domain    string
	parentURI string
}

// NewStore creates a memory registry store.
func NewStore(cfg Config) *Store {
	return &Store{
		buckets: make(map[bucketKey]map[string]string),
		max:     cfg.MaxEntries,
	}
}

// Lookup implements registry.Store.
func (s *Store) Lookup(domain, parentURI, segment string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.buckets[bucketKey{domain, parentURI}]
	if !ok {
		return "", false, nil
	}
	uri, ok := bucket[segment]
	return uri, ok, nil
}

// Insert implements registry.Store.
func (s *Store) Insert(domain, parentURI, segment, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bucketKey{domain, parentURI}
	bucket, ok := s.buckets[key]
	if !ok {
		if s.max > 0 && s.entries >= s.max {
			s.evictOneLocked()
		}
		bucket = make(map[string]string)
		s.buckets[key] = bucket
	}
	if _, exists := bucket[segment]; !exists {
		s.entries++
	}
	bucket[segment] = uri
	return nil
}

// evictOneLocked drops an arbitrary bucket to make room. Go map order
// gives a cheap pseudo-random victim.
func (s *Store) evictOneLocked() {
	for key, bucket := range s.buckets {
		s.entries -= len(bucket)
		delete(s.buckets, key)
		return
	}
}

// InvalidateParent implements registry.Store.
func (s *Store) InvalidateParent(domain, parentURI string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := bucketKey{domain, parentURI}
	if bucket, ok := s.buckets[key]; ok {
		s.entries -= len(bucket)
		delete(s.buckets, key)
	}
	return nil
}

// InvalidateDomain implements registry.Store.
func (s *Store) InvalidateDomain(domain string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, bucket := range s.buckets {
		if key.domain == domain {
			s.entries -= len(bucket)
			delete(s.buckets, key)
		}
	}
	return nil
}

// Close implements registry.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[bucketKey]map[string]string)
	s.entries = 0
	return nil
}

var _ registry.Store = (*Store)(nil)
