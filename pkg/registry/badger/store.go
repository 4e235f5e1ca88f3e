// Package badger implements the identity registry on BadgerDB,
// giving resolved identifiers a life beyond the process. Useful for
// short-lived tools that repeatedly open the same deeply nested
// domains: the first run pays for the round trips, later runs start
// from a warm cache.
//
// Staleness is handled two ways: entries carry a TTL, and the engine
// invalidates parents on every structural mutation it performs itself.
// Mutations made by other processes are invisible until the TTL
// expires; this mirrors the engine's documented lack of cross-process
// consistency.
package badger

import (
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/h5works/restfs/internal/logger"
	"github.com/h5works/restfs/pkg/registry"
)

// Config holds badger-store options.
type Config struct {
	// Path is the database directory. Required.
	Path string `mapstructure:"path"`

	// TTL is the entry lifetime. Zero means DefaultTTL.
	TTL time.Duration `mapstructure:"ttl"`

	// InMemory runs badger without disk persistence. Tests only.
	InMemory bool `mapstructure:"in_memory"`
}

// DefaultTTL bounds how long a cached identifier may be served without
// revalidation against the server.
const DefaultTTL = 10 * time.Minute

// Store is a badger-backed registry store.
type Store struct {
	db  *badger.DB
	ttl time.Duration
}

// NewStore opens (or creates) the badger database at cfg.Path.
func NewStore(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger registry: path is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(nil).
		WithInMemory(cfg.InMemory)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger registry: open %q: %w", cfg.Path, err)
	}

	logger.Debug("registry: opened badger store at %q (ttl %v)", cfg.Path, ttl)
	return &Store{db: db, ttl: ttl}, nil
}

// Lookup implements registry.Store.
func (s *Store) Lookup(domain, parentURI, segment string) (string, bool, error) {
	var uri string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(domain, parentURI, segment))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			uri = string(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger registry: lookup: %w", err)
	}
	return uri, true, nil
}

// Insert implements registry.Store.
func (s *Store) Insert(domain, parentURI, segment, uri string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(entryKey(domain, parentURI, segment), []byte(uri)).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("badger registry: insert: %w", err)
	}
	return nil
}

// InvalidateParent implements registry.Store. All entries under the
// parent are removed in a single transaction so a concurrent reader
// never observes a partially invalidated bucket.
func (s *Store) InvalidateParent(domain, parentURI string) error {
	return s.deletePrefix(parentPrefix(domain, parentURI))
}

// InvalidateDomain implements registry.Store.
func (s *Store) InvalidateDomain(domain string) error {
	return s.deletePrefix(domainPrefix(domain))
}

func (s *Store) deletePrefix(prefix []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("badger registry: invalidate: %w", err)
	}
	return nil
}

// Close implements registry.Store.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ registry.Store = (*Store)(nil)
