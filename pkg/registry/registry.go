// Package registry defines the identity registry: a cache mapping
// (domain, parent URI, path segment) triples to the server-assigned
// identifier of the child object. The registry exists to avoid
// redundant round trips during path resolution; it is never the source
// of truth.
//
// Coherence contract: at most one authoritative identifier per
// (parent, segment) pair at any instant. Every structural mutation
// under a parent (link create/delete, object create/delete) must
// invalidate that parent before any subsequent lookup under it is
// considered correct. The registry provides no cross-process
// consistency; two processes against the same server may observe
// stale caches.
package registry

// Entry is one cached mapping.
type Entry struct {
	// Domain is the domain path the mapping belongs to.
	Domain string

	// ParentURI is the identifier of the enclosing group.
	ParentURI string

	// Segment is the link name under the parent.
	Segment string

	// URI is the identifier of the child object.
	URI string
}

// Store is the identity registry storage interface. Implementations:
// memory (default, scoped to the process) and badger (persistent,
// survives restarts).
//
// The engine assumes single-threaded use per open domain; stores must
// still be internally consistent under concurrent use because multiple
// domains may share one store.
type Store interface {
	// Lookup returns the cached identifier for (domain, parentURI,
	// segment). ok is false on a miss; err reports storage failures
	// only, never misses.
	Lookup(domain, parentURI, segment string) (uri string, ok bool, err error)

	// Insert records a mapping, replacing any previous identifier for
	// the same triple.
	Insert(domain, parentURI, segment, uri string) error

	// InvalidateParent drops every mapping under (domain, parentURI).
	InvalidateParent(domain, parentURI string) error

	// InvalidateDomain drops every mapping for the domain. Used when a
	// domain is deleted.
	InvalidateDomain(domain string) error

	// Close releases the store.
	Close() error
}
