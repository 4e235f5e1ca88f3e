// Package testing provides a reusable contract test suite for
// registry.Store implementations. The suite tests the interface
// contract, not implementation details, so every store (memory,
// badger, future backends) proves the same coherence guarantees.
package testing

import (
	"testing"

	"github.com/h5works/restfs/pkg/registry"
)

// StoreTestSuite exercises the registry.Store contract.
type StoreTestSuite struct {
	// NewStore creates a fresh store per test for isolation. The suite
	// closes each store itself.
	NewStore func(t *testing.T) registry.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("MissThenHit", suite.RunMissThenHit)
	test.Run("Replace", suite.RunReplace)
	test.Run("Isolation", suite.RunIsolation)
	test.Run("InvalidateParent", suite.RunInvalidateParent)
	test.Run("InvalidateDomain", suite.RunInvalidateDomain)
}

func (suite *StoreTestSuite) newStore(t *testing.T) registry.Store {
	t.Helper()
	store := suite.NewStore(t)
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close store: %v", err)
		}
	})
	return store
}

// RunMissThenHit verifies the basic lookup cycle: a miss is not an
// error, an inserted mapping is returned verbatim.
func (suite *StoreTestSuite) RunMissThenHit(t *testing.T) {
	store := suite.newStore(t)

	uri, ok, err := store.Lookup("/dom", "g-0001", "child")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ok {
		t.Fatalf("unexpected hit %q on empty store", uri)
	}

	if err := store.Insert("/dom", "g-0001", "child", "d-1234"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	uri, ok, err = store.Lookup("/dom", "g-0001", "child")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !ok || uri != "d-1234" {
		t.Fatalf("lookup = (%q, %v), want (d-1234, true)", uri, ok)
	}
}

// RunReplace verifies at most one authoritative identifier per
// (parent, segment) pair: a second insert wins outright.
func (suite *StoreTestSuite) RunReplace(t *testing.T) {
	store := suite.newStore(t)

	if err := store.Insert("/dom", "g-0001", "child", "d-1111"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := store.Insert("/dom", "g-0001", "child", "d-2222"); err != nil {
		t.Fatalf("replacing insert failed: %v", err)
	}

	uri, ok, err := store.Lookup("/dom", "g-0001", "child")
	if err != nil || !ok {
		t.Fatalf("lookup = (%q, %v, %v), want a hit", uri, ok, err)
	}
	if uri != "d-2222" {
		t.Fatalf("lookup = %q, want the replacing identifier d-2222", uri)
	}
}

// RunIsolation verifies mappings are keyed by the full triple: the
// same segment under different parents or domains never collides.
func (suite *StoreTestSuite) RunIsolation(t *testing.T) {
	store := suite.newStore(t)

	inserts := []registry.Entry{
		{Domain: "/dom-a", ParentURI: "g-0001", Segment: "x", URI: "d-00aa"},
		{Domain: "/dom-a", ParentURI: "g-0002", Segment: "x", URI: "d-00bb"},
		{Domain: "/dom-b", ParentURI: "g-0001", Segment: "x", URI: "d-00cc"},
	}
	for _, e := range inserts {
		if err := store.Insert(e.Domain, e.ParentURI, e.Segment, e.URI); err != nil {
			t.Fatalf("insert %+v failed: %v", e, err)
		}
	}

	for _, e := range inserts {
		uri, ok, err := store.Lookup(e.Domain, e.ParentURI, e.Segment)
		if err != nil || !ok {
			t.Fatalf("lookup %+v = (%q, %v, %v), want a hit", e, uri, ok, err)
		}
		if uri != e.URI {
			t.Fatalf("lookup %+v = %q, want %q", e, uri, e.URI)
		}
	}
}

// RunInvalidateParent verifies dropping a parent removes exactly its
// bucket: siblings under other parents survive.
func (suite *StoreTestSuite) RunInvalidateParent(t *testing.T) {
	store := suite.newStore(t)

	seed := []registry.Entry{
		{Domain: "/dom", ParentURI: "g-0001", Segment: "a", URI: "d-01"},
		{Domain: "/dom", ParentURI: "g-0001", Segment: "b", URI: "d-02"},
		{Domain: "/dom", ParentURI: "g-0002", Segment: "a", URI: "d-03"},
	}
	for _, e := range seed {
		if err := store.Insert(e.Domain, e.ParentURI, e.Segment, e.URI); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	if err := store.InvalidateParent("/dom", "g-0001"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	for _, segment := range []string{"a", "b"} {
		if _, ok, _ := store.Lookup("/dom", "g-0001", segment); ok {
			t.Fatalf("segment %q survived parent invalidation", segment)
		}
	}
	if uri, ok, _ := store.Lookup("/dom", "g-0002", "a"); !ok || uri != "d-03" {
		t.Fatalf("unrelated parent was invalidated too: (%q, %v)", uri, ok)
	}

	// Invalidating a parent with no entries is a no-op, not an error.
	if err := store.InvalidateParent("/dom", "g-ffff"); err != nil {
		t.Fatalf("invalidating an absent parent failed: %v", err)
	}
}

// RunInvalidateDomain verifies dropping a domain removes every mapping
// for it and nothing else.
func (suite *StoreTestSuite) RunInvalidateDomain(t *testing.T) {
	store := suite.newStore(t)

	seed := []registry.Entry{
		{Domain: "/dom-a", ParentURI: "g-0001", Segment: "a", URI: "d-01"},
		{Domain: "/dom-a", ParentURI: "g-0002", Segment: "b", URI: "d-02"},
		{Domain: "/dom-b", ParentURI: "g-0001", Segment: "a", URI: "d-03"},
	}
	for _, e := range seed {
		if err := store.Insert(e.Domain, e.ParentURI, e.Segment, e.URI); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	if err := store.InvalidateDomain("/dom-a"); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}

	if _, ok, _ := store.Lookup("/dom-a", "g-0001", "a"); ok {
		t.Fatal("mapping survived domain invalidation")
	}
	if _, ok, _ := store.Lookup("/dom-a", "g-0002", "b"); ok {
		t.Fatal("mapping survived domain invalidation")
	}
	if uri, ok, _ := store.Lookup("/dom-b", "g-0001", "a"); !ok || uri != "d-03" {
		t.Fatalf("unrelated domain was invalidated too: (%q, %v)", uri, ok)
	}
}
