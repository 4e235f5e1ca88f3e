package badger

import (
	"bytes"
	"testing"
)

// TestPrefixBoundaries verifies prefix scans cannot bleed across
// parents whose identifiers share a textual prefix.
func TestPrefixBoundaries(t *testing.T) {
	key := entryKey("/dom", "g-12", "child")

	if !bytes.HasPrefix(key, parentPrefix("/dom", "g-12")) {
		t.Fatal("entry key must match its own parent prefix")
	}
	if bytes.HasPrefix(key, parentPrefix("/dom", "g-1")) {
		t.Fatal("prefix for parent g-1 must not match entries under g-12")
	}
	if !bytes.HasPrefix(key, domainPrefix("/dom")) {
		t.Fatal("entry key must match its own domain prefix")
	}
	if bytes.HasPrefix(key, domainPrefix("/do")) {
		t.Fatal("prefix for domain /do must not match entries under /dom")
	}
}
