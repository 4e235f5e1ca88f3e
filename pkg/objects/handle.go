package objects

import (
	"fmt"

	"github.com/h5works/restfs/pkg/errstack"
)

// ObjectKind discriminates the typed objects of the data model.
type ObjectKind int

const (
	// KindUnknown is used during resolution when the target's type has
	// not been determined yet.
	KindUnknown ObjectKind = iota

	// KindFile is a domain root.
	KindFile

	KindGroup
	KindDataset

	// KindDatatype is a committed (named) datatype.
	KindDatatype
)

func (k ObjectKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindGroup:
		return "group"
	case KindDataset:
		return "dataset"
	case KindDatatype:
		return "datatype"
	default:
		return "unknown"
	}
}

// collection maps a kind to its REST collection segment.
func (k ObjectKind) collection() string {
	switch k {
	case KindFile, KindGroup:
		return "groups"
	case KindDataset:
		return "datasets"
	case KindDatatype:
		return "datatypes"
	default:
		return ""
	}
}

// Handle is a local representation of one remote object. The
// server-assigned identifier never changes for the handle's lifetime.
//
// Handles are exclusively owned by the caller that created them and
// must be released exactly once; every operation on a released handle
// fails with an InvalidHandle record rather than silently succeeding.
type Handle struct {
	kind     ObjectKind
	uri      string
	path     string
	domain   *Domain
	released bool
}

// Kind returns the object's kind.
func (h *Handle) Kind() ObjectKind { return h.kind }

// URI returns the server-assigned identifier.
func (h *Handle) URI() string { return h.uri }

// Path returns the pathname the handle was resolved through. Anonymous
// objects have an empty path.
func (h *Handle) Path() string { return h.path }

// Domain returns the open domain the handle belongs to.
func (h *Handle) Domain() *Domain { return h.domain }

// Release invalidates the handle. Releasing twice is an error.
func (h *Handle) Release() error {
	if h.released {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.InvalidHandle,
			Op:      "objects.Release",
			Message: fmt.Sprintf("handle %s already released", h.uri),
		})
	}
	h.released = true
	return nil
}

// check fails when the handle is released or its domain is closed.
func (h *Handle) check(op string) error {
	if h == nil {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.InvalidHandle,
			Op:      op,
			Message: "nil handle",
		})
	}
	if h.released {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.InvalidHandle,
			Op:      op,
			Message: fmt.Sprintf("use of released handle %s", h.uri),
		})
	}
	if h.domain == nil || h.domain.closed {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.InvalidHandle,
			Op:      op,
			Message: "handle's domain is closed",
		})
	}
	return nil
}
