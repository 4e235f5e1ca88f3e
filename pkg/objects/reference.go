package objects

import (
	"context"
	"fmt"
	"net/http"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/pkg/errstack"
)

// RefKind discriminates reference kinds. Only object references are
// supported; region references require dataspace semantics outside
// the remote backend's surface.
type RefKind int

const (
	RefObject RefKind = iota
	RefRegion
)

// Reference is a value type identifying a remote object: the reference
// kind, the referenced object's kind, and its identifier. References
// are copied by value and exchanged with callers.
//
// The identifier is an owned string validated against the protocol
// bound at construction; identifiers that would exceed it are rejected
// rather than truncated.
type Reference struct {
	Kind       RefKind
	ObjectKind ObjectKind
	URI        string
}

// NewObjectReference builds a reference to the object behind a handle.
func NewObjectReference(h *Handle) (Reference, error) {
	const op = "objects.NewObjectReference"
	if err := h.check(op); err != nil {
		return Reference{}, err
	}
	if err := codec.ValidateURI(h.uri); err != nil {
		return Reference{}, errstack.Push(&errstack.Record{
			Major:   errstack.ObjectError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: "handle identifier violates the protocol bound",
			Cause:   err,
		})
	}
	kind := h.kind
	if kind == KindFile {
		kind = KindGroup
	}
	return Reference{Kind: RefObject, ObjectKind: kind, URI: h.uri}, nil
}

// Dereference opens a handle to the object a reference identifies. The
// object's existence is verified with the server.
func (d *Domain) Dereference(ctx context.Context, ref Reference) (*Handle, error) {
	const op = "objects.Dereference"
	if d.closed {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.InvalidHandle,
			Op:      op,
			Message: "domain is closed",
		})
	}
	if ref.Kind != RefObject {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.Unsupported,
			Op:      op,
			Message: "only object references can be dereferenced",
		})
	}
	if err := codec.ValidateURI(ref.URI); err != nil {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ObjectError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: "reference identifier violates the protocol bound",
			Cause:   err,
		})
	}

	collection, err := codec.CollectionFor(ref.URI)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}

	_, body, err := d.sess.Exchange(ctx, http.MethodGet, fmt.Sprintf("/%s/%s", collection, ref.URI), nil, nil)
	if err != nil {
		return nil, errstack.Translate(op, err)
	}
	obj, err := codec.DecodeObject(body)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}

	kind, err := kindForCollection(collection, obj.ID)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}
	return &Handle{kind: kind, uri: obj.ID, domain: d}, nil
}
