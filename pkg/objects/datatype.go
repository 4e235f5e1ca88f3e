package objects

import (
	"context"
	"fmt"
	"net/http"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/internal/logger"
	"github.com/h5works/restfs/pkg/errstack"
)

// CommitDatatype stores a datatype as a first-class named object at
// the given pathname and returns its handle. Committed datatypes can
// be shared by multiple datasets and carry attributes of their own.
func (d *Domain) CommitDatatype(ctx context.Context, parent *Handle, pathname string, dtype Datatype) (*Handle, error) {
	const op = "objects.CommitDatatype"
	if err := parent.check(op); err != nil {
		return nil, err
	}

	parentPath, name := splitParentChild(pathname)
	if name == "" {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: fmt.Sprintf("pathname %q names no datatype", pathname),
		})
	}

	enclosing, err := d.resolve(ctx, parent, parentPath, KindGroup)
	if err != nil {
		return nil, err
	}

	reqBody, err := codec.EncodeDatatypeCommit(string(dtype), enclosing.uri, name)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}

	_, body, err := d.sess.Exchange(ctx, http.MethodPost, "/datatypes", nil, reqBody)
	if err != nil {
		return nil, errstack.Translate(op, err)
	}
	id, err := codec.DecodeID(body)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}

	if err := d.client.reg.InvalidateParent(d.sess.Domain(), enclosing.uri); err != nil {
		logger.Warn("objects: registry invalidation failed for %s: %v", enclosing.uri, err)
	}
	return &Handle{kind: KindDatatype, uri: id, path: joinPath(enclosing.path, name), domain: d}, nil
}

// OpenDatatype resolves a pathname to an existing committed datatype
// using the server's typed h5path lookup. See resolveTyped for the
// soft-link boundary this implies.
func (d *Domain) OpenDatatype(ctx context.Context, parent *Handle, pathname string) (*Handle, error) {
	const op = "objects.OpenDatatype"
	if err := parent.check(op); err != nil {
		return nil, err
	}
	return d.resolveTyped(ctx, parent, pathname, KindDatatype)
}
