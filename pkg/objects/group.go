package objects

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/internal/logger"
	"github.com/h5works/restfs/pkg/errstack"
)

// splitParentChild separates a pathname into the path of the enclosing
// group and the final link name.
func splitParentChild(p string) (parentPath, name string) {
	p = strings.TrimRight(p, "/")
	dir, base := path.Split(p)
	if dir == "" {
		dir = "."
	}
	return strings.TrimRight(dir, "/") + "/", base
}

// CreateGroup creates a group at the given pathname (absolute from the
// domain root, or relative to parent) and returns its handle. The
// enclosing group must already exist.
func (d *Domain) CreateGroup(ctx context.Context, parent *Handle, pathname string) (*Handle, error) {
	const op = "objects.CreateGroup"
	if err := parent.check(op); err != nil {
		return nil, err
	}

	parentPath, name := splitParentChild(pathname)
	if name == "" {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: fmt.Sprintf("pathname %q names no group", pathname),
		})
	}

	enclosing, err := d.resolve(ctx, parent, parentPath, KindGroup)
	if err != nil {
		return nil, err
	}

	reqBody, err := codec.EncodeGroupCreate(enclosing.uri, name)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}

	_, body, err := d.sess.Exchange(ctx, http.MethodPost, "/groups", nil, reqBody)
	if err != nil {
		return nil, errstack.Translate(op, err)
	}
	id, err := codec.DecodeID(body)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}

	// The parent's link set changed; cached identifiers under it are
	// no longer authoritative.
	if err := d.client.reg.InvalidateParent(d.sess.Domain(), enclosing.uri); err != nil {
		logger.Warn("objects: registry invalidation failed for %s: %v", enclosing.uri, err)
	}

	if d.client.cfg.Diagnostics.Trace {
		logger.Debug("objects: created group %s at %q", id, pathname)
	}
	return &Handle{kind: KindGroup, uri: id, path: joinPath(enclosing.path, name), domain: d}, nil
}

// OpenGroup resolves a pathname to an existing group, following links
// hop by hop.
func (d *Domain) OpenGroup(ctx context.Context, parent *Handle, pathname string) (*Handle, error) {
	const op = "objects.OpenGroup"
	if err := parent.check(op); err != nil {
		return nil, err
	}
	h, err := d.resolve(ctx, parent, pathname, KindGroup)
	if err != nil {
		return nil, err
	}
	if h.kind == KindFile {
		h.kind = KindGroup
	}
	return h, nil
}

// Link is a named edge from a group to another object.
type Link struct {
	// Name is the link's title under its group.
	Name string

	// Kind discriminates the link's class.
	Kind LinkKind

	// TargetURI is the identifier of a hard link's target.
	TargetURI string

	// TargetPath is a soft or external link's stored pathname.
	TargetPath string

	// TargetDomain is an external link's target domain.
	TargetDomain string

	// Collection is the REST collection of a hard link's target.
	Collection string

	// Created is the server-reported creation time (seconds since epoch).
	Created float64
}

// LinkKind discriminates link classes.
type LinkKind int

const (
	LinkHard LinkKind = iota
	LinkSoft
	LinkExternal

	// LinkUserDefined is reported in listings but cannot be followed.
	LinkUserDefined
)

func (k LinkKind) String() string {
	switch k {
	case LinkHard:
		return "hard"
	case LinkSoft:
		return "soft"
	case LinkExternal:
		return "external"
	case LinkUserDefined:
		return "user-defined"
	default:
		return "unknown"
	}
}

func linkFromBody(body *codec.LinkBody) (Link, error) {
	link := Link{
		Name:         body.Title,
		TargetURI:    body.ID,
		TargetPath:   body.H5Path,
		TargetDomain: body.H5Domain,
		Collection:   body.Collection,
		Created:      body.Created,
	}
	switch body.Class {
	case codec.LinkClassHard:
		link.Kind = LinkHard
	case codec.LinkClassSoft:
		link.Kind = LinkSoft
	case codec.LinkClassExternal:
		link.Kind = LinkExternal
	case codec.LinkClassUser:
		link.Kind = LinkUserDefined
	default:
		return Link{}, fmt.Errorf("unknown link class %q", body.Class)
	}
	return link, nil
}

// GetLink retrieves one link of a group by name without following it.
func (d *Domain) GetLink(ctx context.Context, group *Handle, name string) (Link, error) {
	const op = "objects.GetLink"
	if err := group.check(op); err != nil {
		return Link{}, err
	}

	resourcePath := fmt.Sprintf("/groups/%s/links/%s", group.uri, codec.EscapePathName(name))
	_, body, err := d.sess.Exchange(ctx, http.MethodGet, resourcePath, nil, nil)
	if err != nil {
		return Link{}, errstack.Translate(op, err)
	}
	linkBody, err := codec.DecodeLink(body)
	if err != nil {
		return Link{}, errstack.BadResponse(op, err)
	}
	link, err := linkFromBody(linkBody)
	if err != nil {
		return Link{}, errstack.BadResponse(op, err)
	}
	return link, nil
}

// CreateHardLink links name under group directly to the target handle.
func (d *Domain) CreateHardLink(ctx context.Context, group *Handle, name string, target *Handle) error {
	const op = "objects.CreateHardLink"
	if err := target.check(op); err != nil {
		return err
	}
	reqBody, err := codec.EncodeHardLink(target.uri)
	if err != nil {
		return errstack.BadResponse(op, err)
	}
	return d.putLink(ctx, op, group, name, reqBody)
}

// CreateSoftLink links name under group to a stored pathname, resolved
// on traversal.
func (d *Domain) CreateSoftLink(ctx context.Context, group *Handle, name, targetPath string) error {
	const op = "objects.CreateSoftLink"
	reqBody, err := codec.EncodeSoftLink(targetPath)
	if err != nil {
		return errstack.BadResponse(op, err)
	}
	return d.putLink(ctx, op, group, name, reqBody)
}

// CreateExternalLink links name under group to a pathname inside
// another domain.
func (d *Domain) CreateExternalLink(ctx context.Context, group *Handle, name, targetDomain, targetPath string) error {
	const op = "objects.CreateExternalLink"
	reqBody, err := codec.EncodeExternalLink(targetDomain, targetPath)
	if err != nil {
		return errstack.BadResponse(op, err)
	}
	return d.putLink(ctx, op, group, name, reqBody)
}

func (d *Domain) putLink(ctx context.Context, op string, group *Handle, name string, reqBody []byte) error {
	if err := group.check(op); err != nil {
		return err
	}
	if name == "" || strings.Contains(name, "/") {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: fmt.Sprintf("invalid link name %q", name),
		})
	}

	resourcePath := fmt.Sprintf("/groups/%s/links/%s", group.uri, codec.EscapePathName(name))
	if _, _, err := d.sess.Exchange(ctx, http.MethodPut, resourcePath, nil, reqBody); err != nil {
		return errstack.Translate(op, err)
	}

	if err := d.client.reg.InvalidateParent(d.sess.Domain(), group.uri); err != nil {
		logger.Warn("objects: registry invalidation failed for %s: %v", group.uri, err)
	}
	return nil
}

// DeleteLink removes the named link from a group. The target object
// itself is unaffected; unlinked objects are the server's concern.
func (d *Domain) DeleteLink(ctx context.Context, group *Handle, name string) error {
	const op = "objects.DeleteLink"
	if err := group.check(op); err != nil {
		return err
	}

	resourcePath := fmt.Sprintf("/groups/%s/links/%s", group.uri, codec.EscapePathName(name))
	if _, _, err := d.sess.Exchange(ctx, http.MethodDelete, resourcePath, nil, nil); err != nil {
		return errstack.Translate(op, err)
	}

	if err := d.client.reg.InvalidateParent(d.sess.Domain(), group.uri); err != nil {
		logger.Warn("objects: registry invalidation failed for %s: %v", group.uri, err)
	}
	return nil
}
