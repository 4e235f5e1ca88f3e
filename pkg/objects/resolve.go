package objects

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/internal/logger"
	"github.com/h5works/restfs/pkg/errstack"
)

// resolution is the transient per-resolution context: the hop counter
// shared across soft-link substitutions. There is no visited set; the
// counter bounds cyclic chains instead of detecting them.
type resolution struct {
	hops int
}

// openExternal indirects external-link domain opens. A variable so
// tests can observe the target domain's lifecycle.
var openExternal = func(ctx context.Context, c *Client, domainPath string) (*Domain, error) {
	return c.OpenDomain(ctx, domainPath)
}

// splitPath normalizes a pathname into its components.
//
// Policy (documented, asserted by tests): leading spaces are trimmed,
// trailing separators are stripped, so "/a/b/" resolves identically to
// "/a/b". Empty interior components ("/a//b") are malformed. "."
// components add nothing to the walk and are dropped, so "." and "./"
// alone refer to the starting object; ".." has no parent-group meaning
// in this model and is rejected.
func splitPath(path string) (components []string, absolute bool, err error) {
	path = strings.TrimLeft(path, " ")
	if path == "" {
		return nil, false, fmt.Errorf("empty pathname")
	}
	if path == "." {
		return nil, false, nil
	}
	if path == "/" {
		return nil, true, nil
	}

	absolute = strings.HasPrefix(path, "/")
	trimmed := strings.Trim(path, "/")
	for strings.HasPrefix(trimmed, "./") {
		trimmed = trimmed[2:]
	}
	if trimmed == "" {
		return nil, absolute, fmt.Errorf("pathname %q has no components", path)
	}

	parts := strings.Split(trimmed, "/")
	for _, part := range parts {
		switch part {
		case "":
			return nil, false, fmt.Errorf("pathname %q contains an empty component", path)
		case "..":
			return nil, false, fmt.Errorf("pathname %q uses unsupported parent notation", path)
		case ".":
			// Self-references add nothing to the walk.
		default:
			components = append(components, part)
		}
	}
	return components, absolute, nil
}

// resolve walks a pathname from parent and returns a handle to the
// target object. want narrows the expected kind; KindUnknown accepts
// any object and walks link by link, following soft links as they are
// encountered.
//
// Side effect: every hard hop is inserted into the identity registry.
func (d *Domain) resolve(ctx context.Context, parent *Handle, path string, want ObjectKind) (*Handle, error) {
	const op = "objects.resolve"

	components, absolute, err := splitPath(path)
	if err != nil {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: err.Error(),
		})
	}

	start := parent
	if absolute {
		start = d.root
	}

	if len(components) == 0 {
		// "." or "/": the target is the starting object itself.
		if want != KindUnknown && want != start.kind && !(want == KindGroup && start.kind == KindFile) {
			return nil, errstack.Push(&errstack.Record{
				Major:   errstack.ObjectError,
				Minor:   errstack.NotFound,
				Op:      op,
				Message: fmt.Sprintf("object at %q is a %s, not a %s", path, start.kind, want),
			})
		}
		return &Handle{kind: start.kind, uri: start.uri, path: start.path, domain: start.domain}, nil
	}

	res := &resolution{}
	return d.walk(ctx, start, components, path, want, res)
}

// walk resolves components one hop at a time from parent.
func (d *Domain) walk(ctx context.Context, parent *Handle, components []string, fullPath string, want ObjectKind, res *resolution) (*Handle, error) {
	const op = "objects.resolve"

	current := parent
	for i, segment := range components {
		link, err := d.lookupLink(ctx, current, segment)
		if err != nil {
			return nil, err
		}

		switch link.Class {
		case codec.LinkClassHard:
			if err := d.client.reg.Insert(d.sess.Domain(), current.uri, segment, link.ID); err != nil {
				logger.Warn("objects: registry insert failed for %q under %s: %v", segment, current.uri, err)
			}
			kind, err := kindForCollection(link.Collection, link.ID)
			if err != nil {
				return nil, errstack.BadResponse(op, err)
			}
			current = &Handle{kind: kind, uri: link.ID, path: joinPath(current.path, segment), domain: current.domain}

		case codec.LinkClassSoft:
			res.hops++
			if res.hops > maxLinkHops {
				return nil, errstack.Push(&errstack.Record{
					Major:   errstack.ObjectError,
					Minor:   errstack.TooManyLinkHops,
					Op:      op,
					Message: fmt.Sprintf("resolution of %q exceeded %d link hops", fullPath, maxLinkHops),
				})
			}
			// Substitute the stored target path and continue with the
			// remaining components appended.
			target := link.H5Path
			targetComponents, targetAbsolute, err := splitPath(target)
			if err != nil {
				return nil, errstack.Push(&errstack.Record{
					Major:   errstack.ObjectError,
					Minor:   errstack.ParseError,
					Op:      op,
					Message: fmt.Sprintf("soft link %q has malformed target %q: %v", segment, target, err),
				})
			}
			restart := current
			if targetAbsolute {
				restart = current.domain.root
			}
			remaining := append(append([]string{}, targetComponents...), components[i+1:]...)
			return current.domain.walk(ctx, restart, remaining, fullPath, want, res)

		case codec.LinkClassExternal:
			res.hops++
			if res.hops > maxLinkHops {
				return nil, errstack.Push(&errstack.Record{
					Major:   errstack.ObjectError,
					Minor:   errstack.TooManyLinkHops,
					Op:      op,
					Message: fmt.Sprintf("resolution of %q exceeded %d link hops", fullPath, maxLinkHops),
				})
			}
			// An external link crosses into another domain. The target
			// domain stays open for the lifetime of the returned
			// handle's Domain.
			ext, err := openExternal(ctx, d.client, link.H5Domain)
			if err != nil {
				return nil, err
			}
			targetComponents, _, serr := splitPath(link.H5Path)
			if serr != nil {
				ext.Close()
				return nil, errstack.Push(&errstack.Record{
					Major:   errstack.ObjectError,
					Minor:   errstack.ParseError,
					Op:      op,
					Message: fmt.Sprintf("external link %q has malformed target %q: %v", segment, link.H5Path, serr),
				})
			}
			remaining := append(append([]string{}, targetComponents...), components[i+1:]...)
			h, err := ext.walk(ctx, ext.root, remaining, fullPath, want, res)
			if err != nil {
				ext.Close()
				return nil, err
			}
			return h, nil

		default:
			return nil, errstack.Push(&errstack.Record{
				Major:   errstack.ObjectError,
				Minor:   errstack.Unsupported,
				Op:      op,
				Message: fmt.Sprintf("link %q has unsupported class %q", segment, link.Class),
			})
		}
	}

	if want != KindUnknown && current.kind != want && !(want == KindGroup && current.kind == KindFile) {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ObjectError,
			Minor:   errstack.NotFound,
			Op:      op,
			Message: fmt.Sprintf("object at %q is a %s, not a %s", fullPath, current.kind, want),
		})
	}
	return current, nil
}

// lookupLink finds the link named segment under parent, consulting the
// identity registry first and falling back to a server request.
//
// Registry hits are returned as synthetic hard links: only hard hops
// are ever cached, so a cached identifier implies a hard link.
func (d *Domain) lookupLink(ctx context.Context, parent *Handle, segment string) (*codec.LinkBody, error) {
	const op = "objects.resolve"

	dom := parent.domain
	if uri, ok, err := dom.client.reg.Lookup(dom.sess.Domain(), parent.uri, segment); err == nil && ok {
		collection, cerr := codec.CollectionFor(uri)
		if cerr != nil {
			return nil, errstack.BadResponse(op, cerr)
		}
		return &codec.LinkBody{Class: codec.LinkClassHard, Title: segment, ID: uri, Collection: collection}, nil
	} else if err != nil {
		logger.Warn("objects: registry lookup failed for %q under %s: %v", segment, parent.uri, err)
	}

	resourcePath := fmt.Sprintf("/groups/%s/links/%s", parent.uri, codec.EscapePathName(segment))
	_, body, err := dom.sess.Exchange(ctx, http.MethodGet, resourcePath, nil, nil)
	if err != nil {
		return nil, errstack.Translate(op, err)
	}
	link, err := codec.DecodeLink(body)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}
	return link, nil
}

// resolveTyped locates an object of a known kind through the server's
// h5path lookup. This avoids a round trip per component, but the
// server resolves the path without following client-visible soft
// links: a path whose intermediate component is reachable only through
// a soft link is not guaranteed to succeed and surfaces as NotFound.
// That asymmetry is a documented boundary of the protocol, preserved
// here rather than papered over.
func (d *Domain) resolveTyped(ctx context.Context, parent *Handle, path string, want ObjectKind) (*Handle, error) {
	op := fmt.Sprintf("objects.resolveTyped(%s)", want)

	components, absolute, err := splitPath(path)
	if err != nil {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: err.Error(),
		})
	}
	if len(components) == 0 {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: fmt.Sprintf("pathname %q does not name a %s", path, want),
		})
	}

	query := url.Values{}
	query.Set("h5path", "/"+strings.Join(components, "/"))
	if !absolute && parent.uri != d.root.uri {
		query.Set("grpid", parent.uri)
		query.Set("h5path", strings.Join(components, "/"))
	}

	resourcePath := "/" + want.collection() + "/"
	_, body, err := d.sess.Exchange(ctx, http.MethodGet, resourcePath, query, nil)
	if err != nil {
		return nil, errstack.Translate(op, err)
	}
	obj, err := codec.DecodeObject(body)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}
	return &Handle{kind: want, uri: obj.ID, path: joinPath(parent.path, strings.Join(components, "/")), domain: d}, nil
}

func kindForCollection(collection, uri string) (ObjectKind, error) {
	if collection == "" {
		derived, err := codec.CollectionFor(uri)
		if err != nil {
			return KindUnknown, err
		}
		collection = derived
	}
	switch collection {
	case "groups":
		return KindGroup, nil
	case "datasets":
		return KindDataset, nil
	case "datatypes":
		return KindDatatype, nil
	default:
		return KindUnknown, fmt.Errorf("unknown collection %q", collection)
	}
}

func joinPath(base, segment string) string {
	if base == "" || base == "/" {
		return "/" + segment
	}
	return base + "/" + segment
}
