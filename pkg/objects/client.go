// Package objects implements the hierarchical data-object model on top
// of the remote store's REST protocol: domains, groups, datasets,
// attributes, committed datatypes, links and references.
//
// The model is handle-based. Opening a domain yields a *Domain whose
// root group anchors path resolution; operations take pathnames
// relative to a handle (or absolute from the domain root) and resolve
// them to server-assigned identifiers through the identity registry,
// following links as needed.
//
// Threading contract: one logical thread of control per open domain.
// The engine performs no internal parallelism and exposes no
// asynchronous callbacks; every operation blocks until the server
// responds or the transport fails.
package objects

import (
	"context"
	"fmt"
	"net/http"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/internal/logger"
	"github.com/h5works/restfs/internal/transport"
	"github.com/h5works/restfs/pkg/config"
	"github.com/h5works/restfs/pkg/errstack"
	"github.com/h5works/restfs/pkg/registry"
)

// maxLinkHops bounds soft-link dereferencing during path resolution.
// This guards against, but does not eliminate, link cycles: a cycle
// burns through the budget and fails with TooManyLinkHops instead of
// recursing unboundedly.
const maxLinkHops = 16

var trackRecords bool

// Init establishes the process-wide engine state (the diagnostic error
// stack and the tracking switches). Operations attempted before Init
// or after Term fail loudly.
func Init(diag config.DiagnosticsConfig) {
	errstack.Init()
	trackRecords = diag.TrackRecords
}

// Term tears down process-wide state. With record tracking enabled,
// error records left uninspected on the diagnostic stack are reported
// as a leak signal; this is diagnostic, never fatal.
func Term() {
	n := errstack.Term()
	if trackRecords && n > 0 {
		logger.Warn("objects: %d diagnostic record(s) left on the error stack at termination", n)
	}
}

// Client owns the connection configuration and the identity-registry
// store shared by the domains it opens.
type Client struct {
	cfg *config.Config
	reg registry.Store
}

// Connect builds a Client from configuration. The registry store is
// created here; no network traffic occurs until a domain is opened.
func Connect(cfg *config.Config) (*Client, error) {
	reg, err := config.CreateRegistryStore(&cfg.Registry)
	if err != nil {
		return nil, fmt.Errorf("objects: %w", err)
	}
	return &Client{cfg: cfg, reg: reg}, nil
}

// Registry exposes the client's identity-registry store.
func (c *Client) Registry() registry.Store { return c.reg }

// Close releases the registry store. Open domains must be closed
// first; their sessions are independent of the client.
func (c *Client) Close() error {
	return c.reg.Close()
}

// Domain is an open domain (the server's notion of a file): one
// transport session plus the root group handle.
type Domain struct {
	client *Client
	sess   *transport.Session
	path   string
	root   *Handle
	closed bool
}

// session opens a transport session bound to the given domain path.
func (c *Client) session(domainPath string) (*transport.Session, error) {
	retry := transport.RetryPolicy{}
	if c.cfg.Server.MaxRetries > 0 {
		retry = transport.DefaultRetryPolicy
		retry.MaxRetries = c.cfg.Server.MaxRetries
	}
	return transport.Open(transport.Config{
		Endpoint:       c.cfg.Server.Endpoint,
		Domain:         domainPath,
		Username:       c.cfg.Server.Username,
		Password:       c.cfg.Server.Password,
		RequestTimeout: c.cfg.Server.RequestTimeout,
		Retry:          retry,
		Trace:          c.cfg.Diagnostics.TransportTrace,
	})
}

// OpenDomain opens an existing domain and resolves its root group.
func (c *Client) OpenDomain(ctx context.Context, domainPath string) (*Domain, error) {
	return c.openDomain(ctx, domainPath, http.MethodGet)
}

// CreateDomain creates a new domain on the server and opens it.
func (c *Client) CreateDomain(ctx context.Context, domainPath string) (*Domain, error) {
	return c.openDomain(ctx, domainPath, http.MethodPut)
}

func (c *Client) openDomain(ctx context.Context, domainPath, method string) (*Domain, error) {
	op := "objects.OpenDomain"
	if method == http.MethodPut {
		op = "objects.CreateDomain"
	}
	if domainPath == "" {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: "domain path is empty",
		})
	}

	sess, err := c.session(domainPath)
	if err != nil {
		return nil, errstack.Push(&errstack.Record{
			Major:   errstack.ObjectError,
			Minor:   errstack.TransportFailure,
			Op:      op,
			Message: "cannot open session",
			Cause:   err,
		})
	}

	_, body, err := sess.Exchange(ctx, method, "/", nil, nil)
	if err != nil {
		sess.Close()
		return nil, errstack.Translate(op, err)
	}

	dom, err := decodeDomainRoot(c, sess, domainPath, body)
	if err != nil {
		sess.Close()
		return nil, errstack.BadResponse(op, err)
	}

	if c.cfg.Diagnostics.Trace {
		logger.Debug("objects: opened domain %q (root %s)", domainPath, dom.root.uri)
	}
	return dom, nil
}

func decodeDomainRoot(c *Client, sess *transport.Session, domainPath string, body []byte) (*Domain, error) {
	resp, err := codec.DecodeDomain(body)
	if err != nil {
		return nil, err
	}
	dom := &Domain{client: c, sess: sess, path: domainPath}
	dom.root = &Handle{kind: KindFile, uri: resp.Root, path: "/", domain: dom}
	return dom, nil
}

// DeleteDomain removes a domain from the server and drops every
// registry entry cached for it.
func (c *Client) DeleteDomain(ctx context.Context, domainPath string) error {
	const op = "objects.DeleteDomain"

	sess, err := c.session(domainPath)
	if err != nil {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ObjectError,
			Minor:   errstack.TransportFailure,
			Op:      op,
			Message: "cannot open session",
			Cause:   err,
		})
	}
	defer sess.Close()

	if _, _, err := sess.Exchange(ctx, http.MethodDelete, "/", nil, nil); err != nil {
		return errstack.Translate(op, err)
	}
	if err := c.reg.InvalidateDomain(domainPath); err != nil {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ObjectError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: "domain deleted but registry invalidation failed",
			Cause:   err,
		})
	}
	return nil
}

// Path returns the domain path.
func (d *Domain) Path() string { return d.path }

// Root returns the domain's root group handle. The root handle is
// owned by the domain and released by Close.
func (d *Domain) Root() *Handle { return d.root }

// Close releases the root handle and the transport session. A closed
// domain invalidates every handle created through it.
func (d *Domain) Close() error {
	if d.closed {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.InvalidHandle,
			Op:      "objects.Domain.Close",
			Message: "domain already closed",
		})
	}
	if !d.root.released {
		d.root.released = true
	}
	d.closed = true
	d.sess.Close()
	return nil
}
