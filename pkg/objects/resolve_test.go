package objects

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h5works/restfs/pkg/errstack"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		want     []string
		absolute bool
		wantErr  bool
	}{
		{"absolute", "/a/b", []string{"a", "b"}, true, false},
		{"relative", "a/b", []string{"a", "b"}, false, false},
		{"trailing separator", "/a/b/", []string{"a", "b"}, true, false},
		{"dot", ".", nil, false, false},
		{"root", "/", nil, true, false},
		{"dot-slash prefix", "./a", []string{"a"}, false, false},
		{"dot-slash only", "./", nil, false, false},
		{"interior dot", "a/./b", []string{"a", "b"}, false, false},
		{"trailing dot", "/a/.", []string{"a"}, true, false},
		{"leading spaces", "  /a", []string{"a"}, true, false},
		{"empty", "", nil, false, true},
		{"empty interior component", "/a//b", nil, false, true},
		{"parent notation", "../a", nil, false, true},
		{"interior parent notation", "a/../b", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, absolute, err := splitPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.absolute, absolute)
		})
	}
}

// TestOpenGroupWalksPath resolves /a/b hop by hop and verifies the
// second resolution is served from the identity registry without any
// further link requests.
func TestOpenGroupWalksPath(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "a", hardLink("a", "g-00aa", "groups"))
	f.serveLink("g-00aa", "b", hardLink("b", "g-00bb", "groups"))

	_, dom := openTestDomain(t, f)
	ctx := context.Background()

	h, err := dom.OpenGroup(ctx, dom.Root(), "/a/b")
	require.NoError(t, err)
	assert.Equal(t, KindGroup, h.Kind())
	assert.Equal(t, "g-00bb", h.URI())
	assert.Equal(t, "/a/b", h.Path())

	before := f.requestCount()
	again, err := dom.OpenGroup(ctx, dom.Root(), "/a/b")
	require.NoError(t, err)
	assert.Equal(t, "g-00bb", again.URI())
	assert.Equal(t, before, f.requestCount(), "a warm registry must satisfy the walk without requests")
}

// TestTrailingSeparatorEquivalence asserts "/a/b/" and "/a/b" resolve
// to the same object.
func TestTrailingSeparatorEquivalence(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "a", hardLink("a", "g-00aa", "groups"))
	f.serveLink("g-00aa", "b", hardLink("b", "g-00bb", "groups"))

	_, dom := openTestDomain(t, f)
	ctx := context.Background()

	plain, err := dom.OpenGroup(ctx, dom.Root(), "/a/b")
	require.NoError(t, err)
	trailing, err := dom.OpenGroup(ctx, dom.Root(), "/a/b/")
	require.NoError(t, err)
	assert.Equal(t, plain.URI(), trailing.URI())
}

func TestEmptyInteriorComponentRejectedLocally(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	_, dom := openTestDomain(t, f)

	before := f.requestCount()
	_, err := dom.OpenGroup(context.Background(), dom.Root(), "/a//b")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.ParseError))
	assert.Equal(t, before, f.requestCount(), "malformed paths must fail before any request")
}

// TestOpenDatasetTypedLookup resolves /a/b through the server's typed
// pathname lookup and lands on d-123 in one request.
func TestOpenDatasetTypedLookup(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.handle("GET /datasets/{$}", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("h5path") != "/a/b" {
			writeJSONStatus(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, map[string]any{"id": "d-123"})
	})

	_, dom := openTestDomain(t, f)

	h, err := dom.OpenDataset(context.Background(), dom.Root(), "/a/b")
	require.NoError(t, err)
	assert.Equal(t, KindDataset, h.Kind())
	assert.Equal(t, "d-123", h.URI())
	assert.Equal(t, "/a/b", h.Path())
}

// TestOpenDatasetBehindIntermediateSoftLink documents the typed-lookup
// boundary: the server resolves h5path without following soft links,
// so the open fails NotFound even though a hop-by-hop walk could reach
// the dataset.
func TestOpenDatasetBehindIntermediateSoftLink(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "s", softLink("s", "/real"))
	f.handle("GET /datasets/{$}", func(w http.ResponseWriter, r *http.Request) {
		// The server's pathname resolver stops at the soft link.
		writeJSONStatus(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	_, dom := openTestDomain(t, f)

	_, err := dom.OpenDataset(context.Background(), dom.Root(), "/s/data")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.NotFound), "got %v", err)
}

// TestSoftLinkFollowed resolves a path whose first component is a soft
// link to another group.
func TestSoftLinkFollowed(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "s", softLink("s", "/a"))
	f.serveLink("g-0001", "a", hardLink("a", "g-00aa", "groups"))
	f.serveLink("g-00aa", "b", hardLink("b", "g-00bb", "groups"))

	_, dom := openTestDomain(t, f)

	h, err := dom.OpenGroup(context.Background(), dom.Root(), "/s/b")
	require.NoError(t, err)
	assert.Equal(t, "g-00bb", h.URI())
}

func TestRelativeSoftLinkFollowed(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "a", hardLink("a", "g-00aa", "groups"))
	f.serveLink("g-00aa", "s", softLink("s", "b"))
	f.serveLink("g-00aa", "b", hardLink("b", "g-00bb", "groups"))

	_, dom := openTestDomain(t, f)

	h, err := dom.OpenGroup(context.Background(), dom.Root(), "/a/s")
	require.NoError(t, err)
	assert.Equal(t, "g-00bb", h.URI())
}

// TestSoftLinkCycleHitsHopBound asserts a cyclic soft link burns the
// hop budget and fails with TooManyLinkHops instead of recursing
// forever.
func TestSoftLinkCycleHitsHopBound(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "loop", softLink("loop", "/loop"))

	_, dom := openTestDomain(t, f)

	_, err := dom.OpenGroup(context.Background(), dom.Root(), "/loop")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.TooManyLinkHops), "got %v", err)
}

// TestTwoLinkCycleHitsHopBound covers a cycle spread over two links.
func TestTwoLinkCycleHitsHopBound(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "ping", softLink("ping", "/pong"))
	f.serveLink("g-0001", "pong", softLink("pong", "/ping"))

	_, dom := openTestDomain(t, f)

	_, err := dom.OpenGroup(context.Background(), dom.Root(), "/ping")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.TooManyLinkHops))
}

// TestExternalLinkCrossesDomain resolves through an external link into
// a second domain on the same server.
func TestExternalLinkCrossesDomain(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	const otherDomain = "/home/test/other.h5"
	f.handle("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("domain") {
		case testDomainPath:
			writeJSON(w, map[string]any{"root": "g-0001"})
		case otherDomain:
			writeJSON(w, map[string]any{"root": "g-00bb"})
		default:
			writeJSONStatus(w, http.StatusNotFound, map[string]string{"error": "no such domain"})
		}
	})
	f.serveLink("g-0001", "ext", map[string]any{
		"class": "H5L_TYPE_EXTERNAL", "title": "ext",
		"h5domain": otherDomain, "h5path": "/y",
	})
	f.serveLink("g-00bb", "y", hardLink("y", "g-00cc", "groups"))

	client := newTestClient(t, f)
	dom, err := client.OpenDomain(context.Background(), testDomainPath)
	require.NoError(t, err)
	defer dom.Close()

	h, err := dom.OpenGroup(context.Background(), dom.Root(), "/ext")
	require.NoError(t, err)
	assert.Equal(t, "g-00cc", h.URI())
	require.NotNil(t, h.Domain())
	assert.Equal(t, otherDomain, h.Domain().Path(), "the handle must belong to the target domain")
}

// TestExternalLinkTargetFailureClosesDomain verifies a failed walk in
// the target domain does not leak the domain opened for it.
func TestExternalLinkTargetFailureClosesDomain(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	const otherDomain = "/home/test/other.h5"
	f.handle("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("domain") {
		case testDomainPath:
			writeJSON(w, map[string]any{"root": "g-0001"})
		case otherDomain:
			writeJSON(w, map[string]any{"root": "g-00bb"})
		default:
			writeJSONStatus(w, http.StatusNotFound, map[string]string{"error": "no such domain"})
		}
	})
	f.serveLink("g-0001", "ext", map[string]any{
		"class": "H5L_TYPE_EXTERNAL", "title": "ext",
		"h5domain": otherDomain, "h5path": "/missing",
	})

	var opened []*Domain
	orig := openExternal
	openExternal = func(ctx context.Context, c *Client, domainPath string) (*Domain, error) {
		ext, err := orig(ctx, c, domainPath)
		if ext != nil {
			opened = append(opened, ext)
		}
		return ext, err
	}
	t.Cleanup(func() { openExternal = orig })

	client := newTestClient(t, f)
	dom, err := client.OpenDomain(context.Background(), testDomainPath)
	require.NoError(t, err)
	defer dom.Close()

	_, err = dom.OpenGroup(context.Background(), dom.Root(), "/ext")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.NotFound))

	require.Len(t, opened, 1)
	assert.True(t, opened[0].closed, "the target domain must be closed when its walk fails")
}

func TestUserDefinedLinkRejected(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "u", map[string]any{"class": "H5L_TYPE_USER", "title": "u"})

	_, dom := openTestDomain(t, f)

	_, err := dom.OpenGroup(context.Background(), dom.Root(), "/u")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.Unsupported))
}

// TestOpenGroupKindMismatch resolves a path to a dataset while asking
// for a group.
func TestOpenGroupKindMismatch(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "data", hardLink("data", "d-123", "datasets"))

	_, dom := openTestDomain(t, f)

	_, err := dom.OpenGroup(context.Background(), dom.Root(), "/data")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.NotFound))
}

// TestOpenGroupDot opens the starting object itself.
func TestOpenGroupDot(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	_, dom := openTestDomain(t, f)

	h, err := dom.OpenGroup(context.Background(), dom.Root(), ".")
	require.NoError(t, err)
	assert.Equal(t, dom.Root().URI(), h.URI())
	assert.Equal(t, KindGroup, h.Kind(), "opening the root as a group yields a group handle")
}
