package objects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h5works/restfs/pkg/config"
	"github.com/h5works/restfs/pkg/errstack"
)

func TestObjectKindStrings(t *testing.T) {
	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "group", KindGroup.String())
	assert.Equal(t, "dataset", KindDataset.String())
	assert.Equal(t, "datatype", KindDatatype.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

// TestUseAfterRelease asserts operations on a released handle fail
// with InvalidHandle instead of silently succeeding.
func TestUseAfterRelease(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "a", hardLink("a", "g-00aa", "groups"))

	_, dom := openTestDomain(t, f)
	ctx := context.Background()

	h, err := dom.OpenGroup(ctx, dom.Root(), "/a")
	require.NoError(t, err)
	require.NoError(t, h.Release())

	before := f.requestCount()
	_, err = dom.OpenGroup(ctx, h, "b")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.InvalidHandle), "got %v", err)
	assert.Equal(t, before, f.requestCount(), "released handles must fail before any request")
}

func TestDoubleRelease(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "a", hardLink("a", "g-00aa", "groups"))

	_, dom := openTestDomain(t, f)

	h, err := dom.OpenGroup(context.Background(), dom.Root(), "/a")
	require.NoError(t, err)
	require.NoError(t, h.Release())

	err = h.Release()
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.InvalidHandle))
}

func TestNilHandleRejected(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	_, dom := openTestDomain(t, f)

	_, err := dom.OpenGroup(context.Background(), nil, "/a")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.InvalidHandle))
}

// TestTermReportsOutstandingRecords drives the tracking switch: a
// failure left uninspected shows up in the Term count.
func TestTermReportsOutstandingRecords(t *testing.T) {
	Init(config.DiagnosticsConfig{TrackRecords: true})
	defer func() { trackRecords = false }()

	errstack.Push(&errstack.Record{
		Major:   errstack.ObjectError,
		Minor:   errstack.NotFound,
		Op:      "test",
		Message: "left behind",
	})
	assert.Equal(t, 1, errstack.Depth())
	Term()
	assert.Equal(t, 0, errstack.Depth())
}
