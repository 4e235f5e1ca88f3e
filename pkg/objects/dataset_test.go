package objects

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/pkg/errstack"
)

func TestCreateDataset(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	f.handle("POST /datasets", func(w http.ResponseWriter, r *http.Request) {
		var req codec.DatasetCreateRequest
		decodeRequest(t, r, &req)
		assert.Equal(t, "H5T_STD_I32LE", req.Type)
		require.NotNil(t, req.Shape)
		assert.Equal(t, "H5S_SIMPLE", req.Shape.Class)
		assert.Equal(t, []uint64{10, 20}, req.Shape.Dims)
		require.NotNil(t, req.Link)
		assert.Equal(t, "g-0001", req.Link.ID)
		assert.Equal(t, "data", req.Link.Name)
		writeJSONStatus(w, http.StatusCreated, map[string]any{"id": "d-123"})
	})

	_, dom := openTestDomain(t, f)

	h, err := dom.CreateDataset(context.Background(), dom.Root(), "/data", Int32, Simple(10, 20))
	require.NoError(t, err)
	assert.Equal(t, KindDataset, h.Kind())
	assert.Equal(t, "d-123", h.URI())
	assert.Equal(t, "/data", h.Path())
}

func TestCreateScalarDataset(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	f.handle("POST /datasets", func(w http.ResponseWriter, r *http.Request) {
		var req codec.DatasetCreateRequest
		decodeRequest(t, r, &req)
		require.NotNil(t, req.Shape)
		assert.Equal(t, "H5S_SCALAR", req.Shape.Class)
		writeJSONStatus(w, http.StatusCreated, map[string]any{"id": "d-124"})
	})

	_, dom := openTestDomain(t, f)

	_, err := dom.CreateDataset(context.Background(), dom.Root(), "/scalar", Float64, Scalar())
	require.NoError(t, err)
}

// TestWriteReadRoundTrip stores bytes through the value endpoint and
// reads them back, verifying the base64 wire encoding end to end.
func TestWriteReadRoundTrip(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	var stored []byte
	f.handle("PUT /datasets/d-123/value", func(w http.ResponseWriter, r *http.Request) {
		var req codec.ValueWriteRequest
		decodeRequest(t, r, &req)
		var err error
		stored, err = base64.StdEncoding.DecodeString(req.ValueBase64)
		require.NoError(t, err)
		writeJSON(w, map[string]any{})
	})
	f.handle("GET /datasets/d-123/value", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"value_base64": base64.StdEncoding.EncodeToString(stored)})
	})

	_, dom := openTestDomain(t, f)
	ctx := context.Background()
	dataset := &Handle{kind: KindDataset, uri: "d-123", domain: dom}

	payload := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 32)
	require.NoError(t, dom.Write(ctx, dataset, All(), payload))

	got, err := dom.Read(ctx, dataset, All())
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// TestHyperslabSelectionOnWire verifies the select parameter rides on
// both value requests.
func TestHyperslabSelectionOnWire(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	var putSelect, getSelect string
	f.handle("PUT /datasets/d-123/value", func(w http.ResponseWriter, r *http.Request) {
		putSelect = r.URL.Query().Get("select")
		writeJSON(w, map[string]any{})
	})
	f.handle("GET /datasets/d-123/value", func(w http.ResponseWriter, r *http.Request) {
		getSelect = r.URL.Query().Get("select")
		writeJSON(w, map[string]any{"value_base64": ""})
	})

	_, dom := openTestDomain(t, f)
	ctx := context.Background()
	dataset := &Handle{kind: KindDataset, uri: "d-123", domain: dom}

	sel := Hyperslab([]uint64{0, 2}, []uint64{10, 2}, nil)
	require.NoError(t, dom.Write(ctx, dataset, sel, []byte{1, 2, 3}))
	assert.Equal(t, "[0:10,2:4]", putSelect)

	_, err := dom.Read(ctx, dataset, Hyperslab([]uint64{0}, []uint64{5}, []uint64{2}))
	require.NoError(t, err)
	assert.Equal(t, "[0:10:2]", getSelect)
}

// TestPointSelectionRejectedBeforeNetwork asserts point selections
// fail locally: no request reaches the server.
func TestPointSelectionRejectedBeforeNetwork(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	_, dom := openTestDomain(t, f)
	ctx := context.Background()
	dataset := &Handle{kind: KindDataset, uri: "d-123", domain: dom}
	points := Selection{Kind: SelectPoints, Points: [][]uint64{{0, 1}, {2, 3}}}

	before := f.requestCount()

	err := dom.Write(ctx, dataset, points, []byte{1})
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.Unsupported), "got %v", err)

	_, err = dom.Read(ctx, dataset, points)
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.Unsupported))

	assert.Equal(t, before, f.requestCount(), "point selections must fail before any request")
}

func TestWriteRejectsNonDatasetHandle(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	_, dom := openTestDomain(t, f)

	err := dom.Write(context.Background(), dom.Root(), All(), []byte{1})
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.InvalidHandle))
}

func TestStatDataset(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.handle("GET /datasets/d-123", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"id":             "d-123",
			"type":           "H5T_IEEE_F32LE",
			"shape":          map[string]any{"class": "H5S_SIMPLE", "dims": []uint64{128}},
			"attributeCount": 2,
			"created":        10.0,
			"lastModified":   20.0,
		})
	})

	_, dom := openTestDomain(t, f)
	dataset := &Handle{kind: KindDataset, uri: "d-123", domain: dom}

	info, err := dom.StatDataset(context.Background(), dataset)
	require.NoError(t, err)
	assert.Equal(t, "d-123", info.URI)
	assert.Equal(t, "H5T_IEEE_F32LE", info.Type)
	assert.Equal(t, []uint64{128}, info.Dims)
	assert.Equal(t, 2, info.AttributeCount)
	assert.Equal(t, 10.0, info.Created)
	assert.Equal(t, 20.0, info.LastModified)
}

func TestDeleteDataset(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	var sawDelete bool
	f.handle("DELETE /datasets/d-123", func(w http.ResponseWriter, r *http.Request) {
		sawDelete = true
		writeJSON(w, map[string]any{})
	})

	_, dom := openTestDomain(t, f)
	dataset := &Handle{kind: KindDataset, uri: "d-123", domain: dom}

	require.NoError(t, dom.DeleteDataset(context.Background(), dataset))
	assert.True(t, sawDelete)
}

// TestDeleteDatasetInvalidatesParent asserts the enclosing group's
// registry bucket is dropped once its link points at a gone object.
func TestDeleteDatasetInvalidatesParent(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.serveLink("g-0001", "a", hardLink("a", "g-00aa", "groups"))
	f.handle("DELETE /datasets/d-123", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{})
	})

	client, dom := openTestDomain(t, f)
	require.NoError(t, client.Registry().Insert(testDomainPath, "g-00aa", "dset", "d-123"))

	dataset := &Handle{kind: KindDataset, uri: "d-123", path: "/a/dset", domain: dom}
	require.NoError(t, dom.DeleteDataset(context.Background(), dataset))

	_, ok, err := client.Registry().Lookup(testDomainPath, "g-00aa", "dset")
	require.NoError(t, err)
	assert.False(t, ok, "deleting a dataset must drop its parent's registry bucket")
}
