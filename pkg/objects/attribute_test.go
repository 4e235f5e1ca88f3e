package objects

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/pkg/errstack"
)

func TestCreateAttributeCarriesValue(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	f.handle("PUT /groups/g-0001/attributes/units", func(w http.ResponseWriter, r *http.Request) {
		var body codec.AttributeBody
		decodeRequest(t, r, &body)
		assert.Equal(t, "H5T_STD_U8LE", body.Type)
		require.NotNil(t, body.Shape)
		assert.Equal(t, "H5S_SIMPLE", body.Shape.Class)
		assert.Equal(t, []uint64{6}, body.Shape.Dims)
		decoded, err := base64.StdEncoding.DecodeString(body.ValueBase64)
		require.NoError(t, err)
		assert.Equal(t, []byte("kelvin"), decoded, "the value must travel in the create request")
		writeJSONStatus(w, http.StatusCreated, map[string]any{})
	})

	_, dom := openTestDomain(t, f)

	err := dom.CreateAttribute(context.Background(), dom.Root(), "units", Uint8, Simple(6), []byte("kelvin"))
	require.NoError(t, err)
}

func TestCreateAttributeRejectsEmptyName(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	_, dom := openTestDomain(t, f)

	before := f.requestCount()
	err := dom.CreateAttribute(context.Background(), dom.Root(), "", Uint8, Scalar(), nil)
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.ParseError))
	assert.Equal(t, before, f.requestCount())
}

func TestOpenAttribute(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.handle("GET /datasets/d-123/attributes/units", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"name":  "units",
			"type":  "H5T_STD_U8LE",
			"shape": map[string]any{"class": "H5S_SIMPLE", "dims": []uint64{6}},
		})
	})

	_, dom := openTestDomain(t, f)
	dataset := &Handle{kind: KindDataset, uri: "d-123", domain: dom}

	attr, err := dom.OpenAttribute(context.Background(), dataset, "units")
	require.NoError(t, err)
	assert.Equal(t, "units", attr.Name)
	assert.Equal(t, Uint8, attr.Type)
	assert.Equal(t, []uint64{6}, attr.Space.Dims)
}

// TestWriteAttribute verifies a value replacement echoes the stored
// type and shape back in the PUT body.
func TestWriteAttribute(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	var putBody codec.AttributeBody
	f.handle("GET /groups/g-0001/attributes/units", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"name":  "units",
			"type":  "H5T_STD_U8LE",
			"shape": map[string]any{"class": "H5S_SIMPLE", "dims": []uint64{6}},
		})
	})
	f.handle("PUT /groups/g-0001/attributes/units", func(w http.ResponseWriter, r *http.Request) {
		decodeRequest(t, r, &putBody)
		writeJSON(w, map[string]any{})
	})

	_, dom := openTestDomain(t, f)

	require.NoError(t, dom.WriteAttribute(context.Background(), dom.Root(), "units", []byte("carats")))
	assert.Equal(t, "H5T_STD_U8LE", putBody.Type)
	require.NotNil(t, putBody.Shape)
	assert.Equal(t, []uint64{6}, putBody.Shape.Dims)
	decoded, err := base64.StdEncoding.DecodeString(putBody.ValueBase64)
	require.NoError(t, err)
	assert.Equal(t, []byte("carats"), decoded)
}

func TestReadAttribute(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.handle("GET /datasets/d-123/attributes/units", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"name":         "units",
			"type":         "H5T_STD_U8LE",
			"shape":        map[string]any{"class": "H5S_SIMPLE", "dims": []uint64{6}},
			"value_base64": base64.StdEncoding.EncodeToString([]byte("kelvin")),
			"created":      42.0,
		})
	})

	_, dom := openTestDomain(t, f)
	dataset := &Handle{kind: KindDataset, uri: "d-123", domain: dom}

	attr, value, err := dom.ReadAttribute(context.Background(), dataset, "units")
	require.NoError(t, err)
	assert.Equal(t, "units", attr.Name)
	assert.Equal(t, Uint8, attr.Type)
	assert.Equal(t, []uint64{6}, attr.Space.Dims)
	assert.Equal(t, 42.0, attr.Created)
	assert.Equal(t, []byte("kelvin"), value)
}

func TestListAttributes(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	f.handle("GET /groups/g-0001/attributes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"attributes": []map[string]any{
			{"name": "first", "type": "H5T_STD_I32LE"},
			{"name": "second", "type": "H5T_IEEE_F64LE"},
		}})
	})

	_, dom := openTestDomain(t, f)

	attrs, err := dom.ListAttributes(context.Background(), dom.Root())
	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "first", attrs[0].Name)
	assert.Equal(t, Int32, attrs[0].Type)
	assert.Equal(t, "second", attrs[1].Name)
	assert.Equal(t, Float64, attrs[1].Type)
}

func TestDeleteAttribute(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)

	var sawDelete bool
	f.handle("DELETE /groups/g-0001/attributes/stale", func(w http.ResponseWriter, r *http.Request) {
		sawDelete = true
		writeJSON(w, map[string]any{})
	})

	_, dom := openTestDomain(t, f)

	require.NoError(t, dom.DeleteAttribute(context.Background(), dom.Root(), "stale"))
	assert.True(t, sawDelete)
}

func TestAttributeNotFound(t *testing.T) {
	initEngine(t)
	f := newFakeServer(t)
	_, dom := openTestDomain(t, f)

	_, _, err := dom.ReadAttribute(context.Background(), dom.Root(), "absent")
	require.Error(t, err)
	assert.True(t, errstack.IsMinor(err, errstack.NotFound))
}
