// Package codec serializes object-model operations into the JSON
// bodies the remote object store expects and deserializes responses
// into object metadata. The resource-path and JSON-schema conventions
// follow the server's REST API and are treated as a versioned
// contract; nothing here invents wire shapes.
package codec

// Link classes as reported by the server.
const (
	LinkClassHard     = "H5L_TYPE_HARD"
	LinkClassSoft     = "H5L_TYPE_SOFT"
	LinkClassExternal = "H5L_TYPE_EXTERNAL"
	LinkClassUser     = "H5L_TYPE_USER"
)

// DomainResponse is the body of GET / and PUT /.
type DomainResponse struct {
	Root         string  `json:"root"`
	Owner        string  `json:"owner,omitempty"`
	Class        string  `json:"class,omitempty"`
	Created      float64 `json:"created,omitempty"`
	LastModified float64 `json:"lastModified,omitempty"`
}

// ObjectResponse is the metadata body for GET /groups/{id},
// GET /datasets/{id} and GET /datatypes/{id}.
type ObjectResponse struct {
	ID             string     `json:"id"`
	Root           string     `json:"root,omitempty"`
	Created        float64    `json:"created,omitempty"`
	LastModified   float64    `json:"lastModified,omitempty"`
	LinkCount      int        `json:"linkCount,omitempty"`
	AttributeCount int        `json:"attributeCount,omitempty"`
	Type           any        `json:"type,omitempty"`
	Shape          *ShapeBody `json:"shape,omitempty"`
}

// ShapeBody describes a dataspace on the wire.
type ShapeBody struct {
	Class   string   `json:"class"`
	Dims    []uint64 `json:"dims,omitempty"`
	MaxDims []uint64 `json:"maxdims,omitempty"`
}

// LinkBody is one link as reported by the server, either under the
// "link" key of a single-link GET or as an element of a listing.
type LinkBody struct {
	Class      string  `json:"class"`
	Title      string  `json:"title"`
	ID         string  `json:"id,omitempty"`
	Collection string  `json:"collection,omitempty"`
	H5Path     string  `json:"h5path,omitempty"`
	H5Domain   string  `json:"h5domain,omitempty"`
	Created    float64 `json:"created,omitempty"`
}

// LinkResponse is the body of GET /groups/{id}/links/{name}.
type LinkResponse struct {
	Link LinkBody `json:"link"`
}

// LinkListResponse is one page of GET /groups/{id}/links.
type LinkListResponse struct {
	Links []LinkBody `json:"links"`
}

// createLinkRef is the "link" member of a create body, tying the new
// object into its parent group under a name.
type createLinkRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GroupCreateRequest is the body of POST /groups. Link is omitted for
// anonymous groups.
type GroupCreateRequest struct {
	Link *createLinkRef `json:"link,omitempty"`
}

// DatasetCreateRequest is the body of POST /datasets.
type DatasetCreateRequest struct {
	Type  string         `json:"type"`
	Shape *ShapeBody     `json:"shape,omitempty"`
	Link  *createLinkRef `json:"link,omitempty"`
}

// DatatypeCommitRequest is the body of POST /datatypes.
type DatatypeCommitRequest struct {
	Type string         `json:"type"`
	Link *createLinkRef `json:"link,omitempty"`
}

// AttributeBody is an attribute with its value, used for both the PUT
// request and the GET response on /{collection}/{id}/attributes/{name}.
type AttributeBody struct {
	Name        string     `json:"name,omitempty"`
	Type        string     `json:"type,omitempty"`
	Shape       *ShapeBody `json:"shape,omitempty"`
	ValueBase64 string     `json:"value_base64,omitempty"`
	Created     float64    `json:"created,omitempty"`
}

// AttributeListResponse is the body of GET /{collection}/{id}/attributes.
type AttributeListResponse struct {
	Attributes []AttributeBody `json:"attributes"`
}

// ValueWriteRequest is the body of PUT /datasets/{id}/value. The
// selection, when present, rides on the URL as a select= parameter.
type ValueWriteRequest struct {
	ValueBase64 string `json:"value_base64"`
}

// ValueReadResponse is the body of GET /datasets/{id}/value when the
// value is transferred base64-encoded.
type ValueReadResponse struct {
	ValueBase64 string `json:"value_base64"`
}

// IDResponse is the minimal body returned by create operations.
type IDResponse struct {
	ID   string `json:"id"`
	Root string `json:"root,omitempty"`
}
