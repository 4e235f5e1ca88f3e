package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
)

// MaxURILength is the protocol-imposed bound on server-assigned object
// identifiers. Identifiers beyond the bound are rejected, never
// truncated.
const MaxURILength = 256

// uriPattern matches server-assigned identifiers: a collection prefix
// character, a dash, and a UUID-shaped remainder. The engine treats the
// identifier as opaque beyond this sanity check.
var uriPattern = regexp.MustCompile(`^[gdt]-[0-9a-fA-F-]+$`)

// ValidateURI checks a server-assigned identifier against the protocol
// bound and shape. Returns a descriptive error on violation.
func ValidateURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("codec: empty object identifier")
	}
	if len(uri) > MaxURILength {
		return fmt.Errorf("codec: object identifier exceeds %d bytes (%d)", MaxURILength, len(uri))
	}
	if !uriPattern.MatchString(uri) {
		return fmt.Errorf("codec: malformed object identifier %q", uri)
	}
	return nil
}

// CollectionFor maps an identifier to its REST collection segment
// ("groups", "datasets" or "datatypes") from the prefix character.
func CollectionFor(uri string) (string, error) {
	if uri == "" {
		return "", fmt.Errorf("codec: empty object identifier")
	}
	switch uri[0] {
	case 'g':
		return "groups", nil
	case 'd':
		return "datasets", nil
	case 't':
		return "datatypes", nil
	default:
		return "", fmt.Errorf("codec: cannot derive collection from identifier %q", uri)
	}
}

// EncodeGroupCreate builds the POST /groups body. parentURI and
// linkName may both be empty for an anonymous group.
func EncodeGroupCreate(parentURI, linkName string) ([]byte, error) {
	req := GroupCreateRequest{}
	if linkName != "" {
		req.Link = &createLinkRef{ID: parentURI, Name: linkName}
	}
	return json.Marshal(&req)
}

// EncodeDatasetCreate builds the POST /datasets body.
func EncodeDatasetCreate(typeName string, dims []uint64, parentURI, linkName string) ([]byte, error) {
	if typeName == "" {
		return nil, fmt.Errorf("codec: dataset type is required")
	}
	req := DatasetCreateRequest{Type: typeName, Shape: shapeFor(dims)}
	if linkName != "" {
		req.Link = &createLinkRef{ID: parentURI, Name: linkName}
	}
	return json.Marshal(&req)
}

// EncodeDatatypeCommit builds the POST /datatypes body.
func EncodeDatatypeCommit(typeName, parentURI, linkName string) ([]byte, error) {
	if typeName == "" {
		return nil, fmt.Errorf("codec: datatype is required")
	}
	req := DatatypeCommitRequest{Type: typeName}
	if linkName != "" {
		req.Link = &createLinkRef{ID: parentURI, Name: linkName}
	}
	return json.Marshal(&req)
}

// EncodeHardLink builds the PUT .../links/{name} body for a hard link.
func EncodeHardLink(targetURI string) ([]byte, error) {
	if err := ValidateURI(targetURI); err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"id": targetURI})
}

// EncodeSoftLink builds the PUT .../links/{name} body for a soft link.
func EncodeSoftLink(targetPath string) ([]byte, error) {
	if targetPath == "" {
		return nil, fmt.Errorf("codec: soft link target path is required")
	}
	return json.Marshal(map[string]string{"h5path": targetPath})
}

// EncodeExternalLink builds the PUT .../links/{name} body for an
// external link into another domain.
func EncodeExternalLink(targetDomain, targetPath string) ([]byte, error) {
	if targetDomain == "" || targetPath == "" {
		return nil, fmt.Errorf("codec: external link requires both domain and path")
	}
	return json.Marshal(map[string]string{"h5domain": targetDomain, "h5path": targetPath})
}

// EncodeValueWrite base64-encodes buf into a PUT .../value body. The
// encoding requires a full temporary copy of the buffer at roughly 4/3
// its size; callers with tight memory budgets must account for it.
func EncodeValueWrite(buf []byte) ([]byte, error) {
	req := ValueWriteRequest{ValueBase64: base64.StdEncoding.EncodeToString(buf)}
	return json.Marshal(&req)
}

// EncodeAttributeWrite builds the PUT .../attributes/{name} body.
func EncodeAttributeWrite(typeName string, dims []uint64, buf []byte) ([]byte, error) {
	if typeName == "" {
		return nil, fmt.Errorf("codec: attribute type is required")
	}
	body := AttributeBody{
		Type:        typeName,
		Shape:       shapeFor(dims),
		ValueBase64: base64.StdEncoding.EncodeToString(buf),
	}
	return json.Marshal(&body)
}

// DecodeValue extracts and base64-decodes the value payload of a
// GET .../value response.
func DecodeValue(body []byte) ([]byte, error) {
	var resp ValueReadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codec: malformed value response: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(resp.ValueBase64)
	if err != nil {
		return nil, fmt.Errorf("codec: value payload is not valid base64: %w", err)
	}
	return data, nil
}

// DecodeBase64 decodes a base64 value field (attribute reads).
func DecodeBase64(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("codec: payload is not valid base64: %w", err)
	}
	return data, nil
}

// DecodeDomain parses a domain GET/PUT response and validates the root
// group identifier.
func DecodeDomain(body []byte) (*DomainResponse, error) {
	var resp DomainResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codec: malformed domain response: %w", err)
	}
	if err := ValidateURI(resp.Root); err != nil {
		return nil, fmt.Errorf("codec: domain root: %w", err)
	}
	return &resp, nil
}

// DecodeObject parses an object metadata response and validates the
// identifier.
func DecodeObject(body []byte) (*ObjectResponse, error) {
	var resp ObjectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codec: malformed object response: %w", err)
	}
	if err := ValidateURI(resp.ID); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecodeID parses a create response down to the new identifier.
func DecodeID(body []byte) (string, error) {
	var resp IDResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("codec: malformed create response: %w", err)
	}
	if err := ValidateURI(resp.ID); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// DecodeLink parses a single-link GET response. Hard links must carry
// a valid target identifier; soft and external links must carry a
// target path.
func DecodeLink(body []byte) (*LinkBody, error) {
	var resp LinkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codec: malformed link response: %w", err)
	}
	if err := validateLink(&resp.Link); err != nil {
		return nil, err
	}
	return &resp.Link, nil
}

// DecodeLinkList parses one page of a link listing, preserving the
// server-reported order.
func DecodeLinkList(body []byte) ([]LinkBody, error) {
	var resp LinkListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codec: malformed link listing: %w", err)
	}
	for i := range resp.Links {
		if err := validateLink(&resp.Links[i]); err != nil {
			return nil, err
		}
	}
	return resp.Links, nil
}

// DecodeAttribute parses a single attribute GET response.
func DecodeAttribute(body []byte) (*AttributeBody, error) {
	var resp AttributeBody
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codec: malformed attribute response: %w", err)
	}
	return &resp, nil
}

// DecodeAttributeList parses an attribute listing.
func DecodeAttributeList(body []byte) ([]AttributeBody, error) {
	var resp AttributeListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("codec: malformed attribute listing: %w", err)
	}
	return resp.Attributes, nil
}

func validateLink(link *LinkBody) error {
	switch link.Class {
	case LinkClassHard:
		if err := ValidateURI(link.ID); err != nil {
			return fmt.Errorf("codec: hard link %q: %w", link.Title, err)
		}
	case LinkClassSoft:
		if link.H5Path == "" {
			return fmt.Errorf("codec: soft link %q has no target path", link.Title)
		}
	case LinkClassExternal:
		if link.H5Path == "" || link.H5Domain == "" {
			return fmt.Errorf("codec: external link %q is missing domain or path", link.Title)
		}
	case LinkClassUser:
		// Allowed in listings; following a user-defined link is
		// rejected at the object-model level.
	default:
		return fmt.Errorf("codec: unknown link class %q for link %q", link.Class, link.Title)
	}
	return nil
}

func shapeFor(dims []uint64) *ShapeBody {
	if dims == nil {
		return &ShapeBody{Class: "H5S_SCALAR"}
	}
	return &ShapeBody{Class: "H5S_SIMPLE", Dims: dims}
}

// EscapePathName percent-encodes a link or attribute name for use as a
// URL path segment. Names never contain separators by the time they
// reach the codec.
func EscapePathName(name string) string {
	return url.PathEscape(name)
}
