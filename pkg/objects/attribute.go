package objects

import (
	"context"
	"fmt"
	"net/http"

	"github.com/h5works/restfs/internal/codec"
	"github.com/h5works/restfs/pkg/errstack"
)

// Attribute is a named, typed value attached to a group, dataset or
// committed datatype. Attributes are addressed by (owner, name); they
// carry no identifier of their own.
type Attribute struct {
	Name    string
	Type    Datatype
	Space   Space
	Created float64
}

// attributePath builds the REST resource path for an attribute of the
// owner object.
func attributePath(owner *Handle, name string) (string, error) {
	collection, err := codec.CollectionFor(owner.uri)
	if err != nil {
		return "", err
	}
	if name == "" {
		return fmt.Sprintf("/%s/%s/attributes", collection, owner.uri), nil
	}
	return fmt.Sprintf("/%s/%s/attributes/%s", collection, owner.uri, codec.EscapePathName(name)), nil
}

// CreateAttribute creates an attribute on the owner object and writes
// its value in the same request, as the protocol requires.
func (d *Domain) CreateAttribute(ctx context.Context, owner *Handle, name string, dtype Datatype, space Space, value []byte) error {
	const op = "objects.CreateAttribute"
	if err := owner.check(op); err != nil {
		return err
	}
	if name == "" {
		return errstack.Push(&errstack.Record{
			Major:   errstack.ArgumentError,
			Minor:   errstack.ParseError,
			Op:      op,
			Message: "attribute name is empty",
		})
	}

	resourcePath, err := attributePath(owner, name)
	if err != nil {
		return errstack.BadResponse(op, err)
	}
	reqBody, err := codec.EncodeAttributeWrite(string(dtype), space.Dims, value)
	if err != nil {
		return errstack.BadResponse(op, err)
	}

	if _, _, err := d.sess.Exchange(ctx, http.MethodPut, resourcePath, nil, reqBody); err != nil {
		return errstack.Translate(op, err)
	}
	return nil
}

// OpenAttribute fetches an attribute's metadata without transferring
// its value.
func (d *Domain) OpenAttribute(ctx context.Context, owner *Handle, name string) (Attribute, error) {
	const op = "objects.OpenAttribute"
	if err := owner.check(op); err != nil {
		return Attribute{}, err
	}

	resourcePath, err := attributePath(owner, name)
	if err != nil {
		return Attribute{}, errstack.BadResponse(op, err)
	}
	_, body, err := d.sess.Exchange(ctx, http.MethodGet, resourcePath, nil, nil)
	if err != nil {
		return Attribute{}, errstack.Translate(op, err)
	}

	attrBody, err := codec.DecodeAttribute(body)
	if err != nil {
		return Attribute{}, errstack.BadResponse(op, err)
	}
	attr := attributeFromBody(attrBody)
	if attr.Name == "" {
		attr.Name = name
	}
	return attr, nil
}

// WriteAttribute replaces the value of an existing attribute. The
// protocol has no value-only write: the replacement request must carry
// the attribute's type and shape, so they are fetched first and echoed
// back unchanged.
func (d *Domain) WriteAttribute(ctx context.Context, owner *Handle, name string, value []byte) error {
	const op = "objects.WriteAttribute"
	if err := owner.check(op); err != nil {
		return err
	}

	attr, err := d.OpenAttribute(ctx, owner, name)
	if err != nil {
		return err
	}

	resourcePath, err := attributePath(owner, name)
	if err != nil {
		return errstack.BadResponse(op, err)
	}
	reqBody, err := codec.EncodeAttributeWrite(string(attr.Type), attr.Space.Dims, value)
	if err != nil {
		return errstack.BadResponse(op, err)
	}
	if _, _, err := d.sess.Exchange(ctx, http.MethodPut, resourcePath, nil, reqBody); err != nil {
		return errstack.Translate(op, err)
	}
	return nil
}

// ReadAttribute fetches an attribute's metadata and decoded value.
func (d *Domain) ReadAttribute(ctx context.Context, owner *Handle, name string) (Attribute, []byte, error) {
	const op = "objects.ReadAttribute"
	if err := owner.check(op); err != nil {
		return Attribute{}, nil, err
	}

	resourcePath, err := attributePath(owner, name)
	if err != nil {
		return Attribute{}, nil, errstack.BadResponse(op, err)
	}
	_, body, err := d.sess.Exchange(ctx, http.MethodGet, resourcePath, nil, nil)
	if err != nil {
		return Attribute{}, nil, errstack.Translate(op, err)
	}

	attrBody, err := codec.DecodeAttribute(body)
	if err != nil {
		return Attribute{}, nil, errstack.BadResponse(op, err)
	}

	attr := attributeFromBody(attrBody)
	if attr.Name == "" {
		attr.Name = name
	}

	var value []byte
	if attrBody.ValueBase64 != "" {
		value, err = codec.DecodeBase64(attrBody.ValueBase64)
		if err != nil {
			return Attribute{}, nil, errstack.BadResponse(op, err)
		}
	}
	return attr, value, nil
}

// ListAttributes enumerates the owner object's attributes in
// server-reported order, without values.
func (d *Domain) ListAttributes(ctx context.Context, owner *Handle) ([]Attribute, error) {
	const op = "objects.ListAttributes"
	if err := owner.check(op); err != nil {
		return nil, err
	}

	resourcePath, err := attributePath(owner, "")
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}
	_, body, err := d.sess.Exchange(ctx, http.MethodGet, resourcePath, nil, nil)
	if err != nil {
		return nil, errstack.Translate(op, err)
	}

	bodies, err := codec.DecodeAttributeList(body)
	if err != nil {
		return nil, errstack.BadResponse(op, err)
	}

	attrs := make([]Attribute, len(bodies))
	for i := range bodies {
		attrs[i] = attributeFromBody(&bodies[i])
	}
	return attrs, nil
}

// DeleteAttribute removes an attribute from the owner object.
func (d *Domain) DeleteAttribute(ctx context.Context, owner *Handle, name string) error {
	const op = "objects.DeleteAttribute"
	if err := owner.check(op); err != nil {
		return err
	}

	resourcePath, err := attributePath(owner, name)
	if err != nil {
		return errstack.BadResponse(op, err)
	}
	if _, _, err := d.sess.Exchange(ctx, http.MethodDelete, resourcePath, nil, nil); err != nil {
		return errstack.Translate(op, err)
	}
	return nil
}

func attributeFromBody(body *codec.AttributeBody) Attribute {
	attr := Attribute{
		Name:    body.Name,
		Type:    Datatype(body.Type),
		Created: body.Created,
	}
	if body.Shape != nil {
		attr.Space = Space{Dims: body.Shape.Dims}
	}
	return attr
}
