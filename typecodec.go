package crate

import (
	"context"
	"errors"
	"io"
	"maps"
	"reflect"
)

// WrapperTypeCodec writes each value as a single-entry object keyed by the
// type id of its runtime type: {"<type-id>": value}.
type WrapperTypeCodec struct {
	ids      map[reflect.Type]string
	types    map[string]reflect.Type
	provider Provider
	site     *Site
}

// NewWrapperTypeCodec returns a type codec announcing the given types under
// their ids.
func NewWrapperTypeCodec(types map[string]reflect.Type) *WrapperTypeCodec {
	c := &WrapperTypeCodec{
		ids:   make(map[reflect.Type]string, len(types)),
		types: maps.Clone(types),
	}
	for id, t := range types {
		c.ids[t] = id
	}
	return c
}

// ForSite returns a copy bound to p for resolving announced types.
func (c *WrapperTypeCodec) ForSite(p Provider, site *Site) TypeCodec {
	if c.provider == p && c.site == site {
		return c
	}
	out := *c
	out.provider, out.site = p, site
	return &out
}

// TypeID returns the id announced for t.
func (c *WrapperTypeCodec) TypeID(t reflect.Type) (string, bool) {
	id, ok := c.ids[t]
	return id, ok
}

// EncodeTyped writes v wrapped in an object keyed by its type id.
func (c *WrapperTypeCodec) EncodeTyped(ctx context.Context, w Sink, v any, codec Codec) error {
	t := reflect.TypeOf(v)
	id, ok := c.ids[t]
	if !ok {
		return newResolutionError(ErrUnknownTypeID, t, c.site, "type has no registered id")
	}
	if codec == nil {
		if c.provider == nil {
			return newResolutionError(ErrCodecResolution, t, c.site, "type codec is not bound to a provider")
		}
		var err error
		if codec, err = c.provider.ValueCodec(t, c.site); err != nil {
			return err
		}
	}
	if err := w.BeginObject(); err != nil {
		return err
	}
	if err := w.Key(id); err != nil {
		return err
	}
	if err := codec.Encode(ctx, w, v); err != nil {
		return err
	}
	return w.EndObject()
}

// DecodeTyped reads a wrapper object and decodes its value with the codec of
// the announced type.
func (c *WrapperTypeCodec) DecodeTyped(ctx context.Context, r Source) (any, error) {
	if c.provider == nil {
		return nil, newResolutionError(ErrCodecResolution, nil, c.site, "type codec is not bound to a provider")
	}
	if err := expect(r, KindBeginObject, "type wrapper"); err != nil {
		return nil, err
	}
	tok, err := r.Next()
	if err != nil {
		return nil, eofAsMismatch(err, "type wrapper", "Key", r.Pos())
	}
	if tok.Kind != KindKey {
		return nil, newTokenError("type wrapper", "Key", tok, r.Pos())
	}
	t, ok := c.types[tok.Text]
	if !ok {
		return nil, &ResolutionError{Err: ErrUnknownTypeID, Site: c.site.name(), Reason: "no type registered as " + tok.Text}
	}
	codec, err := c.provider.ValueCodec(t, c.site)
	if err != nil {
		return nil, err
	}
	v, err := codec.Decode(ctx, r)
	if err != nil {
		return nil, err
	}
	if err := expect(r, KindEndObject, "type wrapper"); err != nil {
		return nil, err
	}
	return v, nil
}

// expect consumes one token of kind k.
func expect(r Source, k Kind, target string) error {
	tok, err := r.Next()
	if err != nil {
		return eofAsMismatch(err, target, k.String(), r.Pos())
	}
	if tok.Kind != k {
		return newTokenError(target, k.String(), tok, r.Pos())
	}
	return nil
}

func eofAsMismatch(err error, target, expected string, pos Position) error {
	if errors.Is(err, io.EOF) {
		return newEOFError(target, expected, pos)
	}
	return err
}
