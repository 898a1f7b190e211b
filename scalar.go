package crate

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
)

// scalarCodec handles every type whose kind is bool, string, a signed or
// unsigned integer, or a float. Named types keep their identity on decode.
type scalarCodec struct {
	typ reflect.Type
}

// ScalarCodec returns the codec for a bool, string, integer or float kind.
func ScalarCodec(t reflect.Type) (Codec, bool) {
	if !isScalarKind(t.Kind()) {
		return nil, false
	}
	return &scalarCodec{typ: t}, true
}

func isScalarKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (c *scalarCodec) Encode(_ context.Context, w Sink, v any) error {
	if v == nil {
		return w.Null()
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != c.typ && !rv.Type().ConvertibleTo(c.typ) {
		return fmt.Errorf("crate: cannot encode %T as %s", v, c.typ)
	}
	switch rv.Kind() {
	case reflect.Bool:
		return w.Bool(rv.Bool())
	case reflect.String:
		return w.String(rv.String())
	}
	text, err := formatNumber(rv)
	if err != nil {
		return err
	}
	return w.Number(text)
}

func (c *scalarCodec) Decode(_ context.Context, r Source) (any, error) {
	tok, err := r.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newEOFError(c.typ.String(), "value", r.Pos())
		}
		return nil, err
	}

	switch tok.Kind {
	case KindNull:
		return nil, nil
	case KindBool:
		if c.typ.Kind() == reflect.Bool {
			return reflect.ValueOf(tok.Bool).Convert(c.typ).Interface(), nil
		}
		if c.typ.Kind() == reflect.String {
			return reflect.ValueOf(strconv.FormatBool(tok.Bool)).Convert(c.typ).Interface(), nil
		}
	case KindString, KindNumber:
		v, err := parseScalar(c.typ, tok.Text)
		if err != nil {
			return nil, newConversionError(c.typ, tok.Text, err)
		}
		return v, nil
	}
	return nil, newTokenError(c.typ.String(), "scalar", tok, r.Pos())
}

// NullValue returns the zero value of the codec's type.
func (c *scalarCodec) NullValue() any {
	return reflect.Zero(c.typ).Interface()
}

// formatNumber renders an integer, unsigned or float value as literal text.
func formatNumber(rv reflect.Value) (string, error) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return "", fmt.Errorf("crate: unsupported float value %v", f)
		}
		return strconv.FormatFloat(f, 'g', -1, rv.Type().Bits()), nil
	}
	return "", fmt.Errorf("crate: %s is not a number", rv.Type())
}

// formatScalar renders a scalar value as text.
func formatScalar(rv reflect.Value) (string, error) {
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	}
	return formatNumber(rv)
}

// parseScalar parses text as a value of scalar type t.
func parseScalar(t reflect.Type, text string) (any, error) {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		out.SetString(text)
	case reflect.Bool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, err
		}
		out.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(text, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(text, 10, t.Bits())
		if err != nil {
			return nil, err
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, t.Bits())
		if err != nil {
			return nil, err
		}
		out.SetFloat(f)
	default:
		return nil, fmt.Errorf("crate: %s is not a scalar type", t)
	}
	return out.Interface(), nil
}

// scalarKeyCodec renders scalar map keys and interval endpoints.
type scalarKeyCodec struct {
	typ reflect.Type
}

// ScalarKeyCodec returns the key codec for a bool, string, integer or
// float kind.
func ScalarKeyCodec(t reflect.Type) (KeyCodec, bool) {
	if !isScalarKind(t.Kind()) {
		return nil, false
	}
	return &scalarKeyCodec{typ: t}, true
}

func (c *scalarKeyCodec) EncodeKey(v any) (string, error) {
	if v == nil {
		return "", ErrNullKey
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != c.typ {
		return "", fmt.Errorf("crate: cannot encode key %T as %s", v, c.typ)
	}
	return formatScalar(rv)
}

func (c *scalarKeyCodec) DecodeKey(text string) (any, error) {
	v, err := parseScalar(c.typ, text)
	if err != nil {
		return nil, newConversionError(c.typ, text, err)
	}
	return v, nil
}

// textKeyCodec renders keys through encoding.TextMarshaler.
type textKeyCodec struct {
	typ reflect.Type
}

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// TextKeyCodec returns a key codec for types whose values implement
// encoding.TextMarshaler and whose pointers implement
// encoding.TextUnmarshaler.
func TextKeyCodec(t reflect.Type) (KeyCodec, bool) {
	if t.Kind() == reflect.Pointer || !t.Implements(textMarshalerType) || !reflect.PointerTo(t).Implements(textUnmarshalerType) {
		return nil, false
	}
	return &textKeyCodec{typ: t}, true
}

func (c *textKeyCodec) EncodeKey(v any) (string, error) {
	m, ok := v.(encoding.TextMarshaler)
	if !ok {
		return "", fmt.Errorf("crate: cannot encode key %T as %s", v, c.typ)
	}
	text, err := m.MarshalText()
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func (c *textKeyCodec) DecodeKey(text string) (any, error) {
	ptr := reflect.New(c.typ)
	if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
		return nil, newConversionError(c.typ, text, err)
	}
	return ptr.Elem().Interface(), nil
}

// anyCodec handles interface-typed values. Decoding produces natural
// values: map[string]any, []any, string, bool, nil, and int64 or float64 for
// numbers. Encoding dispatches on the runtime type through the provider.
type anyCodec struct {
	provider Provider
}

// AnyCodec returns the codec for interface-typed values.
func AnyCodec() Codec {
	return &anyCodec{}
}

// Contextualize binds the provider used to encode runtime types.
func (c *anyCodec) Contextualize(p Provider, _ *Site) (Codec, error) {
	if c.provider == p {
		return c, nil
	}
	return &anyCodec{provider: p}, nil
}

func (c *anyCodec) Encode(ctx context.Context, w Sink, v any) error {
	if v == nil {
		return w.Null()
	}
	if c.provider != nil {
		codec, err := c.provider.ValueCodec(reflect.TypeOf(v), nil)
		if err != nil {
			return err
		}
		return codec.Encode(ctx, w, v)
	}
	return encodeNatural(ctx, w, v)
}

func (c *anyCodec) Decode(_ context.Context, r Source) (any, error) {
	return decodeNatural(r)
}

// encodeNatural writes the values decodeNatural produces.
func encodeNatural(ctx context.Context, w Sink, v any) error {
	switch val := v.(type) {
	case nil:
		return w.Null()
	case map[string]any:
		if err := w.BeginObject(); err != nil {
			return err
		}
		for _, k := range sortedKeys(val) {
			if err := w.Key(k); err != nil {
				return err
			}
			if err := encodeNatural(ctx, w, val[k]); err != nil {
				return err
			}
		}
		return w.EndObject()
	case []any:
		if err := w.BeginArray(); err != nil {
			return err
		}
		for _, e := range val {
			if err := encodeNatural(ctx, w, e); err != nil {
				return err
			}
		}
		return w.EndArray()
	}
	rv := reflect.ValueOf(v)
	if !isScalarKind(rv.Kind()) {
		return fmt.Errorf("crate: no natural encoding for %T", v)
	}
	return (&scalarCodec{typ: rv.Type()}).Encode(ctx, w, v)
}

func decodeNatural(r Source) (any, error) {
	tok, err := r.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newEOFError("any", "value", r.Pos())
		}
		return nil, err
	}

	switch tok.Kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return tok.Bool, nil
	case KindString:
		return tok.Text, nil
	case KindNumber:
		if n, err := strconv.ParseInt(tok.Text, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, newConversionError(reflect.TypeFor[float64](), tok.Text, err)
		}
		return f, nil
	case KindBeginArray:
		out := []any{}
		for {
			next, err := r.Peek()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil, newEOFError("any", "value or EndArray", r.Pos())
				}
				return nil, err
			}
			if next.Kind == KindEndArray {
				_, _ = r.Next()
				return out, nil
			}
			v, err := decodeNatural(r)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
	case KindBeginObject:
		out := map[string]any{}
		for {
			key, err := r.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil, newEOFError("any", "Key or EndObject", r.Pos())
				}
				return nil, err
			}
			if key.Kind == KindEndObject {
				return out, nil
			}
			if key.Kind != KindKey {
				return nil, newTokenError("any", "Key or EndObject", key, r.Pos())
			}
			v, err := decodeNatural(r)
			if err != nil {
				return nil, err
			}
			out[key.Text] = v
		}
	}
	return nil, newTokenError("any", "value", tok, r.Pos())
}

// pointerCodec handles *T by delegating to the codec of T.
type pointerCodec struct {
	typ  reflect.Type
	elem Codec
}

// Contextualize resolves the codec of the element type.
func (c *pointerCodec) Contextualize(p Provider, site *Site) (Codec, error) {
	elem, err := p.ValueCodec(c.typ.Elem(), site)
	if err != nil {
		return nil, err
	}
	if elem == c.elem {
		return c, nil
	}
	return &pointerCodec{typ: c.typ, elem: elem}, nil
}

func (c *pointerCodec) Encode(ctx context.Context, w Sink, v any) error {
	rv := reflect.ValueOf(v)
	if v == nil || rv.IsNil() {
		return w.Null()
	}
	return c.elem.Encode(ctx, w, rv.Elem().Interface())
}

func (c *pointerCodec) Decode(ctx context.Context, r Source) (any, error) {
	tok, err := r.Peek()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, newEOFError(c.typ.String(), "value", r.Pos())
		}
		return nil, err
	}
	if tok.Kind == KindNull {
		_, _ = r.Next()
		return reflect.Zero(c.typ).Interface(), nil
	}
	v, err := c.elem.Decode(ctx, r)
	if err != nil {
		return nil, err
	}
	elem, err := valueOf(v, c.typ.Elem())
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(c.typ.Elem())
	ptr.Elem().Set(elem)
	return ptr.Interface(), nil
}
