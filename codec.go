package crate

import (
	"bytes"
	"context"
	"errors"
	"io"
)

// Codec converts values to and from a token stream.
type Codec interface {
	// Encode writes v to w.
	Encode(ctx context.Context, w Sink, v any) error

	// Decode reads one complete value from r.
	Decode(ctx context.Context, r Source) (any, error)
}

// KeyCodec converts map keys to and from their textual form.
type KeyCodec interface {
	// EncodeKey renders v as a property name.
	EncodeKey(v any) (string, error)

	// DecodeKey parses a property name.
	DecodeKey(text string) (any, error)
}

// Format provides content-type aware token streams over bytes.
type Format interface {
	// ContentType returns the MIME type for this format (e.g., "application/json").
	ContentType() string

	// NewSource returns a token source reading from r.
	NewSource(r io.Reader) Source

	// NewSink returns a token sink writing to w.
	NewSink(w io.Writer) Sink
}

// Marshal encodes v with c and renders the tokens in format f.
func Marshal(ctx context.Context, f Format, c Codec, v any) ([]byte, error) {
	var buf bytes.Buffer
	sink := f.NewSink(&buf)
	if err := c.Encode(ctx, sink, v); err != nil {
		return nil, err
	}
	if err := sink.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes one value from data with c. Trailing content after the
// value is an error.
func Unmarshal(ctx context.Context, f Format, c Codec, data []byte) (any, error) {
	src := f.NewSource(bytes.NewReader(data))
	v, err := c.Decode(ctx, src)
	if err != nil {
		return nil, err
	}
	tok, err := src.Peek()
	if err == nil {
		return nil, newTokenError("", "end of input", tok, src.Pos())
	}
	if !errors.Is(err, io.EOF) {
		return nil, err
	}
	return v, nil
}
