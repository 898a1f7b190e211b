package crate

import (
	"context"
	"reflect"
)

// Features are global switches consulted by every codec of a Provider.
type Features struct {
	// OrderMapEntriesByKeys writes map entries in ascending key order.
	OrderMapEntriesByKeys bool

	// AcceptSingleValueAsArray decodes a lone value as a one-element
	// collection. Sites may override it.
	AcceptSingleValueAsArray bool
}

// IntervalConverter turns the default IntervalMap into a target type.
type IntervalConverter func(m *IntervalMap) (any, error)

// Provider is the host collaborator that supplies codecs, filters and
// configuration during resolution. Registry is the default implementation.
type Provider interface {
	// ValueCodec returns the codec for values of type t at site.
	ValueCodec(t reflect.Type, site *Site) (Codec, error)

	// KeyCodec returns the key codec for keys of type t at site.
	KeyCodec(t reflect.Type, site *Site) (KeyCodec, error)

	// NamedCodec returns the codec registered under name.
	NamedCodec(name string) (Codec, error)

	// NamedKeyCodec returns the key codec registered under name.
	NamedKeyCodec(name string) (KeyCodec, error)

	// NullValue returns the null substitute declared by c, if any.
	NullValue(c Codec) (any, bool)

	// Filter returns the entry filter registered under id.
	Filter(id string) (EntryFilter, error)

	// Converter returns the conversion from IntervalMap to target.
	Converter(target reflect.Type) (IntervalConverter, bool)

	// Features returns the global feature switches.
	Features() Features
}

// EntryFilter decides how a map entry is emitted when a site names a filter.
// Implementations call entry.Write to emit the entry unchanged, write
// something else, or write nothing to drop it.
type EntryFilter interface {
	FilterEntry(ctx context.Context, container any, w Sink, entry *EntryWriter) error
}

// EntryFilterFunc adapts a function to EntryFilter.
type EntryFilterFunc func(ctx context.Context, container any, w Sink, entry *EntryWriter) error

// FilterEntry calls f.
func (f EntryFilterFunc) FilterEntry(ctx context.Context, container any, w Sink, entry *EntryWriter) error {
	return f(ctx, container, w, entry)
}

// EntryWriter describes one map entry offered to an EntryFilter.
type EntryWriter struct {
	key     any
	keyText string
	value   any
	write   func(ctx context.Context, w Sink, value any) error
}

// Key returns the entry key.
func (e *EntryWriter) Key() any { return e.key }

// KeyText returns the entry key as it appears on the wire.
func (e *EntryWriter) KeyText() string { return e.keyText }

// Value returns the entry value.
func (e *EntryWriter) Value() any { return e.value }

// Write emits the entry's key and value to w.
func (e *EntryWriter) Write(ctx context.Context, w Sink) error {
	if err := w.Key(e.keyText); err != nil {
		return err
	}
	return e.write(ctx, w, e.value)
}
