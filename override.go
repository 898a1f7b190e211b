package crate

import "context"

// Override interfaces let codecs take part in per-site resolution.
// When a codec implements one of these interfaces, the resolution protocol
// calls the interface method instead of using the codec as registered.
//
// Codecs that need no specialisation implement none of them and are shared
// unchanged across every site.

// Contextual codecs specialise themselves for one declaration site.
type Contextual interface {
	// Contextualize returns a codec resolved for site. It must not modify
	// the receiver; returning the receiver is allowed when nothing changes.
	// Resolving an already resolved codec for the same site returns an
	// equivalent codec.
	Contextualize(p Provider, site *Site) (Codec, error)
}

// ContextualKey key codecs specialise themselves for one declaration site.
type ContextualKey interface {
	// ContextualizeKey returns a key codec resolved for site.
	ContextualizeKey(p Provider, site *Site) (KeyCodec, error)
}

// NullValuer codecs supply a substitute for null input.
type NullValuer interface {
	// NullValue returns the value a null token decodes to.
	NullValue() any
}

// TypeCodec writes and reads values with a type discriminator, so a site
// declared with an interface element type can round-trip concrete types.
type TypeCodec interface {
	// ForSite returns the type codec specialised for site, resolving the
	// codecs of announced types through p.
	ForSite(p Provider, site *Site) TypeCodec

	// EncodeTyped writes v, with its type id, using c for the value itself.
	EncodeTyped(ctx context.Context, w Sink, v any, c Codec) error

	// DecodeTyped reads a type id and the value it announces.
	DecodeTyped(ctx context.Context, r Source) (any, error)
}
