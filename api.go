// Package crate provides contextual codecs for container types: collections,
// maps, persistent maps and interval-keyed maps, read from and written to a
// hierarchical token stream.
//
// # Resolution
//
// Container codecs are declared once from static type information and then
// contextualized for each declaration site. Contextualization resolves key,
// value and type-discriminator codecs through a Provider, applies site
// overrides, and computes the ignore set, ordering and null handling. The
// resolved codec is immutable and reused for every read and write at that
// site.
//
//	reg := crate.NewRegistry(crate.WithFeatures(crate.Features{
//	    OrderMapEntriesByKeys: true,
//	}))
//	crate.Register[*crate.IntervalMap](reg, crate.NewIntervalMapCodec(crate.ContainerType{
//	    Target: reflect.TypeFor[*crate.IntervalMap](),
//	    Key:    reflect.TypeFor[int](),
//	    Elem:   reflect.TypeFor[string](),
//	}))
//
//	data, _ := crate.Encode(ctx, reg, json.New(), nil, ranges)
//	// {"(0..10]":"A","(10..20]":"B"}
//
// # Interval Keys
//
// Interval-keyed maps use bracket notation for property names:
//
//	[0..10)     closed below, open above
//	(0..10]     open below, closed above
//	(-∞..5)     unbounded below
//	(5..+∞)     unbounded above
//	(-∞..+∞)    unbounded on both sides
//
// An unbounded side is always open.
//
// # Site Tags
//
// Struct fields holding containers declare site overrides with tags:
//
//	type Tariff struct {
//	    Bands *crate.IntervalMap `crate.sort:"true" crate.ignore:"(20..30]"`
//	    Tags  []string           `crate.single:"true"`
//	    Rates map[string]float64 `crate.nulls:"skip" crate.filter:"public"`
//	}
//
//	site, _ := crate.SiteFor[Tariff]("Bands")
//
// # Dynamic Codecs
//
// When a container's element type is an interface, value codecs are looked
// up per runtime type and memoized in a copy-on-write cache owned by the
// resolved codec.
//
// # Observability
//
// Resolution, cache growth, unordered fallbacks and encode/decode completion
// are emitted as capitan signals.
//
// # Formats
//
// Token stream backends are available as packages of this module:
//
//   - json - JSON (application/json)
//   - yaml - YAML (application/yaml)
package crate

import (
	"bytes"
	"context"
	"reflect"
)

// Encode writes v in format f using the codec of T resolved for site.
func Encode[T any](ctx context.Context, r *Registry, f Format, site *Site, v T) ([]byte, error) {
	c, err := CodecFor[T](r, site)
	if err != nil {
		return nil, err
	}
	return Marshal(ctx, f, c, v)
}

// Decode reads a T in format f using the codec of T resolved for site.
func Decode[T any](ctx context.Context, r *Registry, f Format, site *Site, data []byte) (T, error) {
	var zero T
	c, err := CodecFor[T](r, site)
	if err != nil {
		return zero, err
	}
	v, err := Unmarshal(ctx, f, c, data)
	if err != nil {
		return zero, err
	}
	return as[T](v)
}

// Transcode reads one value of type t from src and writes it to dst with the
// same codec, normalizing key order, ignored entries and null handling.
func Transcode(ctx context.Context, r *Registry, t reflect.Type, site *Site, src, dst Format, data []byte) ([]byte, error) {
	c, err := r.Resolve(t, site)
	if err != nil {
		return nil, err
	}
	v, err := Unmarshal(ctx, src, c, data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	sink := dst.NewSink(&buf)
	if err := c.Encode(ctx, sink, v); err != nil {
		return nil, err
	}
	if err := sink.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
