// Package testing provides test utilities for crate.
package testing

import (
	"reflect"
	"testing"

	"github.com/zoobzio/crate"
	"github.com/zoobzio/crate/json"
	"github.com/zoobzio/crate/yaml"
)

// Registry returns a registry holding int-keyed interval map codecs with
// string values for *crate.IntervalMap, *crate.ImmutableIntervalMap and
// crate.IntervalPairs.
func Registry(tb testing.TB, opts ...crate.RegistryOption) *crate.Registry {
	tb.Helper()
	reg := crate.NewRegistry(opts...)
	for _, target := range []reflect.Type{
		reflect.TypeFor[*crate.IntervalMap](),
		reflect.TypeFor[*crate.ImmutableIntervalMap](),
		reflect.TypeFor[crate.IntervalPairs](),
	} {
		reg.Register(target, crate.NewIntervalMapCodec(crate.ContainerType{
			Target: target,
			Key:    reflect.TypeFor[int](),
			Elem:   reflect.TypeFor[string](),
		}))
	}
	return reg
}

// Bands returns an interval map covering every int:
//
//	(-∞..0)    below
//	[0..10)    low
//	[10..100)  mid
//	[100..+∞)  high
func Bands(tb testing.TB) *crate.IntervalMap {
	tb.Helper()
	below, err := crate.UpTo(0, crate.Open)
	if err != nil {
		tb.Fatalf("UpTo() error: %v", err)
	}
	high, err := crate.DownTo(100, crate.Closed)
	if err != nil {
		tb.Fatalf("DownTo() error: %v", err)
	}

	m := crate.NewIntervalMap()
	entries := crate.IntervalPairs{
		{Key: below, Value: "below"},
		{Key: crate.MustRange(0, crate.Closed, 10, crate.Open), Value: "low"},
		{Key: crate.MustRange(10, crate.Closed, 100, crate.Open), Value: "mid"},
		{Key: high, Value: "high"},
	}
	if err := m.PutAll(entries); err != nil {
		tb.Fatalf("PutAll() error: %v", err)
	}
	return m
}

// BandsJSON is Bands in JSON, entries in ascending order.
const BandsJSON = `{"(-∞..0)":"below","[0..10)":"low","[10..100)":"mid","[100..+∞)":"high"}`

// Formats returns every token stream backend keyed by name.
func Formats() map[string]crate.Format {
	return map[string]crate.Format{
		"json": json.New(),
		"yaml": yaml.New(),
	}
}

// Tariff is a struct declaring container sites with crate tags.
type Tariff struct {
	Bands   *crate.IntervalMap `crate.sort:"true" crate.ignore:"(-∞..0)"`
	Regions []string           `crate.single:"true"`
	Notes   map[string]string  `crate.nulls:"skip" crate.filter:"mask"`
}
