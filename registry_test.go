package crate_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/zoobzio/crate"
)

func TestRegistry_ResolveCaching(t *testing.T) {
	reg := crate.NewRegistry()
	site := &crate.Site{Name: "Values"}

	c1, err := crate.CodecFor[[]string](reg, site)
	if err != nil {
		t.Fatalf("CodecFor() error: %v", err)
	}
	c2, _ := crate.CodecFor[[]string](reg, site)
	if c1 != c2 {
		t.Error("CodecFor() should return the cached codec for the same site")
	}

	other, _ := crate.CodecFor[[]string](reg, &crate.Site{Name: "Values"})
	if other == c1 {
		t.Error("distinct sites should resolve distinct codecs")
	}
}

func TestRegistry_Reset(t *testing.T) {
	reg := crate.NewRegistry()
	c1, _ := crate.CodecFor[[]int](reg, nil)
	reg.Reset()
	c2, _ := crate.CodecFor[[]int](reg, nil)
	if c1 == c2 {
		t.Error("Reset() should clear the resolution cache")
	}
}

func TestRegistry_RegisterClearsCache(t *testing.T) {
	reg := crate.NewRegistry()
	before, _ := crate.CodecFor[map[string]string](reg, nil)

	reg.RegisterNamed("upper", upperCodec{})
	after, _ := crate.CodecFor[map[string]string](reg, nil)
	if before == after {
		t.Error("registering should clear the resolution cache")
	}
}

func TestRegistry_Chaining(t *testing.T) {
	reg := crate.NewRegistry().
		SetFeatures(crate.Features{OrderMapEntriesByKeys: true}).
		RegisterNamed("upper", upperCodec{}).
		RegisterFilter("mask4", crate.MaskFilter(4))

	if !reg.Features().OrderMapEntriesByKeys {
		t.Error("SetFeatures() was not applied")
	}
	if _, err := reg.NamedCodec("upper"); err != nil {
		t.Errorf("NamedCodec() error: %v", err)
	}
	if _, err := reg.Filter("mask4"); err != nil {
		t.Errorf("Filter() error: %v", err)
	}
}

func TestRegistry_BuiltIns(t *testing.T) {
	reg := crate.NewRegistry()
	for _, id := range []string{crate.FilterMask, crate.FilterHash} {
		if _, err := reg.Filter(id); err != nil {
			t.Errorf("Filter(%q) error: %v", id, err)
		}
	}
	for _, target := range []reflect.Type{
		reflect.TypeFor[*crate.ImmutableIntervalMap](),
		reflect.TypeFor[crate.IntervalPairs](),
	} {
		if _, ok := reg.Converter(target); !ok {
			t.Errorf("Converter(%s) should be registered", target)
		}
	}
}

func TestRegistry_Fallbacks(t *testing.T) {
	reg := crate.NewRegistry()
	tests := []struct {
		name string
		typ  reflect.Type
	}{
		{"scalar", reflect.TypeFor[float32]()},
		{"interface", reflect.TypeFor[any]()},
		{"pointer", reflect.TypeFor[*string]()},
		{"slice", reflect.TypeFor[[]bool]()},
		{"set", reflect.TypeFor[map[int]struct{}]()},
		{"map", reflect.TypeFor[map[string][]int]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Resolve(tt.typ, nil); err != nil {
				t.Errorf("Resolve(%s) error: %v", tt.typ, err)
			}
		})
	}
}

func TestRegistry_ResolutionFailures(t *testing.T) {
	reg := crate.NewRegistry()
	tests := []struct {
		name string
		fn   func() error
	}{
		{"struct", func() error { _, err := reg.Resolve(reflect.TypeFor[struct{ A int }](), nil); return err }},
		{"func", func() error { _, err := reg.Resolve(reflect.TypeFor[func()](), nil); return err }},
		{"key type", func() error { _, err := reg.KeyCodec(reflect.TypeFor[[]int](), nil); return err }},
		{"no key type", func() error { _, err := reg.KeyCodec(nil, nil); return err }},
		{"named", func() error { _, err := reg.NamedCodec("nope"); return err }},
		{"named key", func() error { _, err := reg.NamedKeyCodec("nope"); return err }},
		{"filter", func() error { _, err := reg.Filter("nope"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			if !errors.Is(err, crate.ErrCodecResolution) {
				t.Errorf("error = %v, want ErrCodecResolution", err)
			}
		})
	}
}

func TestRegistry_RegisterKey(t *testing.T) {
	reg := crate.NewRegistry()
	reg.RegisterKey(reflect.TypeFor[string](), looseEndpoint{})
	k, err := reg.KeyCodec(reflect.TypeFor[string](), nil)
	if err != nil {
		t.Fatalf("KeyCodec() error: %v", err)
	}
	if _, ok := k.(looseEndpoint); !ok {
		t.Errorf("KeyCodec() = %T, want the registered codec", k)
	}
}

func TestRegistry_NullValue(t *testing.T) {
	reg := crate.NewRegistry()
	c, _ := crate.ScalarCodec(reflect.TypeFor[bool]())
	if v, ok := reg.NullValue(c); !ok || v != false {
		t.Errorf("NullValue(bool codec) = %v, %v", v, ok)
	}
	if _, ok := reg.NullValue(upperCodec{}); ok {
		t.Error("NullValue() should report false for codecs without a substitute")
	}
}
