package integration

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/crate"
	cratetest "github.com/zoobzio/crate/testing"
)

func TestIntervalMap_RoundTrip_AllFormats(t *testing.T) {
	ctx := context.Background()
	reg := cratetest.Registry(t)

	for name, f := range cratetest.Formats() {
		t.Run(name, func(t *testing.T) {
			original := cratetest.Bands(t)
			data, err := crate.Encode(ctx, reg, f, nil, original)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			restored, err := crate.Decode[*crate.IntervalMap](ctx, reg, f, nil, data)
			if err != nil {
				t.Fatalf("Decode() error: %v\n%s", err, data)
			}
			if !original.Equal(restored) {
				t.Errorf("round trip changed the map:\n%s", data)
			}
		})
	}
}

func TestIntervalMap_CrossFormat(t *testing.T) {
	ctx := context.Background()
	reg := cratetest.Registry(t)
	typ := reflect.TypeFor[*crate.IntervalMap]()
	formats := cratetest.Formats()

	data := []byte(cratetest.BandsJSON)
	for _, hop := range [][2]string{{"json", "yaml"}, {"yaml", "yaml"}, {"yaml", "json"}} {
		var err error
		data, err = crate.Transcode(ctx, reg, typ, nil, formats[hop[0]], formats[hop[1]], data)
		if err != nil {
			t.Fatalf("Transcode(%s->%s) error: %v", hop[0], hop[1], err)
		}
	}
	if string(data) != cratetest.BandsJSON {
		t.Errorf("after json->yaml->yaml->json got %s, want %s", data, cratetest.BandsJSON)
	}
}

func TestImmutableIntervalMap_RoundTrip(t *testing.T) {
	ctx := context.Background()
	reg := cratetest.Registry(t)
	frozen := cratetest.Bands(t).Snapshot()

	for name, f := range cratetest.Formats() {
		t.Run(name, func(t *testing.T) {
			data, err := crate.Encode(ctx, reg, f, nil, frozen)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			restored, err := crate.Decode[*crate.ImmutableIntervalMap](ctx, reg, f, nil, data)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if !restored.Mutable().Equal(frozen) {
				t.Errorf("round trip changed the map:\n%s", data)
			}
		})
	}
}

func TestTaggedSites_AllFormats(t *testing.T) {
	ctx := context.Background()
	reg := cratetest.Registry(t)
	bandsSite, err := crate.SiteFor[cratetest.Tariff]("Bands")
	if err != nil {
		t.Fatalf("SiteFor() error: %v", err)
	}
	notesSite, err := crate.SiteFor[cratetest.Tariff]("Notes")
	if err != nil {
		t.Fatalf("SiteFor() error: %v", err)
	}
	regionsSite, err := crate.SiteFor[cratetest.Tariff]("Regions")
	if err != nil {
		t.Fatalf("SiteFor() error: %v", err)
	}

	for name, f := range cratetest.Formats() {
		t.Run(name, func(t *testing.T) {
			// the ignored band is dropped on write
			data, err := crate.Encode(ctx, reg, f, bandsSite, cratetest.Bands(t))
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			bands, err := crate.Decode[*crate.IntervalMap](ctx, reg, f, nil, data)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if bands.Len() != 3 {
				t.Errorf("Len() = %d, want 3", bands.Len())
			}
			if _, ok, _ := bands.Get(-1); ok {
				t.Error("ignored band was written")
			}

			// masked on write
			notes, err := crate.Encode(ctx, reg, f, notesSite, map[string]string{"account": "GB29NWBK60161331926819"})
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			back, err := crate.Decode[map[string]string](ctx, reg, f, nil, notes)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if want := "******************6819"; back["account"] != want {
				t.Errorf("account = %q, want %q", back["account"], want)
			}

			// a lone value is read as a one-element list
			single, err := crate.Encode(ctx, reg, f, nil, "EU")
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			regions, err := crate.Decode[[]string](ctx, reg, f, regionsSite, single)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if diff := cmp.Diff([]string{"EU"}, regions); diff != "" {
				t.Errorf("regions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAnyValues_AllFormats(t *testing.T) {
	ctx := context.Background()
	reg := crate.NewRegistry()
	original := map[string]any{
		"name":  "probe",
		"count": int64(3),
		"ratio": 0.25,
		"ok":    true,
		"none":  nil,
		"tags":  []any{"a", "b"},
		"inner": map[string]any{"depth": int64(2)},
	}

	for name, f := range cratetest.Formats() {
		t.Run(name, func(t *testing.T) {
			data, err := crate.Encode(ctx, reg, f, nil, original)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			restored, err := crate.Decode[map[string]any](ctx, reg, f, nil, data)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if diff := cmp.Diff(original, restored); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s\n%s", diff, data)
			}
		})
	}
}
