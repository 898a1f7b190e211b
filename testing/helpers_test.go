package testing

import (
	"context"
	"testing"

	"github.com/zoobzio/crate"
	"github.com/zoobzio/crate/json"
)

func TestRegistry(t *testing.T) {
	reg := Registry(t)
	for _, resolve := range []func() error{
		func() error { _, err := crate.CodecFor[*crate.IntervalMap](reg, nil); return err },
		func() error { _, err := crate.CodecFor[*crate.ImmutableIntervalMap](reg, nil); return err },
		func() error { _, err := crate.CodecFor[crate.IntervalPairs](reg, nil); return err },
	} {
		if err := resolve(); err != nil {
			t.Errorf("CodecFor() error: %v", err)
		}
	}
}

func TestBands(t *testing.T) {
	m := Bands(t)
	if m.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", m.Len())
	}

	tests := []struct {
		point int
		want  string
	}{
		{-5, "below"},
		{0, "low"},
		{9, "low"},
		{10, "mid"},
		{100, "high"},
		{1 << 30, "high"},
	}
	for _, tt := range tests {
		v, ok, err := m.Get(tt.point)
		if err != nil || !ok || v != tt.want {
			t.Errorf("Get(%d) = %v, %v, %v; want %s", tt.point, v, ok, err, tt.want)
		}
	}

	span, ok := m.Span()
	if !ok || span.HasLower() || span.HasUpper() {
		t.Errorf("Span() = %s, want (-∞..+∞)", span)
	}
}

func TestBandsJSON(t *testing.T) {
	reg := Registry(t)
	got, err := crate.Encode(context.Background(), reg, json.New(), nil, Bands(t))
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if string(got) != BandsJSON {
		t.Errorf("Encode() = %s, want %s", got, BandsJSON)
	}
}

func TestFormats(t *testing.T) {
	formats := Formats()
	if formats["json"].ContentType() != "application/json" {
		t.Error("json format missing")
	}
	if formats["yaml"].ContentType() != "application/yaml" {
		t.Error("yaml format missing")
	}
}

func TestTariffSites(t *testing.T) {
	sites, err := crate.SitesFor[Tariff]()
	if err != nil {
		t.Fatalf("SitesFor() error: %v", err)
	}
	if len(sites) != 3 {
		t.Errorf("SitesFor() returned %d sites, want 3", len(sites))
	}
	if s := sites["Bands"]; s == nil || len(s.Ignored) != 1 || s.Ignored[0] != "(-∞..0)" {
		t.Errorf("Bands site = %+v", s)
	}
}
