package crate_test

import (
	"errors"
	"testing"

	"github.com/zoobzio/crate"
)

// version is an endpoint type ordered through a Compare method.
type version struct {
	major, minor int
}

func (v version) Compare(o version) int {
	if v.major != o.major {
		return v.major - o.major
	}
	return v.minor - o.minor
}

func TestRange_Validation(t *testing.T) {
	tests := []struct {
		name    string
		lower   any
		lb      crate.BoundType
		upper   any
		ub      crate.BoundType
		wantErr error
	}{
		{"ascending", 0, crate.Open, 10, crate.Closed, nil},
		{"single closed point", 5, crate.Closed, 5, crate.Closed, nil},
		{"half-open point", 5, crate.Closed, 5, crate.Open, nil},
		{"open point", 5, crate.Open, 5, crate.Open, crate.ErrInvalidInterval},
		{"descending", 10, crate.Closed, 0, crate.Closed, crate.ErrInvalidInterval},
		{"mixed types", 1, crate.Closed, "2", crate.Closed, crate.ErrEndpointNotOrderable},
		{"unorderable", []int{1}, crate.Closed, []int{2}, crate.Closed, crate.ErrEndpointNotOrderable},
		{"compare method", version{1, 0}, crate.Closed, version{1, 2}, crate.Open, nil},
		{"strings", "a", crate.Closed, "m", crate.Open, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := crate.Range(tt.lower, tt.lb, tt.upper, tt.ub)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Range() error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Range() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpToDownTo_Unorderable(t *testing.T) {
	if _, err := crate.UpTo(map[string]int{}, crate.Open); !errors.Is(err, crate.ErrEndpointNotOrderable) {
		t.Errorf("UpTo() error = %v, want ErrEndpointNotOrderable", err)
	}
	if _, err := crate.DownTo(nil, crate.Open); !errors.Is(err, crate.ErrEndpointNotOrderable) {
		t.Errorf("DownTo() error = %v, want ErrEndpointNotOrderable", err)
	}
}

func TestInterval_Contains(t *testing.T) {
	upTo5, _ := crate.UpTo(5, crate.Closed)
	from5, _ := crate.DownTo(5, crate.Open)

	tests := []struct {
		name  string
		iv    crate.Interval
		point int
		want  bool
	}{
		{"open lower excluded", crate.MustRange(0, crate.Open, 10, crate.Closed), 0, false},
		{"closed upper included", crate.MustRange(0, crate.Open, 10, crate.Closed), 10, true},
		{"inside", crate.MustRange(0, crate.Open, 10, crate.Closed), 3, true},
		{"closed lower included", crate.MustRange(0, crate.Closed, 10, crate.Open), 0, true},
		{"open upper excluded", crate.MustRange(0, crate.Closed, 10, crate.Open), 10, false},
		{"unbounded below", upTo5, -1000, true},
		{"closed unbounded-below edge", upTo5, 5, true},
		{"open unbounded-above edge", from5, 5, false},
		{"unbounded above", from5, 6, true},
		{"all", crate.All(), 42, true},
		{"empty", crate.MustRange(5, crate.Closed, 5, crate.Open), 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.iv.Contains(tt.point)
			if err != nil {
				t.Fatalf("Contains() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("%s.Contains(%d) = %v, want %v", tt.iv, tt.point, got, tt.want)
			}
		})
	}
}

func TestInterval_ContainsWrongType(t *testing.T) {
	iv := crate.MustRange(0, crate.Closed, 10, crate.Closed)
	if _, err := iv.Contains("5"); !errors.Is(err, crate.ErrEndpointNotOrderable) {
		t.Errorf("Contains() error = %v, want ErrEndpointNotOrderable", err)
	}
}

func TestInterval_ZeroValue(t *testing.T) {
	var iv crate.Interval
	if !iv.IsZero() {
		t.Error("zero Interval should report IsZero")
	}
	if crate.All().IsZero() {
		t.Error("All() should not report IsZero")
	}
	if got := iv.String(); got != "<nil>" {
		t.Errorf("String() = %q, want %q", got, "<nil>")
	}
	if ok, _ := iv.Contains(1); ok {
		t.Error("zero Interval should contain nothing")
	}
}

func TestInterval_Equal(t *testing.T) {
	a := crate.MustRange(1, crate.Closed, 2, crate.Open)
	if !a.Equal(crate.MustRange(1, crate.Closed, 2, crate.Open)) {
		t.Error("identical intervals should be equal")
	}
	if a.Equal(crate.MustRange(1, crate.Open, 2, crate.Open)) {
		t.Error("intervals with different bounds should differ")
	}
	if a.Equal(crate.MustRange(int64(1), crate.Closed, int64(2), crate.Open)) {
		t.Error("intervals with different endpoint types should differ")
	}
	if !crate.All().Equal(crate.All()) {
		t.Error("All() should equal All()")
	}
}

func TestInterval_String(t *testing.T) {
	upTo, _ := crate.UpTo(5, crate.Open)
	downTo, _ := crate.DownTo(5, crate.Closed)

	tests := []struct {
		iv   crate.Interval
		want string
	}{
		{crate.MustRange(0, crate.Open, 10, crate.Closed), "(0..10]"},
		{upTo, "(-∞..5)"},
		{downTo, "[5..+∞)"},
		{crate.All(), "(-∞..+∞)"},
	}
	for _, tt := range tests {
		if got := tt.iv.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestMustRange_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustRange() should panic on invalid input")
		}
	}()
	crate.MustRange(2, crate.Closed, 1, crate.Closed)
}
