package crate_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/crate"
)

func TestSlice_Add(t *testing.T) {
	c := crate.Slice[int]()
	acc := c.CreateEmpty()
	acc, err := c.Add(acc, 3)
	if err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	acc, err = c.Add(acc, nil)
	if err != nil {
		t.Fatalf("Add(nil) error: %v", err)
	}
	out, _ := c.Finish(acc)
	if diff := cmp.Diff([]int{3, 0}, out); diff != "" {
		t.Errorf("Finish() mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.Add(acc, "three"); !errors.Is(err, crate.ErrConversion) {
		t.Errorf("Add(string) error = %v, want ErrConversion", err)
	}
}

func TestSet_EachSorted(t *testing.T) {
	c := crate.Set[string]()
	set := map[string]struct{}{"pear": {}, "apple": {}, "fig": {}}

	var got []string
	err := c.Each(set, func(e any) error {
		got = append(got, e.(string))
		return nil
	})
	if err != nil {
		t.Fatalf("Each() error: %v", err)
	}
	if diff := cmp.Diff([]string{"apple", "fig", "pear"}, got); diff != "" {
		t.Errorf("Each() mismatch (-want +got):\n%s", diff)
	}
}

func TestCollection_EachStops(t *testing.T) {
	stop := errors.New("stop")
	calls := 0
	err := crate.Slice[int]().Each([]int{1, 2, 3}, func(any) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Each() = %v after %d calls, want stop after 1", err, calls)
	}
}

func TestImmutableMap_With(t *testing.T) {
	var empty crate.ImmutableMap[string, int]
	one := empty.With("b", 2)
	two := one.With("a", 1)
	replaced := two.With("b", 20)

	if empty.Len() != 0 || one.Len() != 1 || two.Len() != 2 {
		t.Errorf("Len() = %d, %d, %d; want 0, 1, 2", empty.Len(), one.Len(), two.Len())
	}
	if v, _ := two.Get("b"); v != 2 {
		t.Errorf("With() changed an earlier map: Get(b) = %d", v)
	}
	if v, _ := replaced.Get("b"); v != 20 {
		t.Errorf("Get(b) = %d, want 20", v)
	}

	var keys []string
	for k := range replaced.All() {
		keys = append(keys, k)
	}
	if diff := cmp.Diff([]string{"b", "a"}, keys); diff != "" {
		t.Errorf("All() order mismatch (-want +got):\n%s", diff)
	}
}

func TestImmutableMap_BranchesAreIndependent(t *testing.T) {
	base := crate.ImmutableMap[string, int]{}.With("x", 1)
	left := base.With("l", 2)
	right := base.With("r", 3)

	if _, ok := left.Get("r"); ok {
		t.Error("sibling maps share entries")
	}
	if _, ok := right.Get("l"); ok {
		t.Error("sibling maps share entries")
	}
}

func TestPersistent_WithEntry(t *testing.T) {
	c := crate.Persistent[string, int]()
	m := c.CreateEmpty()
	next, err := c.WithEntry(m, "a", 1)
	if err != nil {
		t.Fatalf("WithEntry() error: %v", err)
	}
	if m.(crate.ImmutableMap[string, int]).Len() != 0 {
		t.Error("WithEntry() changed the original map")
	}
	if _, err := c.WithEntry(next, "b", "two"); !errors.Is(err, crate.ErrConversion) {
		t.Errorf("WithEntry(string value) error = %v, want ErrConversion", err)
	}
	if err := c.Each(map[string]int{}, func(any, any) error { return nil }); err == nil {
		t.Error("Each() should reject a value of the wrong type")
	}
}

func TestList(t *testing.T) {
	src := []string{"a", "b"}
	l := crate.ListOf(src...)
	src[0] = "z"

	if l.Len() != 2 || l.At(0) != "a" {
		t.Errorf("ListOf() did not copy its input: %v", l.Slice())
	}
	out := l.Slice()
	out[1] = "y"
	if l.At(1) != "b" {
		t.Error("Slice() exposed the backing array")
	}
	if got := slices.Collect(l.All()); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("All() = %v", got)
	}
}

func TestFrozenSlice_WrongType(t *testing.T) {
	c := crate.FrozenSlice[int]()
	if err := c.Each([]int{1}, func(any) error { return nil }); err == nil {
		t.Error("Each() should reject a plain slice")
	}
}

func TestGoMap_Put(t *testing.T) {
	c := crate.GoMap[string, float64]()
	m := c.CreateEmpty()
	if err := c.Put(m, "pi", 3.14); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := c.Put(m, 7, 1.0); !errors.Is(err, crate.ErrConversion) {
		t.Errorf("Put(int key) error = %v, want ErrConversion", err)
	}
	if got := m.(map[string]float64)["pi"]; got != 3.14 {
		t.Errorf("m[pi] = %v", got)
	}
}
