package crate

import (
	"fmt"
	"iter"
	"maps"
	"reflect"
	"slices"
)

// Capability interfaces are the operations a container adapter supplies so
// container codecs can build and walk the container without knowing its type.
// Intermediate values are opaque to the codecs; adapters own their shape.

// CollectionCapability builds and walks a collection-like container.
type CollectionCapability interface {
	// CreateEmpty returns a fresh intermediate.
	CreateEmpty() any

	// Add appends elem to the intermediate and returns the updated intermediate.
	Add(acc, elem any) (any, error)

	// Finish turns the intermediate into the final container.
	Finish(acc any) (any, error)

	// Each calls fn for every element of a final container, in order.
	Each(v any, fn func(elem any) error) error
}

// MutableMapCapability builds and walks a map mutated in place.
type MutableMapCapability interface {
	// CreateEmpty returns a fresh, empty map.
	CreateEmpty() any

	// Put stores value under key.
	Put(m, key, value any) error

	// Each calls fn for every entry of m.
	Each(m any, fn func(key, value any) error) error
}

// PersistentMapCapability builds and walks a map updated functionally.
type PersistentMapCapability interface {
	// CreateEmpty returns an empty map.
	CreateEmpty() any

	// WithEntry returns a map holding m's entries plus key -> value.
	// m is left unchanged.
	WithEntry(m, key, value any) (any, error)

	// Each calls fn for every entry of m.
	Each(m any, fn func(key, value any) error) error
}

// sliceAdapter builds a slice type by reflection.
type sliceAdapter struct {
	typ reflect.Type
}

// SliceOf returns the collection capability of slice type t.
func SliceOf(t reflect.Type) CollectionCapability {
	return &sliceAdapter{typ: t}
}

// Slice returns the collection capability of []E.
func Slice[E any]() CollectionCapability {
	return SliceOf(reflect.TypeFor[[]E]())
}

func (a *sliceAdapter) CreateEmpty() any {
	return reflect.MakeSlice(a.typ, 0, 0).Interface()
}

func (a *sliceAdapter) Add(acc, elem any) (any, error) {
	ev, err := valueOf(elem, a.typ.Elem())
	if err != nil {
		return nil, err
	}
	return reflect.Append(reflect.ValueOf(acc), ev).Interface(), nil
}

func (a *sliceAdapter) Finish(acc any) (any, error) {
	return acc, nil
}

func (a *sliceAdapter) Each(v any, fn func(any) error) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	for i := range rv.Len() {
		if err := fn(rv.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// setAdapter builds a map[E]struct{} set by reflection.
type setAdapter struct {
	typ reflect.Type
}

// SetOf returns the collection capability of set type t, a map whose value
// type is struct{}. Elements are walked in ascending order when they can be
// ordered.
func SetOf(t reflect.Type) CollectionCapability {
	return &setAdapter{typ: t}
}

// Set returns the collection capability of map[E]struct{}.
func Set[E comparable]() CollectionCapability {
	return SetOf(reflect.TypeFor[map[E]struct{}]())
}

func (a *setAdapter) CreateEmpty() any {
	return reflect.MakeMap(a.typ).Interface()
}

func (a *setAdapter) Add(acc, elem any) (any, error) {
	ev, err := valueOf(elem, a.typ.Key())
	if err != nil {
		return nil, err
	}
	reflect.ValueOf(acc).SetMapIndex(ev, reflect.Zero(a.typ.Elem()))
	return acc, nil
}

func (a *setAdapter) Finish(acc any) (any, error) {
	return acc, nil
}

func (a *setAdapter) Each(v any, fn func(any) error) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	elems := make([]any, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		elems = append(elems, k.Interface())
	}
	sortValues(elems)
	for _, e := range elems {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// List is an immutable sequence produced by FrozenSlice.
type List[E any] struct {
	elems []E
}

// ListOf returns a List holding a copy of elems.
func ListOf[E any](elems ...E) List[E] {
	return List[E]{elems: slices.Clone(elems)}
}

// Len returns the number of elements.
func (l List[E]) Len() int { return len(l.elems) }

// At returns the element at index i.
func (l List[E]) At(i int) E { return l.elems[i] }

// All iterates over the elements in order.
func (l List[E]) All() iter.Seq[E] { return slices.Values(l.elems) }

// Slice returns a copy of the elements.
func (l List[E]) Slice() []E { return slices.Clone(l.elems) }

type frozenAdapter[E any] struct{}

// FrozenSlice returns the collection capability of List[E]. Elements are
// gathered in a slice and frozen on finish.
func FrozenSlice[E any]() CollectionCapability {
	return frozenAdapter[E]{}
}

func (frozenAdapter[E]) CreateEmpty() any {
	return []E{}
}

func (frozenAdapter[E]) Add(acc, elem any) (any, error) {
	e, err := as[E](elem)
	if err != nil {
		return nil, err
	}
	return append(acc.([]E), e), nil
}

func (frozenAdapter[E]) Finish(acc any) (any, error) {
	return List[E]{elems: acc.([]E)}, nil
}

func (frozenAdapter[E]) Each(v any, fn func(any) error) error {
	l, ok := v.(List[E])
	if !ok {
		return fmt.Errorf("crate: expected %s, got %T", reflect.TypeFor[List[E]](), v)
	}
	for _, e := range l.elems {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// mapAdapter builds a Go map type by reflection.
type mapAdapter struct {
	typ reflect.Type
}

// MapOf returns the mutable map capability of map type t. Entries are
// walked in ascending key order when the keys can be ordered.
func MapOf(t reflect.Type) MutableMapCapability {
	return &mapAdapter{typ: t}
}

// GoMap returns the mutable map capability of map[K]V.
func GoMap[K comparable, V any]() MutableMapCapability {
	return MapOf(reflect.TypeFor[map[K]V]())
}

func (a *mapAdapter) CreateEmpty() any {
	return reflect.MakeMap(a.typ).Interface()
}

func (a *mapAdapter) Put(m, key, value any) error {
	kv, err := valueOf(key, a.typ.Key())
	if err != nil {
		return err
	}
	vv, err := valueOf(value, a.typ.Elem())
	if err != nil {
		return err
	}
	reflect.ValueOf(m).SetMapIndex(kv, vv)
	return nil
}

func (a *mapAdapter) Each(m any, fn func(key, value any) error) error {
	rv := reflect.ValueOf(m)
	if !rv.IsValid() {
		return nil
	}
	type pair struct{ key, value any }
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{key: iter.Key().Interface(), value: iter.Value().Interface()})
	}
	sortBy(pairs, func(p pair) any { return p.key })
	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// ImmutableMap is a persistent map: With returns a new map and leaves the
// receiver unchanged. The zero value is an empty map.
type ImmutableMap[K comparable, V any] struct {
	entries map[K]V
	order   []K
}

// With returns a map holding m's entries plus key -> value. Each call
// copies the entries, so building an n-entry map one With at a time costs
// O(n²); decoding a large persistent map is quadratic in its size. Use a Go
// map and convert when that matters.
func (m ImmutableMap[K, V]) With(key K, value V) ImmutableMap[K, V] {
	next := ImmutableMap[K, V]{
		entries: maps.Clone(m.entries),
		order:   m.order,
	}
	if next.entries == nil {
		next.entries = make(map[K]V, 1)
	}
	if _, ok := next.entries[key]; !ok {
		next.order = append(slices.Clip(m.order), key)
	}
	next.entries[key] = value
	return next
}

// Get returns the value stored under key.
func (m ImmutableMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Len returns the number of entries.
func (m ImmutableMap[K, V]) Len() int { return len(m.entries) }

// All iterates over entries in insertion order.
func (m ImmutableMap[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, k := range m.order {
			if !yield(k, m.entries[k]) {
				return
			}
		}
	}
}

type persistentAdapter[K comparable, V any] struct{}

// Persistent returns the persistent map capability of ImmutableMap[K, V].
// Reads insert through ImmutableMap.With, one copy per entry.
func Persistent[K comparable, V any]() PersistentMapCapability {
	return persistentAdapter[K, V]{}
}

func (persistentAdapter[K, V]) CreateEmpty() any {
	return ImmutableMap[K, V]{}
}

func (persistentAdapter[K, V]) WithEntry(m, key, value any) (any, error) {
	k, err := as[K](key)
	if err != nil {
		return nil, err
	}
	v, err := as[V](value)
	if err != nil {
		return nil, err
	}
	return m.(ImmutableMap[K, V]).With(k, v), nil
}

func (persistentAdapter[K, V]) Each(m any, fn func(key, value any) error) error {
	pm, ok := m.(ImmutableMap[K, V])
	if !ok {
		return fmt.Errorf("crate: expected %s, got %T", reflect.TypeFor[ImmutableMap[K, V]](), m)
	}
	for k, v := range pm.All() {
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return nil
}

// valueOf converts a decoded value to t. nil becomes the zero value.
func valueOf(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Kind() == t.Kind() && rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, newConversionError(t, v, fmt.Errorf("cannot use %T as %s", v, t))
}

// as is valueOf for a static type.
func as[T any](v any) (T, error) {
	rv, err := valueOf(v, reflect.TypeFor[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := rv.Interface().(T) // nil interface values stay zero
	return out, nil
}
