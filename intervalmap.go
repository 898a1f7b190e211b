package crate

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/google/btree"
)

// IntervalEntry associates one interval with a value.
type IntervalEntry struct {
	Key   Interval
	Value any
}

// IntervalEntries is implemented by every interval-keyed container the
// codecs can write. Entries returns associations in the container's natural
// iteration order.
type IntervalEntries interface {
	Entries() []IntervalEntry
}

// IntervalMap is a mutable, ordered map from non-overlapping intervals to
// values. Putting an interval replaces the overlapped parts of existing
// entries, so every point maps to at most one value. All finite endpoints
// in one map share a single type.
//
// IntervalMap is the working form every interval-map decode produces before
// conversion to its target type. It is not safe for concurrent mutation.
type IntervalMap struct {
	tree     *btree.BTreeG[IntervalEntry]
	endpoint reflect.Type
}

const intervalTreeDegree = 8

// NewIntervalMap returns an empty IntervalMap.
func NewIntervalMap() *IntervalMap {
	return &IntervalMap{tree: btree.NewG(intervalTreeDegree, lessEntry)}
}

// lessEntry orders entries by their lower cut. Entries never overlap, so
// lower cuts are unique within a map.
func lessEntry(a, b IntervalEntry) bool {
	return compareCuts(a.Key.lowerCut(), b.Key.lowerCut()) < 0
}

// Len returns the number of entries.
func (m *IntervalMap) Len() int {
	return m.tree.Len()
}

// Put associates iv with v, replacing any existing associations on the
// overlapped part of iv. Empty intervals are ignored.
func (m *IntervalMap) Put(iv Interval, v any) error {
	if iv.IsZero() {
		return ErrNullKey
	}
	if err := m.admit(iv); err != nil {
		return err
	}
	if iv.IsEmpty() {
		return nil
	}
	m.clear(iv)
	m.tree.ReplaceOrInsert(IntervalEntry{Key: iv, Value: v})
	return nil
}

// PutAll copies every entry of src into m, in src's order.
func (m *IntervalMap) PutAll(src IntervalEntries) error {
	for _, e := range src.Entries() {
		if err := m.Put(e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// Remove clears every association on iv, trimming entries that extend
// beyond it.
func (m *IntervalMap) Remove(iv Interval) error {
	if iv.IsZero() {
		return ErrNullKey
	}
	if m.endpoint != nil {
		if err := iv.checkEndpointType(m.endpoint); err != nil {
			return err
		}
	}
	if iv.IsEmpty() || m.tree.Len() == 0 {
		return nil
	}
	m.clear(iv)
	return nil
}

// Get returns the value whose interval contains point.
func (m *IntervalMap) Get(point any) (any, bool, error) {
	e, ok, err := m.EntryFor(point)
	return e.Value, ok, err
}

// EntryFor returns the entry whose interval contains point.
func (m *IntervalMap) EntryFor(point any) (IntervalEntry, bool, error) {
	if !orderable(point) {
		return IntervalEntry{}, false, fmt.Errorf("%w: %T", ErrEndpointNotOrderable, point)
	}
	if m.endpoint != nil && reflect.TypeOf(point) != m.endpoint {
		return IntervalEntry{}, false, fmt.Errorf("%w: cannot compare %T with %s",
			ErrEndpointNotOrderable, point, m.endpoint)
	}
	pivot := IntervalEntry{Key: Interval{lower: point, lowerBound: Closed, hasLower: true, set: true}}
	var (
		found IntervalEntry
		ok    bool
	)
	m.tree.DescendLessOrEqual(pivot, func(e IntervalEntry) bool {
		found, ok = e, true
		return false
	})
	if !ok {
		return IntervalEntry{}, false, nil
	}
	if compareCuts(cut{kind: cutBelowValue, v: point}, found.Key.upperCut()) >= 0 {
		return IntervalEntry{}, false, nil
	}
	return found, true, nil
}

// Entries returns every entry in ascending interval order.
func (m *IntervalMap) Entries() []IntervalEntry {
	out := make([]IntervalEntry, 0, m.tree.Len())
	m.tree.Ascend(func(e IntervalEntry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Each calls fn for every entry in ascending order until fn returns false.
func (m *IntervalMap) Each(fn func(IntervalEntry) bool) {
	m.tree.Ascend(btree.ItemIteratorG[IntervalEntry](fn))
}

// Span returns the smallest interval enclosing every entry.
func (m *IntervalMap) Span() (Interval, bool) {
	first, ok := m.tree.Min()
	if !ok {
		return Interval{}, false
	}
	last, _ := m.tree.Max()
	return intervalFromCuts(first.Key.lowerCut(), last.Key.upperCut()), true
}

// Clone returns an independent copy of m. The copy shares tree nodes with m
// until either side is modified.
func (m *IntervalMap) Clone() *IntervalMap {
	return &IntervalMap{tree: m.tree.Clone(), endpoint: m.endpoint}
}

// Snapshot returns an immutable copy of m's current entries.
func (m *IntervalMap) Snapshot() *ImmutableIntervalMap {
	return &ImmutableIntervalMap{entries: m.Entries(), endpoint: m.endpoint}
}

// Equal reports whether m and o hold equal entries in the same order.
func (m *IntervalMap) Equal(o IntervalEntries) bool {
	return entriesEqual(m.Entries(), o.Entries())
}

// admit records the endpoint type of the first bounded interval and rejects
// intervals whose endpoints cannot be ordered against it.
func (m *IntervalMap) admit(iv Interval) error {
	et := iv.endpointType()
	if et == nil {
		return nil
	}
	if m.endpoint == nil {
		m.endpoint = et
		return nil
	}
	if et != m.endpoint {
		return fmt.Errorf("%w: cannot compare %s with %s", ErrEndpointNotOrderable, et, m.endpoint)
	}
	return nil
}

// clear removes associations on iv, re-inserting the parts of overlapped
// entries that fall outside it.
func (m *IntervalMap) clear(iv Interval) {
	lo, hi := iv.lowerCut(), iv.upperCut()
	pivot := IntervalEntry{Key: iv}

	var overlapped []IntervalEntry
	m.tree.DescendLessOrEqual(pivot, func(e IntervalEntry) bool {
		if compareCuts(e.Key.upperCut(), lo) > 0 {
			overlapped = append(overlapped, e)
		}
		return false
	})
	m.tree.AscendGreaterOrEqual(pivot, func(e IntervalEntry) bool {
		if compareCuts(e.Key.lowerCut(), hi) >= 0 {
			return false
		}
		if len(overlapped) == 0 || compareCuts(overlapped[0].Key.lowerCut(), e.Key.lowerCut()) != 0 {
			overlapped = append(overlapped, e)
		}
		return true
	})

	for _, e := range overlapped {
		m.tree.Delete(e)
		elo, ehi := e.Key.lowerCut(), e.Key.upperCut()
		if compareCuts(elo, lo) < 0 {
			m.tree.ReplaceOrInsert(IntervalEntry{Key: intervalFromCuts(elo, lo), Value: e.Value})
		}
		if compareCuts(hi, ehi) < 0 {
			m.tree.ReplaceOrInsert(IntervalEntry{Key: intervalFromCuts(hi, ehi), Value: e.Value})
		}
	}
}

// ImmutableIntervalMap is a read-only snapshot of an IntervalMap. It is safe
// for concurrent use.
type ImmutableIntervalMap struct {
	entries  []IntervalEntry
	endpoint reflect.Type
}

// NewImmutableIntervalMap builds a snapshot from entries, applying them in
// order with IntervalMap.Put semantics.
func NewImmutableIntervalMap(entries ...IntervalEntry) (*ImmutableIntervalMap, error) {
	m := NewIntervalMap()
	if err := m.PutAll(IntervalPairs(entries)); err != nil {
		return nil, err
	}
	return m.Snapshot(), nil
}

// Len returns the number of entries.
func (m *ImmutableIntervalMap) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the entries in ascending interval order.
func (m *ImmutableIntervalMap) Entries() []IntervalEntry {
	out := make([]IntervalEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Get returns the value whose interval contains point.
func (m *ImmutableIntervalMap) Get(point any) (any, bool, error) {
	if !orderable(point) {
		return nil, false, fmt.Errorf("%w: %T", ErrEndpointNotOrderable, point)
	}
	if m.endpoint != nil && reflect.TypeOf(point) != m.endpoint {
		return nil, false, fmt.Errorf("%w: cannot compare %T with %s",
			ErrEndpointNotOrderable, point, m.endpoint)
	}
	c := cut{kind: cutBelowValue, v: point}
	i := sort.Search(len(m.entries), func(i int) bool {
		return compareCuts(m.entries[i].Key.upperCut(), c) > 0
	})
	if i == len(m.entries) || compareCuts(m.entries[i].Key.lowerCut(), c) > 0 {
		return nil, false, nil
	}
	return m.entries[i].Value, true, nil
}

// Mutable returns a new IntervalMap holding the snapshot's entries.
func (m *ImmutableIntervalMap) Mutable() *IntervalMap {
	out := NewIntervalMap()
	out.endpoint = m.endpoint
	for _, e := range m.entries {
		out.tree.ReplaceOrInsert(e)
	}
	return out
}

// IntervalPairs is an unordered list of interval associations. Unlike
// IntervalMap it keeps entries exactly as given, including overlaps and
// zero keys, and writes them in slice order.
type IntervalPairs []IntervalEntry

// Entries returns the pairs in slice order.
func (p IntervalPairs) Entries() []IntervalEntry {
	return p
}

func entriesEqual(a, b []IntervalEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Key.Equal(b[i].Key) || !reflect.DeepEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}
