package crate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"sort"
	"time"
)

// Family identifies the container variant a ContainerCodec drives.
type Family uint8

const (
	// FamilyCollection covers array-shaped containers.
	FamilyCollection Family = iota

	// FamilyMap covers maps mutated in place.
	FamilyMap

	// FamilyPersistentMap covers maps updated functionally.
	FamilyPersistentMap

	// FamilyIntervalMap covers maps keyed by Interval.
	FamilyIntervalMap
)

func (f Family) String() string {
	switch f {
	case FamilyCollection:
		return "collection"
	case FamilyMap:
		return "map"
	case FamilyPersistentMap:
		return "persistent-map"
	case FamilyIntervalMap:
		return "interval-map"
	default:
		return "unknown"
	}
}

var (
	anyType         = reflect.TypeFor[any]()
	intervalMapType = reflect.TypeFor[*IntervalMap]()
)

// ContainerType is the static type information of a container site.
type ContainerType struct {
	Target reflect.Type // declared container type
	Key    reflect.Type // map key type, or the endpoint type of interval keys
	Elem   reflect.Type // element or value type; nil means any

	// StaticElem resolves the value codec from Elem during
	// contextualization even when Elem is an interface type, instead of
	// looking codecs up per runtime type.
	StaticElem bool
}

// ElemFinal reports whether the element type fully determines the runtime
// type of the values.
func (t ContainerType) ElemFinal() bool {
	return t.Elem != nil && t.Elem.Kind() != reflect.Interface
}

// ContainerCodec reads and writes containers through a capability adapter.
//
// A codec built by one of the New*Codec functions is unresolved and must be
// contextualized for a site before use; Registry does this on lookup.
// Resolved codecs are immutable apart from their dynamic codec cache and are
// safe for concurrent use.
type ContainerCodec struct {
	family     Family
	typ        ContainerType
	collection CollectionCapability
	mutable    MutableMapCapability
	persistent PersistentMapCapability

	// Declared configuration, kept across contextualization.
	keyCodec    KeyCodec
	valueCodec  Codec
	typeCodec   TypeCodec
	baseIgnored []string
	filterID    string

	// Resolved state.
	resolved     bool
	provider     Provider
	site         *Site
	readCodec    Codec
	ignored      map[string]struct{}
	sortKeys     bool
	filter       EntryFilter
	nulls        NullPolicy
	nullValue    any
	acceptSingle bool
	converter    IntervalConverter
	dynamic      *dynamicCodecs
}

// ContainerOption configures an unresolved ContainerCodec.
type ContainerOption func(*ContainerCodec)

// WithKeyCodec fixes the key codec instead of resolving it from the key type.
func WithKeyCodec(k KeyCodec) ContainerOption {
	return func(c *ContainerCodec) { c.keyCodec = k }
}

// WithValueCodec fixes the value codec instead of resolving it from the
// element type.
func WithValueCodec(v Codec) ContainerOption {
	return func(c *ContainerCodec) { c.valueCodec = v }
}

// WithTypeCodec writes and reads values with a type discriminator.
func WithTypeCodec(tc TypeCodec) ContainerOption {
	return func(c *ContainerCodec) { c.typeCodec = tc }
}

// WithIgnored adds entry keys omitted on write and skipped on read.
func WithIgnored(keys ...string) ContainerOption {
	return func(c *ContainerCodec) { c.baseIgnored = append(c.baseIgnored, keys...) }
}

// WithFilter names the entry filter used when writing map entries.
func WithFilter(id string) ContainerOption {
	return func(c *ContainerCodec) { c.filterID = id }
}

// NewCollectionCodec returns an unresolved codec for an array-shaped container.
func NewCollectionCodec(typ ContainerType, capability CollectionCapability, opts ...ContainerOption) *ContainerCodec {
	c := newContainerCodec(FamilyCollection, typ, opts)
	c.collection = capability
	return c
}

// NewMapCodec returns an unresolved codec for a map mutated in place.
func NewMapCodec(typ ContainerType, capability MutableMapCapability, opts ...ContainerOption) *ContainerCodec {
	c := newContainerCodec(FamilyMap, typ, opts)
	c.mutable = capability
	return c
}

// NewPersistentMapCodec returns an unresolved codec for a persistent map.
func NewPersistentMapCodec(typ ContainerType, capability PersistentMapCapability, opts ...ContainerOption) *ContainerCodec {
	c := newContainerCodec(FamilyPersistentMap, typ, opts)
	c.persistent = capability
	return c
}

// NewIntervalMapCodec returns an unresolved codec for an interval-keyed map.
// typ.Key is the endpoint type. Values are read into an IntervalMap, then
// converted to typ.Target through the provider's converter when Target is
// not *IntervalMap. Any value implementing IntervalEntries can be written.
func NewIntervalMapCodec(typ ContainerType, opts ...ContainerOption) *ContainerCodec {
	return newContainerCodec(FamilyIntervalMap, typ, opts)
}

func newContainerCodec(family Family, typ ContainerType, opts []ContainerOption) *ContainerCodec {
	if typ.Elem == nil {
		typ.Elem = anyType
	}
	c := &ContainerCodec{family: family, typ: typ}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Family returns the container variant.
func (c *ContainerCodec) Family() Family { return c.family }

// Type returns the declared container type.
func (c *ContainerCodec) Type() ContainerType { return c.typ }

// Resolved reports whether the codec has been contextualized.
func (c *ContainerCodec) Resolved() bool { return c.resolved }

// DynamicCache returns the current snapshot of runtime type codecs.
// Unresolved codecs report an empty cache.
func (c *ContainerCodec) DynamicCache() *CodecCache {
	if c.dynamic == nil {
		return NewCodecCache()
	}
	return c.dynamic.snapshot()
}

// Contextualize returns a copy of c resolved for site. The receiver is
// never modified. A codec already resolved for the same provider and site
// is returned as is.
func (c *ContainerCodec) Contextualize(p Provider, site *Site) (Codec, error) {
	if c.resolved && c.provider == p && c.site == site {
		return c, nil
	}

	r := *c
	r.provider, r.site = p, site
	features := p.Features()

	// Statically known element types resolve up front unless the site
	// names a content codec.
	valueCodec := c.valueCodec
	overridden := site != nil && site.ValueCodec != ""
	if valueCodec == nil && c.typ.ElemFinal() && !overridden {
		vc, err := p.ValueCodec(c.typ.Elem, site)
		if err != nil {
			return nil, err
		}
		valueCodec = vc
	}

	// Site overrides.
	keyCodec, filterID := c.keyCodec, c.filterID
	if site != nil {
		if site.KeyCodec != "" {
			kc, err := p.NamedKeyCodec(site.KeyCodec)
			if err != nil {
				return nil, err
			}
			keyCodec = kc
		}
		if site.ValueCodec != "" {
			vc, err := p.NamedCodec(site.ValueCodec)
			if err != nil {
				return nil, err
			}
			valueCodec = vc
		}
		if site.FilterID != "" {
			filterID = site.FilterID
		}
	}

	// Nested codecs specialize for the element position.
	if cx, ok := valueCodec.(Contextual); ok {
		vc, err := cx.Contextualize(p, nil)
		if err != nil {
			return nil, err
		}
		valueCodec = vc
	}

	if valueCodec == nil && c.typ.StaticElem {
		vc, err := p.ValueCodec(c.typ.Elem, site)
		if err != nil {
			return nil, err
		}
		valueCodec = vc
	}

	if keyCodec == nil && c.family != FamilyCollection {
		if c.family == FamilyIntervalMap {
			keyCodec = NewIntervalKeyCodec(c.typ.Key)
		} else {
			kc, err := p.KeyCodec(c.typ.Key, site)
			if err != nil {
				return nil, err
			}
			keyCodec = kc
		}
	}
	if ck, ok := keyCodec.(ContextualKey); ok {
		kc, err := ck.ContextualizeKey(p, site)
		if err != nil {
			return nil, err
		}
		keyCodec = kc
	}

	typeCodec := c.typeCodec
	if typeCodec != nil {
		typeCodec = typeCodec.ForSite(p, site)
	}

	r.ignored = ignoreSet(c.baseIgnored, site)

	r.sortKeys = features.OrderMapEntriesByKeys
	if site != nil && site.Sort != nil {
		r.sortKeys = *site.Sort
	}

	r.acceptSingle = features.AcceptSingleValueAsArray
	if site != nil && site.AcceptSingle != nil {
		r.acceptSingle = *site.AcceptSingle
	}

	// Reads need a codec even when writes dispatch on runtime types.
	readCodec := valueCodec
	if readCodec == nil && typeCodec == nil {
		rc, err := p.ValueCodec(c.typ.Elem, site)
		if err != nil {
			return nil, err
		}
		readCodec = rc
	}

	r.nulls, r.nullValue = c.nullPolicy(p, site, readCodec)

	r.filter = nil
	if filterID != "" {
		f, err := p.Filter(filterID)
		if err != nil {
			return nil, err
		}
		r.filter = f
	}

	r.converter = nil
	if c.family == FamilyIntervalMap && c.typ.Target != nil && c.typ.Target != intervalMapType {
		conv, ok := p.Converter(c.typ.Target)
		if !ok {
			return nil, newResolutionError(ErrCodecResolution, c.typ.Target, site, "no interval map conversion registered")
		}
		r.converter = conv
	}

	r.keyCodec, r.valueCodec, r.typeCodec, r.readCodec = keyCodec, valueCodec, typeCodec, readCodec
	r.dynamic = newDynamicCodecs()
	r.resolved = true

	emitCodecResolved(context.Background(), c.family.String(), c.target(), site.name())
	return &r, nil
}

// nullPolicy settles what a null value decodes to at site.
func (c *ContainerCodec) nullPolicy(p Provider, site *Site, readCodec Codec) (NullPolicy, any) {
	policy := NullsDefault
	if site != nil {
		policy = site.Nulls
	}

	var (
		substitute any
		has        bool
	)
	if readCodec != nil {
		substitute, has = p.NullValue(readCodec)
	}

	switch policy {
	case NullsSkip, NullsAsIs:
		return policy, nil
	case NullsSubstitute:
		if has {
			return NullsSubstitute, substitute
		}
		return NullsAsIs, nil
	}
	if has {
		return NullsSubstitute, substitute
	}
	if c.family == FamilyPersistentMap {
		return NullsSkip, nil
	}
	return NullsAsIs, nil
}

func ignoreSet(base []string, site *Site) map[string]struct{} {
	out := make(map[string]struct{}, len(base))
	for _, k := range base {
		out[k] = struct{}{}
	}
	if site != nil {
		for _, k := range site.Ignored {
			out[k] = struct{}{}
		}
	}
	return out
}

func (c *ContainerCodec) target() string {
	return typeName(c.typ.Target)
}

func (c *ContainerCodec) unresolvedError() error {
	return newResolutionError(ErrCodecResolution, c.typ.Target, nil, "container codec is not contextualized")
}

// Decode reads one container.
func (c *ContainerCodec) Decode(ctx context.Context, r Source) (any, error) {
	if !c.resolved {
		return nil, c.unresolvedError()
	}
	start := time.Now()
	v, n, err := c.decode(ctx, r)
	emitDecodeComplete(ctx, c.family.String(), c.target(), n, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (c *ContainerCodec) decode(ctx context.Context, r Source) (any, int, error) {
	tok, err := c.peek(r, "container")
	if err != nil {
		return nil, 0, err
	}
	if tok.Kind == KindNull {
		_, _ = r.Next()
		return nil, 0, nil
	}
	if c.family == FamilyCollection {
		return c.readCollection(ctx, r, tok)
	}
	return c.readMap(ctx, r, tok)
}

func (c *ContainerCodec) peek(r Source, expected string) (Token, error) {
	tok, err := r.Peek()
	if errors.Is(err, io.EOF) {
		return Token{}, newEOFError(c.target(), expected, r.Pos())
	}
	return tok, err
}

func (c *ContainerCodec) next(r Source, expected string) (Token, error) {
	tok, err := r.Next()
	if errors.Is(err, io.EOF) {
		return Token{}, newEOFError(c.target(), expected, r.Pos())
	}
	return tok, err
}

func (c *ContainerCodec) readCollection(ctx context.Context, r Source, tok Token) (any, int, error) {
	acc := c.collection.CreateEmpty()
	n := 0

	if tok.Kind != KindBeginArray {
		if !c.acceptSingle || !tok.Kind.IsValueStart() {
			return nil, 0, newTokenError(c.target(), "BeginArray", tok, r.Pos())
		}
		elem, keep, err := c.readValue(ctx, r)
		if err != nil {
			return nil, 0, err
		}
		if keep {
			if acc, err = c.collection.Add(acc, elem); err != nil {
				return nil, 0, err
			}
			n++
		}
		v, err := c.finishCollection(acc)
		return v, n, err
	}

	_, _ = r.Next()
	for {
		tok, err := c.peek(r, "value or EndArray")
		if err != nil {
			return nil, n, err
		}
		if tok.Kind == KindEndArray {
			_, _ = r.Next()
			break
		}
		elem, keep, err := c.readValue(ctx, r)
		if err != nil {
			return nil, n, err
		}
		if !keep {
			continue
		}
		if acc, err = c.collection.Add(acc, elem); err != nil {
			return nil, n, err
		}
		n++
	}
	v, err := c.finishCollection(acc)
	return v, n, err
}

func (c *ContainerCodec) finishCollection(acc any) (any, error) {
	v, err := c.collection.Finish(acc)
	if err != nil {
		var ce *ConversionError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, newConversionError(c.typ.Target, acc, err)
	}
	return v, nil
}

// readMap reads key/value pairs until the closing token. The source may be
// positioned on the object start or already past it.
func (c *ContainerCodec) readMap(ctx context.Context, r Source, tok Token) (any, int, error) {
	switch tok.Kind {
	case KindBeginObject:
		_, _ = r.Next()
	case KindKey, KindEndObject:
		// already inside the object
	default:
		return nil, 0, newTokenError(c.target(), "BeginObject", tok, r.Pos())
	}

	acc := c.createMap()
	n := 0
	for {
		tok, err := c.next(r, "Key or EndObject")
		if err != nil {
			return nil, n, err
		}
		if tok.Kind == KindEndObject {
			break
		}
		if tok.Kind != KindKey {
			return nil, n, newTokenError(c.target(), "Key or EndObject", tok, r.Pos())
		}

		if _, skip := c.ignored[tok.Text]; skip {
			if err := Skip(r); err != nil {
				return nil, n, err
			}
			continue
		}

		key, err := c.keyCodec.DecodeKey(tok.Text)
		if err != nil {
			return nil, n, err
		}
		value, keep, err := c.readValue(ctx, r)
		if err != nil {
			return nil, n, err
		}
		if !keep {
			continue
		}
		if acc, err = c.putEntry(acc, key, value); err != nil {
			return nil, n, err
		}
		n++
	}

	v, err := c.finishMap(acc)
	return v, n, err
}

func (c *ContainerCodec) createMap() any {
	switch c.family {
	case FamilyMap:
		return c.mutable.CreateEmpty()
	case FamilyPersistentMap:
		return c.persistent.CreateEmpty()
	default:
		return NewIntervalMap()
	}
}

func (c *ContainerCodec) putEntry(acc, key, value any) (any, error) {
	switch c.family {
	case FamilyMap:
		return acc, c.mutable.Put(acc, key, value)
	case FamilyPersistentMap:
		return c.persistent.WithEntry(acc, key, value)
	default:
		iv, ok := key.(Interval)
		if !ok {
			return nil, fmt.Errorf("crate: interval map key decoded to %T", key)
		}
		return acc, acc.(*IntervalMap).Put(iv, value)
	}
}

func (c *ContainerCodec) finishMap(acc any) (any, error) {
	if c.family != FamilyIntervalMap || c.converter == nil {
		return acc, nil
	}
	v, err := c.converter(acc.(*IntervalMap))
	if err != nil {
		return nil, newConversionError(c.typ.Target, acc, err)
	}
	return v, nil
}

// readValue reads one element or map value. keep is false when a null is
// dropped by the null policy.
func (c *ContainerCodec) readValue(ctx context.Context, r Source) (value any, keep bool, err error) {
	tok, err := c.peek(r, "value")
	if err != nil {
		return nil, false, err
	}
	if !tok.Kind.IsValueStart() {
		return nil, false, newTokenError(c.target(), "value", tok, r.Pos())
	}

	if tok.Kind == KindNull {
		_, _ = r.Next()
		switch c.nulls {
		case NullsSkip:
			return nil, false, nil
		case NullsSubstitute:
			return c.nullValue, true, nil
		default:
			return nil, true, nil
		}
	}

	if c.typeCodec != nil {
		value, err = c.typeCodec.DecodeTyped(ctx, r)
	} else {
		value, err = c.readCodec.Decode(ctx, r)
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Encode writes one container.
func (c *ContainerCodec) Encode(ctx context.Context, w Sink, v any) error {
	if !c.resolved {
		return c.unresolvedError()
	}
	if isNil(v) {
		return w.Null()
	}
	start := time.Now()
	n, err := c.encode(ctx, w, v)
	emitEncodeComplete(ctx, c.family.String(), c.target(), n, time.Since(start), err)
	return err
}

func (c *ContainerCodec) encode(ctx context.Context, w Sink, v any) (int, error) {
	switch c.family {
	case FamilyCollection:
		return c.writeCollection(ctx, w, v)
	case FamilyIntervalMap:
		return c.writeIntervalMap(ctx, w, v)
	default:
		return c.writeMap(ctx, w, v)
	}
}

func (c *ContainerCodec) writeCollection(ctx context.Context, w Sink, v any) (int, error) {
	if err := w.BeginArray(); err != nil {
		return 0, err
	}
	n := 0
	err := c.collection.Each(v, func(elem any) error {
		n++
		return c.writeValue(ctx, w, elem)
	})
	if err != nil {
		return n, err
	}
	return n, w.EndArray()
}

// mapEntry is one association on the write path.
type mapEntry struct {
	key   any
	value any
}

func (c *ContainerCodec) writeMap(ctx context.Context, w Sink, v any) (int, error) {
	var entries []mapEntry
	collect := func(k, val any) error {
		entries = append(entries, mapEntry{key: k, value: val})
		return nil
	}
	var err error
	if c.family == FamilyPersistentMap {
		err = c.persistent.Each(v, collect)
	} else {
		err = c.mutable.Each(v, collect)
	}
	if err != nil {
		return 0, err
	}

	if c.sortKeys {
		for _, e := range entries {
			if e.key == nil {
				return 0, c.nullKeyError()
			}
		}
		sorted := slices.Clone(entries)
		if ok := sortBy(sorted, func(e mapEntry) any { return e.key }); ok {
			entries = sorted
		} else {
			emitEntriesUnordered(ctx, c.target(), fmt.Errorf("%w: map keys", ErrEndpointNotOrderable))
		}
	}
	return c.writeEntries(ctx, w, v, entries)
}

func (c *ContainerCodec) writeIntervalMap(ctx context.Context, w Sink, v any) (int, error) {
	src, ok := v.(IntervalEntries)
	if !ok {
		return 0, fmt.Errorf("crate: %T does not provide interval entries", v)
	}
	natural := src.Entries()

	ordered := natural
	if c.sortKeys {
		// Null keys abort before anything is written.
		for _, e := range natural {
			if e.Key.IsZero() {
				return 0, c.nullKeyError()
			}
		}
		sorted, err := sortIntervalEntries(natural)
		if err != nil {
			emitEntriesUnordered(ctx, c.target(), err)
		} else {
			ordered = sorted
		}
	}

	entries := make([]mapEntry, len(ordered))
	for i, e := range ordered {
		entries[i] = mapEntry{key: e.Key, value: e.Value}
	}
	return c.writeEntries(ctx, w, v, entries)
}

func (c *ContainerCodec) nullKeyError() error {
	return fmt.Errorf("%w: cannot order entries of %s", ErrNullKey, c.target())
}

// writeEntries emits entries as one object, applying the ignore set and the
// entry filter.
func (c *ContainerCodec) writeEntries(ctx context.Context, w Sink, container any, entries []mapEntry) (int, error) {
	if err := w.BeginObject(); err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		text, err := c.keyCodec.EncodeKey(e.key)
		if err != nil {
			return n, err
		}
		if _, skip := c.ignored[text]; skip {
			continue
		}

		if c.filter != nil {
			entry := &EntryWriter{key: e.key, keyText: text, value: e.value, write: c.writeValue}
			if err := c.filter.FilterEntry(ctx, container, w, entry); err != nil {
				return n, newFilterError(text, err)
			}
		} else {
			if err := w.Key(text); err != nil {
				return n, err
			}
			if err := c.writeValue(ctx, w, e.value); err != nil {
				return n, err
			}
		}
		n++
	}
	return n, w.EndObject()
}

// writeValue writes one element or map value, looking up codecs by runtime
// type when the declared element type is not final.
func (c *ContainerCodec) writeValue(ctx context.Context, w Sink, value any) error {
	if value == nil {
		return w.Null()
	}
	codec := c.valueCodec
	if codec == nil {
		var err error
		codec, err = c.dynamic.codecFor(ctx, reflect.TypeOf(value), func(t reflect.Type) (Codec, error) {
			return c.provider.ValueCodec(t, c.site)
		})
		if err != nil {
			return err
		}
	}
	if c.typeCodec != nil {
		return c.typeCodec.EncodeTyped(ctx, w, value, codec)
	}
	return codec.Encode(ctx, w, value)
}

// sortIntervalEntries returns entries in ascending interval order, or an
// error when their endpoints cannot be ordered against each other.
func sortIntervalEntries(entries []IntervalEntry) ([]IntervalEntry, error) {
	var endpoint reflect.Type
	for _, e := range entries {
		t := e.Key.endpointType()
		if t == nil {
			continue
		}
		if endpoint == nil {
			endpoint = t
		} else if t != endpoint {
			return nil, fmt.Errorf("%w: cannot compare %s with %s", ErrEndpointNotOrderable, t, endpoint)
		}
	}
	sorted := slices.Clone(entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Key, sorted[j].Key
		if c := compareCuts(a.lowerCut(), b.lowerCut()); c != 0 {
			return c < 0
		}
		return compareCuts(a.upperCut(), b.upperCut()) < 0
	})
	return sorted, nil
}

// sortBy orders items in place by the value key returns. When the keys do
// not share one orderable type the items are left untouched and sortBy
// returns false.
func sortBy[T any](items []T, key func(T) any) bool {
	var t reflect.Type
	for _, it := range items {
		k := key(it)
		if !orderable(k) {
			return false
		}
		if t == nil {
			t = reflect.TypeOf(k)
		} else if reflect.TypeOf(k) != t {
			return false
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		c, _ := compareEndpoints(key(items[i]), key(items[j]))
		return c < 0
	})
	return true
}

// sortValues orders vals in place when they share one orderable type.
func sortValues(vals []any) {
	sortBy(vals, func(v any) any { return v })
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
