package crate

import (
	"fmt"
	"reflect"
	"sync"
)

// resolvedKey identifies one contextualized codec.
type resolvedKey struct {
	typ  reflect.Type
	site *Site
}

// Registry is the default Provider. It maps types to codecs, falls back to
// built-in codecs for scalars, interfaces, pointers, slices and maps, and
// caches codecs contextualized per type and site.
//
// Registration methods return the registry for chaining and are safe for
// concurrent use. Registering clears the resolution cache.
type Registry struct {
	mu         sync.RWMutex
	codecs     map[reflect.Type]Codec
	keyCodecs  map[reflect.Type]KeyCodec
	named      map[string]Codec
	namedKeys  map[string]KeyCodec
	filters    map[string]EntryFilter
	converters map[reflect.Type]IntervalConverter
	features   Features
	resolved   map[resolvedKey]Codec
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFeatures sets the global feature switches.
func WithFeatures(f Features) RegistryOption {
	return func(r *Registry) { r.features = f }
}

// NewRegistry returns a registry holding the built-in entry filters and
// interval map conversions.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		codecs:     make(map[reflect.Type]Codec),
		keyCodecs:  make(map[reflect.Type]KeyCodec),
		named:      make(map[string]Codec),
		namedKeys:  make(map[string]KeyCodec),
		filters:    make(map[string]EntryFilter),
		converters: make(map[reflect.Type]IntervalConverter),
		resolved:   make(map[resolvedKey]Codec),
	}
	r.filters[FilterMask] = MaskFilter(4)
	r.filters[FilterHash] = HashFilter()
	r.converters[reflect.TypeFor[*ImmutableIntervalMap]()] = func(m *IntervalMap) (any, error) {
		return m.Snapshot(), nil
	}
	r.converters[reflect.TypeFor[IntervalPairs]()] = func(m *IntervalMap) (any, error) {
		return IntervalPairs(m.Entries()), nil
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register sets the codec for values of type t.
func (r *Registry) Register(t reflect.Type, c Codec) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[t] = c
	r.resolved = make(map[resolvedKey]Codec)
	return r
}

// RegisterKey sets the key codec for keys of type t.
func (r *Registry) RegisterKey(t reflect.Type, k KeyCodec) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keyCodecs[t] = k
	r.resolved = make(map[resolvedKey]Codec)
	return r
}

// RegisterNamed sets the codec sites select with the crate.content tag.
func (r *Registry) RegisterNamed(name string, c Codec) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.named[name] = c
	r.resolved = make(map[resolvedKey]Codec)
	return r
}

// RegisterNamedKey sets the key codec sites select with the crate.key tag.
func (r *Registry) RegisterNamedKey(name string, k KeyCodec) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namedKeys[name] = k
	r.resolved = make(map[resolvedKey]Codec)
	return r
}

// RegisterFilter sets the entry filter sites select with the crate.filter tag.
func (r *Registry) RegisterFilter(id string, f EntryFilter) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[id] = f
	r.resolved = make(map[resolvedKey]Codec)
	return r
}

// RegisterConverter sets the conversion from IntervalMap to target.
func (r *Registry) RegisterConverter(target reflect.Type, conv IntervalConverter) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.converters[target] = conv
	r.resolved = make(map[resolvedKey]Codec)
	return r
}

// SetFeatures replaces the global feature switches.
func (r *Registry) SetFeatures(f Features) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.features = f
	r.resolved = make(map[resolvedKey]Codec)
	return r
}

// Reset clears the resolution cache.
// This is primarily useful for test isolation.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = make(map[resolvedKey]Codec)
}

// Register sets the codec for values of type T.
func Register[T any](r *Registry, c Codec) *Registry {
	return r.Register(reflect.TypeFor[T](), c)
}

// CodecFor returns the codec for values of type T declared at site.
func CodecFor[T any](r *Registry, site *Site) (Codec, error) {
	return r.Resolve(reflect.TypeFor[T](), site)
}

// Resolve returns the codec for type t contextualized for site. Results are
// cached per type and site.
func (r *Registry) Resolve(t reflect.Type, site *Site) (Codec, error) {
	key := resolvedKey{typ: t, site: site}

	// Fast path: read-lock cache check
	r.mu.RLock()
	if cached, ok := r.resolved[key]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	base, err := r.baseCodec(t, site)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	// Contextualize outside the lock: nested lookups re-enter the registry.
	// TODO: self-referential container types (type Tree map[string]Tree)
	// recurse here; break the cycle with a lazily resolved placeholder codec.
	codec := base
	if cx, ok := base.(Contextual); ok {
		if codec, err = cx.Contextualize(r, site); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check pattern
	if cached, ok := r.resolved[key]; ok {
		return cached, nil
	}
	r.resolved[key] = codec
	return codec, nil
}

// baseCodec returns the unresolved codec for t. Callers hold r.mu.
func (r *Registry) baseCodec(t reflect.Type, site *Site) (Codec, error) {
	if c, ok := r.codecs[t]; ok {
		return c, nil
	}
	if c, ok := ScalarCodec(t); ok {
		return c, nil
	}

	switch t.Kind() {
	case reflect.Interface:
		return AnyCodec(), nil
	case reflect.Pointer:
		return &pointerCodec{typ: t}, nil
	case reflect.Slice:
		return NewCollectionCodec(ContainerType{Target: t, Elem: t.Elem()}, SliceOf(t)), nil
	case reflect.Map:
		if t.Elem() == reflect.TypeFor[struct{}]() {
			return NewCollectionCodec(ContainerType{Target: t, Elem: t.Key()}, SetOf(t)), nil
		}
		return NewMapCodec(ContainerType{Target: t, Key: t.Key(), Elem: t.Elem()}, MapOf(t)), nil
	}

	if _, ok := r.converters[t]; ok || t == intervalMapType {
		return nil, newResolutionError(ErrCodecResolution, t, site,
			"interval maps need a registered codec declaring the endpoint type")
	}
	return nil, newResolutionError(ErrCodecResolution, t, site, "no codec registered")
}

// ValueCodec returns the codec for values of type t held at site. The codec
// is contextualized for the anonymous element position, not for site.
func (r *Registry) ValueCodec(t reflect.Type, _ *Site) (Codec, error) {
	return r.Resolve(t, nil)
}

// KeyCodec returns the key codec for keys of type t.
func (r *Registry) KeyCodec(t reflect.Type, site *Site) (KeyCodec, error) {
	if t == nil {
		return nil, newResolutionError(ErrCodecResolution, nil, site, "container declares no key type")
	}
	r.mu.RLock()
	k, ok := r.keyCodecs[t]
	r.mu.RUnlock()
	if ok {
		return k, nil
	}
	if k, ok := TextKeyCodec(t); ok {
		return k, nil
	}
	if k, ok := ScalarKeyCodec(t); ok {
		return k, nil
	}
	return nil, newResolutionError(ErrCodecResolution, t, site, "no key codec registered")
}

// NamedCodec returns the codec registered under name.
func (r *Registry) NamedCodec(name string) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.named[name]; ok {
		return c, nil
	}
	return nil, &ResolutionError{Err: ErrCodecResolution, Reason: fmt.Sprintf("no codec named %q", name)}
}

// NamedKeyCodec returns the key codec registered under name.
func (r *Registry) NamedKeyCodec(name string) (KeyCodec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if k, ok := r.namedKeys[name]; ok {
		return k, nil
	}
	return nil, &ResolutionError{Err: ErrCodecResolution, Reason: fmt.Sprintf("no key codec named %q", name)}
}

// NullValue returns the null substitute of c, if it declares one.
func (r *Registry) NullValue(c Codec) (any, bool) {
	if nv, ok := c.(NullValuer); ok {
		return nv.NullValue(), true
	}
	return nil, false
}

// Filter returns the entry filter registered under id.
func (r *Registry) Filter(id string) (EntryFilter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.filters[id]; ok {
		return f, nil
	}
	return nil, &ResolutionError{Err: ErrCodecResolution, Reason: fmt.Sprintf("no filter registered as %q", id)}
}

// Converter returns the conversion from IntervalMap to target.
func (r *Registry) Converter(target reflect.Type) (IntervalConverter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.converters[target]
	return conv, ok
}

// Features returns the global feature switches.
func (r *Registry) Features() Features {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.features
}
