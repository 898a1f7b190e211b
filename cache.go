package crate

import (
	"context"
	"maps"
	"reflect"
	"sync/atomic"
)

// CodecCache is an immutable snapshot mapping runtime types to resolved
// value codecs. Adding an entry yields a new snapshot; existing snapshots
// never change, so a snapshot can be read without synchronization.
type CodecCache struct {
	entries map[reflect.Type]Codec
}

// NewCodecCache returns an empty cache.
func NewCodecCache() *CodecCache {
	return &CodecCache{}
}

// Lookup returns the codec cached for t.
func (c *CodecCache) Lookup(t reflect.Type) (Codec, bool) {
	codec, ok := c.entries[t]
	return codec, ok
}

// Len returns the number of cached types.
func (c *CodecCache) Len() int {
	return len(c.entries)
}

// LookupOrResolve returns the codec for t. On a hit it returns c itself. On a
// miss it calls resolve and returns a new snapshot holding the result; the
// caller installs the new snapshot. Resolver failures leave c unchanged.
func (c *CodecCache) LookupOrResolve(t reflect.Type, resolve func(reflect.Type) (Codec, error)) (*CodecCache, Codec, error) {
	if codec, ok := c.Lookup(t); ok {
		return c, codec, nil
	}
	codec, err := resolve(t)
	if err != nil {
		return c, nil, err
	}
	return c.with(t, codec), codec, nil
}

func (c *CodecCache) with(t reflect.Type, codec Codec) *CodecCache {
	entries := maps.Clone(c.entries)
	if entries == nil {
		entries = make(map[reflect.Type]Codec, 1)
	}
	entries[t] = codec
	return &CodecCache{entries: entries}
}

// dynamicCodecs is the cache slot owned by one resolved container codec.
// Reads load the current snapshot; writers publish a new one with
// compare-and-swap, retrying against whatever snapshot won the race.
type dynamicCodecs struct {
	current atomic.Pointer[CodecCache]
}

func newDynamicCodecs() *dynamicCodecs {
	d := &dynamicCodecs{}
	d.current.Store(NewCodecCache())
	return d
}

// snapshot returns the current cache.
func (d *dynamicCodecs) snapshot() *CodecCache {
	return d.current.Load()
}

// codecFor returns the cached codec for t, resolving and publishing it on a
// miss. Racing writers may resolve the same type twice; the first published
// codec wins.
func (d *dynamicCodecs) codecFor(ctx context.Context, t reflect.Type, resolve func(reflect.Type) (Codec, error)) (Codec, error) {
	cur := d.current.Load()
	next, codec, err := cur.LookupOrResolve(t, resolve)
	if err != nil || next == cur {
		return codec, err
	}
	for !d.current.CompareAndSwap(cur, next) {
		cur = d.current.Load()
		if existing, ok := cur.Lookup(t); ok {
			return existing, nil
		}
		next = cur.with(t, codec)
	}
	emitDynamicCodec(ctx, typeName(t), next.Len())
	return codec, nil
}
