package crate

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for codec events.
var (
	SignalCodecResolved    = capitan.NewSignal("crate.codec.resolved", "Container codec contextualized for a site")
	SignalDynamicCodec     = capitan.NewSignal("crate.cache.added", "Runtime type codec added to dynamic cache")
	SignalEntriesUnordered = capitan.NewSignal("crate.encode.unordered", "Entries could not be ordered, natural order used")
	SignalEncodeComplete   = capitan.NewSignal("crate.encode.complete", "Container encode finished")
	SignalDecodeComplete   = capitan.NewSignal("crate.decode.complete", "Container decode finished")
)

// Keys for typed event data.
var (
	KeyFamily    = capitan.NewStringKey("family")
	KeyTypeName  = capitan.NewStringKey("type_name")
	KeySite      = capitan.NewStringKey("site")
	KeyEntries   = capitan.NewIntKey("entries")
	KeyCacheSize = capitan.NewIntKey("cache_size")
	KeyDuration  = capitan.NewDurationKey("duration")
	KeyError     = capitan.NewErrorKey("error")
)

// emitCodecResolved emits an event when a codec is contextualized.
func emitCodecResolved(ctx context.Context, family, typeName, site string) {
	capitan.Emit(ctx, SignalCodecResolved,
		KeyFamily.Field(family),
		KeyTypeName.Field(typeName),
		KeySite.Field(site),
	)
}

// emitDynamicCodec emits an event when the dynamic cache grows.
func emitDynamicCodec(ctx context.Context, typeName string, size int) {
	capitan.Emit(ctx, SignalDynamicCodec,
		KeyTypeName.Field(typeName),
		KeyCacheSize.Field(size),
	)
}

// emitEntriesUnordered emits an event when sorting fell back to natural order.
func emitEntriesUnordered(ctx context.Context, typeName string, err error) {
	capitan.Emit(ctx, SignalEntriesUnordered,
		KeyTypeName.Field(typeName),
		KeyError.Field(err),
	)
}

// emitEncodeComplete emits an event when encode finishes.
func emitEncodeComplete(ctx context.Context, family, typeName string, entries int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyFamily.Field(family),
		KeyTypeName.Field(typeName),
		KeyEntries.Field(entries),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalEncodeComplete, fields...)
	}
}

// emitDecodeComplete emits an event when decode finishes.
func emitDecodeComplete(ctx context.Context, family, typeName string, entries int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyFamily.Field(family),
		KeyTypeName.Field(typeName),
		KeyEntries.Field(entries),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDecodeComplete, fields...)
	}
}
