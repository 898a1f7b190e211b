package crate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Built-in filter ids, registered by NewRegistry.
const (
	FilterMask = "mask"
	FilterHash = "hash"
)

// MaskFilter writes string values with all but the last keep characters
// replaced by '*'. Separators (spaces, '-', '@', '.') are preserved so the
// shape of the value stays readable:
//
//	4111-1111-1111-1111 -> ****-****-****-1111
//
// Values of other types are written unchanged.
func MaskFilter(keep int) EntryFilter {
	return EntryFilterFunc(func(ctx context.Context, _ any, w Sink, entry *EntryWriter) error {
		s, ok := entry.Value().(string)
		if !ok {
			return entry.Write(ctx, w)
		}
		if err := w.Key(entry.KeyText()); err != nil {
			return err
		}
		return w.String(mask(s, keep))
	})
}

// HashFilter writes string values as their hex-encoded SHA-256 digest.
// Values of other types are rejected: a digest of their wire form would
// depend on the format.
func HashFilter() EntryFilter {
	return EntryFilterFunc(func(ctx context.Context, _ any, w Sink, entry *EntryWriter) error {
		switch v := entry.Value().(type) {
		case nil:
			return entry.Write(ctx, w)
		case string:
			sum := sha256.Sum256([]byte(v))
			if err := w.Key(entry.KeyText()); err != nil {
				return err
			}
			return w.String(hex.EncodeToString(sum[:]))
		default:
			return fmt.Errorf("cannot hash %T value", v)
		}
	})
}

// mask replaces maskable runes except the last keep of them.
func mask(s string, keep int) string {
	total := 0
	for _, r := range s {
		if maskable(r) {
			total++
		}
	}
	if total <= keep {
		return strings.Repeat("*", utf8.RuneCountInString(s))
	}

	var b strings.Builder
	b.Grow(len(s))
	seen := 0
	for _, r := range s {
		if !maskable(r) {
			b.WriteRune(r)
			continue
		}
		seen++
		if seen > total-keep {
			b.WriteRune(r)
		} else {
			b.WriteByte('*')
		}
	}
	return b.String()
}

func maskable(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
