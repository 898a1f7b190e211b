package crate_test

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/crate"
)

func tokens(kinds ...any) []crate.Token {
	out := make([]crate.Token, 0, len(kinds))
	for _, k := range kinds {
		switch v := k.(type) {
		case crate.Kind:
			out = append(out, crate.Token{Kind: v})
		case crate.Token:
			out = append(out, v)
		}
	}
	return out
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind crate.Kind
		want string
	}{
		{crate.KindBeginObject, "BeginObject"},
		{crate.KindEndArray, "EndArray"},
		{crate.KindKey, "Key"},
		{crate.KindNull, "Null"},
		{crate.Kind(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestKind_Classes(t *testing.T) {
	if crate.KindKey.IsValueStart() || crate.KindEndObject.IsValueStart() {
		t.Error("keys and closing tokens do not start values")
	}
	if !crate.KindBeginArray.IsValueStart() || !crate.KindNull.IsValueStart() {
		t.Error("containers and null start values")
	}
	if crate.KindBeginObject.IsScalar() || !crate.KindNumber.IsScalar() {
		t.Error("IsScalar() misclassifies")
	}
}

func TestToken_String(t *testing.T) {
	tests := []struct {
		tok  crate.Token
		want string
	}{
		{crate.Token{Kind: crate.KindKey, Text: "a"}, `Key "a"`},
		{crate.Token{Kind: crate.KindNumber, Text: "1.5"}, "Number 1.5"},
		{crate.Token{Kind: crate.KindBool, Bool: true}, "Bool true"},
		{crate.Token{Kind: crate.KindBeginArray}, "BeginArray"},
	}
	for _, tt := range tests {
		if got := tt.tok.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestPosition_String(t *testing.T) {
	if got := (crate.Position{Line: 3, Column: 7}).String(); got != "line 3, column 7" {
		t.Errorf("String() = %q", got)
	}
	if got := (crate.Position{Offset: 12}).String(); got != "offset 12" {
		t.Errorf("String() = %q", got)
	}
}

func TestSkip(t *testing.T) {
	buf := crate.NewTokenBuffer(tokens(
		crate.KindBeginObject,
		crate.Token{Kind: crate.KindKey, Text: "a"},
		crate.KindBeginArray,
		crate.Token{Kind: crate.KindNumber, Text: "1"},
		crate.KindEndArray,
		crate.KindEndObject,
		crate.Token{Kind: crate.KindString, Text: "after"},
	)...)

	if err := crate.Skip(buf); err != nil {
		t.Fatalf("Skip() error: %v", err)
	}
	next, err := buf.Next()
	if err != nil || next.Text != "after" {
		t.Errorf("Next() after Skip = %v, %v; want String after", next, err)
	}

	if err := crate.Skip(buf); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("Skip() at end error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestCopy(t *testing.T) {
	value := tokens(
		crate.KindBeginArray,
		crate.Token{Kind: crate.KindBool, Bool: true},
		crate.KindNull,
		crate.KindEndArray,
	)
	src := crate.NewTokenBuffer(value...)
	dst := crate.NewTokenBuffer()

	if err := crate.Copy(dst, src); err != nil {
		t.Fatalf("Copy() error: %v", err)
	}
	if diff := cmp.Diff(value, dst.Tokens()); diff != "" {
		t.Errorf("Copy() mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenBuffer(t *testing.T) {
	buf := crate.NewTokenBuffer()
	_ = buf.BeginObject()
	_ = buf.Key("k")
	_ = buf.Number("42")
	_ = buf.EndObject()

	peeked, _ := buf.Peek()
	if peeked.Kind != crate.KindBeginObject {
		t.Errorf("Peek() = %v", peeked)
	}
	for range 4 {
		if _, err := buf.Next(); err != nil {
			t.Fatalf("Next() error: %v", err)
		}
	}
	if _, err := buf.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() past end error = %v, want EOF", err)
	}

	buf.Reset()
	if tok, _ := buf.Next(); tok.Kind != crate.KindBeginObject {
		t.Errorf("Next() after Reset = %v", tok)
	}
}

func TestWriteToken_UnknownKind(t *testing.T) {
	if err := crate.WriteToken(crate.NewTokenBuffer(), crate.Token{Kind: crate.Kind(42)}); err == nil {
		t.Error("WriteToken() should reject unknown kinds")
	}
}
