package json

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zoobzio/crate"
)

func drain(t *testing.T, src crate.Source) ([]crate.Token, error) {
	t.Helper()
	var out []crate.Token
	for {
		tok, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, tok)
	}
}

func TestContentType(t *testing.T) {
	if got := New().ContentType(); got != "application/json" {
		t.Errorf("ContentType() = %q, want %q", got, "application/json")
	}
}

func TestSource_Tokens(t *testing.T) {
	input := `{"a":"b","c":[1,true,null],"d":{"e":"f"},"g":-2.5e3}`
	got, err := drain(t, New().NewSource(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}

	want := []crate.Token{
		{Kind: crate.KindBeginObject},
		{Kind: crate.KindKey, Text: "a"},
		{Kind: crate.KindString, Text: "b"},
		{Kind: crate.KindKey, Text: "c"},
		{Kind: crate.KindBeginArray},
		{Kind: crate.KindNumber, Text: "1"},
		{Kind: crate.KindBool, Bool: true},
		{Kind: crate.KindNull},
		{Kind: crate.KindEndArray},
		{Kind: crate.KindKey, Text: "d"},
		{Kind: crate.KindBeginObject},
		{Kind: crate.KindKey, Text: "e"},
		{Kind: crate.KindString, Text: "f"},
		{Kind: crate.KindEndObject},
		{Kind: crate.KindKey, Text: "g"},
		{Kind: crate.KindNumber, Text: "-2.5e3"},
		{Kind: crate.KindEndObject},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestSource_StringsInArraysAreValues(t *testing.T) {
	got, err := drain(t, New().NewSource(strings.NewReader(`{"k":["x","y"],"z":"w"}`)))
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	kinds := make([]crate.Kind, len(got))
	for i, tok := range got {
		kinds[i] = tok.Kind
	}
	want := []crate.Kind{
		crate.KindBeginObject, crate.KindKey, crate.KindBeginArray, crate.KindString, crate.KindString,
		crate.KindEndArray, crate.KindKey, crate.KindString, crate.KindEndObject,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestSource_Peek(t *testing.T) {
	src := New().NewSource(strings.NewReader(`[7]`))
	first, _ := src.Peek()
	again, _ := src.Peek()
	if first != again || first.Kind != crate.KindBeginArray {
		t.Errorf("Peek() = %v then %v", first, again)
	}
	next, _ := src.Next()
	if next.Kind != crate.KindBeginArray {
		t.Errorf("Next() = %v", next)
	}
}

func TestSource_Truncated(t *testing.T) {
	_, err := drain(t, New().NewSource(strings.NewReader(`{"a":1`)))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestSource_Syntax(t *testing.T) {
	_, err := drain(t, New().NewSource(strings.NewReader(`{"a" 1}`)))
	if err == nil {
		t.Error("expected a syntax error")
	}
}

func write(t *testing.T, fn func(s crate.Sink) error) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	s := New().NewSink(&buf)
	if err := fn(s); err != nil {
		return "", err
	}
	if err := s.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func TestSink_Output(t *testing.T) {
	got, err := write(t, func(s crate.Sink) error {
		steps := []func() error{
			s.BeginObject,
			func() error { return s.Key("a") },
			func() error { return s.String("<b&c>") },
			func() error { return s.Key("list") },
			s.BeginArray,
			func() error { return s.Number("1") },
			func() error { return s.Bool(false) },
			s.Null,
			s.BeginObject,
			s.EndObject,
			s.EndArray,
			s.EndObject,
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if want := `{"a":"<b&c>","list":[1,false,null,{}]}`; got != want {
		t.Errorf("output = %s, want %s", got, want)
	}
}

func TestSink_TopLevelValues(t *testing.T) {
	got, err := write(t, func(s crate.Sink) error {
		if err := s.Number("1"); err != nil {
			return err
		}
		return s.String("two")
	})
	if err != nil {
		t.Fatalf("write error: %v", err)
	}
	if got != "1\n\"two\"" {
		t.Errorf("output = %q", got)
	}
}

func TestSink_Errors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(s crate.Sink) error
	}{
		{"key outside object", func(s crate.Sink) error { return s.Key("a") }},
		{"key inside array", func(s crate.Sink) error {
			_ = s.BeginArray()
			return s.Key("a")
		}},
		{"value without key", func(s crate.Sink) error {
			_ = s.BeginObject()
			return s.Bool(true)
		}},
		{"two keys", func(s crate.Sink) error {
			_ = s.BeginObject()
			_ = s.Key("a")
			return s.Key("b")
		}},
		{"unbalanced end", func(s crate.Sink) error {
			_ = s.BeginArray()
			return s.EndObject()
		}},
		{"end after key", func(s crate.Sink) error {
			_ = s.BeginObject()
			_ = s.Key("a")
			return s.EndObject()
		}},
		{"invalid number", func(s crate.Sink) error { return s.Number("abc") }},
		{"leading plus", func(s crate.Sink) error { return s.Number("+1") }},
		{"empty number", func(s crate.Sink) error { return s.Number("") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := write(t, tt.fn); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRoundTrip_Codec(t *testing.T) {
	reg := crate.NewRegistry()
	c, err := crate.CodecFor[map[string][]string](reg, nil)
	if err != nil {
		t.Fatalf("CodecFor() error: %v", err)
	}
	input := []byte(`{"b":["é","\u0000"],"a":[]}`)
	v, err := crate.Unmarshal(context.Background(), New(), c, input)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	out, err := crate.Marshal(context.Background(), New(), c, v)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if want := `{"a":[],"b":["é","\u0000"]}`; string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}
