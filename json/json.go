// Package json provides the JSON token stream format.
package json

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/zoobzio/crate"
)

// jsonFormat implements crate.Format for JSON.
type jsonFormat struct{}

// New returns the JSON format.
func New() crate.Format {
	return &jsonFormat{}
}

// ContentType returns the MIME type for JSON.
func (f *jsonFormat) ContentType() string {
	return "application/json"
}

// NewSource returns a token source reading JSON from r.
func (f *jsonFormat) NewSource(r io.Reader) crate.Source {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return &source{dec: dec}
}

// NewSink returns a token sink writing compact JSON to w.
func (f *jsonFormat) NewSink(w io.Writer) crate.Sink {
	return &sink{w: bufio.NewWriter(w)}
}

// frame tracks one open container on the read side.
type frame struct {
	object    bool
	expectKey bool
}

// source adapts json.Decoder tokens, telling property names apart from
// string values by tracking open containers.
type source struct {
	dec     *json.Decoder
	stack   []frame
	peeked  *crate.Token
	peekErr error
	pos     crate.Position
}

func (s *source) Peek() (crate.Token, error) {
	if s.peeked == nil && s.peekErr == nil {
		tok, err := s.read()
		if err != nil {
			s.peekErr = err
		} else {
			s.peeked = &tok
		}
	}
	if s.peekErr != nil {
		return crate.Token{}, s.peekErr
	}
	return *s.peeked, nil
}

func (s *source) Next() (crate.Token, error) {
	tok, err := s.Peek()
	if err != nil {
		return crate.Token{}, err
	}
	s.peeked = nil
	return tok, nil
}

func (s *source) Pos() crate.Position {
	return s.pos
}

func (s *source) read() (crate.Token, error) {
	offset := s.dec.InputOffset()
	raw, err := s.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) && len(s.stack) > 0 {
			return crate.Token{}, io.ErrUnexpectedEOF
		}
		return crate.Token{}, err
	}
	s.pos = crate.Position{Offset: offset}

	switch v := raw.(type) {
	case json.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{object: true, expectKey: true})
			return crate.Token{Kind: crate.KindBeginObject}, nil
		case '[':
			s.stack = append(s.stack, frame{})
			return crate.Token{Kind: crate.KindBeginArray}, nil
		case '}':
			s.pop()
			return crate.Token{Kind: crate.KindEndObject}, nil
		default:
			s.pop()
			return crate.Token{Kind: crate.KindEndArray}, nil
		}
	case string:
		if top := s.top(); top != nil && top.object && top.expectKey {
			top.expectKey = false
			return crate.Token{Kind: crate.KindKey, Text: v}, nil
		}
		s.valueDone()
		return crate.Token{Kind: crate.KindString, Text: v}, nil
	case json.Number:
		s.valueDone()
		return crate.Token{Kind: crate.KindNumber, Text: v.String()}, nil
	case bool:
		s.valueDone()
		return crate.Token{Kind: crate.KindBool, Bool: v}, nil
	case nil:
		s.valueDone()
		return crate.Token{Kind: crate.KindNull}, nil
	}
	return crate.Token{}, fmt.Errorf("json: unexpected token %v", raw)
}

func (s *source) top() *frame {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

func (s *source) pop() {
	s.stack = s.stack[:len(s.stack)-1]
	s.valueDone()
}

// valueDone marks a complete value; inside an object the next string is a key.
func (s *source) valueDone() {
	if top := s.top(); top != nil && top.object {
		top.expectKey = true
	}
}

// sinkFrame tracks one open container on the write side.
type sinkFrame struct {
	object bool
	first  bool
}

// sink writes compact JSON.
type sink struct {
	w        *bufio.Writer
	stack    []sinkFrame
	afterKey bool
	values   int
}

func (s *sink) BeginObject() error {
	if err := s.beforeValue(); err != nil {
		return err
	}
	s.stack = append(s.stack, sinkFrame{object: true, first: true})
	return s.w.WriteByte('{')
}

func (s *sink) EndObject() error {
	if err := s.end(true); err != nil {
		return err
	}
	return s.w.WriteByte('}')
}

func (s *sink) BeginArray() error {
	if err := s.beforeValue(); err != nil {
		return err
	}
	s.stack = append(s.stack, sinkFrame{first: true})
	return s.w.WriteByte('[')
}

func (s *sink) EndArray() error {
	if err := s.end(false); err != nil {
		return err
	}
	return s.w.WriteByte(']')
}

func (s *sink) Key(name string) error {
	top := s.topFrame()
	if top == nil || !top.object || s.afterKey {
		return fmt.Errorf("json: key %q outside object", name)
	}
	if !top.first {
		if err := s.w.WriteByte(','); err != nil {
			return err
		}
	}
	top.first = false
	if err := s.writeQuoted(name); err != nil {
		return err
	}
	s.afterKey = true
	return s.w.WriteByte(':')
}

func (s *sink) String(v string) error {
	if err := s.beforeValue(); err != nil {
		return err
	}
	return s.writeQuoted(v)
}

func (s *sink) Number(text string) error {
	if text == "" || (text[0] != '-' && (text[0] < '0' || text[0] > '9')) || !json.Valid([]byte(text)) {
		return fmt.Errorf("json: invalid number %q", text)
	}
	if err := s.beforeValue(); err != nil {
		return err
	}
	_, err := s.w.WriteString(text)
	return err
}

func (s *sink) Bool(v bool) error {
	if err := s.beforeValue(); err != nil {
		return err
	}
	if v {
		_, err := s.w.WriteString("true")
		return err
	}
	_, err := s.w.WriteString("false")
	return err
}

func (s *sink) Null() error {
	if err := s.beforeValue(); err != nil {
		return err
	}
	_, err := s.w.WriteString("null")
	return err
}

func (s *sink) Flush() error {
	return s.w.Flush()
}

func (s *sink) topFrame() *sinkFrame {
	if len(s.stack) == 0 {
		return nil
	}
	return &s.stack[len(s.stack)-1]
}

// beforeValue writes the separator a value needs at the current position.
func (s *sink) beforeValue() error {
	if s.afterKey {
		s.afterKey = false
		return nil
	}
	top := s.topFrame()
	if top == nil {
		s.values++
		if s.values > 1 {
			return s.w.WriteByte('\n')
		}
		return nil
	}
	if top.object {
		return errors.New("json: value without key inside object")
	}
	if !top.first {
		if err := s.w.WriteByte(','); err != nil {
			return err
		}
	}
	top.first = false
	return nil
}

func (s *sink) end(object bool) error {
	top := s.topFrame()
	if top == nil || top.object != object || s.afterKey {
		return errors.New("json: unbalanced container end")
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

// writeQuoted writes v as a JSON string without HTML escaping.
func (s *sink) writeQuoted(v string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := s.w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	return err
}
