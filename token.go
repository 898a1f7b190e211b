package crate

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind identifies the structural role of a token.
type Kind uint8

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindBeginObject:
		return "BeginObject"
	case KindEndObject:
		return "EndObject"
	case KindBeginArray:
		return "BeginArray"
	case KindEndArray:
		return "EndArray"
	case KindKey:
		return "Key"
	case KindString:
		return "String"
	case KindNumber:
		return "Number"
	case KindBool:
		return "Bool"
	case KindNull:
		return "Null"
	default:
		return "Unknown"
	}
}

// IsValueStart reports whether a token of this kind begins a value.
func (k Kind) IsValueStart() bool {
	switch k {
	case KindBeginObject, KindBeginArray, KindString, KindNumber, KindBool, KindNull:
		return true
	default:
		return false
	}
}

// IsScalar reports whether a token of this kind is a complete value on its own.
func (k Kind) IsScalar() bool {
	switch k {
	case KindString, KindNumber, KindBool, KindNull:
		return true
	default:
		return false
	}
}

// Token is a single structural or scalar element of a token stream.
// Numbers travel as their literal text so no precision is lost between
// the wire and the codec that interprets them.
type Token struct {
	Kind Kind
	Text string // key name, string value or number literal
	Bool bool
}

func (t Token) String() string {
	switch t.Kind {
	case KindKey, KindString:
		return fmt.Sprintf("%s %q", t.Kind, t.Text)
	case KindNumber:
		return fmt.Sprintf("%s %s", t.Kind, t.Text)
	case KindBool:
		return fmt.Sprintf("%s %t", t.Kind, t.Bool)
	default:
		return t.Kind.String()
	}
}

// Position locates a token within its input for error reporting.
// Backends fill in whatever they can track; zero fields are unknown.
type Position struct {
	Offset int64
	Line   int
	Column int
}

func (p Position) String() string {
	if p.Line > 0 {
		return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
	}
	return "offset " + strconv.FormatInt(p.Offset, 10)
}

// Source is a pull-based token stream.
// Next and Peek return io.EOF once the input is exhausted.
type Source interface {
	// Next consumes and returns the next token.
	Next() (Token, error)

	// Peek returns the next token without consuming it.
	Peek() (Token, error)

	// Pos returns the position of the most recently returned token.
	Pos() Position
}

// Sink is a push-based token writer.
type Sink interface {
	BeginObject() error
	EndObject() error
	BeginArray() error
	EndArray() error
	Key(name string) error
	String(s string) error
	Number(text string) error
	Bool(b bool) error
	Null() error

	// Flush writes any buffered output.
	Flush() error
}

// Skip consumes one complete value from src, including nested containers.
func Skip(src Source) error {
	depth := 0
	for {
		tok, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		switch tok.Kind {
		case KindBeginObject, KindBeginArray:
			depth++
		case KindEndObject, KindEndArray:
			depth--
		case KindKey:
			continue
		}
		if depth <= 0 {
			return nil
		}
	}
}

// Copy transfers one complete value from src to dst.
func Copy(dst Sink, src Source) error {
	depth := 0
	for {
		tok, err := src.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if err := WriteToken(dst, tok); err != nil {
			return err
		}
		switch tok.Kind {
		case KindBeginObject, KindBeginArray:
			depth++
		case KindEndObject, KindEndArray:
			depth--
		case KindKey:
			continue
		}
		if depth <= 0 {
			return nil
		}
	}
}

// WriteToken emits tok on dst using the matching Sink method.
func WriteToken(dst Sink, tok Token) error {
	switch tok.Kind {
	case KindBeginObject:
		return dst.BeginObject()
	case KindEndObject:
		return dst.EndObject()
	case KindBeginArray:
		return dst.BeginArray()
	case KindEndArray:
		return dst.EndArray()
	case KindKey:
		return dst.Key(tok.Text)
	case KindString:
		return dst.String(tok.Text)
	case KindNumber:
		return dst.Number(tok.Text)
	case KindBool:
		return dst.Bool(tok.Bool)
	case KindNull:
		return dst.Null()
	default:
		return fmt.Errorf("crate: unknown token kind %d", tok.Kind)
	}
}

// TokenBuffer is an in-memory token stream. It records tokens written to it
// as a Sink and replays them, in order, as a Source.
type TokenBuffer struct {
	tokens []Token
	pos    int
}

// NewTokenBuffer returns a buffer pre-loaded with tokens.
func NewTokenBuffer(tokens ...Token) *TokenBuffer {
	return &TokenBuffer{tokens: tokens}
}

// Tokens returns every token recorded so far, consumed or not.
func (b *TokenBuffer) Tokens() []Token {
	return b.tokens
}

// Reset rewinds the read position to the first token.
func (b *TokenBuffer) Reset() {
	b.pos = 0
}

func (b *TokenBuffer) Next() (Token, error) {
	if b.pos >= len(b.tokens) {
		return Token{}, io.EOF
	}
	tok := b.tokens[b.pos]
	b.pos++
	return tok, nil
}

func (b *TokenBuffer) Peek() (Token, error) {
	if b.pos >= len(b.tokens) {
		return Token{}, io.EOF
	}
	return b.tokens[b.pos], nil
}

func (b *TokenBuffer) Pos() Position {
	return Position{Offset: int64(b.pos)}
}

func (b *TokenBuffer) BeginObject() error { return b.push(Token{Kind: KindBeginObject}) }
func (b *TokenBuffer) EndObject() error   { return b.push(Token{Kind: KindEndObject}) }
func (b *TokenBuffer) BeginArray() error  { return b.push(Token{Kind: KindBeginArray}) }
func (b *TokenBuffer) EndArray() error    { return b.push(Token{Kind: KindEndArray}) }
func (b *TokenBuffer) Key(name string) error {
	return b.push(Token{Kind: KindKey, Text: name})
}
func (b *TokenBuffer) String(s string) error {
	return b.push(Token{Kind: KindString, Text: s})
}
func (b *TokenBuffer) Number(text string) error {
	return b.push(Token{Kind: KindNumber, Text: text})
}
func (b *TokenBuffer) Bool(v bool) error { return b.push(Token{Kind: KindBool, Bool: v}) }
func (b *TokenBuffer) Null() error       { return b.push(Token{Kind: KindNull}) }
func (b *TokenBuffer) Flush() error      { return nil }

func (b *TokenBuffer) push(tok Token) error {
	b.tokens = append(b.tokens, tok)
	return nil
}
