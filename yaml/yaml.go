// Package yaml provides the YAML token stream format.
package yaml

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/zoobzio/crate"
	"gopkg.in/yaml.v3"
)

// yamlFormat implements crate.Format for YAML.
type yamlFormat struct{}

// New returns the YAML format.
func New() crate.Format {
	return &yamlFormat{}
}

// ContentType returns the MIME type for YAML.
func (f *yamlFormat) ContentType() string {
	return "application/yaml"
}

// NewSource returns a token source reading one YAML document from r.
func (f *yamlFormat) NewSource(r io.Reader) crate.Source {
	return &source{r: r}
}

// NewSink returns a token sink writing one YAML document to w on Flush.
func (f *yamlFormat) NewSink(w io.Writer) crate.Sink {
	return &sink{w: w}
}

type positioned struct {
	tok crate.Token
	pos crate.Position
}

// source parses the whole document into a node tree, then replays it as
// tokens with line and column positions.
type source struct {
	r      io.Reader
	loaded bool
	err    error
	tokens []positioned
	next   int
	pos    crate.Position
}

func (s *source) load() error {
	if s.loaded {
		return s.err
	}
	s.loaded = true

	var doc yaml.Node
	if err := yaml.NewDecoder(s.r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		s.err = err
		return err
	}
	s.err = s.flatten(&doc)
	return s.err
}

func (s *source) Peek() (crate.Token, error) {
	if err := s.load(); err != nil {
		return crate.Token{}, err
	}
	if s.next >= len(s.tokens) {
		return crate.Token{}, io.EOF
	}
	p := s.tokens[s.next]
	s.pos = p.pos
	return p.tok, nil
}

func (s *source) Next() (crate.Token, error) {
	tok, err := s.Peek()
	if err != nil {
		return crate.Token{}, err
	}
	s.next++
	return tok, nil
}

func (s *source) Pos() crate.Position {
	return s.pos
}

func (s *source) emit(n *yaml.Node, tok crate.Token) {
	s.tokens = append(s.tokens, positioned{
		tok: tok,
		pos: crate.Position{Line: n.Line, Column: n.Column},
	})
}

func (s *source) flatten(n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			if err := s.flatten(c); err != nil {
				return err
			}
		}
		return nil
	case yaml.AliasNode:
		return s.flatten(n.Alias)
	case yaml.MappingNode:
		s.emit(n, crate.Token{Kind: crate.KindBeginObject})
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return fmt.Errorf("yaml: line %d: mapping keys must be scalars", key.Line)
			}
			s.emit(key, crate.Token{Kind: crate.KindKey, Text: key.Value})
			if err := s.flatten(n.Content[i+1]); err != nil {
				return err
			}
		}
		s.emit(n, crate.Token{Kind: crate.KindEndObject})
		return nil
	case yaml.SequenceNode:
		s.emit(n, crate.Token{Kind: crate.KindBeginArray})
		for _, c := range n.Content {
			if err := s.flatten(c); err != nil {
				return err
			}
		}
		s.emit(n, crate.Token{Kind: crate.KindEndArray})
		return nil
	case yaml.ScalarNode:
		tok, err := scalarToken(n)
		if err != nil {
			return err
		}
		s.emit(n, tok)
		return nil
	}
	return fmt.Errorf("yaml: line %d: unsupported node kind %d", n.Line, n.Kind)
}

// scalarToken classifies a scalar by its resolved tag.
func scalarToken(n *yaml.Node) (crate.Token, error) {
	switch n.ShortTag() {
	case "!!null":
		return crate.Token{Kind: crate.KindNull}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return crate.Token{}, err
		}
		return crate.Token{Kind: crate.KindBool, Bool: b}, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return crate.Token{Kind: crate.KindNumber, Text: n.Value}, nil
		}
		return crate.Token{Kind: crate.KindNumber, Text: strconv.FormatInt(i, 10)}, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return crate.Token{}, err
		}
		return crate.Token{Kind: crate.KindNumber, Text: strconv.FormatFloat(f, 'g', -1, 64)}, nil
	default:
		return crate.Token{Kind: crate.KindString, Text: n.Value}, nil
	}
}

// sink builds a node tree and encodes it on Flush.
type sink struct {
	w     io.Writer
	root  *yaml.Node
	stack []*yaml.Node
}

func (s *sink) add(n *yaml.Node) error {
	if len(s.stack) == 0 {
		if s.root != nil {
			return errors.New("yaml: multiple top-level values")
		}
		s.root = n
		return nil
	}
	parent := s.stack[len(s.stack)-1]
	if parent.Kind == yaml.MappingNode && len(parent.Content)%2 == 0 {
		return errors.New("yaml: value without key inside mapping")
	}
	parent.Content = append(parent.Content, n)
	return nil
}

func (s *sink) open(kind yaml.Kind, tag string) error {
	n := &yaml.Node{Kind: kind, Tag: tag}
	if err := s.add(n); err != nil {
		return err
	}
	s.stack = append(s.stack, n)
	return nil
}

func (s *sink) close(kind yaml.Kind) error {
	if len(s.stack) == 0 || s.stack[len(s.stack)-1].Kind != kind {
		return errors.New("yaml: unbalanced container end")
	}
	s.stack = s.stack[:len(s.stack)-1]
	return nil
}

func (s *sink) scalar(tag, value string) error {
	return s.add(&yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value})
}

func (s *sink) BeginObject() error { return s.open(yaml.MappingNode, "!!map") }
func (s *sink) EndObject() error   { return s.close(yaml.MappingNode) }
func (s *sink) BeginArray() error  { return s.open(yaml.SequenceNode, "!!seq") }
func (s *sink) EndArray() error    { return s.close(yaml.SequenceNode) }

func (s *sink) Key(name string) error {
	if len(s.stack) == 0 {
		return fmt.Errorf("yaml: key %q outside mapping", name)
	}
	parent := s.stack[len(s.stack)-1]
	if parent.Kind != yaml.MappingNode || len(parent.Content)%2 != 0 {
		return fmt.Errorf("yaml: key %q outside mapping", name)
	}
	parent.Content = append(parent.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name})
	return nil
}

func (s *sink) String(v string) error { return s.scalar("!!str", v) }

func (s *sink) Number(text string) error {
	if _, err := strconv.ParseInt(text, 10, 64); err == nil {
		return s.scalar("!!int", text)
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return fmt.Errorf("yaml: invalid number %q", text)
	}
	return s.scalar("!!float", text)
}

func (s *sink) Bool(v bool) error { return s.scalar("!!bool", strconv.FormatBool(v)) }
func (s *sink) Null() error       { return s.scalar("!!null", "null") }

func (s *sink) Flush() error {
	if s.root == nil {
		return nil
	}
	if len(s.stack) > 0 {
		return errors.New("yaml: unclosed container")
	}
	enc := yaml.NewEncoder(s.w)
	enc.SetIndent(2)
	if err := enc.Encode(s.root); err != nil {
		return err
	}
	s.root = nil
	return enc.Close()
}
