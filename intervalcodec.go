package crate

import (
	"fmt"
	"reflect"
	"strings"
)

// Bracket notation: [( lower .. upper )] with sentinels for unbounded sides.
const (
	lowerInfinity  = "-∞"
	upperInfinity  = "+∞"
	rangeDelimiter = ".."
)

// IntervalKeyCodec renders Interval keys in bracket notation, e.g. "(0..10]"
// or "(-∞..5)". An unbounded side is written with its sentinel and is always
// open. Endpoints are rendered by the key codec of the endpoint type.
type IntervalKeyCodec struct {
	endpointType reflect.Type
	endpoint     KeyCodec
}

// NewIntervalKeyCodec returns an unresolved codec for intervals whose
// endpoints have type endpointType. The endpoint codec is resolved on
// contextualization.
func NewIntervalKeyCodec(endpointType reflect.Type) *IntervalKeyCodec {
	return &IntervalKeyCodec{endpointType: endpointType}
}

// IntervalKeyCodecOf returns a resolved codec using endpoint for endpoints.
func IntervalKeyCodecOf(endpointType reflect.Type, endpoint KeyCodec) *IntervalKeyCodec {
	return &IntervalKeyCodec{endpointType: endpointType, endpoint: endpoint}
}

// EndpointType returns the declared endpoint type.
func (c *IntervalKeyCodec) EndpointType() reflect.Type {
	return c.endpointType
}

// ContextualizeKey resolves the endpoint key codec for site. A codec built
// with IntervalKeyCodecOf keeps its endpoint codec.
func (c *IntervalKeyCodec) ContextualizeKey(p Provider, site *Site) (KeyCodec, error) {
	if c.endpoint != nil {
		return c, nil
	}
	kd, err := p.KeyCodec(c.endpointType, site)
	if err != nil {
		return nil, err
	}
	return &IntervalKeyCodec{endpointType: c.endpointType, endpoint: kd}, nil
}

// EncodeKey formats an Interval.
func (c *IntervalKeyCodec) EncodeKey(v any) (string, error) {
	iv, ok := v.(Interval)
	if !ok {
		return "", fmt.Errorf("crate: interval key codec cannot encode %T", v)
	}
	if c.endpoint == nil {
		return "", newResolutionError(ErrCodecResolution, c.endpointType, nil, "interval key codec is not contextualized")
	}
	return FormatInterval(iv, c.endpoint)
}

// DecodeKey parses bracket notation. Empty text is rejected with
// ErrEmptyIntervalKey: it marks an omitted key rather than bad syntax.
func (c *IntervalKeyCodec) DecodeKey(text string) (any, error) {
	if text == "" {
		return nil, newIntervalError(ErrEmptyIntervalKey, text, "interval map keys can't be null or empty", nil)
	}
	if c.endpoint == nil {
		return nil, newResolutionError(ErrCodecResolution, c.endpointType, nil, "interval key codec is not contextualized")
	}
	return ParseInterval(text, c.endpoint)
}

// FormatInterval renders iv in bracket notation, using endpoint to render
// finite endpoints.
func FormatInterval(iv Interval, endpoint KeyCodec) (string, error) {
	if iv.IsZero() {
		return "", ErrNullKey
	}
	var b strings.Builder
	if iv.HasLower() {
		text, err := endpoint.EncodeKey(iv.Lower())
		if err != nil {
			return "", err
		}
		if err := checkEndpointText(text, true); err != nil {
			return "", err
		}
		b.WriteString(lowerBracket(iv.LowerBound()))
		b.WriteString(text)
	} else {
		b.WriteString("(" + lowerInfinity)
	}
	b.WriteString(rangeDelimiter)
	if iv.HasUpper() {
		text, err := endpoint.EncodeKey(iv.Upper())
		if err != nil {
			return "", err
		}
		if err := checkEndpointText(text, false); err != nil {
			return "", err
		}
		b.WriteString(text)
		b.WriteString(upperBracket(iv.UpperBound()))
	} else {
		b.WriteString(upperInfinity + ")")
	}
	return b.String(), nil
}

// checkEndpointText rejects endpoint text that ParseInterval would split or
// read as a sentinel.
func checkEndpointText(text string, lower bool) error {
	var reason string
	switch {
	case strings.Contains(text, rangeDelimiter):
		reason = fmt.Sprintf("endpoint %q contains %q", text, rangeDelimiter)
	case text == lowerInfinity || text == upperInfinity:
		reason = fmt.Sprintf("endpoint %q is an infinity sentinel", text)
	case lower && strings.HasSuffix(text, "."):
		reason = fmt.Sprintf("lower endpoint %q ends with '.'", text)
	default:
		return nil
	}
	return newIntervalError(ErrMalformedInterval, text, reason, nil)
}

// ParseInterval parses bracket notation, using endpoint to decode finite
// endpoints.
func ParseInterval(text string, endpoint KeyCodec) (Interval, error) {
	if !validBrackets(text) {
		return Interval{}, newIntervalError(ErrMalformedInterval, text,
			"should start with '[' or '(', end with ')' or ']'", nil)
	}
	lowerBound, upperBound := Open, Open
	if text[0] == '[' {
		lowerBound = Closed
	}
	if text[len(text)-1] == ']' {
		upperBound = Closed
	}

	parts := strings.Split(text[1:len(text)-1], rangeDelimiter)
	if len(parts) != 2 {
		return Interval{}, newIntervalError(ErrMalformedInterval, text,
			"invalid bracket-notation representation (possibly missing \"..\" delimiter)", nil)
	}

	lowerInfinite := parts[0] == lowerInfinity
	upperInfinite := parts[1] == upperInfinity
	if lowerInfinite && lowerBound == Closed {
		return Interval{}, newIntervalError(ErrMalformedInterval, text, "unbounded lower side must be open", nil)
	}
	if upperInfinite && upperBound == Closed {
		return Interval{}, newIntervalError(ErrMalformedInterval, text, "unbounded upper side must be open", nil)
	}

	var lower, upper any
	var err error
	if !lowerInfinite {
		if lower, err = parseEndpoint(text, parts[0], endpoint); err != nil {
			return Interval{}, err
		}
	}
	if !upperInfinite {
		if upper, err = parseEndpoint(text, parts[1], endpoint); err != nil {
			return Interval{}, err
		}
	}

	var iv Interval
	switch {
	case lowerInfinite && upperInfinite:
		return All(), nil
	case lowerInfinite:
		iv, err = UpTo(upper, upperBound)
	case upperInfinite:
		iv, err = DownTo(lower, lowerBound)
	default:
		iv, err = Range(lower, lowerBound, upper, upperBound)
	}
	if err != nil {
		return Interval{}, newIntervalError(ErrMalformedInterval, text, "", err)
	}
	return iv, nil
}

// parseEndpoint decodes one side and checks that it can be ordered.
func parseEndpoint(text, part string, endpoint KeyCodec) (any, error) {
	v, err := endpoint.DecodeKey(part)
	if err != nil {
		return nil, newIntervalError(ErrMalformedInterval, text,
			fmt.Sprintf("endpoint %q", part), err)
	}
	if !orderable(v) {
		return nil, newIntervalError(ErrEndpointNotOrderable, text,
			fmt.Sprintf("endpoint %q decoded to %T, which has no ordering", part, v), nil)
	}
	return v, nil
}

func validBrackets(text string) bool {
	if len(text) < 2 {
		return false
	}
	first, last := text[0], text[len(text)-1]
	return (first == '[' || first == '(') && (last == ']' || last == ')')
}
