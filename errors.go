package crate

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrMalformedInterval indicates interval text violates the bracket grammar.
	ErrMalformedInterval = errors.New("malformed interval")

	// ErrEmptyIntervalKey indicates an interval key was present but empty.
	ErrEmptyIntervalKey = errors.New("empty interval key")

	// ErrEndpointNotOrderable indicates an endpoint value has no ordering.
	ErrEndpointNotOrderable = errors.New("endpoint not orderable")

	// ErrInvalidInterval indicates endpoints that do not form an interval.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrTokenMismatch indicates an unexpected token where a container open,
	// key or value was required.
	ErrTokenMismatch = errors.New("unexpected token")

	// ErrConversion indicates a target-type factory failed.
	ErrConversion = errors.New("conversion failed")

	// ErrCodecResolution indicates no codec could be supplied for a type.
	ErrCodecResolution = errors.New("codec resolution failed")

	// ErrNullKey indicates a map entry without a key.
	ErrNullKey = errors.New("null key")

	// ErrFilter indicates a filtered entry write failed.
	ErrFilter = errors.New("filtered write failed")

	// ErrUnknownTypeID indicates a type discriminator named no registered type.
	ErrUnknownTypeID = errors.New("unknown type id")

	// ErrInvalidTag indicates a struct tag has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")
)

// IntervalError describes a failure to parse or format interval text.
type IntervalError struct {
	Err    error  // ErrMalformedInterval, ErrEmptyIntervalKey or ErrEndpointNotOrderable
	Key    string // offending key text
	Reason string
	Cause  error
}

func (e *IntervalError) Error() string {
	msg := fmt.Sprintf("%s %q", e.Err.Error(), e.Key)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *IntervalError) Unwrap() error {
	return e.Err
}

// TokenError describes a structural mismatch in a token stream.
type TokenError struct {
	Err      error  // ErrTokenMismatch
	Target   string // type being decoded
	Expected string
	Actual   string
	Pos      Position
}

func (e *TokenError) Error() string {
	msg := e.Err.Error()
	if e.Target != "" {
		msg += " decoding " + e.Target
	}
	return fmt.Sprintf("%s at %s: expected %s, found %s", msg, e.Pos, e.Expected, e.Actual)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// ConversionError describes a failed conversion of a decoded container into
// its target type.
type ConversionError struct {
	Err    error // ErrConversion
	Target reflect.Type
	Value  any // the intermediate container handed to the factory
	Cause  error
}

func (e *ConversionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s to %s: %v", e.Err.Error(), typeName(e.Target), e.Cause)
	}
	return fmt.Sprintf("%s to %s", e.Err.Error(), typeName(e.Target))
}

func (e *ConversionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// ResolutionError describes a codec the host could not supply.
type ResolutionError struct {
	Err    error // ErrCodecResolution or ErrUnknownTypeID
	Type   reflect.Type
	Site   string
	Reason string
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("%s for %s", e.Err.Error(), typeName(e.Type))
	if e.Site != "" {
		msg += fmt.Sprintf(" (site %s)", e.Site)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// FilterError wraps a failure raised while a filter emitted one entry.
type FilterError struct {
	Err   error  // ErrFilter
	Key   string // textual description of the entry key
	Cause error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s for key %q: %v", e.Err.Error(), e.Key, e.Cause)
}

func (e *FilterError) Unwrap() []error {
	return []error{e.Err, e.Cause}
}

// newIntervalError creates an IntervalError for key text.
func newIntervalError(sentinel error, key, reason string, cause error) error {
	return &IntervalError{
		Err:    sentinel,
		Key:    key,
		Reason: reason,
		Cause:  cause,
	}
}

// newTokenError creates a TokenError for an unexpected token.
func newTokenError(target string, expected string, actual Token, pos Position) error {
	return &TokenError{
		Err:      ErrTokenMismatch,
		Target:   target,
		Expected: expected,
		Actual:   actual.String(),
		Pos:      pos,
	}
}

// newEOFError creates a TokenError for input that ended inside a value.
func newEOFError(target string, expected string, pos Position) error {
	return &TokenError{
		Err:      ErrTokenMismatch,
		Target:   target,
		Expected: expected,
		Actual:   "end of input",
		Pos:      pos,
	}
}

// newConversionError creates a ConversionError for a failed factory.
func newConversionError(target reflect.Type, value any, cause error) error {
	return &ConversionError{
		Err:    ErrConversion,
		Target: target,
		Value:  value,
		Cause:  cause,
	}
}

// newResolutionError creates a ResolutionError for a missing codec.
func newResolutionError(sentinel error, t reflect.Type, site *Site, reason string) error {
	return &ResolutionError{
		Err:    sentinel,
		Type:   t,
		Site:   site.name(),
		Reason: reason,
	}
}

// newFilterError creates a FilterError for an entry key.
func newFilterError(key string, cause error) error {
	return &FilterError{
		Err:   ErrFilter,
		Key:   key,
		Cause: cause,
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
