package crate

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
)

// BoundType says whether an interval includes its finite endpoint.
type BoundType uint8

const (
	// Open excludes the endpoint.
	Open BoundType = iota

	// Closed includes the endpoint.
	Closed
)

func (b BoundType) String() string {
	if b == Closed {
		return "closed"
	}
	return "open"
}

// Interval is a contiguous range of ordered endpoint values. Either side may
// be unbounded. The zero Interval is not a valid interval; it stands for an
// absent key and is rejected wherever a key is required.
//
// Endpoints must be orderable: a value of an integer, unsigned, float or
// string kind, or of a type with a method Compare(T) int.
type Interval struct {
	lower, upper           any
	lowerBound, upperBound BoundType
	hasLower, hasUpper     bool
	set                    bool
}

// All returns the interval unbounded on both sides.
func All() Interval {
	return Interval{set: true}
}

// UpTo returns the interval unbounded below and ending at upper.
func UpTo(upper any, bt BoundType) (Interval, error) {
	if !orderable(upper) {
		return Interval{}, fmt.Errorf("%w: %T", ErrEndpointNotOrderable, upper)
	}
	return Interval{upper: upper, upperBound: bt, hasUpper: true, set: true}, nil
}

// DownTo returns the interval starting at lower and unbounded above.
func DownTo(lower any, bt BoundType) (Interval, error) {
	if !orderable(lower) {
		return Interval{}, fmt.Errorf("%w: %T", ErrEndpointNotOrderable, lower)
	}
	return Interval{lower: lower, lowerBound: bt, hasLower: true, set: true}, nil
}

// Range returns the interval bounded on both sides. The lower endpoint must
// not exceed the upper one, and a single point must not be open on both sides.
func Range(lower any, lb BoundType, upper any, ub BoundType) (Interval, error) {
	c, err := compareEndpoints(lower, upper)
	if err != nil {
		return Interval{}, err
	}
	if c > 0 || (c == 0 && lb == Open && ub == Open) {
		return Interval{}, fmt.Errorf("%w: %s%v..%v%s", ErrInvalidInterval,
			lowerBracket(lb), lower, upper, upperBracket(ub))
	}
	return Interval{
		lower: lower, lowerBound: lb, hasLower: true,
		upper: upper, upperBound: ub, hasUpper: true,
		set: true,
	}, nil
}

// MustRange is like Range but panics on invalid input.
// Intended for literals in tests and fixtures.
func MustRange(lower any, lb BoundType, upper any, ub BoundType) Interval {
	iv, err := Range(lower, lb, upper, ub)
	if err != nil {
		panic(err)
	}
	return iv
}

// IsZero reports whether iv is the zero (absent) interval.
func (iv Interval) IsZero() bool { return !iv.set }

// HasLower reports whether iv has a finite lower endpoint.
func (iv Interval) HasLower() bool { return iv.hasLower }

// HasUpper reports whether iv has a finite upper endpoint.
func (iv Interval) HasUpper() bool { return iv.hasUpper }

// Lower returns the lower endpoint, or nil when unbounded below.
func (iv Interval) Lower() any { return iv.lower }

// Upper returns the upper endpoint, or nil when unbounded above.
func (iv Interval) Upper() any { return iv.upper }

// LowerBound returns the lower bound type. Unbounded sides report Open.
func (iv Interval) LowerBound() BoundType { return iv.lowerBound }

// UpperBound returns the upper bound type. Unbounded sides report Open.
func (iv Interval) UpperBound() BoundType { return iv.upperBound }

// IsEmpty reports whether iv contains no values, as in [5..5).
func (iv Interval) IsEmpty() bool {
	if !iv.set {
		return true
	}
	return compareCuts(iv.lowerCut(), iv.upperCut()) >= 0
}

// Contains reports whether v lies within iv.
func (iv Interval) Contains(v any) (bool, error) {
	if !iv.set {
		return false, nil
	}
	if !orderable(v) {
		return false, fmt.Errorf("%w: %T", ErrEndpointNotOrderable, v)
	}
	if err := iv.checkEndpointType(reflect.TypeOf(v)); err != nil {
		return false, err
	}
	point := cut{kind: cutBelowValue, v: v}
	return compareCuts(iv.lowerCut(), point) <= 0 && compareCuts(point, iv.upperCut()) < 0, nil
}

// Equal reports whether iv and o have the same endpoints and bound types.
func (iv Interval) Equal(o Interval) bool {
	if iv.set != o.set || iv.hasLower != o.hasLower || iv.hasUpper != o.hasUpper {
		return false
	}
	if !iv.set {
		return true
	}
	if iv.hasLower {
		if iv.lowerBound != o.lowerBound || !endpointsEqual(iv.lower, o.lower) {
			return false
		}
	}
	if iv.hasUpper {
		if iv.upperBound != o.upperBound || !endpointsEqual(iv.upper, o.upper) {
			return false
		}
	}
	return true
}

// String renders iv in bracket notation using fmt for the endpoints.
func (iv Interval) String() string {
	if !iv.set {
		return "<nil>"
	}
	var b strings.Builder
	if iv.hasLower {
		b.WriteString(lowerBracket(iv.lowerBound))
		fmt.Fprint(&b, iv.lower)
	} else {
		b.WriteString("(" + lowerInfinity)
	}
	b.WriteString(rangeDelimiter)
	if iv.hasUpper {
		fmt.Fprint(&b, iv.upper)
		b.WriteString(upperBracket(iv.upperBound))
	} else {
		b.WriteString(upperInfinity + ")")
	}
	return b.String()
}

// endpointType returns the dynamic type of the finite endpoints, if any.
func (iv Interval) endpointType() reflect.Type {
	if iv.hasLower {
		return reflect.TypeOf(iv.lower)
	}
	if iv.hasUpper {
		return reflect.TypeOf(iv.upper)
	}
	return nil
}

func (iv Interval) checkEndpointType(t reflect.Type) error {
	if et := iv.endpointType(); et != nil && et != t {
		return fmt.Errorf("%w: cannot compare %s with %s", ErrEndpointNotOrderable, t, et)
	}
	return nil
}

func lowerBracket(b BoundType) string {
	if b == Closed {
		return "["
	}
	return "("
}

func upperBracket(b BoundType) string {
	if b == Closed {
		return "]"
	}
	return ")"
}

// cutKind orders the four kinds of boundary position. A cut below a value
// sorts before a cut above the same value.
type cutKind uint8

const (
	cutBelowAll cutKind = iota
	cutBelowValue
	cutAboveValue
	cutAboveAll
)

// cut is a position between endpoint values. Every interval is the
// half-open span [lowerCut, upperCut).
type cut struct {
	kind cutKind
	v    any
}

func (iv Interval) lowerCut() cut {
	switch {
	case !iv.hasLower:
		return cut{kind: cutBelowAll}
	case iv.lowerBound == Closed:
		return cut{kind: cutBelowValue, v: iv.lower}
	default:
		return cut{kind: cutAboveValue, v: iv.lower}
	}
}

func (iv Interval) upperCut() cut {
	switch {
	case !iv.hasUpper:
		return cut{kind: cutAboveAll}
	case iv.upperBound == Closed:
		return cut{kind: cutAboveValue, v: iv.upper}
	default:
		return cut{kind: cutBelowValue, v: iv.upper}
	}
}

// intervalFromCuts rebuilds the interval spanning [lo, hi).
func intervalFromCuts(lo, hi cut) Interval {
	iv := Interval{set: true}
	switch lo.kind {
	case cutBelowValue:
		iv.lower, iv.lowerBound, iv.hasLower = lo.v, Closed, true
	case cutAboveValue:
		iv.lower, iv.lowerBound, iv.hasLower = lo.v, Open, true
	}
	switch hi.kind {
	case cutAboveValue:
		iv.upper, iv.upperBound, iv.hasUpper = hi.v, Closed, true
	case cutBelowValue:
		iv.upper, iv.upperBound, iv.hasUpper = hi.v, Open, true
	}
	return iv
}

// compareCuts orders two cuts. Callers guarantee that finite endpoints share
// one orderable type; mismatches compare as equal.
func compareCuts(a, b cut) int {
	if a.kind == cutBelowAll || a.kind == cutAboveAll || b.kind == cutBelowAll || b.kind == cutAboveAll {
		return cmp.Compare(cutRank(a), cutRank(b))
	}
	c, _ := compareEndpoints(a.v, b.v)
	if c != 0 {
		return c
	}
	return cmp.Compare(a.kind, b.kind)
}

func cutRank(c cut) int {
	switch c.kind {
	case cutBelowAll:
		return -1
	case cutAboveAll:
		return 1
	default:
		return 0
	}
}

// orderable reports whether v can serve as an interval endpoint.
func orderable(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	}
	return compareMethod(rv).IsValid()
}

// compareMethod returns rv's Compare(T) int method, if it has one.
func compareMethod(rv reflect.Value) reflect.Value {
	m := rv.MethodByName("Compare")
	if !m.IsValid() {
		return reflect.Value{}
	}
	mt := m.Type()
	if mt.NumIn() != 1 || mt.In(0) != rv.Type() || mt.NumOut() != 1 || mt.Out(0).Kind() != reflect.Int {
		return reflect.Value{}
	}
	return m
}

// compareEndpoints orders two endpoint values of the same type.
func compareEndpoints(a, b any) (int, error) {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !ra.IsValid() || !rb.IsValid() {
		return 0, fmt.Errorf("%w: nil endpoint", ErrEndpointNotOrderable)
	}
	if ra.Type() != rb.Type() {
		return 0, fmt.Errorf("%w: cannot compare %s with %s", ErrEndpointNotOrderable, ra.Type(), rb.Type())
	}
	switch ra.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(ra.Int(), rb.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(ra.Uint(), rb.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(ra.Float(), rb.Float()), nil
	case reflect.String:
		return strings.Compare(ra.String(), rb.String()), nil
	}
	if m := compareMethod(ra); m.IsValid() {
		out := m.Call([]reflect.Value{rb})
		return int(out[0].Int()), nil
	}
	return 0, fmt.Errorf("%w: %s", ErrEndpointNotOrderable, ra.Type())
}

func endpointsEqual(a, b any) bool {
	c, err := compareEndpoints(a, b)
	return err == nil && c == 0
}
