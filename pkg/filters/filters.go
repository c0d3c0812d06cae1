//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package filters implements the mini language used to restrict size, tag
// and count series, e.g. "[0;1024],2048" or "!99". A filter expression is a
// comma-separated list of segments, each one an exact integer or an
// inclusive range "[lo;hi]" whose ends may be -inf / +inf.
package filters

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

// Filter is one parsed filter expression. The concrete types are Unfiltered,
// BadFilter, RangeFilter, ExactFilter, MultiRangeFilter and InvertedFilter;
// masks are computed with Apply.
type Filter interface {
	String() string
	isFilter()
}

// Unfiltered matches every value
type Unfiltered struct{}

func (f *Unfiltered) String() string { return "" }
func (f *Unfiltered) isFilter()      {}

// BadFilter is the recovery sentinel for filter text that failed to parse in
// an interactive context. It behaves like Unfiltered so a typo never hides
// data; callers detect it to surface a warning.
type BadFilter struct{}

func (f *BadFilter) String() string { return "" }
func (f *BadFilter) isFilter()      {}

// RangeFilter matches values inside an inclusive range. A nil bound leaves
// that side open. Segment records which comma-separated segment of the
// original expression the range came from.
type RangeFilter struct {
	Min     *int64
	Max     *int64
	Segment int
}

func (f *RangeFilter) isFilter() {}

func (f *RangeFilter) String() string {
	return fmt.Sprintf("[%s;%s]", f.minString(), f.maxString())
}

func (f *RangeFilter) minString() string {
	if f.Min == nil {
		return "-inf"
	}
	return strconv.FormatInt(*f.Min, 10)
}

func (f *RangeFilter) maxString() string {
	if f.Max == nil {
		return "+inf"
	}
	return strconv.FormatInt(*f.Max, 10)
}

// Equal compares bounds and ignores the segment index
func (f *RangeFilter) Equal(other *RangeFilter) bool {
	return other != nil && eqBound(f.Min, other.Min) && eqBound(f.Max, other.Max)
}

func eqBound(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// RemoveExact re-serializes the range with the value n carved out. The
// result is zero, one or two segments joined by commas: removing a value in
// the middle splits the range, removing an end shrinks it, and shrinking a
// range to a single value collapses it to an exact segment. A value outside
// the range returns the range unchanged.
func (f *RangeFilter) RemoveExact(n int64) string {
	if (f.Min != nil && n < *f.Min) || (f.Max != nil && n > *f.Max) {
		return f.String()
	}
	var left string
	switch {
	case f.Min != nil && *f.Min == n:
		left = ""
	case f.Min != nil && *f.Min == n-1:
		left = f.minString()
	default:
		left = fmt.Sprintf("[%s;%d]", f.minString(), n-1)
	}
	var right string
	switch {
	case f.Max != nil && *f.Max == n:
		right = ""
	case f.Max != nil && *f.Max == n+1:
		right = f.maxString()
	default:
		right = fmt.Sprintf("[%d;%s]", n+1, f.maxString())
	}
	if left == "" {
		return right
	}
	if right == "" {
		return left
	}
	return left + "," + right
}

// ExactFilter matches a single value. Segment records which comma-separated
// segment of the original expression the value came from.
type ExactFilter struct {
	N       int64
	Segment int
}

func (f *ExactFilter) isFilter() {}

func (f *ExactFilter) String() string {
	return strconv.FormatInt(f.N, 10)
}

// Equal compares the value and ignores the segment index
func (f *ExactFilter) Equal(other *ExactFilter) bool {
	return other != nil && f.N == other.N
}

// MultiRangeFilter is the union of the ranges and exact values parsed from
// one comma-separated expression. A value passes if any member matches; an
// empty expression therefore matches nothing.
type MultiRangeFilter struct {
	Ranges []*RangeFilter
	Exacts []*ExactFilter
	Text   string
}

func (f *MultiRangeFilter) isFilter() {}

// String serializes ranges first, then exact values
func (f *MultiRangeFilter) String() string {
	parts := make([]string, 0, len(f.Ranges)+len(f.Exacts))
	for _, r := range f.Ranges {
		parts = append(parts, r.String())
	}
	for _, e := range f.Exacts {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ",")
}

// Equal compares members pairwise, ignoring segment indexes
func (f *MultiRangeFilter) Equal(other *MultiRangeFilter) bool {
	if other == nil || len(f.Ranges) != len(other.Ranges) || len(f.Exacts) != len(other.Exacts) {
		return false
	}
	for i, r := range f.Ranges {
		if !r.Equal(other.Ranges[i]) {
			return false
		}
	}
	for i, e := range f.Exacts {
		if !e.Equal(other.Exacts[i]) {
			return false
		}
	}
	return true
}

// InvertedFilter negates the mask of its inner filter
type InvertedFilter struct {
	Inner Filter
}

func (f *InvertedFilter) isFilter() {}

func (f *InvertedFilter) String() string {
	return "!" + f.Inner.String()
}

// Equal reports whether both filters are equivalent, ignoring segment
// indexes
func Equal(a, b Filter) bool {
	switch x := a.(type) {
	case *Unfiltered:
		_, ok := b.(*Unfiltered)
		return ok
	case *BadFilter:
		_, ok := b.(*BadFilter)
		return ok
	case *RangeFilter:
		y, ok := b.(*RangeFilter)
		return ok && x.Equal(y)
	case *ExactFilter:
		y, ok := b.(*ExactFilter)
		return ok && x.Equal(y)
	case *MultiRangeFilter:
		y, ok := b.(*MultiRangeFilter)
		return ok && x.Equal(y)
	case *InvertedFilter:
		y, ok := b.(*InvertedFilter)
		return ok && Equal(x.Inner, y.Inner)
	}
	return a == b
}

// Apply computes the boolean mask of f over data. Signed and unsigned
// series share one implementation; a negative bound can never exclude the
// low side of unsigned data and can never admit its high side.
func Apply[T int64 | uint64](f Filter, data []T) []bool {
	mask := make([]bool, len(data))
	switch v := f.(type) {
	case *RangeFilter:
		for i, d := range data {
			mask[i] = (v.Min == nil || geqValue(d, *v.Min)) && (v.Max == nil || leqValue(d, *v.Max))
		}
	case *ExactFilter:
		for i, d := range data {
			mask[i] = eqValue(d, v.N)
		}
	case *MultiRangeFilter:
		for _, r := range v.Ranges {
			orInto(mask, Apply(r, data))
		}
		for _, e := range v.Exacts {
			orInto(mask, Apply(e, data))
		}
	case *InvertedFilter:
		inner := Apply(v.Inner, data)
		for i, b := range inner {
			mask[i] = !b
		}
	default:
		// Unfiltered and BadFilter keep everything
		for i := range mask {
			mask[i] = true
		}
	}
	return mask
}

func orInto(dst, src []bool) {
	for i, b := range src {
		if b {
			dst[i] = true
		}
	}
}

func geqValue[T int64 | uint64](v T, bound int64) bool {
	if v < 0 {
		return int64(v) >= bound
	}
	if bound < 0 {
		return true
	}
	return uint64(v) >= uint64(bound)
}

func leqValue[T int64 | uint64](v T, bound int64) bool {
	if v < 0 {
		return int64(v) <= bound
	}
	if bound < 0 {
		return false
	}
	return uint64(v) <= uint64(bound)
}

func eqValue[T int64 | uint64](v T, n int64) bool {
	if v < 0 {
		return int64(v) == n
	}
	if n < 0 {
		return false
	}
	return uint64(v) == uint64(n)
}

var rangeRegex = regexp.MustCompile(`^\[((?:\+|-)?(?:inf|\d+));((?:\+|-)?(?:inf|\d+))\]$`)

// parseRangeSegment returns nil, nil when the segment is not range shaped at
// all, so the caller can try it as an exact value instead.
func parseRangeSegment(segment string, index int) (*RangeFilter, error) {
	m := rangeRegex.FindStringSubmatch(segment)
	if m == nil {
		return nil, nil
	}
	f := &RangeFilter{Segment: index}
	if m[1] != "-inf" {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, errors.Parsef(segment, "minimum %q is not an integer or negative infinity", m[1])
		}
		f.Min = &n
	}
	if m[2] != "inf" && m[2] != "+inf" {
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, errors.Parsef(segment, "maximum %q is not an integer or positive infinity", m[2])
		}
		f.Max = &n
	}
	return f, nil
}

func parseExactSegment(segment string, index int) (*ExactFilter, error) {
	n, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		return nil, errors.Parsef(segment, "%q is not a finite integer", segment)
	}
	return &ExactFilter{N: n, Segment: index}, nil
}

func newMulti(text string, tolerant bool) (*MultiRangeFilter, error) {
	f := &MultiRangeFilter{Text: text}
	if text == "" {
		return f, nil
	}
	for i, segment := range strings.Split(text, ",") {
		r, err := parseRangeSegment(segment, i)
		if err != nil {
			if tolerant {
				continue
			}
			return nil, err
		}
		if r != nil {
			f.Ranges = append(f.Ranges, r)
			continue
		}
		e, err := parseExactSegment(segment, i)
		if err != nil {
			if tolerant {
				continue
			}
			return nil, err
		}
		f.Exacts = append(f.Exacts, e)
	}
	return f, nil
}

// New parses a comma-separated filter expression, failing on the first
// malformed segment
func New(text string) (*MultiRangeFilter, error) {
	return newMulti(text, false)
}

// NewTolerant parses a comma-separated filter expression, skipping malformed
// segments. Surviving members keep the segment index they had in the
// original text.
func NewTolerant(text string) *MultiRangeFilter {
	f, _ := newMulti(text, true)
	return f
}

// Parse parses a full filter expression with an optional leading "!" that
// negates the whole expression
func Parse(text string) (Filter, error) {
	inner := strings.TrimPrefix(text, "!")
	f, err := New(inner)
	if err != nil {
		return nil, err
	}
	if inner != text {
		return &InvertedFilter{Inner: f}, nil
	}
	return f, nil
}

// ParseOrBad parses like Parse but never fails: malformed text degrades to a
// BadFilter so interactive callers keep working with filtering disabled
func ParseOrBad(text string) Filter {
	f, err := Parse(text)
	if err != nil {
		return &BadFilter{}
	}
	return f
}
