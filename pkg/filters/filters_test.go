//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package filters

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

func i64(n int64) *int64 {
	return &n
}

func TestNewSegments(t *testing.T) {
	f, err := New("5,[10;20],-3")
	require.NoError(t, err)

	require.Len(t, f.Ranges, 1)
	require.Len(t, f.Exacts, 2)
	require.Equal(t, int64(5), f.Exacts[0].N)
	require.Equal(t, 0, f.Exacts[0].Segment)
	require.Equal(t, i64(10), f.Ranges[0].Min)
	require.Equal(t, i64(20), f.Ranges[0].Max)
	require.Equal(t, 1, f.Ranges[0].Segment)
	require.Equal(t, int64(-3), f.Exacts[1].N)
	require.Equal(t, 2, f.Exacts[1].Segment)
	require.Equal(t, "5,[10;20],-3", f.Text)
}

func TestNewOpenEnds(t *testing.T) {
	f, err := New("[-inf;100],[0;inf],[5;+inf]")
	require.NoError(t, err)
	require.Len(t, f.Ranges, 3)
	require.Nil(t, f.Ranges[0].Min)
	require.Equal(t, i64(100), f.Ranges[0].Max)
	require.Equal(t, i64(0), f.Ranges[1].Min)
	require.Nil(t, f.Ranges[1].Max)
	require.Nil(t, f.Ranges[2].Max)
}

func TestNewErrors(t *testing.T) {
	tests := []string{
		"abc",
		"1,",
		"[5;",
		"[+inf;10]",
		"[0;-inf]",
		"1.5",
	}
	for _, text := range tests {
		_, err := New(text)
		require.Error(t, err, "expression %q", text)
		require.True(t, errors.IsParse(err), "expression %q", text)
	}

	f, err := New("")
	require.NoError(t, err)
	require.Empty(t, f.Ranges)
	require.Empty(t, f.Exacts)
}

func TestNewTolerant(t *testing.T) {
	f := NewTolerant("x,[1;2],y,7")
	require.Len(t, f.Ranges, 1)
	require.Equal(t, 1, f.Ranges[0].Segment)
	require.Len(t, f.Exacts, 1)
	require.Equal(t, int64(7), f.Exacts[0].N)
	require.Equal(t, 3, f.Exacts[0].Segment)
}

func TestApplyRange(t *testing.T) {
	signed := []int64{-5, 0, 5, 10, 11}
	unsigned := []uint64{0, 5, 10, 11, 1 << 63}

	f := &RangeFilter{Min: i64(0), Max: i64(10)}
	require.Equal(t, []bool{false, true, true, true, false}, Apply(f, signed))
	require.Equal(t, []bool{true, true, true, false, false}, Apply(f, unsigned))

	open := &RangeFilter{}
	require.Equal(t, []bool{true, true, true, true, true}, Apply(open, signed))
	require.Equal(t, []bool{true, true, true, true, true}, Apply(open, unsigned))

	neg := &RangeFilter{Min: i64(-10), Max: i64(-1)}
	require.Equal(t, []bool{true, false, false, false, false}, Apply(neg, signed))
	require.Equal(t, []bool{false, false, false, false, false}, Apply(neg, unsigned))

	lowOpen := &RangeFilter{Max: i64(-1)}
	require.Equal(t, []bool{true, false, false, false, false}, Apply(lowOpen, signed))
	require.Equal(t, []bool{false, false, false, false, false}, Apply(lowOpen, unsigned))
}

func TestApplyExact(t *testing.T) {
	f := &ExactFilter{N: -5}
	require.Equal(t, []bool{true, false}, Apply(f, []int64{-5, 5}))
	require.Equal(t, []bool{false, false}, Apply(f, []uint64{5, 1 << 63}))

	g := &ExactFilter{N: 5}
	require.Equal(t, []bool{false, true}, Apply(g, []int64{-5, 5}))
	require.Equal(t, []bool{true, false}, Apply(g, []uint64{5, 1 << 63}))
}

func TestApplyMultiRange(t *testing.T) {
	f, err := New("[0;10],99")
	require.NoError(t, err)
	data := []int64{-1, 0, 10, 50, 99}
	require.Equal(t, []bool{false, true, true, false, true}, Apply(f, data))

	empty, err := New("")
	require.NoError(t, err)
	require.Equal(t, []bool{false, false, false, false, false}, Apply(empty, data))
}

func TestApplyInvertedAndSentinels(t *testing.T) {
	data := []uint64{1, 2, 3}

	inv, err := Parse("!2")
	require.NoError(t, err)
	require.IsType(t, &InvertedFilter{}, inv)
	require.Equal(t, []bool{true, false, true}, Apply(inv, data))

	require.Equal(t, []bool{true, true, true}, Apply(&Unfiltered{}, data))
	require.Equal(t, []bool{true, true, true}, Apply(&BadFilter{}, data))
}

func TestString(t *testing.T) {
	f, err := New("5,[1;3],7")
	require.NoError(t, err)
	require.Equal(t, "[1;3],5,7", f.String())

	r := &RangeFilter{Min: i64(-2)}
	require.Equal(t, "[-2;+inf]", r.String())

	inv, err := Parse("![0;inf]")
	require.NoError(t, err)
	require.Equal(t, "![0;+inf]", inv.String())
}

func TestParseRoundTrip(t *testing.T) {
	tests := []string{
		"[1;3],5,7",
		"[-inf;0],[10;+inf]",
		"42",
		"![0;+inf],5",
	}
	for _, text := range tests {
		f, err := Parse(text)
		require.NoError(t, err)
		again, err := Parse(f.String())
		require.NoError(t, err)
		require.True(t, Equal(f, again), "round trip of %q", text)
	}
}

func TestRemoveExact(t *testing.T) {
	tests := []struct {
		min      *int64
		max      *int64
		n        int64
		expected string
	}{
		{min: i64(0), max: i64(10), n: 5, expected: "[0;4],[6;10]"},
		{min: i64(0), max: i64(10), n: 0, expected: "[1;10]"},
		{min: i64(0), max: i64(10), n: 10, expected: "[0;9]"},
		{min: i64(5), max: i64(10), n: 6, expected: "5,[7;10]"},
		{min: i64(5), max: i64(10), n: 9, expected: "[5;8],10"},
		{min: i64(5), max: i64(6), n: 5, expected: "6"},
		{min: i64(5), max: i64(5), n: 5, expected: ""},
		{min: i64(0), max: i64(10), n: 42, expected: "[0;10]"},
		{min: i64(0), max: i64(10), n: -1, expected: "[0;10]"},
		{min: nil, max: nil, n: 5, expected: "[-inf;4],[6;+inf]"},
		{min: nil, max: i64(5), n: 5, expected: "[-inf;4]"},
	}
	for _, tt := range tests {
		f := &RangeFilter{Min: tt.min, Max: tt.max}
		got := f.RemoveExact(tt.n)
		require.Equal(t, tt.expected, got, "%s remove %d", f, tt.n)

		if got != "" {
			_, err := New(got)
			require.NoError(t, err, "result %q must parse back", got)
		}
	}
}

func TestParseOrBad(t *testing.T) {
	f := ParseOrBad("[0;10]")
	require.IsType(t, &MultiRangeFilter{}, f)

	bad := ParseOrBad("[0;10],nope")
	require.IsType(t, &BadFilter{}, bad)
	require.Equal(t, []bool{true, true}, Apply(bad, []uint64{1, 1 << 40}))
}

func TestFilterStateCLIFormat(t *testing.T) {
	s := NewFilterState()
	require.Equal(t, "", s.CLIFormat())

	size, err := Parse("[0;1024],4096")
	require.NoError(t, err)
	s.Size = size
	s.Count = &RangeFilter{Min: i64(1), Max: nil}
	s.Tag = &BadFilter{}
	require.Equal(t, "size:[0;1024],4096=count:[1;+inf]", s.CLIFormat())
}

func TestParseStateArg(t *testing.T) {
	s, err := ParseStateArg("size:[0;1024],4096=count:[1;+inf]=tag:!7")
	require.NoError(t, err)

	size, ok := s.Size.(*MultiRangeFilter)
	require.True(t, ok)
	require.Len(t, size.Ranges, 1)
	require.Len(t, size.Exacts, 1)

	count, ok := s.Count.(*RangeFilter)
	require.True(t, ok)
	require.Equal(t, i64(1), count.Min)
	require.Nil(t, count.Max)

	require.IsType(t, &InvertedFilter{}, s.Tag)

	// format and parse are inverses for active filters
	require.Equal(t, "size:[0;1024],4096=count:[1;+inf]=tag:!7", s.CLIFormat())

	empty, err := ParseStateArg("")
	require.NoError(t, err)
	require.IsType(t, &Unfiltered{}, empty.Size)

	_, err = ParseStateArg("count:7")
	require.Error(t, err)
	require.True(t, errors.IsParse(err))

	_, err = ParseStateArg("bogus:[0;1]")
	require.Error(t, err)

	_, err = ParseStateArg("size")
	require.Error(t, err)
}
