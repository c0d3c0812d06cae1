//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package filters

import (
	"strings"

	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

// FilterState bundles the three filters a point-to-point view can apply:
// over message sizes, over cell counts and over tags
type FilterState struct {
	Size  Filter
	Count Filter
	Tag   Filter
}

// NewFilterState returns a state with all three filters unfiltered
func NewFilterState() *FilterState {
	return &FilterState{
		Size:  &Unfiltered{},
		Count: &Unfiltered{},
		Tag:   &Unfiltered{},
	}
}

// CLIFormat serializes the active filters as name:expression pairs joined by
// "=", the format ParseStateArg accepts. Unfiltered and bad filters are
// omitted; an all-inactive state formats as the empty string.
func (s *FilterState) CLIFormat() string {
	var parts []string
	appendActive(&parts, "size", s.Size)
	appendActive(&parts, "count", s.Count)
	appendActive(&parts, "tag", s.Tag)
	return strings.Join(parts, "=")
}

func appendActive(parts *[]string, name string, f Filter) {
	switch f.(type) {
	case nil, *Unfiltered, *BadFilter:
		return
	}
	*parts = append(*parts, name+":"+f.String())
}

// ParseStateArg parses a CLI filter argument of the form
// "size:<expr>=count:<expr>=tag:<expr>". Every pair is optional. The count
// filter must be a single range; size and tag accept full expressions
// including a leading "!".
func ParseStateArg(arg string) (*FilterState, error) {
	state := NewFilterState()
	if arg == "" {
		return state, nil
	}
	for _, part := range strings.Split(arg, "=") {
		name, text, found := strings.Cut(part, ":")
		if !found {
			return nil, errors.Parsef(part, "expected name:filter")
		}
		switch name {
		case "size":
			f, err := Parse(text)
			if err != nil {
				return nil, err
			}
			state.Size = f
		case "tag":
			f, err := Parse(text)
			if err != nil {
				return nil, err
			}
			state.Tag = f
		case "count":
			r, err := parseRangeSegment(text, 0)
			if err != nil {
				return nil, err
			}
			if r == nil {
				return nil, errors.Parsef(text, "a single range in the format [min;max] was expected")
			}
			state.Count = r
		default:
			return nil, errors.Parsef(part, "unknown filter name %q", name)
		}
	}
	return state, nil
}
