//
// Copyright (c) 2020-2021, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package maps derives filter-aware views from an aggregated world: rank
// level communication matrices restricted to the messages a filter state
// keeps, and keep-masks for the value axes of per-rank size/tag tables.
package maps

import (
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
	"github.com/gvallee/go_pt2pt_profiler/pkg/filters"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
)

func keepValue(f filters.Filter, v uint64) bool {
	return filters.Apply(f, []uint64{v})[0]
}

func keepTag(f filters.Filter, tag int64) bool {
	return filters.Apply(f, []int64{tag})[0]
}

// FilteredMatrices rebuilds the rank level matrices of one component from
// the rank files, keeping only the messages whose size and tag pass the
// state. The declared sent_count counters cannot be broken down by size or
// tag, so message counts here derive from the per-callsite logs alone and
// may differ from the component's unfiltered MsgsSent matrix. Pairs whose
// kept message count falls outside the count filter are zeroed.
func FilteredMatrices(d *world.Data, component string, state *filters.FilterState) (*world.GroupedMatrices, error) {
	if _, err := d.Component(component); err != nil {
		return nil, err
	}
	if state == nil {
		state = filters.NewFilterState()
	}

	n := d.Meta.NumProcesses
	gm := world.NewGroupedMatrices(n)
	for rank := 0; rank < n; rank++ {
		rf, err := d.OpenRank(rank)
		if err != nil {
			return nil, err
		}
		sender := rf.General.OwnRank
		for _, receiver := range rf.PeerRanks() {
			if receiver >= n {
				return nil, errors.Validationf([]int{sender}, "peer %d out of range for %d processes", receiver, n)
			}
			peer := rf.Peers[receiver]
			var msgs, volume uint64
			for _, callsite := range peer.SentMessages[component] {
				for _, msg := range callsite.Msgs {
					if !keepValue(state.Size, msg.Size) {
						continue
					}
					for tag, occ := range msg.Tags {
						if !keepTag(state.Tag, tag) {
							continue
						}
						msgs += occ
						volume += occ * msg.Size
					}
				}
			}
			if !keepValue(state.Count, msgs) {
				continue
			}
			gm.MsgsSent.Set(sender, receiver, msgs)
			gm.BytesSent.Set(sender, receiver, volume)
		}
	}
	return gm, nil
}

func columnTotals(data [][]uint64, width int) []uint64 {
	totals := make([]uint64, width)
	for _, row := range data {
		for i, v := range row {
			totals[i] += v
		}
	}
	return totals
}

// SizeColumnMask returns the keep mask of the size axis of one table: a
// size stays when it passes the size filter and its occurrence total across
// peers passes the count filter
func SizeColumnMask(sd *world.SizeData, state *filters.FilterState) []bool {
	if state == nil {
		state = filters.NewFilterState()
	}
	mask := filters.Apply(state.Size, sd.OccurringSizes)
	countMask := filters.Apply(state.Count, columnTotals(sd.Data, len(sd.OccurringSizes)))
	for i := range mask {
		mask[i] = mask[i] && countMask[i]
	}
	return mask
}

// TagColumnMask returns the keep mask of the tag axis of one table: a tag
// stays when it passes the tag filter and its occurrence total across peers
// passes the count filter
func TagColumnMask(td *world.TagData, state *filters.FilterState) []bool {
	if state == nil {
		state = filters.NewFilterState()
	}
	mask := filters.Apply(state.Tag, td.OccurringTags)
	countMask := filters.Apply(state.Count, columnTotals(td.Data, len(td.OccurringTags)))
	for i := range mask {
		mask[i] = mask[i] && countMask[i]
	}
	return mask
}
