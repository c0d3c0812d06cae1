//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package world

import (
	"sort"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/rankfile"
)

// SizeData is one rank's per-peer message size histogram for one component.
// The table is dense only over the sizes that actually occur:
// Data[i][j] counts the messages of size OccurringSizes[j] sent to Peers[i].
type SizeData struct {
	Rank           int
	Peers          []int
	OccurringSizes []uint64
	Data           [][]uint64
}

// TagData is one rank's per-peer tag histogram for one component:
// Data[i][j] counts the messages carrying tag OccurringTags[j] sent to
// Peers[i].
type TagData struct {
	Rank          int
	Peers         []int
	OccurringTags []int64
	Data          [][]uint64
}

func sizeDataFromFile(rf *rankfile.File, component string) *SizeData {
	peers := rf.PeerRanks()
	sizeSet := make(map[uint64]struct{})
	for _, rank := range peers {
		for _, callsite := range rf.Peers[rank].SentMessages[component] {
			for _, msg := range callsite.Msgs {
				sizeSet[msg.Size] = struct{}{}
			}
		}
	}
	sizes := make([]uint64, 0, len(sizeSet))
	for size := range sizeSet {
		sizes = append(sizes, size)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })
	sizeIdx := make(map[uint64]int, len(sizes))
	for i, size := range sizes {
		sizeIdx[size] = i
	}

	data := make([][]uint64, len(peers))
	for i, rank := range peers {
		data[i] = make([]uint64, len(sizes))
		for _, callsite := range rf.Peers[rank].SentMessages[component] {
			for _, msg := range callsite.Msgs {
				var occurrences uint64
				for _, occ := range msg.Tags {
					occurrences += occ
				}
				data[i][sizeIdx[msg.Size]] += occurrences
			}
		}
	}
	return &SizeData{
		Rank:           rf.General.OwnRank,
		Peers:          peers,
		OccurringSizes: sizes,
		Data:           data,
	}
}

func tagDataFromFile(rf *rankfile.File, component string) *TagData {
	peers := rf.PeerRanks()
	tagSet := make(map[int64]struct{})
	for _, rank := range peers {
		for _, callsite := range rf.Peers[rank].SentMessages[component] {
			for _, msg := range callsite.Msgs {
				for tag := range msg.Tags {
					tagSet[tag] = struct{}{}
				}
			}
		}
	}
	tags := make([]int64, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	tagIdx := make(map[int64]int, len(tags))
	for i, tag := range tags {
		tagIdx[tag] = i
	}

	data := make([][]uint64, len(peers))
	for i, rank := range peers {
		data[i] = make([]uint64, len(tags))
		for _, callsite := range rf.Peers[rank].SentMessages[component] {
			for _, msg := range callsite.Msgs {
				for tag, occ := range msg.Tags {
					data[i][tagIdx[tag]] += occ
				}
			}
		}
	}
	return &TagData{
		Rank:          rf.General.OwnRank,
		Peers:         peers,
		OccurringTags: tags,
		Data:          data,
	}
}
