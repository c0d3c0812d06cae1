//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package grouping clusters ranks by the volume of data they send so
// reports can summarize thousands of ranks in a few lines. A group is
// balanced when the mean and the median of its volumes stay within a
// fixed deviation of each other.
package grouping

import (
	"sort"
)

const (
	// DEFAULT_MEAN_MEDIAN_DEVIATION is the maximum deviation between the
	// mean and the median of a group's volumes before the group is
	// considered unbalanced.
	DEFAULT_MEAN_MEDIAN_DEVIATION = 0.1 // max of 10% of deviation
)

// Group is a set of ranks whose send volumes are close enough to be
// summarized together. Ranks are ordered by increasing volume.
type Group struct {
	Ranks []int
	Min   uint64
	Max   uint64
}

// affinityIsOkay reports whether the mean and the median are within
// DEFAULT_MEAN_MEDIAN_DEVIATION of each other.
func affinityIsOkay(mean float64, median float64) bool {
	maxMeanMedian := mean
	minMeanMedian := median
	if median > mean {
		maxMeanMedian = median
		minMeanMedian = mean
	}
	a := maxMeanMedian * (1 - DEFAULT_MEAN_MEDIAN_DEVIATION)
	return a <= minMeanMedian
}

func mean(vals []uint64) float64 {
	var sum uint64
	for _, v := range vals {
		sum += v
	}
	return float64(sum) / float64(len(vals))
}

// median expects vals to be sorted in increasing order.
func median(vals []uint64) float64 {
	n := len(vals)
	if n%2 == 1 {
		return float64(vals[n/2])
	}
	return float64(vals[n/2-1]+vals[n/2]) / 2
}

func newGroup(ranks []int, vals []uint64) *Group {
	return &Group{
		Ranks: ranks,
		Min:   vals[0],
		Max:   vals[len(vals)-1],
	}
}

// Compute partitions ranks by the volume each one sent; values[i] is
// the number of bytes sent by rank i. Ranks are sorted by volume and
// accumulated greedily: a rank that would push the mean and the median
// of the current group too far apart starts a new group.
func Compute(values []uint64) []*Group {
	if len(values) == 0 {
		return nil
	}

	ranks := make([]int, len(values))
	for i := range ranks {
		ranks[i] = i
	}
	sort.SliceStable(ranks, func(i, j int) bool {
		return values[ranks[i]] < values[ranks[j]]
	})

	var groups []*Group
	var cur []int
	var curVals []uint64
	for _, r := range ranks {
		if len(cur) > 0 {
			candidate := append(append([]uint64{}, curVals...), values[r])
			if !affinityIsOkay(mean(candidate), median(candidate)) {
				groups = append(groups, newGroup(cur, curVals))
				cur = nil
				curVals = nil
			}
		}
		cur = append(cur, r)
		curVals = append(curVals, values[r])
	}
	groups = append(groups, newGroup(cur, curVals))

	return groups
}
