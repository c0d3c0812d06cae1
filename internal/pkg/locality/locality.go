//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package locality derives consistent rank groups (core, socket, NUMA,
// node) from the membership claims embedded in every rank file.
package locality

import (
	"sort"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/rankfile"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

func claimOfKind(rank int, claims []rankfile.Locality, kind rankfile.Kind) (*rankfile.Locality, error) {
	var found *rankfile.Locality
	for i := range claims {
		if claims[i].Kind != kind {
			continue
		}
		if found != nil {
			return nil, errors.Validationf([]int{rank}, "locality %s claimed multiple times", kind)
		}
		found = &claims[i]
	}
	return found, nil
}

func equalPeers(a []int, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func containsRank(peers []int, rank int) bool {
	for _, p := range peers {
		if p == rank {
			return true
		}
	}
	return false
}

// Resolve partitions ranks into the disjoint groups of one locality kind.
// claims[r] is the claim list decoded from rank r's file. It returns
// nil, nil when the kind is not claimed by every rank that would need it,
// meaning the locality axis is simply unavailable.
//
// Every rank named in a claim's peer set must itself report the identical
// peer set for the same kind; any disagreement is a validation error naming
// both ranks involved. Groups come back sorted by their first member, each
// group in ascending rank order.
func Resolve(claims [][]rankfile.Locality, kind rankfile.Kind) ([][]int, error) {
	var groups [][]int
	covered := make([]bool, len(claims))
	for rank := range claims {
		if covered[rank] {
			continue
		}
		found, err := claimOfKind(rank, claims[rank], kind)
		if err != nil {
			return nil, err
		}
		if found == nil {
			return nil, nil
		}
		if !containsRank(found.Peers, rank) {
			return nil, errors.Validationf([]int{rank}, "rank missing from its own %s locality group", kind)
		}
		for _, other := range found.Peers {
			if other < 0 || other >= len(claims) {
				return nil, errors.Validationf([]int{rank}, "%s locality peer %d out of range", kind, other)
			}
			otherClaim, err := claimOfKind(other, claims[other], kind)
			if err != nil {
				return nil, err
			}
			if otherClaim == nil || !equalPeers(found.Peers, otherClaim.Peers) {
				return nil, errors.Validationf([]int{rank, other}, "%s locality differs between rank files", kind)
			}
			covered[other] = true
		}
		groups = append(groups, found.Peers)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0] < groups[j][0]
	})
	return groups, nil
}
