//
// Copyright (c) 2020-2021, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package format provides helpers to order map-based data before it is
// written to reports.
package format

import (
	"sort"
)

// KV is a key/value pair extracted from a map so it can be sorted.
type KV struct {
	Key int
	Val int
}

// KVList is a sortable list of key/value pairs. Pairs are ordered by
// value, with the key as tie breaker so the order is deterministic.
type KVList []KV

func (x KVList) Len() int { return len(x) }

func (x KVList) Less(i, j int) bool {
	if x[i].Val != x[j].Val {
		return x[i].Val < x[j].Val
	}
	return x[i].Key < x[j].Key
}

func (x KVList) Swap(i, j int) { x[i], x[j] = x[j], x[i] }

// ConvertIntMapToOrderedArrayByValue converts a map of integers into an
// ordered array so the content of the map can be displayed in a
// deterministic manner.
func ConvertIntMapToOrderedArrayByValue(m map[int]int) KVList {
	var sortedArray KVList
	for k, v := range m {
		sortedArray = append(sortedArray, KV{Key: k, Val: v})
	}
	sort.Sort(sortedArray)
	return sortedArray
}
