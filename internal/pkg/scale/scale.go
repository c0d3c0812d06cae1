//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package scale adjusts series of values so that they can be displayed with
// the tightest unit of their family, e.g., a series of byte counts in the
// millions is reported in MB.
package scale

const (
	DOWN = -1
	UP   = 1
)

func allZerosUint64s(sortedValues []uint64) bool {
	// If all values are 0 nothing can be done
	if len(sortedValues) == 0 {
		return true
	}
	return sortedValues[len(sortedValues)-1] == 0
}

func allZerosFloat64s(sortedValues []float64) bool {
	// If all values are 0 nothing can be done
	if len(sortedValues) == 0 {
		return true
	}
	return sortedValues[0] == 0 && sortedValues[len(sortedValues)-1] == 0
}
