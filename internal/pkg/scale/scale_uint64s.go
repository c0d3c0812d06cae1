//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package scale

import (
	"fmt"
	"sort"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/unit"
)

// Uint64s scales an array of uint64 up until the smallest value drops under
// the unit boundary or the widest unit of the family is reached. Values are
// divided with integer arithmetic, callers that need sub-unit precision
// should convert to float64 and use Float64s instead.
func Uint64s(unitID string, values []uint64) (string, []uint64, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("no values to scale")
	}

	// Copy and sort the values to figure out what can be done
	sortedValues := make([]uint64, len(values))
	copy(sortedValues, values)
	sort.Slice(sortedValues, func(i, j int) bool { return sortedValues[i] < sortedValues[j] })

	if allZerosUint64s(sortedValues) {
		return unitID, values, nil
	}

	if sortedValues[0] >= 1000 {
		// We scale up the values if possible

		// Translate the human readable unit into something we can interpret
		unitType, unitScale := unit.FromString(unitID)
		if unitScale == -1 || unit.IsMax(unitType, unitScale) {
			// Unit not recognized or nothing wider, nothing we can do
			return unitID, values, nil
		}

		newValues := make([]uint64, len(values))
		for i, val := range values {
			newValues[i] = val / 1000
		}

		return Uint64s(unit.ToString(unitType, unitScale+1), newValues)
	}

	// Nothing to do, just return the same
	return unitID, values, nil
}
