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

func float64sCompute(op int, values []float64) []float64 {
	newValues := make([]float64, len(values))
	for i, val := range values {
		switch op {
		case DOWN:
			newValues[i] = val * 1000
		case UP:
			newValues[i] = val / 1000
		}
	}
	return newValues
}

// Float64s scales an array of float64 in both directions so that the values
// sit in a readable range for the unit family of unitID, e.g., 0.002 seconds
// becomes 2 milliseconds. Unknown units leave the values unchanged.
func Float64s(unitID string, values []float64) (string, []float64, error) {
	if len(values) == 0 {
		return "", nil, fmt.Errorf("no values to scale")
	}

	// Copy and sort the values to figure out what can be done
	sortedValues := make([]float64, len(values))
	copy(sortedValues, values)
	sort.Float64s(sortedValues)

	if allZerosFloat64s(sortedValues) {
		return unitID, values, nil
	}

	// Translate the human readable unit into something we can interpret
	unitType, unitScale := unit.FromString(unitID)
	if unitScale == -1 {
		// Unit not recognized, nothing we can do
		return unitID, values, nil
	}

	if sortedValues[0] >= 0 && sortedValues[len(sortedValues)-1] < 1 {
		// We scale down all the values if possible
		if unit.IsMin(unitType, unitScale) {
			return unitID, values, nil
		}
		return Float64s(unit.ToString(unitType, unitScale-1), float64sCompute(DOWN, values))
	}

	if sortedValues[0] >= 1000 {
		// We scale up the values if possible
		if unit.IsMax(unitType, unitScale) {
			return unitID, values, nil
		}
		return Float64s(unit.ToString(unitType, unitScale+1), float64sCompute(UP, values))
	}

	// Nothing to do, just return the same
	return unitID, values, nil
}
