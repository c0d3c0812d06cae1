//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package unit

const (
	// DATA represents the unit used for data volume (e.g., bytes)
	DATA = iota

	// TIME represents the unit used for time measurements (e.g., seconds)
	TIME

	// BW represents the unit used for bandwidth measurements (e.g., B/s)
	BW
)

func getUnits(unitType int) map[int]string {
	switch unitType {
	case DATA:
		return map[int]string{
			0: "B",
			1: "KB",
			2: "MB",
			3: "GB",
			4: "TB",
		}
	case TIME:
		return map[int]string{
			0: "nanoseconds",
			1: "microseconds",
			2: "milliseconds",
			3: "seconds",
		}
	case BW:
		return map[int]string{
			0: "B/s",
			1: "KB/s",
			2: "MB/s",
			3: "GB/s",
			4: "TB/s",
		}
	}
	return nil
}

// FromString translates a human readable unit into a unit type and a scale
// within that type. It returns (-1, -1) when the unit is not recognized.
func FromString(unitID string) (int, int) {
	for _, unitType := range []int{DATA, TIME, BW} {
		for lvl, val := range getUnits(unitType) {
			if val == unitID {
				return unitType, lvl
			}
		}
	}

	return -1, -1
}

// ToString converts a unit type and a scale back into a human readable unit
func ToString(unitType int, unitScale int) string {
	return getUnits(unitType)[unitScale]
}

// IsValidScale checks whether a scale exists for a given unit type
func IsValidScale(unitType int, unitScale int) bool {
	_, ok := getUnits(unitType)[unitScale]
	return ok
}

// IsMax checks whether a unit is the widest one of its type, in which case
// values cannot be scaled up any further
func IsMax(unitType int, unitScale int) bool {
	return IsValidScale(unitType, unitScale) && !IsValidScale(unitType, unitScale+1)
}

// IsMin checks whether a unit is the narrowest one of its type, in which case
// values cannot be scaled down any further
func IsMin(unitType int, unitScale int) bool {
	return IsValidScale(unitType, unitScale) && !IsValidScale(unitType, unitScale-1)
}
