//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package notation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

func addRange(str string, start int, end int) string {
	if str == "" {
		return fmt.Sprintf("%d-%d", start, end)
	}
	return fmt.Sprintf("%s,%d-%d", str, start, end)
}

func addSingleton(str string, n int) string {
	if str == "" {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%s,%d", str, n)
}

// CompressIntArray returns the compact text notation for a sorted list of
// ranks, e.g., [0 1 2 5] becomes "0-2,5".
func CompressIntArray(array []int) string {
	compressedRep := ""
	for i := 0; i < len(array); i++ {
		start := i
		for i+1 < len(array) && array[i]+1 == array[i+1] {
			i++
		}
		if i != start {
			// We found a range
			compressedRep = addRange(compressedRep, array[start], array[i])
		} else {
			// We found a singleton
			compressedRep = addSingleton(compressedRep, array[i])
		}
	}
	return compressedRep
}

func expandToken(tok string, out []int) ([]int, error) {
	if idx := strings.Index(tok, "-"); idx > 0 {
		start, err := strconv.Atoi(tok[:idx])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q", tok)
		}
		end, err := strconv.Atoi(tok[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid range %q", tok)
		}
		if end < 0 || start > end {
			return nil, fmt.Errorf("invalid range %q", tok)
		}
		for n := start; n <= end; n++ {
			out = append(out, n)
		}
		return out, nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid rank %q", tok)
	}
	return append(out, n), nil
}

// ConvertCompressedNotationToIntSlice expands notation such as "0-3,7" into
// the sorted list of unique ranks it designates. Ranges are inclusive on
// both ends; negative ranks and inverted ranges are rejected.
func ConvertCompressedNotationToIntSlice(str string) ([]int, error) {
	var list []int
	var err error
	for _, tok := range strings.Split(str, ",") {
		list, err = expandToken(strings.TrimSpace(tok), list)
		if err != nil {
			return nil, err
		}
	}
	sort.Ints(list)
	j := 0
	for i := 0; i < len(list); i++ {
		if i == 0 || list[i] != list[i-1] {
			list[j] = list[i]
			j++
		}
	}
	return list[:j], nil
}
