//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package bins classifies the logged messages of a component into size bins.
package bins

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
)

// Data is one message size bin, counting messages of Min <= size < Max
// bytes. The last bin of a series has Max set to -1 and no upper bound.
type Data struct {
	Min  int
	Max  int
	Msgs uint64
}

// Label renders the bin bounds, an open upper bound for the last bin
func (b Data) Label() string {
	if b.Max == -1 {
		return fmt.Sprintf("[%d;+inf)", b.Min)
	}
	return fmt.Sprintf("[%d;%d)", b.Min, b.Max)
}

// GetFilePath returns the path of the bin summary of one component inside dir
func GetFilePath(dir string, component string) string {
	return filepath.Join(dir, fmt.Sprintf("bins-%s.csv", component))
}

// GetFromInputDescr parses the string describing a series of thresholds to
// use for the organization of messages into bins, e.g. "200,1024,2048"
func GetFromInputDescr(binStr string) ([]int, error) {
	var listBins []int
	for _, s := range strings.Split(binStr, ",") {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, errors.Parsef(binStr, "unable to parse threshold %q", s)
		}
		listBins = append(listBins, n)
	}
	return listBins, nil
}

// Create returns empty bins from a list of ascending thresholds. n
// thresholds make n+1 bins; the first starts at zero, the last is unbounded.
func Create(listBins []int) []Data {
	var bins []Data

	start := 0
	end := listBins[0]
	for i := 0; i < len(listBins)+1; i++ {
		bins = append(bins, Data{Min: start, Max: end})

		start = end
		if i+1 < len(listBins) {
			end = listBins[i+1]
		} else {
			end = -1
		}
	}

	return bins
}

func classify(bins []Data, size int, msgs uint64) {
	for i := 0; i < len(bins); i++ {
		if (bins[i].Max != -1 && bins[i].Min <= size && size < bins[i].Max) || (bins[i].Max == -1 && size >= bins[i].Min) {
			bins[i].Msgs += msgs
			break
		}
	}
}

// GetFromWorld classifies every message logged for one component into size
// bins. Counts come from the callsite logs since the declared counters carry
// no size information.
func GetFromWorld(d *world.Data, component string, listBins []int) ([]Data, error) {
	_, err := d.Component(component)
	if err != nil {
		return nil, err
	}

	bins := Create(listBins)
	for rank := 0; rank < d.Meta.NumProcesses; rank++ {
		rf, err := d.OpenRank(rank)
		if err != nil {
			return nil, err
		}
		for _, peer := range rf.Peers {
			for _, callsite := range peer.SentMessages[component] {
				for _, msg := range callsite.Msgs {
					var msgs uint64
					for _, occ := range msg.Tags {
						msgs += occ
					}
					classify(bins, int(msg.Size), msgs)
				}
			}
		}
	}
	return bins, nil
}

// Save writes the bin summary of one component as CSV under dir and returns
// the path to the created file
func Save(dir string, component string, bins []Data) (string, error) {
	outputFile := GetFilePath(dir, component)
	fd, err := os.Create(outputFile)
	if err != nil {
		return "", fmt.Errorf("unable to create file %s: %w", outputFile, err)
	}
	defer fd.Close()

	cw := csv.NewWriter(fd)
	err = cw.Write([]string{"bin", "messages"})
	if err != nil {
		return "", err
	}
	for _, b := range bins {
		err = cw.Write([]string{b.Label(), strconv.FormatUint(b.Msgs, 10)})
		if err != nil {
			return "", err
		}
	}
	cw.Flush()
	return outputFile, cw.Error()
}
