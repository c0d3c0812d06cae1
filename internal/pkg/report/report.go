//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package report generates the markdown profile summary of one component,
// the file the webui renders and msganalyzer drops next to its exported
// matrices.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/grouping"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/notation"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/patterns"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/scale"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
)

const (
	// FilePrefix is the prefix of every generated profile report
	FilePrefix = "profile_pt2pt-"

	// maxPairs caps how many sender/receiver pairs a report lists
	maxPairs = 10
)

// GetFilePath returns the full path to the profile report of a component
func GetFilePath(basedir string, component string) string {
	return filepath.Join(basedir, fmt.Sprintf("%s%s.md", FilePrefix, component))
}

// FormatBytes renders a byte count with the tightest data unit
func FormatBytes(volume uint64) string {
	unitID, values, err := scale.Float64s("B", []float64{float64(volume)})
	if err != nil || unitID == "B" {
		return fmt.Sprintf("%d B", volume)
	}
	return fmt.Sprintf("%.2f %s", values[0], unitID)
}

// FormatBandwidth renders a B/s rate with the tightest bandwidth unit
func FormatBandwidth(rate float64) string {
	unitID, values, err := scale.Float64s("B/s", []float64{rate})
	if err != nil {
		return fmt.Sprintf("%.2f B/s", rate)
	}
	return fmt.Sprintf("%.2f %s", values[0], unitID)
}

type pair struct {
	sender   int
	receiver int
	msgs     uint64
	bytes    uint64
}

func topPairs(cd *world.ComponentData, max int) []pair {
	var pairs []pair
	n := cd.ByRank.BytesSent.Size()
	for sender := 0; sender < n; sender++ {
		for receiver := 0; receiver < n; receiver++ {
			msgs := cd.ByRank.MsgsSent.At(sender, receiver)
			bytes := cd.ByRank.BytesSent.At(sender, receiver)
			if msgs == 0 && bytes == 0 {
				continue
			}
			pairs = append(pairs, pair{sender: sender, receiver: receiver, msgs: msgs, bytes: bytes})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].bytes != pairs[j].bytes {
			return pairs[i].bytes > pairs[j].bytes
		}
		if pairs[i].msgs != pairs[j].msgs {
			return pairs[i].msgs > pairs[j].msgs
		}
		if pairs[i].sender != pairs[j].sender {
			return pairs[i].sender < pairs[j].sender
		}
		return pairs[i].receiver < pairs[j].receiver
	})
	if len(pairs) > max {
		pairs = pairs[:max]
	}
	return pairs
}

func writeMetadata(fd *os.File, d *world.Data) error {
	_, err := fd.WriteString("## Run metadata\n\n")
	if err != nil {
		return err
	}
	_, err = fd.WriteString(fmt.Sprintf("- Processes: %d\n", d.Meta.NumProcesses))
	if err != nil {
		return err
	}
	_, err = fd.WriteString(fmt.Sprintf("- MPI runtime: %s\n", d.Meta.MPIRuntime))
	if err != nil {
		return err
	}
	_, err = fd.WriteString(fmt.Sprintf("- Wall time: %s\n", d.WallTime))
	if err != nil {
		return err
	}
	_, err = fd.WriteString(fmt.Sprintf("- Components: %s\n", strings.Join(d.Meta.Components, ", ")))
	if err != nil {
		return err
	}
	groupCounts := []struct {
		label string
		value int
	}{
		{"Nodes", d.Meta.NumNodes},
		{"NUMA nodes", d.Meta.NumNuma},
		{"Sockets", d.Meta.NumSockets},
		{"Cores", d.Meta.NumCores},
	}
	for _, c := range groupCounts {
		if c.value < 0 {
			continue
		}
		_, err = fd.WriteString(fmt.Sprintf("- %s: %d\n", c.label, c.value))
		if err != nil {
			return err
		}
	}
	_, err = fd.WriteString("\n")
	return err
}

func writeTotals(fd *os.File, d *world.Data, cd *world.ComponentData) error {
	_, err := fd.WriteString("## Totals\n\n")
	if err != nil {
		return err
	}
	_, err = fd.WriteString(fmt.Sprintf("- Messages sent: %d\n", cd.TotalMsgsSent))
	if err != nil {
		return err
	}
	_, err = fd.WriteString(fmt.Sprintf("- Data sent: %s\n", FormatBytes(cd.TotalBytesSent)))
	if err != nil {
		return err
	}
	if secs := d.WallTime.Seconds(); secs > 0 {
		_, err = fd.WriteString(fmt.Sprintf("- Average send bandwidth: %s\n", FormatBandwidth(float64(cd.TotalBytesSent)/secs)))
		if err != nil {
			return err
		}
	}
	_, err = fd.WriteString("\n")
	return err
}

func writePairs(fd *os.File, cd *world.ComponentData) error {
	_, err := fd.WriteString("## Busiest sender/receiver pairs\n\n")
	if err != nil {
		return err
	}
	pairs := topPairs(cd, maxPairs)
	if len(pairs) == 0 {
		_, err = fd.WriteString("No messages were recorded for this component.\n\n")
		return err
	}

	volumes := make([]uint64, len(pairs))
	for i, p := range pairs {
		volumes[i] = p.bytes
	}
	unitID, scaled, err := scale.Uint64s("B", volumes)
	if err != nil {
		return err
	}

	_, err = fd.WriteString(fmt.Sprintf("| Sender | Receiver | Messages | Data sent (%s) |\n", unitID))
	if err != nil {
		return err
	}
	_, err = fd.WriteString("| --- | --- | --- | --- |\n")
	if err != nil {
		return err
	}
	for i, p := range pairs {
		_, err = fd.WriteString(fmt.Sprintf("| %d | %d | %d | %d |\n", p.sender, p.receiver, p.msgs, scaled[i]))
		if err != nil {
			return err
		}
	}
	_, err = fd.WriteString("\n")
	return err
}

func writePatterns(fd *os.File, cd *world.ComponentData) error {
	_, err := fd.WriteString("## Communication pattern\n\n")
	if err != nil {
		return err
	}
	return patterns.WriteSummary(fd, patterns.Detect(cd.ByRank))
}

func writeVolumeGroups(fd *os.File, cd *world.ComponentData) error {
	_, err := fd.WriteString("## Send volume distribution\n\n")
	if err != nil {
		return err
	}
	n := cd.ByRank.BytesSent.Size()
	volumes := make([]uint64, n)
	for rank := 0; rank < n; rank++ {
		for _, v := range cd.ByRank.BytesSent.Row(rank) {
			volumes[rank] += v
		}
	}
	for _, group := range grouping.Compute(volumes) {
		ranks := append([]int{}, group.Ranks...)
		sort.Ints(ranks)
		if group.Min == group.Max {
			_, err = fd.WriteString(fmt.Sprintf("- ranks %s: %s each\n", notation.CompressIntArray(ranks), FormatBytes(group.Min)))
		} else {
			_, err = fd.WriteString(fmt.Sprintf("- ranks %s: %s to %s\n", notation.CompressIntArray(ranks), FormatBytes(group.Min), FormatBytes(group.Max)))
		}
		if err != nil {
			return err
		}
	}
	_, err = fd.WriteString("\n")
	return err
}

func writeLocalityGroups(fd *os.File, d *world.Data) error {
	_, err := fd.WriteString("## Locality groups\n\n")
	if err != nil {
		return err
	}
	wrote := false
	for _, g := range []world.Grouping{world.ByNode, world.ByNuma, world.BySocket, world.ByCore} {
		groups := d.Groups(g)
		if groups == nil {
			continue
		}
		wrote = true
		_, err = fd.WriteString(fmt.Sprintf("### %s\n\n", g))
		if err != nil {
			return err
		}
		for i, group := range groups {
			_, err = fd.WriteString(fmt.Sprintf("- group %d: ranks %s\n", i, notation.CompressIntArray(group)))
			if err != nil {
				return err
			}
		}
		_, err = fd.WriteString("\n")
		if err != nil {
			return err
		}
	}
	if !wrote {
		_, err = fd.WriteString("No locality information was found in the rank files.\n\n")
		return err
	}
	return nil
}

// Generate writes the markdown profile of one component under basedir and
// returns the path to the created file
func Generate(d *world.Data, component string, basedir string) (string, error) {
	cd, err := d.Component(component)
	if err != nil {
		return "", err
	}

	reportFile := GetFilePath(basedir, component)
	fd, err := os.Create(reportFile)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	_, err = fd.WriteString(fmt.Sprintf("# Point-to-point profile: %s\n\n", cd.Name))
	if err != nil {
		return "", err
	}
	err = writeMetadata(fd, d)
	if err != nil {
		return "", err
	}
	err = writeTotals(fd, d, cd)
	if err != nil {
		return "", err
	}
	err = writePairs(fd, cd)
	if err != nil {
		return "", err
	}
	err = writePatterns(fd, cd)
	if err != nil {
		return "", err
	}
	err = writeVolumeGroups(fd, cd)
	if err != nil {
		return "", err
	}
	err = writeLocalityGroups(fd, d)
	if err != nil {
		return "", err
	}

	return reportFile, nil
}

// GenerateSummary writes the cross-component summary of a run under basedir
// and returns the path to the created file
func GenerateSummary(d *world.Data, basedir string) (string, error) {
	summaryFile := GetFilePath(basedir, "summary")
	fd, err := os.Create(summaryFile)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	_, err = fd.WriteString("# Point-to-point profile summary\n\n")
	if err != nil {
		return "", err
	}
	err = writeMetadata(fd, d)
	if err != nil {
		return "", err
	}

	_, err = fd.WriteString("## Components\n\n")
	if err != nil {
		return "", err
	}
	if len(d.Meta.Components) == 0 {
		_, err = fd.WriteString("No components were recorded in this run.\n")
		return summaryFile, err
	}
	_, err = fd.WriteString("| Component | Messages | Data sent | Average send bandwidth |\n")
	if err != nil {
		return "", err
	}
	_, err = fd.WriteString("| --- | --- | --- | --- |\n")
	if err != nil {
		return "", err
	}
	secs := d.WallTime.Seconds()
	for _, name := range d.Meta.Components {
		cd := d.Components[name]
		bandwidth := "n/a"
		if secs > 0 {
			bandwidth = FormatBandwidth(float64(cd.TotalBytesSent) / secs)
		}
		_, err = fd.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", name, cd.TotalMsgsSent, FormatBytes(cd.TotalBytesSent), bandwidth))
		if err != nil {
			return "", err
		}
	}
	return summaryFile, nil
}
