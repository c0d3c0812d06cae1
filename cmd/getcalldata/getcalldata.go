//
// Copyright (c) 2020-2021, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/notation"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/rankfile"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/report"
	"github.com/gvallee/go_util/pkg/util"
)

type callsiteRow struct {
	peer int
	size uint64
	tag  int64
	msgs uint64
}

// callsiteData indexes everything one rank logged, by callsite then by
// component.
type callsiteData map[int]map[string][]callsiteRow

func collectCallsites(rf *rankfile.File) callsiteData {
	data := make(callsiteData)
	for _, peer := range rf.PeerRanks() {
		p := rf.Peers[peer]
		for component, callsites := range p.SentMessages {
			for _, cs := range callsites {
				byComponent := data[cs.ID]
				if byComponent == nil {
					byComponent = make(map[string][]callsiteRow)
					data[cs.ID] = byComponent
				}
				for _, msg := range cs.Msgs {
					tags := make([]int64, 0, len(msg.Tags))
					for tag := range msg.Tags {
						tags = append(tags, tag)
					}
					sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
					for _, tag := range tags {
						byComponent[component] = append(byComponent[component], callsiteRow{
							peer: peer,
							size: msg.Size,
							tag:  tag,
							msgs: msg.Tags[tag],
						})
					}
				}
			}
		}
	}
	return data
}

func writeCallsite(path string, id int, rank int, byComponent map[string][]callsiteRow) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fd.Close()

	_, err = fd.WriteString(fmt.Sprintf("# Callsite %d, rank %d\n\n", id, rank))
	if err != nil {
		return err
	}
	if len(byComponent) == 0 {
		_, err = fd.WriteString("No messages were recorded for this callsite.\n")
		return err
	}

	components := make([]string, 0, len(byComponent))
	for component := range byComponent {
		components = append(components, component)
	}
	sort.Strings(components)

	for _, component := range components {
		_, err = fd.WriteString(fmt.Sprintf("## Component %s\n\n", component))
		if err != nil {
			return err
		}
		_, err = fd.WriteString("| Peer | Size | Tag | Messages |\n| --- | --- | --- | --- |\n")
		if err != nil {
			return err
		}
		var msgs uint64
		var volume uint64
		for _, row := range byComponent[component] {
			_, err = fd.WriteString(fmt.Sprintf("| %d | %d | %d | %d |\n", row.peer, row.size, row.tag, row.msgs))
			if err != nil {
				return err
			}
			msgs += row.msgs
			volume += row.size * row.msgs
		}
		_, err = fd.WriteString(fmt.Sprintf("\nMessages: %d\nData sent: %s\n\n", msgs, report.FormatBytes(volume)))
		if err != nil {
			return err
		}
	}
	return nil
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose mode")
	dir := flag.String("dir", "", "Directory of the rank counter files")
	rank := flag.Int("rank", 0, "Rank for which we want to extract the logged messages")
	callsites := flag.String("callsites", "", "Callsites for which we want to extract data. It can be a comma-separated list of callsite IDs as well as ranges in the format X-Y. All callsites are extracted when not set.")
	outputDir := flag.String("output-dir", "", "Where the result files will be created (default: the dataset directory)")
	help := flag.Bool("h", false, "Help message")

	flag.Parse()

	cmdName := filepath.Base(os.Args[0])
	if *help {
		fmt.Printf("%s extracts the messages logged at one or more callsites of a rank", cmdName)
		fmt.Println("\nUsage:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	logFile := util.OpenLogFile("pt2pt", cmdName)
	defer logFile.Close()
	if *verbose {
		multiWriters := io.MultiWriter(os.Stdout, logFile)
		log.SetOutput(multiWriters)
	} else {
		log.SetOutput(io.Discard)
	}

	if *dir == "" {
		fmt.Println("No directory specified, run '-h' for more details")
		os.Exit(1)
	}
	if *outputDir == "" {
		*outputDir = *dir
	}

	rf, err := rankfile.Load(rankfile.FilePath(*dir, *rank))
	if err != nil {
		fmt.Printf("ERROR: unable to load the counter file of rank %d: %s\n", *rank, err)
		os.Exit(1)
	}

	data := collectCallsites(rf)

	var ids []int
	if *callsites == "" {
		for id := range data {
			ids = append(ids, id)
		}
		sort.Ints(ids)
	} else {
		ids, err = notation.ConvertCompressedNotationToIntSlice(*callsites)
		if err != nil {
			fmt.Printf("ERROR: unable to parse the list of callsites: %s\n", err)
			os.Exit(1)
		}
	}
	if len(ids) == 0 {
		fmt.Println("No callsite was recorded for this rank")
		os.Exit(0)
	}
	log.Printf("%d callsite(s) to extract for rank %d", len(ids), *rank)

	for _, id := range ids {
		path := filepath.Join(*outputDir, fmt.Sprintf("callsite%d-rank%d.md", id, *rank))
		err = writeCallsite(path, id, *rank, data[id])
		if err != nil {
			fmt.Printf("ERROR: unable to save the data of callsite %d: %s\n", id, err)
			os.Exit(1)
		}
		fmt.Printf("Data for callsite #%d saved in %s\n", id, path)
	}
}
