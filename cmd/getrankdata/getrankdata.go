//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/maps"
	"github.com/gvallee/go_pt2pt_profiler/pkg/filters"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
	"github.com/gvallee/go_util/pkg/util"
)

// writeTable emits one derived table as CSV: a header row with the peer
// column followed by the kept occurring values, then one row per peer.
// Columns whose mask entry is false are dropped.
func writeTable(out io.Writer, title string, columns []string, peers []int, data [][]uint64, mask []bool) error {
	_, err := fmt.Fprintf(out, "# %s\n", title)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(out)
	header := []string{"peer"}
	for i, column := range columns {
		if !mask[i] {
			continue
		}
		header = append(header, column)
	}
	err = cw.Write(header)
	if err != nil {
		return err
	}
	for pi, peer := range peers {
		row := []string{strconv.Itoa(peer)}
		for i := range columns {
			if !mask[i] {
				continue
			}
			row = append(row, strconv.FormatUint(data[pi][i], 10))
		}
		err = cw.Write(row)
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose mode")
	dir := flag.String("dir", "", "Directory of the rank counter files")
	rank := flag.Int("rank", 0, "Rank to extract the tables of")
	component := flag.String("component", "", "Component to extract the tables of (defaults to the first discovered component)")
	filterArg := flag.String("filters", "", "Filters to apply, e.g. 'size:[0;1024]=tag:!3=count:[10;+inf]'")
	outputFile := flag.String("output-file", "", "Where to write the tables (defaults to stdout)")
	help := flag.Bool("h", false, "Help message")

	flag.Parse()

	cmdName := filepath.Base(os.Args[0])
	if *help {
		fmt.Printf("%s extracts one rank's per-peer message size and tag tables", cmdName)
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

	state, err := filters.ParseStateArg(*filterArg)
	if err != nil {
		fmt.Printf("ERROR: invalid filter: %s\n", err)
		os.Exit(1)
	}

	d, err := world.Open(*dir)
	if err != nil {
		fmt.Printf("ERROR: unable to load the dataset: %s\n", err)
		os.Exit(1)
	}

	name := *component
	if name == "" {
		if len(d.Meta.Components) == 0 {
			fmt.Println("ERROR: the dataset does not record any component")
			os.Exit(1)
		}
		name = d.Meta.Components[0]
	}

	cd, err := d.Component(name)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}

	sd, err := cd.Sizes(*rank)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}
	td, err := cd.Tags(*rank)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *outputFile != "" {
		out, err = os.Create(*outputFile)
		if err != nil {
			fmt.Printf("ERROR: unable to create %s: %s\n", *outputFile, err)
			os.Exit(1)
		}
		defer out.Close()
	}

	sizeColumns := make([]string, len(sd.OccurringSizes))
	for i, size := range sd.OccurringSizes {
		sizeColumns[i] = strconv.FormatUint(size, 10)
	}
	err = writeTable(out, fmt.Sprintf("message sizes of rank %d, component %s", *rank, name),
		sizeColumns, sd.Peers, sd.Data, maps.SizeColumnMask(sd, state))
	if err != nil {
		fmt.Printf("ERROR: unable to write the size table: %s\n", err)
		os.Exit(1)
	}

	tagColumns := make([]string, len(td.OccurringTags))
	for i, tag := range td.OccurringTags {
		tagColumns[i] = strconv.FormatInt(tag, 10)
	}
	err = writeTable(out, fmt.Sprintf("message tags of rank %d, component %s", *rank, name),
		tagColumns, td.Peers, td.Data, maps.TagColumnMask(td, state))
	if err != nil {
		fmt.Printf("ERROR: unable to write the tag table: %s\n", err)
		os.Exit(1)
	}
}
