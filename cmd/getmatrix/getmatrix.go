//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
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

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/plot"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
	"github.com/gvallee/go_util/pkg/util"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose mode")
	dir := flag.String("dir", "", "Directory of the rank counter files")
	component := flag.String("component", "", "Component to extract the matrix of (defaults to the first discovered component)")
	grouping := flag.String("grouping", "rank", "Grouping level of the matrix: rank, core, numa, socket or node")
	data := flag.String("data", "bytes", "Which counter to extract: bytes or msgs")
	outputFile := flag.String("output-file", "", "Where to write the CSV matrix (defaults to stdout)")
	plotDir := flag.String("plot", "", "Also write a gnuplot data/script pair and render the heat map into this directory")
	help := flag.Bool("h", false, "Help message")

	flag.Parse()

	cmdName := filepath.Base(os.Args[0])
	if *help {
		fmt.Printf("%s extracts the communication matrix of one component as CSV and optionally renders it as a gnuplot heat map", cmdName)
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
	if *data != "bytes" && *data != "msgs" {
		fmt.Printf("ERROR: unknown data kind %q, expected bytes or msgs\n", *data)
		os.Exit(1)
	}

	g, err := world.ParseGrouping(*grouping)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
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

	gm, err := cd.ByGrouping(g)
	if err != nil {
		if errors.IsLookup(err) {
			fmt.Printf("Data unavailable: %s\n", err)
		} else {
			fmt.Printf("ERROR: %s\n", err)
		}
		os.Exit(1)
	}

	m := gm.BytesSent
	if *data == "msgs" {
		m = gm.MsgsSent
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
	err = m.WriteCSV(out)
	if err != nil {
		fmt.Printf("ERROR: unable to write the matrix: %s\n", err)
		os.Exit(1)
	}
	if *outputFile != "" {
		log.Printf("Matrix written to %s", *outputFile)
	}

	if *plotDir != "" {
		err = plot.Generate(name, g, *data, m, *plotDir)
		if err != nil {
			fmt.Printf("ERROR: unable to render the heat map: %s\n", err)
			os.Exit(1)
		}
		log.Printf("Heat map written to %s", plot.GetImageFilePath(*plotDir, name, g, *data))
	}
}
