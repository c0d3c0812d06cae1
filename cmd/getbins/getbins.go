//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
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

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/bins"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
	"github.com/gvallee/go_util/pkg/util"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose mode")
	dir := flag.String("dir", "", "Directory of the rank counter files")
	component := flag.String("component", "", "Component to classify the messages of (defaults to the first discovered component)")
	binThresholds := flag.String("bins", "200", "Comma-separated list of thresholds to use for the creation of bins")
	outputDir := flag.String("output-dir", "", "Where to write the bin summary (defaults to the input directory)")
	help := flag.Bool("h", false, "Help message")

	flag.Parse()

	cmdName := filepath.Base(os.Args[0])
	if *help {
		fmt.Printf("%s classifies the messages of a component into size bins", cmdName)
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

	listBins, err := bins.GetFromInputDescr(*binThresholds)
	if err != nil {
		fmt.Printf("ERROR: unable to get the list of thresholds: %s\n", err)
		os.Exit(1)
	}
	log.Printf("Ready to create %d bins", len(listBins)+1)

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

	b, err := bins.GetFromWorld(d, name, listBins)
	if err != nil {
		fmt.Printf("ERROR: unable to get bins: %s\n", err)
		os.Exit(1)
	}

	outputFile, err := bins.Save(*outputDir, name, b)
	if err != nil {
		fmt.Printf("ERROR: unable to save data in %s: %s\n", *outputDir, err)
		os.Exit(1)
	}

	for _, bin := range b {
		fmt.Printf("bin %s: %d message(s)\n", bin.Label(), bin.Msgs)
	}
	log.Printf("Bin summary written to %s", outputFile)
}
