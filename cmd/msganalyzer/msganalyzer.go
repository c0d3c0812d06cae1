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
	"strings"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/maps"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/progress"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/report"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/timer"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
	"github.com/gvallee/go_pt2pt_profiler/pkg/filters"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
	"github.com/gvallee/go_util/pkg/util"
)

// parseFilterFlags assembles the three filter flags into one filter state.
// Analysis runs are batch jobs so any filter that does not parse is fatal.
func parseFilterFlags(sizeText string, tagText string, countText string) (*filters.FilterState, error) {
	var parts []string
	if sizeText != "" {
		parts = append(parts, "size:"+sizeText)
	}
	if tagText != "" {
		parts = append(parts, "tag:"+tagText)
	}
	if countText != "" {
		parts = append(parts, "count:"+countText)
	}
	return filters.ParseStateArg(strings.Join(parts, "="))
}

func csvName(component string, g world.Grouping, kind string, filtered bool) string {
	name := fmt.Sprintf("matrix-%s-%s-%s", component, g, kind)
	if filtered {
		name += "-filtered"
	}
	return name + ".csv"
}

func writeMatrixCSV(path string, m *world.Matrix) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	return m.WriteCSV(fd)
}

// analyzeComponent writes the markdown report of one component plus its
// communication matrices as CSV, one msgs/bytes pair per resolved grouping
// level. When filters are active a second, filtered set of matrices is
// derived from the callsite logs and written alongside.
func analyzeComponent(d *world.Data, component string, outputDir string, state *filters.FilterState) error {
	reportFile, err := report.Generate(d, component, outputDir)
	if err != nil {
		return err
	}
	log.Printf("Report for %s written to %s", component, reportFile)

	cd, err := d.Component(component)
	if err != nil {
		return err
	}

	var filteredByRank *world.GroupedMatrices
	if state.CLIFormat() != "" {
		filteredByRank, err = maps.FilteredMatrices(d, component, state)
		if err != nil {
			return err
		}
	}

	for _, g := range world.Groupings {
		gm, err := cd.ByGrouping(g)
		if err != nil {
			if errors.IsLookup(err) {
				log.Printf("Skipping grouping %s for %s: %s", g, component, err)
				continue
			}
			return err
		}
		err = writeMatrixCSV(filepath.Join(outputDir, csvName(component, g, "msgs", false)), gm.MsgsSent)
		if err != nil {
			return err
		}
		err = writeMatrixCSV(filepath.Join(outputDir, csvName(component, g, "bytes", false)), gm.BytesSent)
		if err != nil {
			return err
		}

		if filteredByRank == nil {
			continue
		}
		fgm := filteredByRank
		if g != world.ByRank {
			fgm = filteredByRank.Regroup(d.Groups(g))
		}
		err = writeMatrixCSV(filepath.Join(outputDir, csvName(component, g, "msgs", true)), fgm.MsgsSent)
		if err != nil {
			return err
		}
		err = writeMatrixCSV(filepath.Join(outputDir, csvName(component, g, "bytes", true)), fgm.BytesSent)
		if err != nil {
			return err
		}
	}

	return nil
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose mode")
	dir := flag.String("dir", "", "Directory of the rank counter files to analyze")
	outputDir := flag.String("output-dir", "", "Where to write the reports and matrices (defaults to the input directory)")
	sizeFilter := flag.String("size-filter", "", "Only keep messages whose size matches the expression, e.g. '[0;1024]' or '!8'")
	tagFilter := flag.String("tag-filter", "", "Only keep messages whose tag matches the expression, e.g. '42' or '[0;+inf]'")
	countFilter := flag.String("count-filter", "", "Only keep sender/receiver pairs whose message count falls in the range, e.g. '[10;+inf]'")
	help := flag.Bool("h", false, "Help message")

	flag.Parse()

	cmdName := filepath.Base(os.Args[0])
	if *help {
		fmt.Printf("%s aggregates a directory of point-to-point counter files and writes per-component reports and communication matrices", cmdName)
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

	state, err := parseFilterFlags(*sizeFilter, *tagFilter, *countFilter)
	if err != nil {
		fmt.Printf("ERROR: invalid filter: %s\n", err)
		os.Exit(1)
	}

	loadTimer := timer.Start()
	d, err := world.Open(*dir)
	if err != nil {
		fmt.Printf("ERROR: unable to load the dataset: %s\n", err)
		os.Exit(1)
	}
	log.Printf("%d rank files aggregated in %s", d.Meta.NumProcesses, loadTimer.Stop())

	analysisTimer := timer.Start()
	bar := progress.NewBar(len(d.Meta.Components), "Analyzing components")
	for _, component := range d.Meta.Components {
		bar.Increment(1)
		err = analyzeComponent(d, component, *outputDir, state)
		if err != nil {
			fmt.Printf("ERROR: analysis of %s failed: %s\n", component, err)
			os.Exit(1)
		}
	}
	progress.EndBar(bar)

	summaryFile, err := report.GenerateSummary(d, *outputDir)
	if err != nil {
		fmt.Printf("ERROR: unable to write the summary: %s\n", err)
		os.Exit(1)
	}
	log.Printf("Summary written to %s", summaryFile)
	log.Printf("Analysis done in %s", analysisTimer.Stop())
}
