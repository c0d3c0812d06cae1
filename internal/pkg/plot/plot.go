//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package plot renders communication matrices as gnuplot heat maps
package plot

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
)

const (
	plotScriptPrelude = "set term png size 800,600\n"
)

func baseName(component string, g world.Grouping, kind string) string {
	return fmt.Sprintf("heatmap-%s-%s-%s", component, g, kind)
}

// GetDataFilePath returns the path of the whitespace matrix data file
func GetDataFilePath(outputDir string, component string, g world.Grouping, kind string) string {
	return filepath.Join(outputDir, baseName(component, g, kind)+".txt")
}

// GetScriptFilePath returns the path of the gnuplot script
func GetScriptFilePath(outputDir string, component string, g world.Grouping, kind string) string {
	return filepath.Join(outputDir, baseName(component, g, kind)+".gnuplot")
}

// GetImageFilePath returns the path of the image the script generates
func GetImageFilePath(outputDir string, component string, g world.Grouping, kind string) string {
	return filepath.Join(outputDir, baseName(component, g, kind)+".png")
}

func writeDataFile(dataFile string, m *world.Matrix) error {
	fd, err := os.Create(dataFile)
	if err != nil {
		return err
	}
	defer fd.Close()

	for sender := 0; sender < m.Size(); sender++ {
		row := m.Row(sender)
		elems := make([]string, len(row))
		for i, v := range row {
			elems[i] = strconv.FormatUint(v, 10)
		}
		_, err = fd.WriteString(strings.Join(elems, " ") + "\n")
		if err != nil {
			return err
		}
	}
	return nil
}

func generatePlotScript(outputDir string, component string, g world.Grouping, kind string, m *world.Matrix) (string, error) {
	plotScriptFile := GetScriptFilePath(outputDir, component, g, kind)
	fd, err := os.Create(plotScriptFile)
	if err != nil {
		return "", err
	}
	defer fd.Close()

	_, err = fd.WriteString(plotScriptPrelude)
	if err != nil {
		return "", err
	}
	_, err = fd.WriteString(fmt.Sprintf("set output \"%s\"\n\n", filepath.Base(GetImageFilePath(outputDir, component, g, kind))))
	if err != nil {
		return "", err
	}
	_, err = fd.WriteString(fmt.Sprintf("set title \"%s %s by %s\"\nset xlabel \"receiver\"\nset ylabel \"sender\"\n", component, kind, g))
	if err != nil {
		return "", err
	}
	// Sender 0 goes to the top row, the way the matrix is printed
	_, err = fd.WriteString("set yrange [*:*] reverse\n")
	if err != nil {
		return "", err
	}
	if max := m.Max(); max > 0 {
		_, err = fd.WriteString(fmt.Sprintf("set cbrange [0:%d]\n", max))
		if err != nil {
			return "", err
		}
	}
	_, err = fd.WriteString(fmt.Sprintf("\nplot \"%s\" matrix with image notitle\n", filepath.Base(GetDataFilePath(outputDir, component, g, kind))))
	if err != nil {
		return "", err
	}

	return plotScriptFile, nil
}

// WriteMatrixData emits the matrix data file and the gnuplot script turning
// it into a heat map, and returns the path to the script
func WriteMatrixData(component string, g world.Grouping, kind string, m *world.Matrix, outputDir string) (string, error) {
	err := writeDataFile(GetDataFilePath(outputDir, component, g, kind), m)
	if err != nil {
		return "", err
	}
	return generatePlotScript(outputDir, component, g, kind, m)
}

// Generate renders the heat map of one matrix under outputDir. The gnuplot
// binary must be installed.
func Generate(component string, g world.Grouping, kind string, m *world.Matrix, outputDir string) error {
	gnuplotScript, err := WriteMatrixData(component, g, kind, m, outputDir)
	if err != nil {
		return err
	}

	// Run gnuplot
	gnuplotBin, err := exec.LookPath("gnuplot")
	if err != nil {
		return fmt.Errorf("gnuplot is not installed: %w", err)
	}

	dataPlotScript, err := os.ReadFile(gnuplotScript)
	if err != nil {
		return err
	}

	cmd := exec.Command(gnuplotBin)
	cmd.Dir = outputDir
	cmd.Stdin = bytes.NewBuffer(dataPlotScript)
	err = cmd.Run()
	if err != nil {
		return err
	}

	return nil
}
