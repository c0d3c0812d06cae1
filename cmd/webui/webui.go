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
	"strconv"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/webui"
	"github.com/gvallee/go_util/pkg/util"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose mode")
	basedir := flag.String("basedir", "", "Base directory of the dataset")
	name := flag.String("name", "example", "Name of the dataset to display")
	port := flag.Int("port", webui.DefaultPort, "Port the webUI listens on")
	stop := flag.Bool("stop", false, "Terminate the webUI already running on the port instead of starting one")
	help := flag.Bool("h", false, "Help message")

	flag.Parse()

	cmdName := filepath.Base(os.Args[0])
	if *help {
		fmt.Printf("%s starts a Web-based user interface to explore a dataset", cmdName)
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

	if *stop {
		err := webui.RemoteStop("localhost", strconv.Itoa(*port))
		if err != nil {
			fmt.Printf("Unable to terminate the webUI: %s\n", err)
			os.Exit(1)
		}
		return
	}

	cfg := webui.Init()
	cfg.DatasetDir = *basedir
	cfg.Name = *name
	cfg.Port = *port

	err := cfg.Start()
	if err != nil {
		fmt.Printf("WebUI faced an internal error: %s\n", err)
		os.Exit(1)
	}
	fmt.Printf("WebUI is now running at http://localhost:%d\n", cfg.Port)
	cfg.Wait()
}
