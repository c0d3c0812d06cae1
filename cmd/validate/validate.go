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

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/hash"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/locality"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/rankfile"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
	"github.com/gvallee/go_util/pkg/util"
)

func checkRankFile(rf *rankfile.File, rank int, numProcs int) error {
	if rf.General.OwnRank != rank {
		return errors.Validationf([]int{rank}, "rank file declares own_rank %d", rf.General.OwnRank)
	}
	if rf.General.NumProcs != numProcs {
		return errors.Validationf([]int{rank}, "rank file declares %d processes instead of %d", rf.General.NumProcs, numProcs)
	}
	for _, peer := range rf.PeerRanks() {
		if peer < 0 || peer >= numProcs {
			return errors.Validationf([]int{rank}, "peer %d out of range for %d processes", peer, numProcs)
		}
	}
	return nil
}

// validateDataset checks every rank file of a profiler run: each file must
// decode, carry the rank its name announces, agree on the process count and
// only reference peers inside the world. The locality claims of all files
// must then resolve into consistent groups.
func validateDataset(dir string) (int, error) {
	rf0, err := rankfile.Load(rankfile.FilePath(dir, 0))
	if err != nil {
		return 0, err
	}
	numProcs := rf0.General.NumProcs
	log.Printf("%d rank files to check in %s", numProcs, dir)

	claims := make([][]rankfile.Locality, 0, numProcs)
	for rank := 0; rank < numProcs; rank++ {
		fmt.Printf("- Checking %s...", rankfile.FileName(rank))
		rf := rf0
		if rank > 0 {
			rf, err = rankfile.Load(rankfile.FilePath(dir, rank))
			if err != nil {
				fmt.Println(" failed")
				return 0, err
			}
		}
		err = checkRankFile(rf, rank, numProcs)
		if err != nil {
			fmt.Println(" failed")
			return 0, err
		}
		fmt.Println(" ok")
		claims = append(claims, rf.General.Localities)
	}

	for _, kind := range rankfile.Kinds {
		fmt.Printf("- Checking %s localities...", kind)
		_, err = locality.Resolve(claims, kind)
		if err != nil {
			fmt.Println(" failed")
			return 0, err
		}
		fmt.Println(" ok")
	}

	return numProcs, nil
}

// printDigests prints the sha256 digest of every rank file along with the
// fingerprint of the whole dataset.
func printDigests(dir string, numProcs int) error {
	for rank := 0; rank < numProcs; rank++ {
		digest, err := hash.File(rankfile.FilePath(dir, rank))
		if err != nil {
			return err
		}
		fmt.Printf("sha256 (%s) = %s\n", rankfile.FileName(rank), digest)
	}
	fingerprint, err := hash.Dataset(dir, numProcs)
	if err != nil {
		return err
	}
	fmt.Printf("Dataset fingerprint: %s\n", fingerprint)
	return nil
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose mode")
	dir := flag.String("dir", "", "Directory of the rank counter files to validate")
	digest := flag.Bool("digest", false, "Print the sha256 digest of every rank file and the dataset fingerprint")
	help := flag.Bool("h", false, "Help message")

	flag.Parse()

	cmdName := filepath.Base(os.Args[0])
	if *help {
		fmt.Printf("%s validates a directory of point-to-point counter files", cmdName)
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

	numProcs, err := validateDataset(*dir)
	if err != nil {
		fmt.Printf("Validation of the counter files failed: %s\n", err)
		os.Exit(1)
	}

	if *digest {
		err = printDigests(*dir, numProcs)
		if err != nil {
			fmt.Printf("Unable to compute the dataset digests: %s\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("Successful validation")
}
