//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package hash fingerprints profiler datasets so two copies of a run
// can be compared without diffing every rank file.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/rankfile"
)

// File returns the hex-encoded sha256 digest of a file.
func File(path string) (string, error) {
	fileFd, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fileFd.Close()
	hasher := sha256.New()
	_, err = io.Copy(hasher, fileFd)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Dataset digests every rank file of a dataset in rank order and
// returns the sha256 of the concatenated per-file digests. Two
// datasets with the same fingerprint hold byte-identical rank files.
func Dataset(dir string, numProcs int) (string, error) {
	hasher := sha256.New()
	for rank := 0; rank < numProcs; rank++ {
		digest, err := File(rankfile.FilePath(dir, rank))
		if err != nil {
			return "", err
		}
		_, err = hasher.Write([]byte(digest))
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
