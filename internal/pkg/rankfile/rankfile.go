//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package rankfile decodes the per-rank communication counter dumps written
// by a profiled MPI run, one TOML document per rank.
package rankfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/notation"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

// Kind identifies a hardware locality level a rank can report membership for
type Kind int

const (
	// Core is the hardware core locality level
	Core Kind = iota
	// Socket is the CPU socket locality level
	Socket
	// Numa is the NUMA domain locality level
	Numa
	// Node is the compute node locality level
	Node
)

// Kinds lists all locality levels in resolution order
var Kinds = []Kind{Core, Socket, Numa, Node}

// String returns the token used for the kind in rank files
func (k Kind) String() string {
	switch k {
	case Core:
		return "hwcore"
	case Socket:
		return "socket"
	case Numa:
		return "NUMA"
	case Node:
		return "node"
	}
	return "unknown"
}

// ParseKind converts a rank file locality token into a Kind
func ParseKind(token string) (Kind, error) {
	switch token {
	case "hwcore":
		return Core, nil
	case "socket":
		return Socket, nil
	case "NUMA":
		return Numa, nil
	case "node":
		return Node, nil
	}
	return 0, fmt.Errorf("unknown locality kind %q", token)
}

// Locality is one locality membership claim: the set of ranks sharing the
// claiming rank's group at the given level, self included. Peers is sorted
// and duplicate-free.
type Locality struct {
	Kind  Kind
	Peers []int
}

// SizeEntry records how often each tag was used for messages of one size at
// one callsite
type SizeEntry struct {
	Size uint64
	Tags map[int64]uint64
}

// Callsite groups the message size entries recorded at one call location
type Callsite struct {
	ID   int
	Msgs []SizeEntry
}

// Peer holds everything one rank recorded about its traffic towards a single
// peer rank
type Peer struct {
	Components   []string
	SentCount    map[string]uint64
	SentMessages map[string][]Callsite
}

// General is the metadata section of a rank file. WallTime is in
// nanoseconds, as written by the profiler.
type General struct {
	OwnRank    int
	NumProcs   int
	WallTime   int64
	Hostname   string
	MPIRuntime string
	Localities []Locality
}

// File is one fully decoded rank counter document
type File struct {
	General General
	Peers   map[int]*Peer
}

// PeerRanks returns the ranks this file records traffic for, in ascending
// order
func (f *File) PeerRanks() []int {
	ranks := make([]int, 0, len(f.Peers))
	for rank := range f.Peers {
		ranks = append(ranks, rank)
	}
	sort.Ints(ranks)
	return ranks
}

// FileName returns the file name the profiler uses for a rank's counter dump
func FileName(rank int) string {
	return fmt.Sprintf("pc_data_%d.toml", rank)
}

// FilePath returns the full path of a rank's counter dump inside dir
func FilePath(dir string, rank int) string {
	return filepath.Join(dir, FileName(rank))
}

type wireFile struct {
	General wireGeneral         `toml:"general"`
	Peers   map[string]wirePeer `toml:"peer"`
}

type wireGeneral struct {
	OwnRank    int64          `toml:"own_rank"`
	NumProcs   int64          `toml:"num_procs"`
	WallTime   int64          `toml:"wall_time"`
	Hostname   string         `toml:"hostname"`
	MPIRuntime string         `toml:"mpi_runtime"`
	Localities []wireLocality `toml:"localities"`
}

type wireLocality struct {
	Locality string        `toml:"locality"`
	Peers    []interface{} `toml:"peers"`
}

type wirePeer struct {
	Components   []string                  `toml:"components"`
	SentCount    map[string]int64          `toml:"sent_count"`
	SentMessages map[string][]wireCallsite `toml:"sent_messages"`
}

type wireCallsite struct {
	Callsite int64           `toml:"callsite"`
	Msgs     []wireSizeEntry `toml:"msgs"`
}

type wireSizeEntry struct {
	Size int64     `toml:"size"`
	Tags [][]int64 `toml:"tags"`
}

var requiredGeneralKeys = []string{"own_rank", "num_procs", "wall_time", "hostname", "mpi_runtime"}

var requiredPeerKeys = []string{"components", "sent_count", "sent_messages"}

func (w *wireLocality) toLocality(numProcs int) (Locality, error) {
	kind, err := ParseKind(w.Locality)
	if err != nil {
		return Locality{}, err
	}
	var peers []int
	for _, raw := range w.Peers {
		switch v := raw.(type) {
		case int64:
			if v < 0 {
				return Locality{}, fmt.Errorf("invalid %s peer %d", kind, v)
			}
			peers = append(peers, int(v))
		case string:
			expanded, err := notation.ConvertCompressedNotationToIntSlice(v)
			if err != nil {
				return Locality{}, fmt.Errorf("%s peers: %w", kind, err)
			}
			peers = append(peers, expanded...)
		default:
			return Locality{}, fmt.Errorf("invalid %s peer %v", kind, raw)
		}
	}
	sort.Ints(peers)
	j := 0
	for i := 0; i < len(peers); i++ {
		if i == 0 || peers[i] != peers[i-1] {
			peers[j] = peers[i]
			j++
		}
	}
	peers = peers[:j]
	if len(peers) > 0 && peers[len(peers)-1] >= numProcs {
		return Locality{}, fmt.Errorf("%s peer %d out of range for %d processes", kind, peers[len(peers)-1], numProcs)
	}
	return Locality{Kind: kind, Peers: peers}, nil
}

func (w *wireCallsite) toCallsite() (Callsite, error) {
	c := Callsite{ID: int(w.Callsite)}
	for _, wm := range w.Msgs {
		if wm.Size < 0 {
			return Callsite{}, fmt.Errorf("negative message size %d at callsite %d", wm.Size, w.Callsite)
		}
		entry := SizeEntry{Size: uint64(wm.Size), Tags: make(map[int64]uint64, len(wm.Tags))}
		for _, pair := range wm.Tags {
			if len(pair) != 2 {
				return Callsite{}, fmt.Errorf("malformed tag pair %v at callsite %d", pair, w.Callsite)
			}
			if pair[1] < 0 {
				return Callsite{}, fmt.Errorf("negative count for tag %d at callsite %d", pair[0], w.Callsite)
			}
			// A tag repeated within one entry keeps the last pair
			entry.Tags[pair[0]] = uint64(pair[1])
		}
		c.Msgs = append(c.Msgs, entry)
	}
	return c, nil
}

func (w *wirePeer) toPeer() (*Peer, error) {
	p := &Peer{
		Components:   w.Components,
		SentCount:    make(map[string]uint64, len(w.SentCount)),
		SentMessages: make(map[string][]Callsite, len(w.SentMessages)),
	}
	for component, n := range w.SentCount {
		if n < 0 {
			return nil, fmt.Errorf("negative sent_count %d for component %s", n, component)
		}
		p.SentCount[component] = uint64(n)
	}
	for component, sites := range w.SentMessages {
		callsites := make([]Callsite, 0, len(sites))
		for _, ws := range sites {
			c, err := ws.toCallsite()
			if err != nil {
				return nil, fmt.Errorf("component %s: %w", component, err)
			}
			callsites = append(callsites, c)
		}
		p.SentMessages[component] = callsites
	}
	return p, nil
}

func (w *wireFile) toFile() (*File, error) {
	g := w.General
	if g.NumProcs < 1 {
		return nil, fmt.Errorf("invalid num_procs %d", g.NumProcs)
	}
	if g.OwnRank < 0 || g.OwnRank >= g.NumProcs {
		return nil, fmt.Errorf("own_rank %d out of range for %d processes", g.OwnRank, g.NumProcs)
	}
	if g.WallTime < 0 {
		return nil, fmt.Errorf("negative wall_time %d", g.WallTime)
	}
	f := &File{
		General: General{
			OwnRank:    int(g.OwnRank),
			NumProcs:   int(g.NumProcs),
			WallTime:   g.WallTime,
			Hostname:   g.Hostname,
			MPIRuntime: g.MPIRuntime,
		},
		Peers: make(map[int]*Peer),
	}
	for _, wl := range g.Localities {
		l, err := wl.toLocality(f.General.NumProcs)
		if err != nil {
			return nil, err
		}
		f.General.Localities = append(f.General.Localities, l)
	}
	for id, wp := range w.Peers {
		rank, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("invalid peer id %q", id)
		}
		if rank < 0 || rank >= f.General.NumProcs {
			return nil, fmt.Errorf("peer %d out of range for %d processes", rank, f.General.NumProcs)
		}
		p, err := wp.toPeer()
		if err != nil {
			return nil, fmt.Errorf("peer %d: %w", rank, err)
		}
		f.Peers[rank] = p
	}
	return f, nil
}

func decode(raw string) (*File, error) {
	var w wireFile
	md, err := toml.Decode(raw, &w)
	if err != nil {
		return nil, err
	}
	for _, key := range requiredGeneralKeys {
		if !md.IsDefined("general", key) {
			return nil, fmt.Errorf("missing required key general.%s", key)
		}
	}
	for id := range w.Peers {
		for _, key := range requiredPeerKeys {
			if !md.IsDefined("peer", id, key) {
				return nil, fmt.Errorf("missing required key peer.%s.%s", id, key)
			}
		}
	}
	return w.toFile()
}

// Decode parses one rank counter document
func Decode(raw []byte) (*File, error) {
	f, err := decode(string(raw))
	if err != nil {
		return nil, errors.NewDecode("", err)
	}
	return f, nil
}

// Load reads and decodes the rank file at path. Read failures are returned
// as is so callers can distinguish a missing file from a malformed one.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := decode(string(raw))
	if err != nil {
		return nil, errors.NewDecode(path, err)
	}
	return f, nil
}
