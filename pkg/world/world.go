//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package world loads a directory of per-rank counter dumps and aggregates
// them into queryable per-component communication matrices and per-rank
// size/tag tables.
package world

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/locality"
	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/rankfile"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

const (
	// DefaultCacheThreshold is the process count at and above which decoded
	// rank files are no longer kept in memory between accesses
	DefaultCacheThreshold = 500

	// DefaultTableCacheSize is the per-component capacity of the derived
	// size/tag table caches
	DefaultTableCacheSize = 32
)

// Config tunes the memory/latency trade-offs of a world. The zero value of
// a field selects its default; set CacheThreshold negative to always
// re-read rank files from disk.
type Config struct {
	CacheThreshold int
	TableCacheSize int
}

// DefaultConfig returns the configuration Open uses
func DefaultConfig() Config {
	return Config{
		CacheThreshold: DefaultCacheThreshold,
		TableCacheSize: DefaultTableCacheSize,
	}
}

// Meta describes the run as a whole. The locality group counts are -1 when
// the corresponding locality kind was absent from the rank files.
type Meta struct {
	NumProcesses int
	MPIRuntime   string
	Version      [3]int
	SourceDir    string
	NumNodes     int
	NumCores     int
	NumNuma      int
	NumSockets   int
	Components   []string
}

// Data is the aggregated view over one directory of rank files. Instances
// are built by Open and are read-only afterwards.
type Data struct {
	Meta       Meta
	WallTime   time.Duration
	Components map[string]*ComponentData

	cfg    Config
	rank0  *rankfile.File
	cache  map[int]*rankfile.File
	groups map[Grouping][][]int
}

// Open loads and aggregates the rank files in dir with the default
// configuration
func Open(dir string) (*Data, error) {
	return OpenWithConfig(dir, DefaultConfig())
}

// OpenWithConfig loads and aggregates the rank files in dir. Any decode or
// validation failure aborts the whole load; partial aggregates are never
// returned.
func OpenWithConfig(dir string, cfg Config) (*Data, error) {
	if cfg.CacheThreshold == 0 {
		cfg.CacheThreshold = DefaultCacheThreshold
	}
	if cfg.TableCacheSize <= 0 {
		cfg.TableCacheSize = DefaultTableCacheSize
	}
	d := &Data{cfg: cfg}
	if err := d.parseMetadata(dir); err != nil {
		return nil, fmt.Errorf("unable to load world data from %s: %w", dir, err)
	}
	if err := d.parseRanks(); err != nil {
		return nil, fmt.Errorf("unable to load world data from %s: %w", dir, err)
	}
	return d, nil
}

// Component returns the aggregate for one component name
func (d *Data) Component(name string) (*ComponentData, error) {
	c, ok := d.Components[name]
	if !ok {
		return nil, errors.Lookupf("component %q does not exist in data", name)
	}
	return c, nil
}

// Groups returns the resolved rank groups of one locality level, nil when
// the level was absent from the rank files. ByRank has no stored grouping
// since every rank is its own group.
func (d *Data) Groups(g Grouping) [][]int {
	return d.groups[g]
}

// OpenRank returns the decoded file of one rank, served from the record
// cache when enabled. Rank 0 is always served from memory since it
// bootstraps the world metadata.
func (d *Data) OpenRank(rank int) (*rankfile.File, error) {
	if rank < 0 || rank >= d.Meta.NumProcesses {
		return nil, errors.Lookupf("rank %d out of range for %d processes", rank, d.Meta.NumProcesses)
	}
	if rank == 0 && d.rank0 != nil {
		return d.rank0, nil
	}
	if d.cache != nil {
		if rf, ok := d.cache[rank]; ok {
			return rf, nil
		}
	}
	rf, err := rankfile.Load(rankfile.FilePath(d.Meta.SourceDir, rank))
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		d.cache[rank] = rf
	}
	return rf, nil
}

// parseMetadata bootstraps the world from rank 0's file: process count,
// runtime identification and the record cache decision.
func (d *Data) parseMetadata(dir string) error {
	d.Meta = Meta{
		SourceDir:  dir,
		NumNodes:   -1,
		NumCores:   -1,
		NumNuma:    -1,
		NumSockets: -1,
	}
	rf0, err := rankfile.Load(rankfile.FilePath(dir, 0))
	if err != nil {
		return err
	}
	d.rank0 = rf0
	d.Meta.NumProcesses = rf0.General.NumProcs
	d.Meta.MPIRuntime = rf0.General.MPIRuntime
	d.Meta.Version = parseRuntimeVersion(rf0.General.MPIRuntime)
	if d.Meta.NumProcesses < d.cfg.CacheThreshold {
		d.cache = map[int]*rankfile.File{0: rf0}
	}
	return nil
}

// parseRanks runs the two aggregation passes. Pass 1 collects the wall
// time, the component set and every rank's locality claims; pass 2
// accumulates the per-component matrices. Localities are resolved in
// between, since regrouping needs them only after accumulation.
func (d *Data) parseRanks() error {
	n := d.Meta.NumProcesses
	var wallTime int64
	componentSet := make(map[string]struct{})
	claims := make([][]rankfile.Locality, 0, n)

	for rank := 0; rank < n; rank++ {
		rf, err := d.OpenRank(rank)
		if err != nil {
			return err
		}
		if rf.General.OwnRank != rank {
			return errors.Validationf([]int{rank}, "rank file declares own_rank %d", rf.General.OwnRank)
		}
		if rf.General.WallTime > wallTime {
			wallTime = rf.General.WallTime
		}
		claims = append(claims, rf.General.Localities)
		for _, peer := range rf.Peers {
			for component := range peer.SentCount {
				componentSet[component] = struct{}{}
			}
			for component := range peer.SentMessages {
				componentSet[component] = struct{}{}
			}
		}
	}
	d.WallTime = time.Duration(wallTime/1000) * time.Microsecond
	d.Meta.Components = make([]string, 0, len(componentSet))
	for component := range componentSet {
		d.Meta.Components = append(d.Meta.Components, component)
	}
	sort.Strings(d.Meta.Components)

	nodeGroups, err := locality.Resolve(claims, rankfile.Node)
	if err != nil {
		return err
	}
	numaGroups, err := locality.Resolve(claims, rankfile.Numa)
	if err != nil {
		return err
	}
	socketGroups, err := locality.Resolve(claims, rankfile.Socket)
	if err != nil {
		return err
	}
	coreGroups, err := locality.Resolve(claims, rankfile.Core)
	if err != nil {
		return err
	}
	d.Meta.NumNodes = groupCount(nodeGroups)
	d.Meta.NumNuma = groupCount(numaGroups)
	d.Meta.NumSockets = groupCount(socketGroups)
	d.Meta.NumCores = groupCount(coreGroups)
	d.groups = map[Grouping][][]int{
		ByNode:   nodeGroups,
		ByNuma:   numaGroups,
		BySocket: socketGroups,
		ByCore:   coreGroups,
	}

	d.Components = make(map[string]*ComponentData, len(d.Meta.Components))
	for _, name := range d.Meta.Components {
		c, err := newComponentData(name, n, d)
		if err != nil {
			return err
		}
		d.Components[name] = c
	}

	for rank := 0; rank < n; rank++ {
		rf, err := d.OpenRank(rank)
		if err != nil {
			return err
		}
		sender := rf.General.OwnRank
		for _, name := range d.Meta.Components {
			c := d.Components[name]
			for _, receiver := range rf.PeerRanks() {
				if receiver >= n {
					return errors.Validationf([]int{sender}, "peer %d out of range for %d processes", receiver, n)
				}
				peer := rf.Peers[receiver]
				for _, callsite := range peer.SentMessages[name] {
					for _, msg := range callsite.Msgs {
						for _, occ := range msg.Tags {
							c.TotalBytesSent += occ * msg.Size
							c.ByRank.BytesSent.Add(sender, receiver, occ*msg.Size)
						}
					}
				}
				// The message count comes from the peer's declared counter,
				// not from the per-callsite log. The two sources are
				// captured independently and may legitimately diverge.
				declared := peer.SentCount[name]
				c.TotalMsgsSent += declared
				c.ByRank.MsgsSent.Set(sender, receiver, declared)
			}
		}
	}

	for _, c := range d.Components {
		c.ByNuma = c.ByRank.Regroup(numaGroups)
		c.BySocket = c.ByRank.Regroup(socketGroups)
		c.ByNode = c.ByRank.Regroup(nodeGroups)
		c.ByCore = c.ByRank.Regroup(coreGroups)
	}
	return nil
}

func groupCount(groups [][]int) int {
	if groups == nil {
		return -1
	}
	return len(groups)
}

var versionRegex = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// parseRuntimeVersion extracts the last x.y.z triple from the runtime
// identification string, zeros when there is none
func parseRuntimeVersion(runtime string) [3]int {
	var version [3]int
	matches := versionRegex.FindAllStringSubmatch(runtime, -1)
	if len(matches) == 0 {
		return version
	}
	m := matches[len(matches)-1]
	for i := 0; i < 3; i++ {
		version[i], _ = strconv.Atoi(m[i+1])
	}
	return version
}
