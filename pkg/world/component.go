//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package world

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

// Grouping selects the locality level a component's matrices are viewed at
type Grouping int

const (
	// ByRank is the native per-process level
	ByRank Grouping = iota
	// ByCore groups ranks sharing a hardware core
	ByCore
	// ByNuma groups ranks sharing a NUMA domain
	ByNuma
	// BySocket groups ranks sharing a CPU socket
	BySocket
	// ByNode groups ranks sharing a compute node
	ByNode
)

// Groupings lists all grouping levels in display order
var Groupings = []Grouping{ByRank, ByCore, ByNuma, BySocket, ByNode}

func (g Grouping) String() string {
	switch g {
	case ByRank:
		return "rank"
	case ByCore:
		return "core"
	case ByNuma:
		return "numa"
	case BySocket:
		return "socket"
	case ByNode:
		return "node"
	}
	return "unknown"
}

// ParseGrouping converts a grouping token into a Grouping
func ParseGrouping(token string) (Grouping, error) {
	for _, g := range Groupings {
		if g.String() == token {
			return g, nil
		}
	}
	return 0, errors.Lookupf("grouping %q is not one of rank/core/numa/socket/node", token)
}

// ComponentData aggregates everything one component (one profiled subsystem,
// e.g. a MTL) sent during the run. The rank-level matrices are always
// present; the locality-level ones are nil when the corresponding locality
// kind could not be resolved.
type ComponentData struct {
	Name           string
	ByRank         *GroupedMatrices
	ByCore         *GroupedMatrices
	ByNuma         *GroupedMatrices
	BySocket       *GroupedMatrices
	ByNode         *GroupedMatrices
	TotalBytesSent uint64
	TotalMsgsSent  uint64

	world     *Data
	sizeCache *lru.Cache
	tagCache  *lru.Cache
}

func newComponentData(name string, numProcs int, w *Data) (*ComponentData, error) {
	sizeCache, err := lru.New(w.cfg.TableCacheSize)
	if err != nil {
		return nil, err
	}
	tagCache, err := lru.New(w.cfg.TableCacheSize)
	if err != nil {
		return nil, err
	}
	return &ComponentData{
		Name:      name,
		ByRank:    NewGroupedMatrices(numProcs),
		world:     w,
		sizeCache: sizeCache,
		tagCache:  tagCache,
	}, nil
}

// ByGrouping returns the matrices at the requested grouping level. Asking
// for a level whose locality kind was absent from the dataset is a lookup
// error, never a silent fallback to rank-level data.
func (c *ComponentData) ByGrouping(g Grouping) (*GroupedMatrices, error) {
	var m *GroupedMatrices
	switch g {
	case ByRank:
		m = c.ByRank
	case ByCore:
		m = c.ByCore
	case ByNuma:
		m = c.ByNuma
	case BySocket:
		m = c.BySocket
	case ByNode:
		m = c.ByNode
	default:
		return nil, errors.Lookupf("grouping %q is not one of rank/core/numa/socket/node", g)
	}
	if m == nil {
		return nil, errors.Lookupf("no data available for grouping %s of component %s", g, c.Name)
	}
	return m, nil
}

// Sizes returns rank's message size table for this component, computing it
// from the rank's file on first access and keeping it in a bounded LRU
// cache afterwards
func (c *ComponentData) Sizes(rank int) (*SizeData, error) {
	if cached, ok := c.sizeCache.Get(rank); ok {
		return cached.(*SizeData), nil
	}
	rf, err := c.world.OpenRank(rank)
	if err != nil {
		return nil, err
	}
	d := sizeDataFromFile(rf, c.Name)
	c.sizeCache.Add(rank, d)
	return d, nil
}

// Tags returns rank's tag table for this component, computing it from the
// rank's file on first access and keeping it in a bounded LRU cache
// afterwards
func (c *ComponentData) Tags(rank int) (*TagData, error) {
	if cached, ok := c.tagCache.Get(rank); ok {
		return cached.(*TagData), nil
	}
	rf, err := c.world.OpenRank(rank)
	if err != nil {
		return nil, err
	}
	d := tagDataFromFile(rf, c.Name)
	c.tagCache.Add(rank, d)
	return d, nil
}
