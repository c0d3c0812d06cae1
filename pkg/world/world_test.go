//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package world

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/rankfile"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

const twoRankHeader = `
[general]
own_rank = %d
num_procs = 2
wall_time = %d
hostname = "n0"
mpi_runtime = "Open MPI v4.1.5"
localities = [
    { locality = "node", peers = [0, 1] },
    { locality = "NUMA", peers = ["0-1"] },
]
`

const twoRankSender = `
[peer.1]
components = ["mtl"]
[peer.1.sent_count]
mtl = 7
[[peer.1.sent_messages.mtl]]
callsite = 140
[[peer.1.sent_messages.mtl.msgs]]
size = 64
tags = [[7, 3]]
[[peer.1.sent_messages.mtl.msgs]]
size = 128
tags = [[9, 2]]
`

func writeWorld(t *testing.T, docs ...string) string {
	t.Helper()
	dir := t.TempDir()
	for rank, doc := range docs {
		require.NoError(t, os.WriteFile(rankfile.FilePath(dir, rank), []byte(doc), 0644))
	}
	return dir
}

// twoRankWorld writes the canonical fixture: rank 0 sends the mtl component
// 3 messages of size 64 (tag 7) and 2 of size 128 (tag 9) to rank 1, while
// declaring a counter of 7; rank 1 sends nothing.
func twoRankWorld(t *testing.T) string {
	t.Helper()
	return writeWorld(t,
		fmt.Sprintf(twoRankHeader, 0, 2000000000)+twoRankSender,
		fmt.Sprintf(twoRankHeader, 1, 1500000999),
	)
}

func TestOpenTwoRanks(t *testing.T) {
	d, err := Open(twoRankWorld(t))
	require.NoError(t, err)

	require.Equal(t, 2, d.Meta.NumProcesses)
	require.Equal(t, "Open MPI v4.1.5", d.Meta.MPIRuntime)
	require.Equal(t, [3]int{4, 1, 5}, d.Meta.Version)
	require.Equal(t, []string{"mtl"}, d.Meta.Components)
	require.Equal(t, 1, d.Meta.NumNodes)
	require.Equal(t, 1, d.Meta.NumNuma)
	require.Equal(t, -1, d.Meta.NumCores)
	require.Equal(t, -1, d.Meta.NumSockets)
	require.Equal(t, [][]int{{0, 1}}, d.Groups(ByNode))
	require.Nil(t, d.Groups(ByCore))
	require.Nil(t, d.Groups(ByRank))
	require.Equal(t, 2*time.Second, d.WallTime)

	mtl, err := d.Component("mtl")
	require.NoError(t, err)

	require.Equal(t, []uint64{0, 448}, mtl.ByRank.BytesSent.Row(0))
	require.Equal(t, []uint64{0, 0}, mtl.ByRank.BytesSent.Row(1))
	require.Equal(t, uint64(448), mtl.TotalBytesSent)

	// the message count is the declared counter, not the 3+2 the size
	// entries add up to
	require.Equal(t, uint64(7), mtl.ByRank.MsgsSent.At(0, 1))
	require.Equal(t, uint64(7), mtl.TotalMsgsSent)
	sizes, err := mtl.Sizes(0)
	require.NoError(t, err)
	var derived uint64
	for _, row := range sizes.Data {
		for _, v := range row {
			derived += v
		}
	}
	require.Equal(t, uint64(5), derived)

	_, err = d.Component("btl")
	require.Error(t, err)
	require.True(t, errors.IsLookup(err))
}

func TestSizeAndTagTables(t *testing.T) {
	d, err := Open(twoRankWorld(t))
	require.NoError(t, err)
	mtl, err := d.Component("mtl")
	require.NoError(t, err)

	sizes, err := mtl.Sizes(0)
	require.NoError(t, err)
	require.Equal(t, 0, sizes.Rank)
	require.Equal(t, []int{1}, sizes.Peers)
	require.Equal(t, []uint64{64, 128}, sizes.OccurringSizes)
	require.Equal(t, [][]uint64{{3, 2}}, sizes.Data)

	tags, err := mtl.Tags(0)
	require.NoError(t, err)
	require.Equal(t, []int{1}, tags.Peers)
	require.Equal(t, []int64{7, 9}, tags.OccurringTags)
	require.Equal(t, [][]uint64{{3, 2}}, tags.Data)

	// rank 1 sent nothing
	sizes1, err := mtl.Sizes(1)
	require.NoError(t, err)
	require.Empty(t, sizes1.Peers)
	require.Empty(t, sizes1.OccurringSizes)
	require.Empty(t, sizes1.Data)

	_, err = mtl.Sizes(5)
	require.Error(t, err)
	require.True(t, errors.IsLookup(err))
	_, err = mtl.Tags(-1)
	require.Error(t, err)
	require.True(t, errors.IsLookup(err))
}

func TestByGrouping(t *testing.T) {
	d, err := Open(twoRankWorld(t))
	require.NoError(t, err)
	mtl, err := d.Component("mtl")
	require.NoError(t, err)

	rankLevel, err := mtl.ByGrouping(ByRank)
	require.NoError(t, err)
	require.Same(t, mtl.ByRank, rankLevel)

	nodeLevel, err := mtl.ByGrouping(ByNode)
	require.NoError(t, err)
	require.Equal(t, 1, nodeLevel.MsgsSent.Size())
	require.Equal(t, uint64(7), nodeLevel.MsgsSent.At(0, 0))
	require.Equal(t, uint64(448), nodeLevel.BytesSent.At(0, 0))

	numaLevel, err := mtl.ByGrouping(ByNuma)
	require.NoError(t, err)
	require.Equal(t, uint64(448), numaLevel.BytesSent.At(0, 0))

	// no rank claimed core or socket membership
	_, err = mtl.ByGrouping(ByCore)
	require.Error(t, err)
	require.True(t, errors.IsLookup(err))
	_, err = mtl.ByGrouping(BySocket)
	require.Error(t, err)
}

func TestRecordCache(t *testing.T) {
	dir := twoRankWorld(t)

	cached, err := OpenWithConfig(dir, Config{CacheThreshold: 3})
	require.NoError(t, err)
	a, err := cached.OpenRank(1)
	require.NoError(t, err)
	b, err := cached.OpenRank(1)
	require.NoError(t, err)
	require.Same(t, a, b)

	// at the threshold the cache is off
	uncached, err := OpenWithConfig(dir, Config{CacheThreshold: 2})
	require.NoError(t, err)
	a, err = uncached.OpenRank(1)
	require.NoError(t, err)
	b, err = uncached.OpenRank(1)
	require.NoError(t, err)
	require.NotSame(t, a, b)

	// rank 0 stays pinned even with the cache disabled
	r0a, err := uncached.OpenRank(0)
	require.NoError(t, err)
	r0b, err := uncached.OpenRank(0)
	require.NoError(t, err)
	require.Same(t, r0a, r0b)

	_, err = uncached.OpenRank(2)
	require.Error(t, err)
	require.True(t, errors.IsLookup(err))
}

func TestTableCacheEviction(t *testing.T) {
	d, err := OpenWithConfig(twoRankWorld(t), Config{TableCacheSize: 1})
	require.NoError(t, err)
	mtl, err := d.Component("mtl")
	require.NoError(t, err)

	first, err := mtl.Sizes(0)
	require.NoError(t, err)
	again, err := mtl.Sizes(0)
	require.NoError(t, err)
	require.Same(t, first, again)

	// filling the single slot with rank 1 evicts rank 0's table
	_, err = mtl.Sizes(1)
	require.NoError(t, err)
	recomputed, err := mtl.Sizes(0)
	require.NoError(t, err)
	require.NotSame(t, first, recomputed)
	require.Equal(t, first, recomputed)
}

func TestOpenErrors(t *testing.T) {
	t.Run("missing rank file", func(t *testing.T) {
		dir := writeWorld(t, fmt.Sprintf(twoRankHeader, 0, 100)+twoRankSender)
		_, err := Open(dir)
		require.Error(t, err)
		require.Contains(t, err.Error(), dir)
	})

	t.Run("own rank mismatch", func(t *testing.T) {
		dir := writeWorld(t,
			fmt.Sprintf(twoRankHeader, 0, 100),
			fmt.Sprintf(twoRankHeader, 0, 100),
		)
		_, err := Open(dir)
		require.Error(t, err)
		require.True(t, errors.IsValidation(err))
	})

	t.Run("malformed rank file", func(t *testing.T) {
		dir := writeWorld(t, fmt.Sprintf(twoRankHeader, 0, 100), "[general\n")
		_, err := Open(dir)
		require.Error(t, err)
		require.True(t, errors.IsDecode(err))
		require.Contains(t, err.Error(), rankfile.FileName(1))
	})

	t.Run("asymmetric locality", func(t *testing.T) {
		rank0 := `
[general]
own_rank = 0
num_procs = 2
wall_time = 100
hostname = "n0"
mpi_runtime = "x"
localities = [{ locality = "NUMA", peers = [0] }]
`
		rank1 := `
[general]
own_rank = 1
num_procs = 2
wall_time = 100
hostname = "n0"
mpi_runtime = "x"
localities = [{ locality = "NUMA", peers = [0, 1] }]
`
		dir := writeWorld(t, rank0, rank1)
		_, err := Open(dir)
		require.Error(t, err)
		require.True(t, errors.IsValidation(err))
	})
}

func TestComponentDiscoveryUnion(t *testing.T) {
	// "counted" appears only in sent_count, "logged" only in sent_messages;
	// both must be discovered
	rank0 := `
[general]
own_rank = 0
num_procs = 2
wall_time = 100
hostname = "n0"
mpi_runtime = "x"

[peer.1]
components = ["counted", "logged"]
[peer.1.sent_count]
counted = 4
[[peer.1.sent_messages.logged]]
callsite = 9
[[peer.1.sent_messages.logged.msgs]]
size = 32
tags = [[1, 2]]
`
	rank1 := `
[general]
own_rank = 1
num_procs = 2
wall_time = 100
hostname = "n0"
mpi_runtime = "x"
`
	d, err := Open(writeWorld(t, rank0, rank1))
	require.NoError(t, err)
	require.Equal(t, []string{"counted", "logged"}, d.Meta.Components)

	counted, err := d.Component("counted")
	require.NoError(t, err)
	require.Equal(t, uint64(4), counted.ByRank.MsgsSent.At(0, 1))
	require.Equal(t, uint64(0), counted.ByRank.BytesSent.At(0, 1))

	logged, err := d.Component("logged")
	require.NoError(t, err)
	require.Equal(t, uint64(0), logged.ByRank.MsgsSent.At(0, 1))
	require.Equal(t, uint64(64), logged.ByRank.BytesSent.At(0, 1))
	require.Equal(t, uint64(0), logged.TotalMsgsSent)
	require.Equal(t, uint64(64), logged.TotalBytesSent)
}

func TestParseRuntimeVersion(t *testing.T) {
	tests := []struct {
		runtime  string
		expected [3]int
	}{
		{runtime: "Open MPI v4.1.5", expected: [3]int{4, 1, 5}},
		{runtime: "MPICH 3.4", expected: [3]int{0, 0, 0}},
		{runtime: "foo 1.2.3 bar 9.8.7", expected: [3]int{9, 8, 7}},
		{runtime: "", expected: [3]int{0, 0, 0}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, parseRuntimeVersion(tt.runtime), tt.runtime)
	}
}
