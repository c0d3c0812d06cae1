//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package locality

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/rankfile"
	"github.com/gvallee/go_pt2pt_profiler/pkg/errors"
)

func claim(kind rankfile.Kind, peers ...int) rankfile.Locality {
	return rankfile.Locality{Kind: kind, Peers: peers}
}

func TestResolve(t *testing.T) {
	claims := [][]rankfile.Locality{
		{claim(rankfile.Node, 0, 1, 2, 3), claim(rankfile.Numa, 0, 1)},
		{claim(rankfile.Node, 0, 1, 2, 3), claim(rankfile.Numa, 0, 1)},
		{claim(rankfile.Node, 0, 1, 2, 3), claim(rankfile.Numa, 2, 3)},
		{claim(rankfile.Node, 0, 1, 2, 3), claim(rankfile.Numa, 2, 3)},
	}

	nodes, err := Resolve(claims, rankfile.Node)
	require.NoError(t, err)
	require.Equal(t, [][]int{{0, 1, 2, 3}}, nodes)

	numas, err := Resolve(claims, rankfile.Numa)
	require.NoError(t, err)
	require.Equal(t, [][]int{{0, 1}, {2, 3}}, numas)

	// no rank claims socket membership
	sockets, err := Resolve(claims, rankfile.Socket)
	require.NoError(t, err)
	require.Nil(t, sockets)
}

func TestResolvePartialClaims(t *testing.T) {
	// rank 1 reports no socket claim and is not reached through another
	// rank's group, so the axis is unavailable rather than inconsistent
	claims := [][]rankfile.Locality{
		{claim(rankfile.Socket, 0)},
		{},
	}
	groups, err := Resolve(claims, rankfile.Socket)
	require.NoError(t, err)
	require.Nil(t, groups)
}

func TestResolveAsymmetric(t *testing.T) {
	claims := [][]rankfile.Locality{
		{claim(rankfile.Numa, 0, 1)},
		{claim(rankfile.Numa, 0, 1, 2)},
		{claim(rankfile.Numa, 0, 1, 2)},
	}
	_, err := Resolve(claims, rankfile.Numa)
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))

	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []int{0, 1}, verr.Ranks)
}

func TestResolveMissingReciprocalClaim(t *testing.T) {
	claims := [][]rankfile.Locality{
		{claim(rankfile.Node, 0, 1)},
		{},
	}
	_, err := Resolve(claims, rankfile.Node)
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))

	var verr *errors.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []int{0, 1}, verr.Ranks)
}

func TestResolveDuplicateClaim(t *testing.T) {
	claims := [][]rankfile.Locality{
		{claim(rankfile.Node, 0), claim(rankfile.Node, 0)},
	}
	_, err := Resolve(claims, rankfile.Node)
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))
}

func TestResolveSelfNotInGroup(t *testing.T) {
	claims := [][]rankfile.Locality{
		{claim(rankfile.Node, 1)},
		{claim(rankfile.Node, 1)},
	}
	_, err := Resolve(claims, rankfile.Node)
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))
}

func TestResolvePeerOutOfRange(t *testing.T) {
	claims := [][]rankfile.Locality{
		{claim(rankfile.Node, 0, 7)},
	}
	_, err := Resolve(claims, rankfile.Node)
	require.Error(t, err)
	require.True(t, errors.IsValidation(err))
}
