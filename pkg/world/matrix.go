//
// Copyright (c) 2024, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package world

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Matrix is a dense square sender x receiver counter matrix stored row
// major, so one sender's row is contiguous
type Matrix struct {
	n    int
	data []uint64
}

// NewMatrix returns a zero filled n x n matrix
func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, data: make([]uint64, n*n)}
}

// Size returns the number of rows (and columns)
func (m *Matrix) Size() int {
	return m.n
}

// At returns the cell for one sender/receiver pair
func (m *Matrix) At(sender int, receiver int) uint64 {
	return m.data[sender*m.n+receiver]
}

// Set overwrites the cell for one sender/receiver pair
func (m *Matrix) Set(sender int, receiver int, v uint64) {
	m.data[sender*m.n+receiver] = v
}

// Add accumulates into the cell for one sender/receiver pair
func (m *Matrix) Add(sender int, receiver int, v uint64) {
	m.data[sender*m.n+receiver] += v
}

// Row returns one sender's row. The slice aliases the matrix storage.
func (m *Matrix) Row(sender int) []uint64 {
	return m.data[sender*m.n : (sender+1)*m.n]
}

// Max returns the largest cell value
func (m *Matrix) Max() uint64 {
	var max uint64
	for _, v := range m.data {
		if v > max {
			max = v
		}
	}
	return max
}

// Sum returns the total over all cells
func (m *Matrix) Sum() uint64 {
	var total uint64
	for _, v := range m.data {
		total += v
	}
	return total
}

// WriteCSV writes the matrix as CSV, one line per sender
func (m *Matrix) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	row := make([]string, m.n)
	for sender := 0; sender < m.n; sender++ {
		for receiver, v := range m.Row(sender) {
			row[receiver] = strconv.FormatUint(v, 10)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// GroupedMatrices holds the two counter matrices of one component at one
// grouping level: how many messages each sender sent each receiver and how
// many bytes those messages amounted to
type GroupedMatrices struct {
	MsgsSent  *Matrix
	BytesSent *Matrix
}

// NewGroupedMatrices returns zero filled n x n matrices
func NewGroupedMatrices(n int) *GroupedMatrices {
	return &GroupedMatrices{
		MsgsSent:  NewMatrix(n),
		BytesSent: NewMatrix(n),
	}
}

// Regroup derives the matrices of a coarser grouping by summing all rank
// level cells whose sender falls into one group and whose receiver falls
// into another. groups must partition the ranks; a nil grouping yields nil.
func (g *GroupedMatrices) Regroup(groups [][]int) *GroupedMatrices {
	if groups == nil {
		return nil
	}
	out := NewGroupedMatrices(len(groups))
	for senderGroup, senders := range groups {
		for receiverGroup, receivers := range groups {
			for _, sender := range senders {
				for _, receiver := range receivers {
					out.MsgsSent.Add(senderGroup, receiverGroup, g.MsgsSent.At(sender, receiver))
					out.BytesSent.Add(senderGroup, receiverGroup, g.BytesSent.At(sender, receiver))
				}
			}
		}
	}
	return out
}
