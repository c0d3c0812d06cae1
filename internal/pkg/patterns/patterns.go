//
// Copyright (c) 2020-2021, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

// Package patterns detects the communication shape of a component,
// e.g., 1->N, N->1 and N->N exchanges, from its point-to-point
// matrices.
package patterns

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/gvallee/go_pt2pt_profiler/internal/pkg/format"
	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
)

// Data summarizes who talks to whom for a single component. Send
// associates a number of destination peers with the number of ranks
// that sent to that many peers; Recv does the same for sources.
type Data struct {
	Send map[int]int
	Recv map[int]int
}

// Detect scans the per-rank matrices of a component. A pair of ranks
// counts as communicating when it exchanged at least one message or
// one byte.
func Detect(gm *world.GroupedMatrices) Data {
	d := Data{
		Send: make(map[int]int),
		Recv: make(map[int]int),
	}
	n := gm.MsgsSent.Size()
	sendPeers := make([]int, n)
	recvPeers := make([]int, n)
	for src := 0; src < n; src++ {
		for dst := 0; dst < n; dst++ {
			if gm.MsgsSent.At(src, dst) == 0 && gm.BytesSent.At(src, dst) == 0 {
				continue
			}
			sendPeers[src]++
			recvPeers[dst]++
		}
	}
	for _, numPeers := range sendPeers {
		if numPeers > 0 {
			d.Send[numPeers]++
		}
	}
	for _, numPeers := range recvPeers {
		if numPeers > 0 {
			d.Recv[numPeers]++
		}
	}
	return d
}

// Empty reports whether the component exchanged no data at all.
func (d Data) Empty() bool {
	return len(d.Send) == 0 && len(d.Recv) == 0
}

// OneToN reports whether a few ranks fan out to a much larger set of
// peers.
func (d Data) OneToN() bool {
	for nDest, nSrc := range d.Send {
		if nDest > nSrc*100 {
			return true
		}
	}
	return false
}

// NToN reports whether the set of senders and the set of destinations
// are of equivalent size.
func (d Data) NToN() bool {
	for nDest, nSrc := range d.Send {
		if float64(nDest)*0.9 <= float64(nSrc) && float64(nSrc) <= float64(nDest)*1.1 {
			return true
		}
	}
	return false
}

// NToOne reports whether a large set of ranks funnels into a few
// destinations.
func (d Data) NToOne() bool {
	for nDest, nSrc := range d.Send {
		if nDest*100 < nSrc {
			return true
		}
	}
	return false
}

// Shapes returns the labels of all the shapes the pattern matches.
// Note: shapes are detected from the send side only; the receive side
// of a point-to-point exchange mirrors it.
func (d Data) Shapes() []string {
	var shapes []string
	if d.OneToN() {
		shapes = append(shapes, "1 to N")
	}
	if d.NToOne() {
		shapes = append(shapes, "N to 1")
	}
	if d.NToN() {
		shapes = append(shapes, "N to N")
	}
	return shapes
}

// Same compares the communication patterns of two components.
func Same(p1 Data, p2 Data) bool {
	return reflect.DeepEqual(p1.Send, p2.Send) && reflect.DeepEqual(p1.Recv, p2.Recv)
}

// WriteSummary writes a human-readable summary of the pattern.
func WriteSummary(fd *os.File, d Data) error {
	if d.Empty() {
		_, err := fd.WriteString("No messages were recorded for this component.\n\n")
		return err
	}

	// Transform maps into arrays and sort the arrays so that the output
	// is always in the same order.
	skv := format.ConvertIntMapToOrderedArrayByValue(d.Send)
	for _, keyval := range skv {
		_, err := fd.WriteString(fmt.Sprintf("%d ranks sent to %d other ranks\n\n", keyval.Val, keyval.Key))
		if err != nil {
			return err
		}
	}
	rkv := format.ConvertIntMapToOrderedArrayByValue(d.Recv)
	for _, keyval := range rkv {
		_, err := fd.WriteString(fmt.Sprintf("%d ranks recv'd from %d other ranks\n\n", keyval.Val, keyval.Key))
		if err != nil {
			return err
		}
	}

	shapes := d.Shapes()
	if len(shapes) == 0 {
		_, err := fd.WriteString("Nothing special detected; no summary\n")
		return err
	}
	_, err := fd.WriteString(fmt.Sprintf("Detected shape(s): %s\n", strings.Join(shapes, ", ")))
	return err
}
