//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package progress

import (
	"fmt"
)

// Bar tracks the advancement of a long running task on the terminal
type Bar struct {
	label   string
	enabled bool
	current int
	max     int
}

func (b *Bar) display() {
	if !b.enabled {
		return
	}
	label := b.label
	if label == "" {
		label = "Progress"
	}
	fmt.Printf("\r%s: %d/%d", label, b.current, b.max)
}

// NewBar creates and displays a new progress bar
func NewBar(max int, label string) *Bar {
	b := new(Bar)
	b.max = max
	b.current = 0
	b.enabled = true
	b.label = label
	b.display()
	return b
}

// Increment advances the progress bar by val steps
func (b *Bar) Increment(val int) {
	b.current += val
	b.display()
}

// EndBar terminates a progress bar and moves the cursor past it
func EndBar(b *Bar) {
	b.display()
	b.enabled = false
	fmt.Printf("\n")
}
