//
// Copyright (c) 2020, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package timer

import "time"

// Handle is a structure gathering all the data necessary to implement timers
type Handle struct {
	start time.Time
}

// Start creates and starts a timer
func Start() *Handle {
	h := new(Handle)
	h.start = time.Now()
	return h
}

// Elapsed returns the time spent since the timer was started
func (h *Handle) Elapsed() time.Duration {
	return time.Since(h.start)
}

// Stop ends a timer and returns the elapsed time in the form of a string
func (h *Handle) Stop() string {
	return h.Elapsed().String()
}
