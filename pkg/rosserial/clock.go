// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rosserial

import "time"

// Clock is the node's monotonic time source, in milliseconds. It is an
// injected capability so tests and embedded ports can substitute their own.
type Clock interface {
	Millis() uint64
}

type systemClock struct {
	start time.Time
}

// SystemClock returns a Clock backed by the monotonic system timer,
// counting milliseconds since construction.
func SystemClock() Clock {
	return &systemClock{start: time.Now()}
}

func (c *systemClock) Millis() uint64 {
	return uint64(time.Since(c.start) / time.Millisecond)
}
