// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import "time"

// Clock supplies the wall-clock seconds used to age leases and to stamp
// quotes, solutions, and best-solution records. It is an interface so
// tests can substitute a deterministic source instead of the real clock.
type Clock interface {
	// Now returns the current time as seconds since the Unix epoch.
	Now() float64
}

// systemClock is the Clock backed by the operating system's wall clock.
type systemClock struct{}

// Now implements Clock.
func (systemClock) Now() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

// SystemClock is the default Clock used outside of tests.
var SystemClock Clock = systemClock{}

// fixedClock is a Clock that always returns the same instant, advanced
// manually by tests.
type fixedClock struct {
	seconds float64
}

// Now implements Clock.
func (f *fixedClock) Now() float64 {
	return f.seconds
}

// newFixedClock returns a Clock pinned to seconds, for deterministic tests
// of lease aging.
func newFixedClock(seconds float64) *fixedClock {
	return &fixedClock{seconds: seconds}
}

// Advance moves the fixed clock forward by delta seconds.
func (f *fixedClock) Advance(delta float64) {
	f.seconds += delta
}
