// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import "testing"

func TestNewMachineJobSizeFloor(t *testing.T) {
	m := newMachine("rig1")
	if m.CalculatedJobSize != minimumJobSize {
		t.Fatalf("fresh machine job size = %d, want %d", m.CalculatedJobSize, minimumJobSize)
	}
	if !m.Online {
		t.Fatalf("fresh machine should be online")
	}
}

func TestHashrateHistoryBound(t *testing.T) {
	m := newMachine("rig1")
	for i := 0; i < maxHashrateHistory+10; i++ {
		m.recordThreadHashrate(float64(i))
	}
	if len(m.ReportedThreadHashrateHistory) != maxHashrateHistory {
		t.Fatalf("history length = %d, want %d", len(m.ReportedThreadHashrateHistory), maxHashrateHistory)
	}
	// The oldest 10 samples (0..9) should have been dropped FIFO.
	if m.ReportedThreadHashrateHistory[0] != 10 {
		t.Fatalf("oldest surviving sample = %v, want 10", m.ReportedThreadHashrateHistory[0])
	}
}

func TestRateMeanCorrespondence(t *testing.T) {
	m := newMachine("rig1")
	samples := []float64{10, 20, 30}
	for _, s := range samples {
		m.recordTotalHashrate(s)
	}
	want := mean(samples)
	if m.ReportedTotalHashrate != want {
		t.Fatalf("ReportedTotalHashrate = %v, want %v", m.ReportedTotalHashrate, want)
	}
}

func TestRecalculateJobSize(t *testing.T) {
	m := newMachine("rig1")
	m.recordThreadHashrate(100_000) // 100k h/s -> 3M over 30s, above floor
	m.recalculateJobSize()
	want := uint64(100_000 * jobSizeTargetSeconds)
	if m.CalculatedJobSize != want {
		t.Fatalf("CalculatedJobSize = %d, want %d", m.CalculatedJobSize, want)
	}

	m2 := newMachine("rig2")
	m2.recordThreadHashrate(0)
	m2.recalculateJobSize()
	if m2.CalculatedJobSize != minimumJobSize {
		t.Fatalf("cold machine CalculatedJobSize = %d, want floor %d", m2.CalculatedJobSize, minimumJobSize)
	}
}
