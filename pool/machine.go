// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

// maxHashrateHistory bounds the number of samples retained per
// hashrate history (spec.md §3, Machine invariant 6).
const maxHashrateHistory = 100

// minimumJobSize is the floor applied to every calculated job size so
// that a cold-start machine (reported hashrate zero) still receives
// usable work (spec.md §4.2). A variable, like MinimumZeroBitLength,
// so a deployment can override it via internal/config.
var minimumJobSize uint64 = 1_000_000

// jobSizeTargetSeconds is the number of seconds of thread-level work a
// quoted range aims to represent.
var jobSizeTargetSeconds float64 = 30

// SetJobSizeParams overrides the job-size floor and target-seconds
// knobs. It exists for internal/config to apply a deployment's
// configured values at startup, before any Coordinator is constructed.
func SetJobSizeParams(floor uint64, targetSeconds float64) {
	minimumJobSize = floor
	jobSizeTargetSeconds = targetSeconds
}

// Machine is the per-(submitter, machine-name) throughput record and
// adaptive job-size estimate (spec.md §3).
type Machine struct {
	SchemaVersion                int       `json:"schema_version"`
	Name                          string    `json:"name"`
	ReportedThreadHashrate        float64   `json:"reported_thread_hashrate"`
	ReportedThreadHashrateHistory []float64 `json:"reported_thread_hashrate_history"`
	ReportedTotalHashrate         float64   `json:"reported_total_hashrate"`
	ReportedTotalHashrateHistory  []float64 `json:"reported_total_hashrate_history"`
	CalculatedJobSize             uint64    `json:"calculated_job_size"`
	Online                        bool      `json:"online"`
}

// newMachine returns a freshly booted Machine for the given name, with
// the job-size floor as its starting estimate (spec.md §3 lifecycle).
func newMachine(name string) *Machine {
	return &Machine{
		SchemaVersion: currentSchemaVersion,
		Name:          name,
		CalculatedJobSize: minimumJobSize,
		Online:            true,
	}
}

// recordThreadHashrate appends sample to the thread hashrate history,
// trimming the oldest entry once the history exceeds maxHashrateHistory,
// then recomputes the smoothed mean (spec.md §4.2).
func (m *Machine) recordThreadHashrate(sample float64) {
	m.ReportedThreadHashrateHistory = appendBounded(m.ReportedThreadHashrateHistory, sample)
	m.ReportedThreadHashrate = mean(m.ReportedThreadHashrateHistory)
}

// recordTotalHashrate is recordThreadHashrate's counterpart for the
// machine-wide (all-thread) hashrate history.
func (m *Machine) recordTotalHashrate(sample float64) {
	m.ReportedTotalHashrateHistory = appendBounded(m.ReportedTotalHashrateHistory, sample)
	m.ReportedTotalHashrate = mean(m.ReportedTotalHashrateHistory)
}

// recalculateJobSize derives the next job size to quote from the
// machine's current smoothed thread hashrate, targeting
// jobSizeTargetSeconds of work, floored at minimumJobSize.
func (m *Machine) recalculateJobSize() {
	hashesPerTarget := m.ReportedThreadHashrate * jobSizeTargetSeconds
	size := uint64(hashesPerTarget)
	if size < minimumJobSize {
		size = minimumJobSize
	}
	m.CalculatedJobSize = size
}

// appendBounded appends sample to history, dropping the oldest entry
// (FIFO) once the bound is exceeded.
func appendBounded(history []float64, sample float64) []float64 {
	history = append(history, sample)
	if len(history) > maxHashrateHistory {
		history = history[1:]
	}
	return history
}

// mean returns the arithmetic mean of samples, or 0 for an empty slice.
func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
