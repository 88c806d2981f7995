// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import (
	"sync"

	"github.com/davecgh/go-spew/spew"
)

// CoordinatorConfig groups a Coordinator's dependencies, in the
// teacher's *Config-struct-for-constructor-injection idiom (compare
// Eacred/eacrpool's ClientConfig).
type CoordinatorConfig struct {
	// Store is the file-tree persistence layer.
	Store *Store
	// Clock supplies wall-clock seconds for lease aging and stamping.
	Clock Clock
	// OnSubmit, if set, is invoked with the current Snapshot after
	// every job/submit call that results in Accepted. The transport
	// layer uses this to fan a fresh snapshot out to any connected
	// /ws/status clients (SPEC_FULL.md §6) without the pool package
	// importing anything about HTTP or websockets.
	OnSubmit func(Snapshot)
}

// Coordinator is the operations invoked by the transport: boot,
// shutdown, job/request, job/submit, status, index (spec.md §4.4, C7).
// Every operation executes under a single exclusive lock, so request
// handling is logically serialized (spec.md §5).
type Coordinator struct {
	mu  sync.Mutex
	app *Application
	cfg *CoordinatorConfig
}

// NewCoordinator reconstructs pool state from cfg.Store and returns a
// ready Coordinator.
func NewCoordinator(cfg *CoordinatorConfig) (*Coordinator, error) {
	app, err := NewApplication(cfg.Store, cfg.Clock)
	if err != nil {
		return nil, err
	}
	return &Coordinator{app: app, cfg: cfg}, nil
}

// Boot locates or creates the Submitter and Machine for
// (studentNumber, machineName), marks the machine online, and persists
// the submitter (spec.md §4.4.1).
func (c *Coordinator) Boot(studentNumber, machineName string) (CommandResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.app.submitterFrom(studentNumber)
	if err != nil {
		return CommandResponse{}, err
	}
	machine := sub.getMachine(machineName)
	machine.Online = true
	if err := c.cfg.Store.SaveSubmitter(sub); err != nil {
		return CommandResponse{}, err
	}
	log.Debugf("boot: %s/%s online", studentNumber, machineName)
	return CommandResponse{OK: true}, nil
}

// Shutdown is Boot's counterpart: it marks the named machine offline
// (spec.md §4.4.2).
func (c *Coordinator) Shutdown(studentNumber, machineName string) (CommandResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.app.submitterFrom(studentNumber)
	if err != nil {
		return CommandResponse{}, err
	}
	machine := sub.getMachine(machineName)
	machine.Online = false
	if err := c.cfg.Store.SaveSubmitter(sub); err != nil {
		return CommandResponse{}, err
	}
	log.Debugf("shutdown: %s/%s offline", studentNumber, machineName)
	return CommandResponse{OK: true}, nil
}

// RequestJob issues a lease via Submitter.NextJob and persists the
// submitter (spec.md §4.4.3). The Error variant of JobResponse is
// reserved for future use; no error branch is currently reachable.
func (c *Coordinator) RequestJob(studentNumber, machineName string) (JobResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.app.submitterFrom(studentNumber)
	if err != nil {
		return JobResponse{}, err
	}
	job := sub.NextJob(machineName, c.cfg.Clock)
	if err := c.cfg.Store.SaveSubmitter(sub); err != nil {
		return JobResponse{}, err
	}
	log.Tracef("job/request: %s/%s -> job %d [%d,%d)", studentNumber, machineName,
		job.Number, job.NounceStart, job.NounceEnd)
	return JobResponse{Success: &job}, nil
}

// SubmitJob is the critical path (spec.md §4.4.4): it consumes the
// lease, validates every submitted solution, deduplicates and credits
// accepted shares, updates the pool-wide best solution, re-leases any
// uncompleted remainder, and recalculates the machine's next job size.
func (c *Coordinator) SubmitJob(pkt SubmitPacket) (SubmissionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.app.submitterFrom(pkt.StudentNumber)
	if err != nil {
		return Rejected, err
	}

	pending, err := sub.PopPendingJob(pkt.JobN)
	if err != nil {
		log.Tracef("job/submit: no pending job %d for %s", pkt.JobN, pkt.StudentNumber)
		return Rejected, nil
	}

	if pkt.NounceStart != pending.NounceStart {
		log.Tracef("job/submit: nounce_start mismatch for %s job %d: got %d want %d",
			pkt.StudentNumber, pkt.JobN, pkt.NounceStart, pending.NounceStart)
		return Rejected, nil
	}

	type acceptedShare struct {
		difficulty uint8
		solution   Solution
	}
	var accepted []acceptedShare

	for _, sol := range pkt.Solutions {
		buf, err := decodeHash(sol.SHA256)
		if err != nil {
			log.Tracef("job/submit: malformed hash from %s: %v", pkt.StudentNumber, err)
			continue
		}

		zeros := leadingZeroBits(buf)
		if zeros < MinimumZeroBitLength {
			log.Tracef("job/submit: below difficulty from %s: %d < %d",
				pkt.StudentNumber, zeros, MinimumZeroBitLength)
			continue
		}

		recomputed := canonicalSHA256(pkt.StudentNumber, sol.Nounce)
		if recomputed != sol.SHA256 {
			log.Tracef("job/submit: hash mismatch from %s: %s", pkt.StudentNumber, spew.Sdump(sol))
			continue
		}

		outcome, err := c.app.submitHash(sol.SHA256)
		if err != nil {
			return Rejected, err
		}
		if outcome == hashAlreadyExists {
			continue
		}
		accepted = append(accepted, acceptedShare{difficulty: zeros, solution: sol})

		if c.app.best == nil || zeros > c.app.best.LeadingZeroBitLength {
			best := &BestSolution{
				SchemaVersion:        currentSchemaVersion,
				StudentNumber:        pkt.StudentNumber,
				JobNumber:            pkt.JobN,
				LeadingZeroBitLength: zeros,
				Hash:                 sol.SHA256,
				Nounce:               sol.Nounce,
			}
			if err := c.app.saveBest(best); err != nil {
				return Rejected, err
			}
		}
	}

	// Partial-range handling: the worker completed only a prefix of
	// the leased range. Re-lease the remainder (spec.md §4.4.4 step 4,
	// §9 off-by-one resolution: size has no +1).
	if pkt.NounceEnd < pending.NounceEnd {
		remainder := StoredJob{
			Number:      sub.NextJobNumber,
			NounceStart: pkt.NounceEnd,
			NounceEnd:   pending.NounceEnd,
			Size:        pending.NounceEnd - pkt.NounceEnd,
			QuoteTime:   c.cfg.Clock.Now(),
		}
		sub.NextJobNumber++
		sub.UnfinishedJobs = append(sub.UnfinishedJobs, remainder)
	}

	sub.AcceptedSharesCount += uint64(len(accepted))
	for _, a := range accepted {
		if err := c.cfg.Store.SaveSolution(pkt.StudentNumber, a.solution, a.difficulty); err != nil {
			return Rejected, err
		}
	}

	machine := sub.getMachine(pkt.Name)
	machine.recordThreadHashrate(pkt.ThreadHashesPerSec)
	machine.recordTotalHashrate(pkt.TotalHashesPerSec)
	machine.recalculateJobSize()

	if err := c.cfg.Store.SaveSubmitter(sub); err != nil {
		return Rejected, err
	}

	log.Debugf("job/submit: %s/%s job %d accepted (%d valid solution(s))",
		pkt.StudentNumber, pkt.Name, pkt.JobN, len(accepted))

	if c.cfg.OnSubmit != nil {
		c.cfg.OnSubmit(c.snapshotLocked())
	}
	return Accepted, nil
}

// Status computes the /status response for studentNumber (spec.md
// §4.4.5).
func (c *Coordinator) Status(studentNumber string) (StatusResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub, err := c.app.submitterFrom(studentNumber)
	if err != nil {
		return StatusResponse{}, err
	}

	snap := c.snapshotLocked()
	return StatusResponse{
		UserTotalHashRate:  sub.UserHashRate(),
		UserTotalShares:    sub.AcceptedSharesCount,
		PoolTotalShares:    snap.PoolTotalShares,
		PoolBestZeroLength: snap.bestZeroLength(),
		CompletedJobs:      snap.CompletedJobs,
	}, nil
}

// Snapshot returns the read-only view consumed by the HTML index page
// and the /metrics endpoint (SPEC_FULL.md §4.4, "Supplemented:
// pool/stats").
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// snapshotLocked is Snapshot's implementation, callable while mu is
// already held.
func (c *Coordinator) snapshotLocked() Snapshot {
	var (
		poolTotalShares uint64
		nextJobSum      int64
		pendingSum      int64
		summaries       []SubmitterSummary
	)
	for studentNumber, sub := range c.app.submitters {
		poolTotalShares += sub.AcceptedSharesCount
		nextJobSum += int64(sub.NextJobNumber)
		pendingSum += int64(len(sub.PendingJobs) + len(sub.UnfinishedJobs))
		summaries = append(summaries, SubmitterSummary{
			StudentNumber:  studentNumber,
			HashRate:       sub.UserHashRate(),
			AcceptedShares: sub.AcceptedSharesCount,
		})
	}

	// completed_jobs is computed in signed space and clamped at zero,
	// so a negative difference can never wrap around in the uint64
	// result (spec.md §9).
	completed := nextJobSum - pendingSum
	if completed < 0 {
		completed = 0
	}

	return Snapshot{
		Best:            c.app.best,
		Submitters:      summaries,
		PoolTotalShares: poolTotalShares,
		CompletedJobs:   uint64(completed),
	}
}

// bestZeroLength returns the snapshot's pool-wide best difficulty, or 0
// if no best solution has been observed yet.
func (s Snapshot) bestZeroLength() uint8 {
	if s.Best == nil {
		return 0
	}
	return s.Best.LeadingZeroBitLength
}
