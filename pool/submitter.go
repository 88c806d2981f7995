// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

// leaseTimeoutSeconds is how long a lease may remain in pending_jobs
// before the next lease-aging sweep reclaims it into unfinished_jobs
// (spec.md §4.3). A lease aged exactly this long is not reclaimed; only
// ages strictly greater are. A variable, like MinimumZeroBitLength, so
// a deployment can override it via internal/config.
var leaseTimeoutSeconds float64 = 600.0

// SetLeaseTimeoutSeconds overrides the lease-aging timeout. It exists
// for internal/config to apply a deployment's configured value at
// startup, before any Coordinator is constructed.
func SetLeaseTimeoutSeconds(seconds float64) {
	leaseTimeoutSeconds = seconds
}

// Job is the wire view of a leased nonce range (spec.md §3). The field
// name "nounce" is a spelling carried throughout the protocol and is
// retained for wire compatibility with the original implementation.
type Job struct {
	Number      uint64 `json:"number"`
	Size        uint64 `json:"size"`
	NounceStart uint64 `json:"nounce_start"`
	NounceEnd   uint64 `json:"nounce_end"`
}

// StoredJob is a Job plus the wall-clock time its lease was issued. It
// is kept server-side only and is never sent on the wire.
type StoredJob struct {
	Number      uint64  `json:"number"`
	Size        uint64  `json:"size"`
	NounceStart uint64  `json:"nounce_start"`
	NounceEnd   uint64  `json:"nounce_end"`
	QuoteTime   float64 `json:"quote_time"`
}

// job returns the wire view of a StoredJob.
func (s StoredJob) job() Job {
	return Job{
		Number:      s.Number,
		Size:        s.Size,
		NounceStart: s.NounceStart,
		NounceEnd:   s.NounceEnd,
	}
}

// Submitter is the per-student state: job/nonce cursors, leased and
// unfinished ranges, accepted-share counter, and machine set (spec.md
// §3).
type Submitter struct {
	SchemaVersion       int          `json:"schema_version"`
	StudentNumber       string       `json:"student_number"`
	NextJobNumber       uint64       `json:"next_job_number"`
	NextNounce          uint64       `json:"next_nounce"`
	PendingJobs         []StoredJob  `json:"pending_jobs"`
	UnfinishedJobs      []StoredJob  `json:"unfinished_jobs"`
	AcceptedSharesCount uint64       `json:"accepted_shares_count"`
	Machines            []*Machine  `json:"machines"`
}

// currentSchemaVersion is stamped onto every freshly created persisted
// record (spec.md §9, schema-versioning design note).
const currentSchemaVersion = 1

// newSubmitter returns a freshly created Submitter for studentNumber,
// with empty cursors and no machines (spec.md §3 lifecycle).
func newSubmitter(studentNumber string) *Submitter {
	return &Submitter{
		SchemaVersion: currentSchemaVersion,
		StudentNumber: studentNumber,
	}
}

// getMachine returns the named Machine, creating it (online) on first
// mention if it does not already exist (spec.md §3, §4 lifecycle).
func (s *Submitter) getMachine(name string) *Machine {
	for _, m := range s.Machines {
		if m.Name == name {
			return m
		}
	}
	m := newMachine(name)
	s.Machines = append(s.Machines, m)
	return m
}

// NextJob issues a lease to name: it first sweeps pending_jobs for
// leases older than leaseTimeoutSeconds and moves them to
// unfinished_jobs, then reissues the entry on top of unfinished_jobs
// (the oldest stale lease reclaimed by this sweep, if there was one)
// before it mints a new range (spec.md §4.3, §9 "Lease reclaim
// ordering").
func (s *Submitter) NextJob(name string, clock Clock) Job {
	now := clock.Now()

	// Lease-aging sweep: detach leases that have outlived the timeout,
	// preserving relative order of survivors, then push the reclaimed
	// entries onto the unfinished_jobs stack in reverse of the order
	// they were found, so the earliest (oldest) stale lease ends up on
	// top and is the first one popped back off below.
	survivors := s.PendingJobs[:0:0]
	var reclaimed []StoredJob
	for _, j := range s.PendingJobs {
		if now-j.QuoteTime > leaseTimeoutSeconds {
			reclaimed = append(reclaimed, j)
		} else {
			survivors = append(survivors, j)
		}
	}
	s.PendingJobs = survivors
	for i := len(reclaimed) - 1; i >= 0; i-- {
		s.UnfinishedJobs = append(s.UnfinishedJobs, reclaimed[i])
	}

	// Reissue the top of the unfinished_jobs stack (LIFO), if any.
	if n := len(s.UnfinishedJobs); n > 0 {
		j := s.UnfinishedJobs[n-1]
		s.UnfinishedJobs = s.UnfinishedJobs[:n-1]
		j.QuoteTime = now
		s.PendingJobs = append(s.PendingJobs, j)
		return j.job()
	}

	// Mint a fresh range.
	machine := s.getMachine(name)
	number := s.NextJobNumber
	s.NextJobNumber++
	size := machine.CalculatedJobSize
	nounceStart := s.NextNounce
	nounceEnd := nounceStart + size
	s.NextNounce = nounceEnd

	j := StoredJob{
		Number:      number,
		Size:        size,
		NounceStart: nounceStart,
		NounceEnd:   nounceEnd,
		QuoteTime:   now,
	}
	s.PendingJobs = append(s.PendingJobs, j)
	return j.job()
}

// PopPendingJob removes and returns the pending lease with the given
// number. It fails with ErrNoSuchLease if no such lease exists (spec.md
// §4.3).
func (s *Submitter) PopPendingJob(number uint64) (StoredJob, error) {
	for i, j := range s.PendingJobs {
		if j.Number == number {
			s.PendingJobs = append(s.PendingJobs[:i], s.PendingJobs[i+1:]...)
			return j, nil
		}
	}
	return StoredJob{}, poolError(ErrNoSuchLease, "no pending job %d for submitter %s", number, s.StudentNumber)
}

// UserHashRate is the mean of every machine's reported total hashrate.
// It returns 0.0 when the submitter has no machines yet, resolving
// spec.md §9's division-by-zero open question.
func (s *Submitter) UserHashRate() float64 {
	if len(s.Machines) == 0 {
		return 0
	}
	var sum float64
	for _, m := range s.Machines {
		sum += m.ReportedTotalHashrate
	}
	return sum / float64(len(s.Machines))
}
