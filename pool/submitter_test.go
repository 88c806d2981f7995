// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import "testing"

func TestNextJobMintsFreshRange(t *testing.T) {
	clock := newFixedClock(0)
	sub := newSubmitter("s1")

	job := sub.NextJob("m1", clock)
	if job.Number != 0 || job.NounceStart != 0 || job.NounceEnd != minimumJobSize {
		t.Fatalf("unexpected first job: %+v", job)
	}
	if sub.NextJobNumber != 1 || sub.NextNounce != minimumJobSize {
		t.Fatalf("unexpected submitter cursors: next_job=%d next_nounce=%d", sub.NextJobNumber, sub.NextNounce)
	}
	if len(sub.PendingJobs) != 1 {
		t.Fatalf("pending_jobs size = %d, want 1", len(sub.PendingJobs))
	}
}

func TestPopPendingJobNoSuchLease(t *testing.T) {
	sub := newSubmitter("s1")
	_, err := sub.PopPendingJob(42)
	if !IsError(err, ErrNoSuchLease) {
		t.Fatalf("want ErrNoSuchLease, got %v", err)
	}
}

func TestLeaseExactlyAtTimeoutIsNotReclaimed(t *testing.T) {
	clock := newFixedClock(0)
	sub := newSubmitter("s1")
	first := sub.NextJob("m1", clock)

	clock.Advance(leaseTimeoutSeconds) // age == 600.0 exactly
	again := sub.NextJob("m1", clock)

	// Not reclaimed: a brand new job is minted instead of re-issuing
	// the original lease.
	if again.Number == first.Number {
		t.Fatalf("lease aged exactly at timeout should not be reclaimed")
	}
	if len(sub.PendingJobs) != 2 {
		t.Fatalf("pending_jobs size = %d, want 2", len(sub.PendingJobs))
	}
}

func TestLeaseStrictlyPastTimeoutIsReclaimed(t *testing.T) {
	clock := newFixedClock(0)
	sub := newSubmitter("s1")
	first := sub.NextJob("m1", clock)

	clock.Advance(leaseTimeoutSeconds + 0.001)
	reissued := sub.NextJob("m1", clock)

	if reissued.Number != first.Number || reissued.NounceStart != first.NounceStart ||
		reissued.NounceEnd != first.NounceEnd {
		t.Fatalf("reclaimed lease changed identity: got %+v, want same range as %+v", reissued, first)
	}
	if len(sub.PendingJobs) != 1 {
		t.Fatalf("pending_jobs size = %d, want 1 (re-leased, not duplicated)", len(sub.PendingJobs))
	}
}

// TestReclaimOrderingIsLIFOOfReversedWalk pins down spec.md §9's "Lease
// reclaim ordering" note: within one sweep, stale leases are queued in
// reverse of the order they were found and then popped LIFO, so the
// oldest stale lease (lowest original index) is reissued first.
func TestReclaimOrderingIsLIFOOfReversedWalk(t *testing.T) {
	clock := newFixedClock(0)
	sub := newSubmitter("s1")

	first := sub.NextJob("m1", clock)  // job 0
	second := sub.NextJob("m1", clock) // job 1

	clock.Advance(leaseTimeoutSeconds + 1)
	reissuedFirst := sub.NextJob("m1", clock)
	if reissuedFirst.Number != first.Number {
		t.Fatalf("expected the oldest stale lease (job %d) reissued first, got job %d",
			first.Number, reissuedFirst.Number)
	}

	reissuedSecond := sub.NextJob("m1", clock)
	if reissuedSecond.Number != second.Number {
		t.Fatalf("expected the newer stale lease (job %d) reissued second, got job %d",
			second.Number, reissuedSecond.Number)
	}
}

func TestUserHashRateEmptyMachinesIsZero(t *testing.T) {
	sub := newSubmitter("s1")
	if rate := sub.UserHashRate(); rate != 0 {
		t.Fatalf("UserHashRate with no machines = %v, want 0", rate)
	}
}

func TestUserHashRateMeansAcrossMachines(t *testing.T) {
	sub := newSubmitter("s1")
	sub.getMachine("m1").ReportedTotalHashrate = 10
	sub.getMachine("m2").ReportedTotalHashrate = 30
	if rate := sub.UserHashRate(); rate != 20 {
		t.Fatalf("UserHashRate = %v, want 20", rate)
	}
}

func TestGetMachineUniqueByName(t *testing.T) {
	sub := newSubmitter("s1")
	a := sub.getMachine("rig")
	b := sub.getMachine("rig")
	if a != b {
		t.Fatalf("getMachine should return the same record for the same name")
	}
	if len(sub.Machines) != 1 {
		t.Fatalf("expected exactly one machine, got %d", len(sub.Machines))
	}
}
