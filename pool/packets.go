// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import "encoding/json"

// CommandResponse is the response to /boot and /shutdown.
type CommandResponse struct {
	OK  bool    `json:"ok"`
	Msg *string `json:"msg,omitempty"`
}

// JobResponse is the tagged-union response to /job/request: exactly one
// of Success or Error is populated on the wire, matching the original
// Rust enum JobResponsePacket's default serde tagging
// ({"Success": Job} or {"Error": "..."}). No error branch is currently
// reachable from RequestJob, but the wire shape reserves the variant
// for future use (spec.md §4.4.3).
type JobResponse struct {
	Success *Job
	Error   *string
}

// MarshalJSON renders the externally-tagged enum shape.
func (r JobResponse) MarshalJSON() ([]byte, error) {
	if r.Success != nil {
		return json.Marshal(struct {
			Success *Job `json:"Success"`
		}{r.Success})
	}
	return json.Marshal(struct {
		Error *string `json:"Error"`
	}{r.Error})
}

// SubmitPacket is the /job/submit request body (spec.md §4.4.4).
type SubmitPacket struct {
	JobN                 uint64     `json:"job_n"`
	Name                 string     `json:"name"`
	StudentNumber        string     `json:"student_number"`
	ThreadHashesPerSec   float64    `json:"thread_hashes_per_second"`
	TotalHashesPerSec    float64    `json:"total_hashes_per_second"`
	NounceStart          uint64     `json:"nounce_start"`
	NounceEnd            uint64     `json:"nounce_end"`
	Solutions            []Solution `json:"solutions"`
}

// SubmissionResult is the /job/submit response: the JSON string literal
// of the tag, "Accepted" or "Rejected" (spec.md §4.4.4, §6).
type SubmissionResult string

const (
	Accepted SubmissionResult = "Accepted"
	Rejected SubmissionResult = "Rejected"
)

// StatusResponse is the /status response body (spec.md §4.4.5).
type StatusResponse struct {
	UserTotalHashRate  float64 `json:"user_total_hash_rate"`
	UserTotalShares    uint64  `json:"user_total_shares"`
	PoolTotalShares    uint64  `json:"pool_total_shares"`
	PoolBestZeroLength uint8   `json:"pool_best_zero_length"`
	CompletedJobs      uint64  `json:"completed_jobs"`
}

// SubmitterSummary is one line of the index page / metrics snapshot:
// a student number, its mean hashrate, and its share of the pool's
// total accepted shares.
type SubmitterSummary struct {
	StudentNumber  string
	HashRate       float64
	AcceptedShares uint64
}

// Snapshot is the read-only view consumed by the HTML index page, the
// /status endpoint, and the /metrics endpoint (SPEC_FULL.md §4.4,
// "Supplemented: pool/stats"). It factors out the inline sums that
// original_source/src/routes.rs computes separately in pool_status and
// index into one coordinator operation.
type Snapshot struct {
	Best            *BestSolution
	Submitters      []SubmitterSummary
	PoolTotalShares uint64
	CompletedJobs   uint64
}
