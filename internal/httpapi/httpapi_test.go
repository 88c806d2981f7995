// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcqueen256/hasher-agg/internal/ratelimit"
	"github.com/mcqueen256/hasher-agg/pool"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := pool.NewStore(t.TempDir())
	coordinator, err := pool.NewCoordinator(&pool.CoordinatorConfig{
		Store: store,
		Clock: pool.SystemClock,
	})
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	return NewServer(coordinator, ratelimit.New(1000, 1000))
}

func postJSON(t *testing.T, srv *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestBootThenShutdown(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/boot", map[string]string{
		"student_number": "n1234567",
		"name":           "rig-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("/boot status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var resp pool.CommandResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode /boot response: %v", err)
	}
	if !resp.OK {
		t.Fatalf("/boot response.OK = false, want true")
	}

	rec = postJSON(t, srv, "/shutdown", map[string]string{
		"student_number": "n1234567",
		"name":           "rig-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("/shutdown status = %d, want 200", rec.Code)
	}
}

func TestJobRequestThenSubmitRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	const student = "n7654321"

	rec := postJSON(t, srv, "/job/request", map[string]string{
		"student_number": student,
		"name":           "rig-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("/job/request status = %d, want 200", rec.Code)
	}
	var wire struct {
		Success *pool.Job
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &wire); err != nil {
		t.Fatalf("decode tagged /job/request response: %v", err)
	}
	if wire.Success == nil {
		t.Fatalf("/job/request response had no Success variant: %s", rec.Body.String())
	}

	rec = postJSON(t, srv, "/job/submit", pool.SubmitPacket{
		JobN:          wire.Success.Number,
		Name:          "rig-1",
		StudentNumber: student,
		NounceStart:   wire.Success.NounceStart,
		NounceEnd:     wire.Success.NounceEnd,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("/job/submit status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var result pool.SubmissionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode /job/submit response: %v", err)
	}
	if result != pool.Accepted {
		t.Fatalf("/job/submit result = %q, want %q", result, pool.Accepted)
	}
}

func TestStatusForUnknownSubmitterCreatesOne(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/status", map[string]string{"student_number": "nbrandnew"})
	if rec.Code != http.StatusOK {
		t.Fatalf("/status status = %d, want 200", rec.Code)
	}
	var resp pool.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode /status response: %v", err)
	}
	if resp.UserTotalHashRate != 0 {
		t.Fatalf("UserTotalHashRate = %v, want 0 for a submitter with no machines", resp.UserTotalHashRate)
	}
	snap := srv.coordinator.Snapshot()
	if len(snap.Submitters) != 1 || snap.Submitters[0].StudentNumber != "nbrandnew" {
		t.Fatalf("submitters after /status = %+v, want one record for nbrandnew", snap.Submitters)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d, want 200", rec.Code)
	}
}

func TestIndexRendersHTML(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("/ status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Fatalf("/ response missing Content-Type header")
	}
}

func TestMalformedBodyIsRejected(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/boot", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("/boot with malformed body status = %d, want 400", rec.Code)
	}
}
