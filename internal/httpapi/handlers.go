// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/mcqueen256/hasher-agg/pool"
)

// bootRequest is the /boot and /shutdown request body (spec.md §4.4.1,
// §4.4.2).
type bootRequest struct {
	StudentNumber string `json:"student_number"`
	Name          string `json:"name"`
}

// jobRequest is the /job/request request body (spec.md §4.4.3).
type jobRequest struct {
	StudentNumber string `json:"student_number"`
	Name          string `json:"name"`
}

// statusRequest is the /status request body (spec.md §4.4.5).
type statusRequest struct {
	StudentNumber string `json:"student_number"`
}

// peekStudentNumber extracts the "student_number" field from r's JSON
// body without permanently consuming it, so the downstream handler can
// still decode the full payload.
func peekStudentNumber(r *http.Request) (string, io.ReadCloser, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, err
	}
	r.Body.Close()

	var probe struct {
		StudentNumber string `json:"student_number"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &probe); err != nil {
			return "", nil, err
		}
	}
	return probe.StudentNumber, io.NopCloser(bytes.NewReader(raw)), nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleBoot(w http.ResponseWriter, r *http.Request) {
	var req bootRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponseError("malformed request body"))
		return
	}
	resp, err := s.coordinator.Boot(req.StudentNumber, req.Name)
	if err != nil {
		log.Errorf("boot: %s/%s: %v", req.StudentNumber, req.Name, err)
		writeJSON(w, http.StatusInternalServerError, CommandResponseError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	var req bootRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, CommandResponseError("malformed request body"))
		return
	}
	resp, err := s.coordinator.Shutdown(req.StudentNumber, req.Name)
	if err != nil {
		log.Errorf("shutdown: %s/%s: %v", req.StudentNumber, req.Name, err)
		writeJSON(w, http.StatusInternalServerError, CommandResponseError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobRequest(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := decodeJSON(r, &req); err != nil {
		msg := err.Error()
		writeJSON(w, http.StatusBadRequest, pool.JobResponse{Error: &msg})
		return
	}
	resp, err := s.coordinator.RequestJob(req.StudentNumber, req.Name)
	if err != nil {
		log.Errorf("job/request: %s/%s: %v", req.StudentNumber, req.Name, err)
		msg := err.Error()
		writeJSON(w, http.StatusInternalServerError, pool.JobResponse{Error: &msg})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobSubmit(w http.ResponseWriter, r *http.Request) {
	var pkt pool.SubmitPacket
	if err := decodeJSON(r, &pkt); err != nil {
		writeJSON(w, http.StatusBadRequest, pool.Rejected)
		return
	}
	result, err := s.coordinator.SubmitJob(pkt)
	if err != nil {
		log.Errorf("job/submit: %s/%s job %d: %v", pkt.StudentNumber, pkt.Name, pkt.JobN, err)
		writeJSON(w, http.StatusInternalServerError, pool.Rejected)
		return
	}

	// The websocket fan-out itself happens via the OnSubmit callback
	// wired into pool.CoordinatorConfig (see cmd/hasherpoold), which
	// calls s.BroadcastSnapshot directly from inside the coordinator's
	// lock-held section.
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	resp, err := s.coordinator.Status(req.StudentNumber)
	if err != nil {
		log.Errorf("status: %s: %v", req.StudentNumber, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CommandResponseError returns a CommandResponse with OK=false and msg
// set, the failure counterpart to the all-OK responses Boot/Shutdown
// return on success.
func CommandResponseError(msg string) pool.CommandResponse {
	return pool.CommandResponse{OK: false, Msg: &msg}
}
