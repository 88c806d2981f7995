// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package httpapi is the thin JSON-over-HTTP transport binding (spec.md
// §2 C8): it decodes requests, calls into the pool coordinator, and
// encodes responses. All state-machine logic lives in the pool package;
// this package never mutates pool state directly.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Eacred/slog"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mcqueen256/hasher-agg/internal/ratelimit"
	"github.com/mcqueen256/hasher-agg/pool"
)

// log is the package-level subsystem logger, wired up by internal/log.
var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Server binds the coordinator API to HTTP handlers.
type Server struct {
	coordinator *pool.Coordinator
	limiter     *ratelimit.Limiter
	hub         *statusHub
	router      *mux.Router
}

// NewServer returns a Server ready to be handed to http.Server as its
// Handler.
func NewServer(coordinator *pool.Coordinator, limiter *ratelimit.Limiter) *Server {
	s := &Server{
		coordinator: coordinator,
		limiter:     limiter,
		hub:         newStatusHub(),
	}
	s.router = s.newRouter()
	return s
}

// Handler returns the server's http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// BroadcastSnapshot fans snap out to every connected /ws/status client.
// It is registered as pool.CoordinatorConfig.OnSubmit by the caller
// that wires everything together.
func (s *Server) BroadcastSnapshot(snap pool.Snapshot) {
	s.hub.broadcast(snap)
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/ws/status", s.handleWebsocketStatus).Methods(http.MethodGet)
	r.HandleFunc("/boot", s.withSubmitterLimit(s.handleBoot)).Methods(http.MethodPost)
	r.HandleFunc("/shutdown", s.withSubmitterLimit(s.handleShutdown)).Methods(http.MethodPost)
	r.HandleFunc("/job/request", s.withSubmitterLimit(s.handleJobRequest)).Methods(http.MethodPost)
	r.HandleFunc("/job/submit", s.withSubmitterLimit(s.handleJobSubmit)).Methods(http.MethodPost)
	r.HandleFunc("/status", s.withSubmitterLimit(s.handleStatus)).Methods(http.MethodPost)
	return r
}

// requestIDMiddleware stamps every request with a correlation ID,
// logged and echoed back as a response header.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		log.Tracef("[%s] %s %s", id, r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// withSubmitterLimit wraps handler with a per-submitter rate check. It
// peeks the request body for a "student_number" field without
// consuming it, restoring the body for the real decode that follows.
func (s *Server) withSubmitterLimit(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		studentNumber, body, err := peekStudentNumber(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
			return
		}
		r.Body = body
		if studentNumber != "" && !s.limiter.Allow(studentNumber) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		handler(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to encode JSON response: %v", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}
