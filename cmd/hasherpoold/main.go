// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// hasherpoold is the coordination server's entrypoint: it loads
// configuration, wires up logging, persistence, rate limiting, metrics
// and the HTTP transport, then serves until interrupted (spec.md §1,
// §2).
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Eacred/slog"

	"github.com/mcqueen256/hasher-agg/internal/config"
	"github.com/mcqueen256/hasher-agg/internal/httpapi"
	hplog "github.com/mcqueen256/hasher-agg/internal/log"
	"github.com/mcqueen256/hasher-agg/internal/metrics"
	"github.com/mcqueen256/hasher-agg/internal/ratelimit"
	"github.com/mcqueen256/hasher-agg/pool"
)

// log is set up once logging is initialized in run; it starts disabled
// so any accidental use before that point is silent rather than a nil
// dereference.
var log = slog.Disabled

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}

	logFile := filepath.Join(cfg.LogDir, "hasherpoold.log")
	if err := hplog.InitLogRotator(logFile); err != nil {
		return err
	}
	defer hplog.Close()
	hplog.UseLoggers(cfg)
	log = hplog.New("MAIN")

	pool.MinimumZeroBitLength = cfg.MinimumZeroBits
	pool.SetLeaseTimeoutSeconds(cfg.LeaseTimeoutSeconds)
	pool.SetJobSizeParams(cfg.JobSizeFloor, cfg.JobSizeTargetSeconds)

	store := pool.NewStore(cfg.DataDir)
	limiter := ratelimit.New(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	defer limiter.Stop()

	// server is declared before the Coordinator and constructed after
	// it, so the OnSubmit closure below can forward to its
	// BroadcastSnapshot method, per pool.CoordinatorConfig's doc comment.
	var server *httpapi.Server
	coordinator, err := pool.NewCoordinator(&pool.CoordinatorConfig{
		Store: store,
		Clock: pool.SystemClock,
		OnSubmit: func(snap pool.Snapshot) {
			if server != nil {
				server.BroadcastSnapshot(snap)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("could not reconstruct pool state from %s: %w", cfg.DataDir, err)
	}
	server = httpapi.NewServer(coordinator, limiter)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      withMetricsRoute(server, coordinator, cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warnf("graceful shutdown timed out: %v", err)
	}

	// All pool mutations already persist synchronously under the
	// coordinator's lock (spec.md §5), so there is no additional
	// in-memory state to flush here; the shutdown above exists only to
	// let in-flight requests finish cleanly (SPEC_FULL.md §4.4
	// "Supplemented: graceful shutdown persistence").
	return nil
}

// withMetricsRoute layers the /metrics handler onto server's router
// when metrics are enabled, matching the teacher's habit of keeping
// optional subsystems out of the router's own construction.
func withMetricsRoute(server *httpapi.Server, coordinator *pool.Coordinator, cfg *config.Config) http.Handler {
	if !cfg.MetricsEnabled {
		return server.Handler()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(coordinator))
	mux.Handle("/", server.Handler())
	return mux
}
