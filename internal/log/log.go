// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package log wires up the leveled logging backend shared by every
// subsystem of the pool coordinator, following the decred-ecosystem
// UseLogger convention visible throughout Eacred/eacrpool's dependency
// graph: a single rotating-file backend hands each package its own
// tagged Logger.
package log

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Eacred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/mcqueen256/hasher-agg/internal/config"
	"github.com/mcqueen256/hasher-agg/internal/httpapi"
	"github.com/mcqueen256/hasher-agg/internal/metrics"
	"github.com/mcqueen256/hasher-agg/internal/ratelimit"
	"github.com/mcqueen256/hasher-agg/pool"
)

// logRotator rotates the log file once it reaches a fixed size, keeping
// a handful of prior logs.
var logRotator *rotator.Rotator

// logWriter implements io.Writer, duplicating log output to both
// standard output and the rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

// subsystemLoggers maps each subsystem tag to its Logger, so log level
// overrides from configuration can be applied uniformly.
var subsystemLoggers = make(map[string]slog.Logger)

var backendLog *slog.Backend

// InitLogRotator creates a rotating file logger at logFile, sized to
// rotate every 10 MiB and retaining 3 prior files, matching the
// decred-ecosystem convention this pool coordinator's dependency graph
// (Eacred/eacrpool -> Eacred/eacrd) already follows.
func InitLogRotator(logFile string) error {
	logDir := filepath.Dir(logFile)
	if err := os.MkdirAll(logDir, 0o700); err != nil {
		return fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("failed to create file rotator: %w", err)
	}
	logRotator = r
	backendLog = slog.NewBackend(logWriter{})
	return nil
}

// New returns a Logger tagged with subsystem, registering it so its
// level can later be changed by SetLogLevels.
func New(subsystem string) slog.Logger {
	var logger slog.Logger
	if backendLog != nil {
		logger = backendLog.Logger(subsystem)
	} else {
		logger = slog.Disabled
	}
	subsystemLoggers[subsystem] = logger
	return logger
}

// SetLogLevels sets every registered subsystem logger to level.
func SetLogLevels(level slog.Level) {
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}

// UseLoggers wires the shared backend's per-subsystem loggers into
// every package that declares a package-level log var, mirroring
// Eacred/eacrpool's own UseLogger hookup.
func UseLoggers(cfg *config.Config) {
	poolLog := New("POOL")
	httpLog := New("HTTP")
	rtlmLog := New("RTLM")
	mtrcLog := New("MTRC")

	pool.UseLogger(poolLog)
	httpapi.UseLogger(httpLog)
	ratelimit.UseLogger(rtlmLog)
	metrics.UseLogger(mtrcLog)

	level, ok := slog.LevelFromString(cfg.LogLevel)
	if !ok {
		level = slog.LevelInfo
	}
	SetLogLevels(level)
}

// Close flushes and closes the underlying rotator, if one was created.
func Close() {
	if logRotator != nil {
		logRotator.Close()
	}
}
