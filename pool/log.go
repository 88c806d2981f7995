// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pool

import "github.com/Eacred/slog"

// log is the package-level subsystem logger. It is disabled by default
// and wired up by internal/log via UseLogger, mirroring the rest of the
// Eacred ecosystem's logging convention.
var log = slog.Disabled

// DisableLog disables all library log output.
func DisableLog() {
	log = slog.Disabled
}

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}
