// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ratelimit shapes the rate at which any one submitter may call
// the POST endpoints (/boot, /shutdown, /job/request, /job/submit,
// /status). This is a resource-hygiene concern, not an
// adversarial-resistance one (spec.md §1 Non-goals explicitly excludes
// adversarial resistance): its purpose is to keep one chatty or
// misconfigured worker from starving the single coordinator lock and
// its synchronous filesystem writes (spec.md §5).
package ratelimit

import (
	"sync"
	"time"

	"github.com/Eacred/slog"
	"golang.org/x/time/rate"
)

// log is the package-level subsystem logger, wired up by internal/log.
var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// entry pairs a token bucket with the last time it was touched, so the
// janitor can evict limiters for submitters that have gone quiet.
type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter grants each submitter its own token bucket, keyed by student
// number.
type Limiter struct {
	mu       sync.Mutex
	entries  map[string]*entry
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New returns a Limiter allowing ratePerSecond sustained requests and
// burst requests in a burst, per submitter.
func New(ratePerSecond float64, burst int) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		rate:    rate.Limit(ratePerSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		stopCh:  make(chan struct{}),
	}
	go l.janitor()
	return l
}

// Allow reports whether a request from studentNumber may proceed right
// now, consuming a token if so.
func (l *Limiter) Allow(studentNumber string) bool {
	l.mu.Lock()
	e, ok := l.entries[studentNumber]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[studentNumber] = e
	}
	e.lastSeen = time.Now()
	allowed := e.limiter.Allow()
	l.mu.Unlock()

	if !allowed {
		log.Debugf("rate limit: rejecting request from %s", studentNumber)
	}
	return allowed
}

// janitor periodically evicts limiters that have not been touched
// within idleTTL, so the map does not grow unbounded across a long
// semester of submitters coming and going.
func (l *Limiter) janitor() {
	ticker := time.NewTicker(l.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now())
		case <-l.stopCh:
			return
		}
	}
}

// evictIdle removes every entry last touched before now minus idleTTL.
func (l *Limiter) evictIdle(now time.Time) {
	cutoff := now.Add(-l.idleTTL)
	l.mu.Lock()
	for k, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, k)
		}
	}
	l.mu.Unlock()
}

// Stop terminates the janitor goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
