// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package metrics exposes pool-wide gauges and counters over
// Prometheus's text exposition format, supplementing the HTML index
// page and the /status JSON endpoint with a scrape-friendly surface
// (SPEC_FULL.md, DOMAIN STACK).
package metrics

import (
	"net/http"

	"github.com/Eacred/slog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mcqueen256/hasher-agg/pool"
)

// log is the package-level subsystem logger, wired up by internal/log.
var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Collector renders a fresh pool.Snapshot into Prometheus metrics on
// every scrape. It implements prometheus.Collector directly rather than
// registering long-lived gauge vectors, since the set of submitters
// changes over the life of the process.
type Collector struct {
	coordinator *pool.Coordinator

	poolTotalShares *prometheus.Desc
	completedJobs   *prometheus.Desc
	bestZeroLength  *prometheus.Desc
	submitterShares *prometheus.Desc
	submitterRate   *prometheus.Desc
}

// NewCollector returns a Collector reading from coordinator.
func NewCollector(coordinator *pool.Coordinator) *Collector {
	return &Collector{
		coordinator: coordinator,
		poolTotalShares: prometheus.NewDesc(
			"hasherpool_pool_total_shares", "Total accepted shares across all submitters.", nil, nil),
		completedJobs: prometheus.NewDesc(
			"hasherpool_completed_jobs", "Total completed (leased and submitted) jobs.", nil, nil),
		bestZeroLength: prometheus.NewDesc(
			"hasherpool_best_zero_bit_length", "Leading zero bit length of the best solution found so far.", nil, nil),
		submitterShares: prometheus.NewDesc(
			"hasherpool_submitter_accepted_shares", "Accepted shares for one submitter.", []string{"student_number"}, nil),
		submitterRate: prometheus.NewDesc(
			"hasherpool_submitter_hash_rate", "Mean reported hash rate for one submitter.", []string{"student_number"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.poolTotalShares
	ch <- c.completedJobs
	ch <- c.bestZeroLength
	ch <- c.submitterShares
	ch <- c.submitterRate
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.coordinator.Snapshot()

	ch <- prometheus.MustNewConstMetric(c.poolTotalShares, prometheus.CounterValue, float64(snap.PoolTotalShares))
	ch <- prometheus.MustNewConstMetric(c.completedJobs, prometheus.CounterValue, float64(snap.CompletedJobs))

	var bestZeros float64
	if snap.Best != nil {
		bestZeros = float64(snap.Best.LeadingZeroBitLength)
	}
	ch <- prometheus.MustNewConstMetric(c.bestZeroLength, prometheus.GaugeValue, bestZeros)

	for _, s := range snap.Submitters {
		ch <- prometheus.MustNewConstMetric(c.submitterShares, prometheus.CounterValue,
			float64(s.AcceptedShares), s.StudentNumber)
		ch <- prometheus.MustNewConstMetric(c.submitterRate, prometheus.GaugeValue,
			s.HashRate, s.StudentNumber)
	}
}

// Handler registers a Collector for coordinator on a fresh registry and
// returns the resulting /metrics HTTP handler.
func Handler(coordinator *pool.Coordinator) http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewCollector(coordinator))
	log.Debugf("metrics collector registered")
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
