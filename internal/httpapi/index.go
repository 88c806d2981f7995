// Copyright (c) 2019 The Eacred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package httpapi

import (
	"html/template"
	"net/http"
)

// indexTemplate renders the pool-wide leaderboard (spec.md §4.4). It is
// intentionally minimal: one table of submitters and the current best
// solution, without reaching for a heavier templating stack than the
// standard library's html/template, which the teacher repo also uses
// for its own dashboards. Hash rates are shown in MH/s, matching
// original_source/src/routes.rs's index handler
// (user_hash_rate()/1_000_000.0).
var indexFuncs = template.FuncMap{
	"mhs": func(hashesPerSecond float64) float64 { return hashesPerSecond / 1_000_000 },
}

var indexTemplate = template.Must(template.New("index").Funcs(indexFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
  <title>hasher-agg pool</title>
  <style>
    body { font-family: monospace; margin: 2rem; }
    table { border-collapse: collapse; }
    td, th { border: 1px solid #999; padding: 0.25rem 0.75rem; text-align: left; }
  </style>
</head>
<body>
  <h1>hasher-agg pool</h1>
  {{if .Best}}
  <p>Best solution: {{.Best.LeadingZeroBitLength}} leading zero bits,
     submitted by {{.Best.StudentNumber}} (job {{.Best.JobNumber}})</p>
  {{else}}
  <p>No solutions submitted yet.</p>
  {{end}}
  <p>Pool total shares: {{.PoolTotalShares}} &middot; Completed jobs: {{.CompletedJobs}}</p>
  <table>
    <tr><th>Student</th><th>Hash rate (MH/s)</th><th>Accepted shares</th></tr>
    {{range .Submitters}}
    <tr><td>{{.StudentNumber}}</td><td>{{printf "%.2f" (mhs .HashRate)}}</td><td>{{.AcceptedShares}}</td></tr>
    {{end}}
  </table>
  <p><a href="/metrics">/metrics</a> &middot; <a href="/healthz">/healthz</a></p>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.coordinator.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, snap); err != nil {
		log.Errorf("index: template execution failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
