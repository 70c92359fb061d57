// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package actualizer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// Package-level Prometheus metrics for linker runs.
// Auto-registered via promauto so no explicit registry wiring is needed.
var (
	// linksTotal counts recorded links.
	//
	// Labels:
	//   - kind: expected declaration kind ("class", "function", ...)
	linksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linker",
			Subsystem: "actualizer",
			Name:      "links_total",
			Help:      "Total expect/actual links recorded.",
		},
		[]string{"kind"},
	)

	// missingActualsTotal counts missing-actual reports.
	//
	// Labels:
	//   - kind: expected declaration kind
	missingActualsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linker",
			Subsystem: "actualizer",
			Name:      "missing_actuals_total",
			Help:      "Total expected declarations reported without an actual.",
		},
		[]string{"kind"},
	)

	// ambiguousActualsTotal counts members left unlinked for having
	// several candidates.
	//
	// Labels:
	//   - kind: expected declaration kind
	ambiguousActualsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linker",
			Subsystem: "actualizer",
			Name:      "ambiguous_actuals_total",
			Help:      "Total expected members with several matching actuals.",
		},
		[]string{"kind"},
	)

	// deferredFakeOverridesTotal counts fake overrides left for a later pass.
	deferredFakeOverridesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "linker",
			Subsystem: "actualizer",
			Name:      "deferred_fake_overrides_total",
			Help:      "Total unmatched fake overrides deferred to a later pass.",
		},
	)

	// runDuration measures run wall time.
	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "linker",
			Subsystem: "actualizer",
			Name:      "run_duration_seconds",
			Help:      "Duration of expect/actual linker runs in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

func recordLink(kind ast.DeclKind) {
	linksTotal.WithLabelValues(kind.String()).Inc()
}

func recordMissing(kind ast.DeclKind) {
	missingActualsTotal.WithLabelValues(kind.String()).Inc()
}

func recordAmbiguous(kind ast.DeclKind) {
	ambiguousActualsTotal.WithLabelValues(kind.String()).Inc()
}

func recordDeferredFakeOverride() {
	deferredFakeOverridesTotal.Inc()
}
