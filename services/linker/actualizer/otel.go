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
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// tracerName is the OTel instrumentation name for the actualizer.
const tracerName = "aleutian.linker.actualizer"

var (
	tracer = otel.Tracer(tracerName)
	meter  = otel.Meter(tracerName)
)

var (
	metricsOnce sync.Once

	runsCounter   metric.Int64Counter
	linksCounter  metric.Int64Counter
	missingCount  metric.Int64Counter
	runDurationMs metric.Float64Histogram
)

// initMetrics creates the OTel instruments once. An instrument that fails to
// register is replaced with a no-op.
func initMetrics() {
	metricsOnce.Do(func() {
		var err error
		if runsCounter, err = meter.Int64Counter("linker_runs_total",
			metric.WithDescription("Expect/actual linker runs")); err != nil {
			slog.Warn("otel instrument unavailable", slog.String("name", "linker_runs_total"), slog.String("error", err.Error()))
			runsCounter = noop.Int64Counter{}
		}
		if linksCounter, err = meter.Int64Counter("linker_links_total",
			metric.WithDescription("Expect/actual links recorded")); err != nil {
			slog.Warn("otel instrument unavailable", slog.String("name", "linker_links_total"), slog.String("error", err.Error()))
			linksCounter = noop.Int64Counter{}
		}
		if missingCount, err = meter.Int64Counter("linker_missing_actuals_total",
			metric.WithDescription("Missing-actual reports")); err != nil {
			slog.Warn("otel instrument unavailable", slog.String("name", "linker_missing_actuals_total"), slog.String("error", err.Error()))
			missingCount = noop.Int64Counter{}
		}
		if runDurationMs, err = meter.Float64Histogram("linker_run_duration_ms",
			metric.WithDescription("Expect/actual linker run duration"),
			metric.WithUnit("ms")); err != nil {
			slog.Warn("otel instrument unavailable", slog.String("name", "linker_run_duration_ms"), slog.String("error", err.Error()))
			runDurationMs = noop.Float64Histogram{}
		}
	})
}

func startCollectSpan(ctx context.Context, runID string, p *ast.Program) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Collector.Collect",
		trace.WithAttributes(
			attribute.String("run_id", runID),
			attribute.String("main_fragment", p.Main.Name),
			attribute.Int("dependent_fragments", len(p.Dependents)),
		),
	)
}

func setCollectSpanResult(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.Int("links", res.Links.Len()),
		attribute.Int("class_links", res.Stats.ClassLinks),
		attribute.Int("member_links", res.Stats.MemberLinks),
		attribute.Int("type_parameter_links", res.Stats.TypeParameterLinks),
		attribute.Int("missing", res.Stats.Missing),
		attribute.Int("ambiguous", res.Stats.Ambiguous),
		attribute.Bool("incomplete", res.Incomplete),
	)
}

func recordCollectMetrics(ctx context.Context, d time.Duration, res *Result) {
	initMetrics()
	attrs := metric.WithAttributes(attribute.Bool("incomplete", res.Incomplete))
	runsCounter.Add(ctx, 1, attrs)
	linksCounter.Add(ctx, int64(res.Links.Len()), attrs)
	missingCount.Add(ctx, int64(res.Stats.Missing), attrs)
	runDurationMs.Record(ctx, float64(d.Microseconds())/1000, attrs)

	runDuration.Observe(d.Seconds())
}
