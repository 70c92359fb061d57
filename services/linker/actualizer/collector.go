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
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/expectlink/services/linker/ast"
	"github.com/AleutianAI/expectlink/services/linker/fqname"
	"github.com/AleutianAI/expectlink/services/linker/index"
)

// Stats counts what a run did.
type Stats struct {
	// FragmentsCatalogued is the number of fragments walked for actuals.
	FragmentsCatalogued int

	// ActualClasses is the number of names in the class catalog.
	ActualClasses int

	// ActualMembers is the number of catalogued actual members.
	ActualMembers int

	// TypeAliases is the number of actual type aliases redirected.
	TypeAliases int

	// SkippedTypeAliases counts actual type aliases not expanding to a class.
	SkippedTypeAliases int

	ClassLinks         int
	TypeParameterLinks int
	MemberLinks        int
	AccessorLinks      int

	// Missing is the number of missing-actual reports.
	Missing int

	// Ambiguous is the number of members left unlinked for having several
	// candidates, whatever the policy.
	Ambiguous int

	// DeferredFakeOverrides is the number of unmatched fake overrides left
	// for a later pass.
	DeferredFakeOverrides int

	// Exempt is the number of unmatched declarations not reported because
	// of an optional expectation or a primary constructor.
	Exempt int

	// ArityMismatches counts type parameter zips that were truncated.
	ArityMismatches int

	// Conflicts counts refused second writes to the link map.
	Conflicts int

	// DurationMicro is the run's wall time in microseconds.
	DurationMicro int64
}

// Result is the output of one run. The caller owns it.
type Result struct {
	// RunID identifies the run in logs, spans and snapshots.
	RunID string

	// Links maps expected symbols to actual symbols.
	Links *LinkMap

	// Aliases is the type alias redirection map built by the catalog pass.
	Aliases fqname.AliasMap

	// Classes is the frozen actual class catalog.
	Classes *index.ClassTable

	// ActualMembers is the frozen member index. Nil if the run stopped
	// before the member phase.
	ActualMembers *index.MemberIndex

	Stats Stats

	// Incomplete is set when ctx was cancelled between phases. The
	// result then holds whatever the finished phases produced.
	Incomplete bool
}

// Collector runs the linker over a program.
//
// Thread Safety: A Collector may be reused and called from several
// goroutines; each Collect call owns its own state. The program must not be
// mutated during a call.
type Collector struct {
	program  *ast.Program
	reporter Reporter
	options  Options
}

// New creates a Collector.
//
// Inputs:
//
//	program - The program graph. Read, never mutated.
//	reporter - Receives diagnostic events.
//	opts - Functional options.
//
// Outputs:
//
//	*Collector - Ready to run. Nil arguments are reported by Collect.
func New(program *ast.Program, reporter Reporter, opts ...Option) *Collector {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Collector{
		program:  program,
		reporter: reporter,
		options:  options,
	}
}

// run is the state of one Collect call.
type run struct {
	opts     *Options
	reporter Reporter
	logger   *slog.Logger
	optional map[string]struct{}

	links   *LinkMap
	catalog *catalog
	members *index.MemberIndex
	stats   *Stats
}

// Collect links the program's expected declarations to their actuals.
//
// Description:
//
//	Runs the catalog, class link and member link phases in order. Missing
//	and ambiguous actuals are reported to the Reporter and never abort the
//	run.
//
// Inputs:
//
//	ctx - Context for cancellation and tracing. Checked between phases.
//
// Outputs:
//
//	*Result - Links, alias map and statistics.
//	error - Non-nil for a nil program or reporter and for an invalid
//	        program graph. Cancellation returns a partial result, not an
//	        error.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	if c.program == nil || c.program.Main == nil {
		return nil, ErrNilProgram
	}
	if c.reporter == nil {
		return nil, ErrNilReporter
	}
	if !c.options.SkipValidation {
		if err := c.program.Validate(); err != nil {
			return nil, fmt.Errorf("validating program: %w", err)
		}
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := c.options.Logger.With(slog.String("run_id", runID))

	ctx, span := startCollectSpan(ctx, runID, c.program)
	defer span.End()

	r := &run{
		opts:     &c.options,
		reporter: c.reporter,
		logger:   logger,
		optional: make(map[string]struct{}, len(c.options.OptionalExpectationAnnotations)),
		links:    NewLinkMap(),
		stats:    &Stats{},
	}
	for _, a := range c.options.OptionalExpectationAnnotations {
		r.optional[a] = struct{}{}
	}
	result := &Result{RunID: runID, Links: r.links}

	finish := func(incomplete bool) (*Result, error) {
		r.stats.DurationMicro = time.Since(start).Microseconds()
		result.Stats = *r.stats
		result.Incomplete = incomplete
		setCollectSpanResult(span, result)
		recordCollectMetrics(ctx, time.Since(start), result)
		logger.Info("expect/actual linking finished",
			slog.Int("links", r.links.Len()),
			slog.Int("missing", r.stats.Missing),
			slog.Int("ambiguous", r.stats.Ambiguous),
			slog.Bool("incomplete", incomplete),
			slog.Int64("duration_us", r.stats.DurationMicro),
		)
		return result, nil
	}

	// Phase 1: catalog
	if err := r.catalogPhase(ctx, c.program); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return finish(true)
		}
		span.RecordError(err)
		return nil, err
	}
	result.Aliases = r.catalog.aliases
	result.Classes = r.catalog.classes

	// Phase 2: class links
	if err := ctx.Err(); err != nil {
		return finish(true)
	}
	r.classPhase(ctx, c.program)

	// Phase 3: member links
	if err := ctx.Err(); err != nil {
		return finish(true)
	}
	if err := r.memberPhase(ctx, c.program); err != nil {
		span.RecordError(err)
		return nil, err
	}
	result.ActualMembers = r.members

	return finish(false)
}

func (r *run) catalogPhase(ctx context.Context, p *ast.Program) error {
	_, span := tracer.Start(ctx, "Collector.catalog")
	defer span.End()

	r.catalog = newCatalog(r.logger)
	for _, frag := range actualFragments(p) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, file := range frag.Files {
			if err := r.catalog.collect(file); err != nil {
				return err
			}
		}
		r.stats.FragmentsCatalogued++
	}
	r.catalog.classes.Freeze()

	r.stats.ActualClasses = r.catalog.classes.Len()
	r.stats.ActualMembers = len(r.catalog.members)
	r.stats.TypeAliases = r.catalog.typeAliases
	r.stats.SkippedTypeAliases = r.catalog.skipped

	span.SetAttributes(
		attribute.Int("fragments", r.stats.FragmentsCatalogued),
		attribute.Int("actual_classes", r.stats.ActualClasses),
		attribute.Int("actual_members", r.stats.ActualMembers),
		attribute.Int("type_aliases", r.stats.TypeAliases),
	)
	r.logger.Debug("actual catalog built",
		slog.Int("classes", r.stats.ActualClasses),
		slog.Int("members", r.stats.ActualMembers),
		slog.Int("type_aliases", r.stats.TypeAliases),
	)
	return nil
}

func (r *run) classPhase(ctx context.Context, p *ast.Program) {
	_, span := tracer.Start(ctx, "Collector.linkClasses")
	defer span.End()

	for _, frag := range p.Dependents {
		for _, file := range frag.Files {
			r.linkClasses(file)
		}
	}

	span.SetAttributes(
		attribute.Int("class_links", r.stats.ClassLinks),
		attribute.Int("type_parameter_links", r.stats.TypeParameterLinks),
	)
}

func (r *run) memberPhase(ctx context.Context, p *ast.Program) error {
	_, span := tracer.Start(ctx, "Collector.linkMembers")
	defer span.End()

	members, err := r.catalog.memberIndex()
	if err != nil {
		return err
	}
	r.members = members

	for _, frag := range p.Dependents {
		for _, file := range frag.Files {
			r.linkMembers(file)
		}
	}

	ms := members.Stats()
	span.SetAttributes(
		attribute.Int("member_names", ms.DistinctNames),
		attribute.Int("ambiguous_names", ms.AmbiguousNames),
		attribute.Int("member_links", r.stats.MemberLinks),
		attribute.Int("ambiguous", r.stats.Ambiguous),
		attribute.Int("deferred_fake_overrides", r.stats.DeferredFakeOverrides),
	)
	return nil
}

// addLink writes expect -> actual, keeping the first link on conflict.
// Returns true if the link was written.
func (r *run) addLink(expect, actual *ast.Declaration) bool {
	if err := r.links.Add(expect, actual); err != nil {
		r.stats.Conflicts++
		r.logger.Warn("link not recorded",
			slog.String("expect", string(expect.ID)),
			slog.String("error", err.Error()),
		)
		return false
	}
	recordLink(expect.Kind)
	return true
}

func (r *run) reportMissing(d *ast.Declaration) {
	r.stats.Missing++
	recordMissing(d.Kind)
	r.reporter.ReportMissingActual(d)
}
