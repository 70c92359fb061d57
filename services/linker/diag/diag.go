// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diag holds the diagnostic sinks used by the linker.
//
// The linker emits one event per unmatched expected declaration. Formatting
// and delivery are left to the sink: Collector keeps events in memory,
// LogReporter writes them to slog, and Multi fans out to several sinks.
package diag

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// Kind classifies a diagnostic event.
type Kind int

const (
	// KindMissingActual means an expected declaration has no actual.
	KindMissingActual Kind = iota + 1

	// KindAmbiguousActuals means several actual members share the expected
	// member's structural name and none was picked.
	KindAmbiguousActuals
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindMissingActual:
		return "missing_actual"
	case KindAmbiguousActuals:
		return "ambiguous_actuals"
	default:
		return "unknown"
	}
}

// Diagnostic is one reported event.
type Diagnostic struct {
	Kind Kind

	// Symbol is the expected declaration's identity.
	Symbol ast.SymbolID

	// Name is the expected declaration's simple name.
	Name string

	// DeclKind is the expected declaration's kind.
	DeclKind ast.DeclKind

	// Candidates are the competing actuals for KindAmbiguousActuals.
	Candidates []ast.SymbolID
}

// String returns a single-line description of the event.
func (d Diagnostic) String() string {
	switch d.Kind {
	case KindAmbiguousActuals:
		return fmt.Sprintf("%s: expected %s %s (%s) has %d actuals", d.Kind, d.DeclKind, d.Name, d.Symbol, len(d.Candidates))
	default:
		return fmt.Sprintf("%s: expected %s %s (%s) has no actual", d.Kind, d.DeclKind, d.Name, d.Symbol)
	}
}

// MissingActual builds a KindMissingActual event for decl.
func MissingActual(decl *ast.Declaration) Diagnostic {
	return Diagnostic{
		Kind:     KindMissingActual,
		Symbol:   decl.ID,
		Name:     decl.Name,
		DeclKind: decl.Kind,
	}
}

// AmbiguousActuals builds a KindAmbiguousActuals event for decl.
func AmbiguousActuals(decl *ast.Declaration, candidates []*ast.Declaration) Diagnostic {
	ids := make([]ast.SymbolID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return Diagnostic{
		Kind:       KindAmbiguousActuals,
		Symbol:     decl.ID,
		Name:       decl.Name,
		DeclKind:   decl.Kind,
		Candidates: ids,
	}
}

// =============================================================================
// Collector
// =============================================================================

// Collector accumulates diagnostics in report order.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	mu     sync.Mutex
	events []Diagnostic
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// ReportMissingActual records a missing-actual event.
func (c *Collector) ReportMissingActual(decl *ast.Declaration) {
	c.add(MissingActual(decl))
}

// ReportAmbiguousActuals records an ambiguous-actuals event.
func (c *Collector) ReportAmbiguousActuals(decl *ast.Declaration, candidates []*ast.Declaration) {
	c.add(AmbiguousActuals(decl, candidates))
}

func (c *Collector) add(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, d)
}

// Diagnostics returns a copy of the recorded events in report order.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.events))
	copy(out, c.events)
	return out
}

// Count returns how many events of kind were recorded.
func (c *Collector) Count(kind Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.events {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the number of recorded events.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// Symbols returns the sorted symbols that received an event of kind.
func (c *Collector) Symbols(kind Kind) []ast.SymbolID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []ast.SymbolID
	for _, d := range c.events {
		if d.Kind == kind {
			out = append(out, d.Symbol)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// =============================================================================
// LogReporter
// =============================================================================

// LogReporter writes each event to a slog.Logger at warn level.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter. A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// ReportMissingActual logs a missing-actual event.
func (r *LogReporter) ReportMissingActual(decl *ast.Declaration) {
	r.logger.Warn("expected declaration has no actual",
		slog.String("symbol", string(decl.ID)),
		slog.String("kind", decl.Kind.String()),
		slog.String("name", decl.Name),
	)
}

// ReportAmbiguousActuals logs an ambiguous-actuals event.
func (r *LogReporter) ReportAmbiguousActuals(decl *ast.Declaration, candidates []*ast.Declaration) {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = string(c.ID)
	}
	r.logger.Warn("expected declaration has ambiguous actuals",
		slog.String("symbol", string(decl.ID)),
		slog.String("kind", decl.Kind.String()),
		slog.String("name", decl.Name),
		slog.Any("candidates", ids),
	)
}

// =============================================================================
// Multi
// =============================================================================

// Sink is the reporting surface shared by every reporter in this package.
type Sink interface {
	ReportMissingActual(decl *ast.Declaration)
	ReportAmbiguousActuals(decl *ast.Declaration, candidates []*ast.Declaration)
}

// Multi forwards every event to each sink in order.
type Multi []Sink

// ReportMissingActual forwards to every sink.
func (m Multi) ReportMissingActual(decl *ast.Declaration) {
	for _, s := range m {
		s.ReportMissingActual(decl)
	}
}

// ReportAmbiguousActuals forwards to every sink.
func (m Multi) ReportAmbiguousActuals(decl *ast.Declaration, candidates []*ast.Declaration) {
	for _, s := range m {
		s.ReportAmbiguousActuals(decl, candidates)
	}
}
