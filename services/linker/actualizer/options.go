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
	"log/slog"

	"github.com/AleutianAI/expectlink/services/linker/ast"
	"github.com/AleutianAI/expectlink/services/linker/config"
)

// DefaultOptionalExpectationAnnotation marks an expected class whose actual
// may be absent.
const DefaultOptionalExpectationAnnotation = "kotlin.OptionalExpectation"

// Reporter receives diagnostic events from a run.
//
// Implementations live in package diag.
type Reporter interface {
	// ReportMissingActual is called once per unmatched, non-exempt
	// expected declaration.
	ReportMissingActual(decl *ast.Declaration)

	// ReportAmbiguousActuals is called for members with several matching
	// actuals when the ambiguity policy is AmbiguityReport.
	ReportAmbiguousActuals(decl *ast.Declaration, candidates []*ast.Declaration)
}

// AmbiguityPolicy decides what happens when an expected member matches
// several actual members. No policy ever picks a candidate.
type AmbiguityPolicy int

const (
	// AmbiguityInert records no link and raises no diagnostic.
	AmbiguityInert AmbiguityPolicy = iota

	// AmbiguityReport records no link and reports the candidates.
	AmbiguityReport
)

// String returns the string representation of the AmbiguityPolicy.
func (p AmbiguityPolicy) String() string {
	switch p {
	case AmbiguityInert:
		return config.AmbiguityInert
	case AmbiguityReport:
		return config.AmbiguityReport
	default:
		return "unknown"
	}
}

// Options configures a Collector.
type Options struct {
	// Logger receives debug and warn output. Default: slog.Default().
	Logger *slog.Logger

	// AmbiguityPolicy applies to members with several matching actuals.
	// Default: AmbiguityInert.
	AmbiguityPolicy AmbiguityPolicy

	// OptionalExpectationAnnotations exempt expected classes, and their
	// members, from missing-actual reports.
	// Default: kotlin.OptionalExpectation.
	OptionalExpectationAnnotations []string

	// SkipValidation skips Program.Validate before the run.
	SkipValidation bool
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		Logger:                         slog.Default(),
		AmbiguityPolicy:                AmbiguityInert,
		OptionalExpectationAnnotations: []string{DefaultOptionalExpectationAnnotation},
	}
}

// Option is a functional option for configuring a Collector.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithAmbiguityPolicy sets the ambiguity policy.
func WithAmbiguityPolicy(p AmbiguityPolicy) Option {
	return func(o *Options) {
		o.AmbiguityPolicy = p
	}
}

// WithOptionalExpectationAnnotations replaces the optional-expectation
// annotation names.
func WithOptionalExpectationAnnotations(fqNames ...string) Option {
	return func(o *Options) {
		o.OptionalExpectationAnnotations = append([]string(nil), fqNames...)
	}
}

// WithSkipValidation disables Program.Validate before the run.
func WithSkipValidation() Option {
	return func(o *Options) {
		o.SkipValidation = true
	}
}

// WithConfig applies a loaded LinkerConfig. A nil config is ignored.
func WithConfig(cfg *config.LinkerConfig) Option {
	return func(o *Options) {
		if cfg == nil {
			return
		}
		if cfg.AmbiguityPolicy == config.AmbiguityReport {
			o.AmbiguityPolicy = AmbiguityReport
		} else {
			o.AmbiguityPolicy = AmbiguityInert
		}
		if len(cfg.OptionalExpectationAnnotations) > 0 {
			o.OptionalExpectationAnnotations = append([]string(nil), cfg.OptionalExpectationAnnotations...)
		}
	}
}
