// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed linker_defaults.yaml
var defaultLinkerConfigYAML []byte

// ConfigFileName is the per-project override file looked up by LoadFromDir.
const ConfigFileName = "linker.config.yaml"

// MaxYAMLFileSize bounds the size of a config file.
const MaxYAMLFileSize = 1 << 20

// DefaultSnapshotListLimit is used when snapshots.list_limit is unset.
const DefaultSnapshotListLimit = 100

// DefaultExportBatchSize is used when export.batch_size is unset.
const DefaultExportBatchSize = 500

// Ambiguity policies.
const (
	// AmbiguityInert records no link and raises no diagnostic.
	AmbiguityInert = "inert"

	// AmbiguityReport records no link and raises an ambiguous-actuals diagnostic.
	AmbiguityReport = "report"
)

// ErrInvalidConfig is returned when a config fails validation.
var ErrInvalidConfig = errors.New("invalid linker config")

var configTracer = otel.Tracer("aleutian.linker.config")

// =============================================================================
// Types
// =============================================================================

// LinkerConfig holds the linker's tunables.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type LinkerConfig struct {
	// OptionalExpectationAnnotations exempt an expected class and its
	// direct members from missing-actual diagnostics. Nested classes need
	// their own marker.
	OptionalExpectationAnnotations []string `yaml:"optional_expectation_annotations"`

	// AmbiguityPolicy is AmbiguityInert or AmbiguityReport.
	AmbiguityPolicy string `yaml:"ambiguity_policy"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Snapshots configures link-set snapshot storage.
	Snapshots SnapshotConfig `yaml:"snapshots"`

	// Export configures graph database export.
	Export ExportConfig `yaml:"export"`
}

// SnapshotConfig configures link-set snapshot storage.
type SnapshotConfig struct {
	// ListLimit is the default page size for listing snapshots.
	ListLimit int `yaml:"list_limit"`
}

// ExportConfig configures graph database export.
type ExportConfig struct {
	// BatchSize is the number of rows per UNWIND statement.
	BatchSize int `yaml:"batch_size"`

	// Database is the Neo4j database name. Empty uses the server default.
	Database string `yaml:"database"`
}

// SlogLevel maps LogLevel onto a slog.Level. Unknown values map to Info.
func (c *LinkerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Loading
// =============================================================================

// Default returns the embedded default configuration.
//
// The embedded YAML is part of the build; failing to parse it is a
// programming error and panics.
func Default() *LinkerConfig {
	cfg, err := Parse(context.Background(), defaultLinkerConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Parse loads and validates a LinkerConfig from YAML bytes.
//
// Description:
//
//	Parses the YAML, applies defaults for missing fields and validates.
//
// Inputs:
//
//	ctx - Context for tracing.
//	data - Raw YAML bytes.
//
// Outputs:
//
//	*LinkerConfig - The validated configuration.
//	error - Wraps ErrInvalidConfig on validation failures.
func Parse(ctx context.Context, data []byte) (*LinkerConfig, error) {
	_, span := configTracer.Start(ctx, "config.Parse")
	defer span.End()

	if len(data) > MaxYAMLFileSize {
		return nil, fmt.Errorf("%w: YAML data exceeds maximum size (%d > %d)", ErrInvalidConfig, len(data), MaxYAMLFileSize)
	}

	var cfg LinkerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing linker config: %w", err)
	}

	if cfg.AmbiguityPolicy == "" {
		cfg.AmbiguityPolicy = AmbiguityInert
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Snapshots.ListLimit <= 0 {
		cfg.Snapshots.ListLimit = DefaultSnapshotListLimit
	}
	if cfg.Export.BatchSize <= 0 {
		cfg.Export.BatchSize = DefaultExportBatchSize
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("ambiguity_policy", cfg.AmbiguityPolicy),
		attribute.Int("optional_expectation_annotations", len(cfg.OptionalExpectationAnnotations)),
	)
	return &cfg, nil
}

// LoadFromDir reads linker.config.yaml from dir.
//
// Description:
//
//	A missing file, or an empty dir, yields the embedded defaults with no
//	error. Only a file that exists but cannot be read or parsed is an error.
//
// Inputs:
//
//	ctx - Context for tracing.
//	dir - Directory holding the config file. May be empty.
//
// Outputs:
//
//	*LinkerConfig - The loaded or default configuration.
//	error - Non-nil if the file exists but is invalid.
func LoadFromDir(ctx context.Context, dir string) (*LinkerConfig, error) {
	if dir == "" {
		return Default(), nil
	}

	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	cfg, err := Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	slog.Info("linker config loaded",
		slog.String("path", path),
		slog.String("ambiguity_policy", cfg.AmbiguityPolicy),
	)
	return cfg, nil
}

func validate(cfg *LinkerConfig) error {
	switch cfg.AmbiguityPolicy {
	case AmbiguityInert, AmbiguityReport:
	default:
		return fmt.Errorf("%w: ambiguity_policy must be %q or %q, got %q",
			ErrInvalidConfig, AmbiguityInert, AmbiguityReport, cfg.AmbiguityPolicy)
	}
	for i, a := range cfg.OptionalExpectationAnnotations {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("%w: optional_expectation_annotations[%d] must not be empty", ErrInvalidConfig, i)
		}
	}
	return nil
}
