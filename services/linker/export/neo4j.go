// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package export writes linker results to a Neo4j graph.
//
// Declarations become :Declaration nodes keyed by symbol ID, nested
// declarations point at their container with DECLARED_IN, and every link of
// a link set becomes an ACTUALIZED_BY relationship from the expected to the
// actual declaration. Statements are sent as UNWIND batches.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/expectlink/services/linker/ast"
	"github.com/AleutianAI/expectlink/services/linker/config"
	"github.com/AleutianAI/expectlink/services/linker/fqname"
	"github.com/AleutianAI/expectlink/services/linker/graph"
)

// ErrNilInput is returned when Export is called without a program or link set.
var ErrNilInput = errors.New("nil export input")

var tracer = otel.Tracer("aleutian.linker.export")

// Cypher statements.
const (
	cypherDeclarations = `UNWIND $batch AS row
MERGE (d:Declaration {id: row.id})
SET d.kind = row.kind, d.name = row.name, d.fq_name = row.fq_name,
    d.fragment = row.fragment, d.file = row.file,
    d.expect = row.expect, d.actual = row.actual`

	cypherContainment = `UNWIND $batch AS row
MATCH (c:Declaration {id: row.id}), (p:Declaration {id: row.parent})
MERGE (c)-[:DECLARED_IN]->(p)`

	cypherLinks = `UNWIND $batch AS row
MATCH (e:Declaration {id: row.expect}), (a:Declaration {id: row.actual})
MERGE (e)-[r:ACTUALIZED_BY]->(a)
SET r.kind = row.kind, r.run_id = row.run_id`

	cypherDiagnostics = `UNWIND $batch AS row
MATCH (d:Declaration {id: row.symbol})
SET d.diagnostic = row.kind, d.candidates = row.candidates`
)

var cleanStatements = []string{
	"MATCH ()-[r:ACTUALIZED_BY]->() DELETE r",
	"MATCH ()-[r:DECLARED_IN]->() DELETE r",
	"MATCH (n:Declaration) DETACH DELETE n",
}

var indexStatements = []string{
	"CREATE INDEX linker_decl_id IF NOT EXISTS FOR (n:Declaration) ON (n.id)",
	"CREATE INDEX linker_decl_fq_name IF NOT EXISTS FOR (n:Declaration) ON (n.fq_name)",
}

// statementRunner executes one Cypher statement.
type statementRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) error
}

type driverRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *driverRunner) Run(ctx context.Context, cypher string, params map[string]any) error {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if r.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(r.database))
	}
	_, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params, neo4j.EagerResultTransformer, opts...)
	return err
}

// =============================================================================
// Options
// =============================================================================

// Options configures a Neo4jExporter.
type Options struct {
	// Logger receives progress output. Default: slog.Default().
	Logger *slog.Logger

	// BatchSize is the number of rows per UNWIND statement.
	// Default: config.DefaultExportBatchSize
	BatchSize int

	// Database is the Neo4j database. Empty uses the server default.
	Database string
}

// DefaultOptions returns the default exporter options.
func DefaultOptions() Options {
	return Options{
		Logger:    slog.Default(),
		BatchSize: config.DefaultExportBatchSize,
	}
}

// Option is a functional option for configuring a Neo4jExporter.
type Option func(*Options)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithBatchSize sets the rows per UNWIND statement. Values <= 0 are ignored.
func WithBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BatchSize = n
		}
	}
}

// WithDatabase selects the Neo4j database.
func WithDatabase(db string) Option {
	return func(o *Options) {
		o.Database = db
	}
}

// WithConfig applies the export section of a LinkerConfig.
func WithConfig(cfg *config.LinkerConfig) Option {
	return func(o *Options) {
		if cfg == nil {
			return
		}
		if cfg.Export.BatchSize > 0 {
			o.BatchSize = cfg.Export.BatchSize
		}
		o.Database = cfg.Export.Database
	}
}

// =============================================================================
// Exporter
// =============================================================================

// Stats counts what one Export call wrote.
type Stats struct {
	Declarations int
	Containment  int
	Links        int
	Diagnostics  int
	Statements   int
}

// Neo4jExporter writes programs and link sets to Neo4j.
//
// Thread Safety: Safe for concurrent use; the driver pools its connections.
type Neo4jExporter struct {
	runner statementRunner
	close  func(ctx context.Context) error
	opts   Options
}

// NewNeo4jExporter connects to Neo4j and verifies connectivity.
//
// Inputs:
//
//	ctx - Context for the connectivity check.
//	uri - Bolt or neo4j URI.
//	user, password - Basic auth credentials.
//	opts - Functional options.
//
// Outputs:
//
//	*Neo4jExporter - The exporter. Call Close when done.
//	error - Non-nil if the driver cannot be created or the server is unreachable.
func NewNeo4jExporter(ctx context.Context, uri, user, password string, opts ...Option) (*Neo4jExporter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j at %s: %w", uri, err)
	}
	e := newExporter(nil, opts...)
	e.runner = &driverRunner{driver: driver, database: e.opts.Database}
	e.close = driver.Close
	return e, nil
}

func newExporter(runner statementRunner, opts ...Option) *Neo4jExporter {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Neo4jExporter{
		runner: runner,
		close:  func(context.Context) error { return nil },
		opts:   options,
	}
}

// Close releases the driver.
func (e *Neo4jExporter) Close(ctx context.Context) error {
	return e.close(ctx)
}

// CreateIndexes ensures the indexes used by Export exist.
func (e *Neo4jExporter) CreateIndexes(ctx context.Context) error {
	for _, q := range indexStatements {
		if err := e.runner.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("creating indexes: %w", err)
		}
	}
	return nil
}

// Clean removes every node and relationship written by Export.
func (e *Neo4jExporter) Clean(ctx context.Context) error {
	e.opts.Logger.Info("cleaning exported link graph")
	for _, q := range cleanStatements {
		if err := e.runner.Run(ctx, q, nil); err != nil {
			return fmt.Errorf("cleaning link graph: %w", err)
		}
	}
	return nil
}

// Export writes the program's declarations and the link set.
//
// Description:
//
//	Writes declaration nodes first, then containment edges, then links,
//	then marks declarations that carry diagnostics. Each stage is split
//	into UNWIND batches of BatchSize rows. Writes are MERGEs, so exporting
//	the same run twice is idempotent.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	p - The program the link set was computed from. Must not be nil.
//	ls - The link set. Must not be nil.
//
// Outputs:
//
//	Stats - What was written.
//	error - Non-nil on nil input or the first failing statement.
func (e *Neo4jExporter) Export(ctx context.Context, p *ast.Program, ls *graph.SerializableLinkSet) (Stats, error) {
	var stats Stats
	if p == nil || ls == nil {
		return stats, ErrNilInput
	}

	ctx, span := tracer.Start(ctx, "Neo4jExporter.Export")
	defer span.End()

	decls := DeclarationRows(p)
	parents := ContainmentRows(p)
	links := LinkRows(ls)
	diags := DiagnosticRows(ls)

	stages := []struct {
		name   string
		cypher string
		rows   []map[string]any
		count  *int
	}{
		{"declarations", cypherDeclarations, decls, &stats.Declarations},
		{"containment", cypherContainment, parents, &stats.Containment},
		{"links", cypherLinks, links, &stats.Links},
		{"diagnostics", cypherDiagnostics, diags, &stats.Diagnostics},
	}
	for _, st := range stages {
		for _, batch := range Batches(st.rows, e.opts.BatchSize) {
			if err := ctx.Err(); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "cancelled")
				return stats, err
			}
			if err := e.runner.Run(ctx, st.cypher, map[string]any{"batch": batch}); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, st.name)
				return stats, fmt.Errorf("exporting %s: %w", st.name, err)
			}
			stats.Statements++
			*st.count += len(batch)
		}
	}

	span.SetAttributes(
		attribute.String("run_id", ls.RunID),
		attribute.Int("declarations", stats.Declarations),
		attribute.Int("links", stats.Links),
		attribute.Int("statements", stats.Statements),
	)
	e.opts.Logger.Info("link graph exported",
		slog.String("run_id", ls.RunID),
		slog.Int("declarations", stats.Declarations),
		slog.Int("links", stats.Links),
		slog.Int("diagnostics", stats.Diagnostics),
	)
	return stats, nil
}

// =============================================================================
// Row Building
// =============================================================================

// DeclarationRows returns one row per non-file declaration, sorted by ID.
// Synthetic declarations have an empty fragment and file.
func DeclarationRows(p *ast.Program) []map[string]any {
	var rows []map[string]any
	add := func(fragment string) ast.WalkFunc {
		return func(d *ast.Declaration) bool {
			if d.Kind == ast.DeclKindFile {
				return true
			}
			file := ""
			if f := d.File(); f != nil {
				file = f.Path
			}
			rows = append(rows, map[string]any{
				"id":       string(d.ID),
				"kind":     d.Kind.String(),
				"name":     d.Name,
				"fq_name":  fqname.Of(d),
				"fragment": fragment,
				"file":     file,
				"expect":   d.Expect,
				"actual":   d.Actual,
			})
			return true
		}
	}
	for _, f := range p.Fragments() {
		for _, file := range f.Files {
			ast.WalkAll(file, add(f.Name))
		}
	}
	for _, s := range p.Synthetic {
		ast.WalkAll(s, add(""))
	}
	sortRows(rows, "id")
	return rows
}

// ContainmentRows returns one row per declaration nested in another
// non-file declaration, sorted by ID.
func ContainmentRows(p *ast.Program) []map[string]any {
	var rows []map[string]any
	visit := func(d *ast.Declaration) bool {
		if d.Parent != nil && d.Parent.Kind != ast.DeclKindFile {
			rows = append(rows, map[string]any{
				"id":     string(d.ID),
				"parent": string(d.Parent.ID),
			})
		}
		return true
	}
	for _, f := range p.Fragments() {
		for _, file := range f.Files {
			ast.WalkAll(file, visit)
		}
	}
	for _, s := range p.Synthetic {
		ast.WalkAll(s, visit)
	}
	sortRows(rows, "id")
	return rows
}

// LinkRows returns one row per link, in link set order.
func LinkRows(ls *graph.SerializableLinkSet) []map[string]any {
	rows := make([]map[string]any, 0, len(ls.Links))
	for _, l := range ls.Links {
		rows = append(rows, map[string]any{
			"expect": string(l.Expect),
			"actual": string(l.Actual),
			"kind":   l.Kind,
			"run_id": ls.RunID,
		})
	}
	return rows
}

// DiagnosticRows returns one row per diagnostic, in link set order.
func DiagnosticRows(ls *graph.SerializableLinkSet) []map[string]any {
	rows := make([]map[string]any, 0, len(ls.Diagnostics))
	for _, d := range ls.Diagnostics {
		cands := make([]string, 0, len(d.Candidates))
		for _, c := range d.Candidates {
			cands = append(cands, string(c))
		}
		rows = append(rows, map[string]any{
			"symbol":     string(d.Symbol),
			"kind":       d.Kind,
			"candidates": cands,
		})
	}
	return rows
}

// Batches splits rows into chunks of at most size rows. A size <= 0 yields
// a single batch.
func Batches(rows []map[string]any, size int) [][]map[string]any {
	if len(rows) == 0 {
		return nil
	}
	if size <= 0 || size >= len(rows) {
		return [][]map[string]any{rows}
	}
	out := make([][]map[string]any, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}

func sortRows(rows []map[string]any, key string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i][key].(string) < rows[j][key].(string)
	})
}
