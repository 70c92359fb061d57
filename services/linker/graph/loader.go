// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// FragmentDocument is the on-disk form of one fragment.
type FragmentDocument struct {
	SchemaVersion string               `json:"schema_version"`
	Fragment      SerializableFragment `json:"fragment"`
}

// LoadOption configures LoadProgramFiles.
type LoadOption func(*loadOptions)

type loadOptions struct {
	logger *slog.Logger
}

// WithLoadLogger sets the logger for LoadProgramFiles. Default: slog.Default().
func WithLoadLogger(l *slog.Logger) LoadOption {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// LoadProgramFiles reads one fragment document per path and assembles a
// program.
//
// Description:
//
//	Documents are read and decoded concurrently, bounded by the number of
//	CPUs. Dependent order follows dependentPaths, least specific first.
//	Synthetic declarations of every document are merged into the program.
//	Type references are resolved after all documents are in, so fragments
//	may reference each other.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	mainPath - Path of the main fragment document.
//	dependentPaths - Paths of the dependent fragment documents.
//	opts - Functional options.
//
// Outputs:
//
//	*ast.Program - The assembled program.
//	error - Non-nil if any document cannot be read or decoded.
func LoadProgramFiles(ctx context.Context, mainPath string, dependentPaths []string, opts ...LoadOption) (*ast.Program, error) {
	options := loadOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	paths := append([]string{mainPath}, dependentPaths...)
	docs := make([]FragmentDocument, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(runtime.NumCPU(), len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := readFragmentDocument(path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sp := &SerializableProgram{SchemaVersion: ProgramSchemaVersion}
	for i, doc := range docs {
		if i == 0 {
			sp.Main = doc.Fragment
		} else {
			sp.Dependents = append(sp.Dependents, doc.Fragment)
		}
		sp.Synthetic = append(sp.Synthetic, doc.Fragment.Synthetic...)
	}

	p, err := FromSerializableProgram(sp)
	if err != nil {
		return nil, err
	}
	options.logger.Debug("program loaded",
		slog.String("main", p.Main.Name),
		slog.Int("dependents", len(p.Dependents)),
		slog.Int("synthetic", len(p.Synthetic)),
	)
	return p, nil
}

// WriteFragmentFile writes f as a fragment document. Synthetic
// declarations are attached to the document when given.
func WriteFragmentFile(path string, f *ast.Fragment, synthetic ...*ast.Declaration) error {
	doc := FragmentDocument{
		SchemaVersion: ProgramSchemaVersion,
		Fragment:      toSerializableFragment(f),
	}
	for _, s := range synthetic {
		doc.Fragment.Synthetic = append(doc.Fragment.Synthetic, toSerializableDecl(s))
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling fragment %s: %w", f.Name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing fragment %s: %w", f.Name, err)
	}
	return nil
}

func readFragmentDocument(path string) (FragmentDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FragmentDocument{}, fmt.Errorf("reading fragment %s: %w", path, err)
	}
	var doc FragmentDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return FragmentDocument{}, fmt.Errorf("decoding fragment %s: %w", path, err)
	}
	if doc.SchemaVersion != ProgramSchemaVersion {
		return FragmentDocument{}, fmt.Errorf("%w: %s has schema %q, want %q", ErrSchemaVersion, path, doc.SchemaVersion, ProgramSchemaVersion)
	}
	return doc, nil
}
