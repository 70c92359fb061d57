// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"fmt"
)

// Fragment is one platform-specificity tier of compiled program structure.
type Fragment struct {
	// Name identifies the fragment (e.g. "common", "jvm").
	Name string

	// Files are the fragment's files, each a DeclKindFile declaration.
	Files []*Declaration
}

// NewFragment creates an empty fragment.
func NewFragment(name string) *Fragment {
	return &Fragment{Name: name}
}

// AddFile adds a file declaration to the fragment and returns it.
//
// Inputs:
//
//	path - File path, unique within the fragment.
//	pkg - Dotted package name. May be empty for the root package.
func (f *Fragment) AddFile(path, pkg string) *Declaration {
	file := &Declaration{
		ID:      SymbolID(f.Name + ":" + path),
		Kind:    DeclKindFile,
		Name:    path,
		Path:    path,
		Package: pkg,
	}
	f.Files = append(f.Files, file)
	return file
}

// Program is the whole-program input of one linking run.
//
// Dependents are ordered from least to most platform-specific. Synthetic
// holds declarations that belong to no file, such as builtins that are only
// reachable through a type alias's expanded type.
type Program struct {
	Main       *Fragment
	Dependents []*Fragment
	Synthetic  []*Declaration
}

// NewProgram creates a program from its main fragment and dependents.
func NewProgram(main *Fragment, dependents ...*Fragment) *Program {
	return &Program{Main: main, Dependents: dependents}
}

// Fragments returns dependents followed by main.
func (p *Program) Fragments() []*Fragment {
	out := make([]*Fragment, 0, len(p.Dependents)+1)
	out = append(out, p.Dependents...)
	if p.Main != nil {
		out = append(out, p.Main)
	}
	return out
}

// AddSyntheticClass registers a class that belongs to no file.
//
// Description:
//
//	Synthetic classes carry their own Package so fully qualified names can
//	still be derived. They are not enumerated by fragment traversal; the
//	catalog reaches them only through type alias expansion.
func (p *Program) AddSyntheticClass(pkg, name string, opts ...DeclOption) *Declaration {
	c := &Declaration{
		ID:      SymbolID("<synthetic>:" + qualify(pkg, name)),
		Kind:    DeclKindClass,
		Name:    name,
		Package: pkg,
	}
	for _, opt := range opts {
		opt(c)
	}
	p.Synthetic = append(p.Synthetic, c)
	return c
}

// Symbols returns every declaration in the program keyed by SymbolID.
//
// Description:
//
//	Walks all fragments and synthetic declarations, including type
//	parameters and property accessors. Duplicate IDs keep the first
//	occurrence; use Validate to detect them.
func (p *Program) Symbols() map[SymbolID]*Declaration {
	out := make(map[SymbolID]*Declaration)
	visit := func(d *Declaration) bool {
		if _, exists := out[d.ID]; !exists {
			out[d.ID] = d
		}
		return true
	}
	for _, f := range p.Fragments() {
		for _, file := range f.Files {
			WalkAll(file, visit)
		}
	}
	for _, s := range p.Synthetic {
		WalkAll(s, visit)
	}
	return out
}

// Lookup finds a declaration by SymbolID.
func (p *Program) Lookup(id SymbolID) (*Declaration, bool) {
	d, ok := p.Symbols()[id]
	return d, ok
}

// Validate checks the whole program graph.
//
// Description:
//
//	Requires a main fragment, validates every declaration, checks that file
//	declarations have no parent and that symbol IDs are unique.
//
// Outputs:
//
//	error - Wraps ErrInvalidProgram, ErrInvalidDeclaration or ErrDuplicateSymbol.
func (p *Program) Validate() error {
	if p == nil || p.Main == nil {
		return fmt.Errorf("%w: main fragment is nil", ErrInvalidProgram)
	}

	seen := make(map[SymbolID]struct{})
	var firstErr error
	visit := func(d *Declaration) bool {
		if firstErr != nil {
			return false
		}
		if err := d.Validate(); err != nil {
			firstErr = err
			return false
		}
		if _, dup := seen[d.ID]; dup {
			firstErr = fmt.Errorf("%w: %s", ErrDuplicateSymbol, d.ID)
			return false
		}
		seen[d.ID] = struct{}{}
		return true
	}

	for _, f := range p.Fragments() {
		if f == nil {
			return fmt.Errorf("%w: nil fragment", ErrInvalidProgram)
		}
		for _, file := range f.Files {
			if file == nil || file.Kind != DeclKindFile {
				return fmt.Errorf("%w: fragment %s has a non-file root", ErrInvalidDeclaration, f.Name)
			}
			if file.Parent != nil {
				return fmt.Errorf("%w: file %s has a parent", ErrInvalidDeclaration, file.ID)
			}
			WalkAll(file, visit)
			if firstErr != nil {
				return firstErr
			}
		}
	}
	for _, s := range p.Synthetic {
		WalkAll(s, visit)
		if firstErr != nil {
			return firstErr
		}
	}
	return nil
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
