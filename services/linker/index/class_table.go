// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index holds the lookup tables built by the actual catalog pass.
//
// ClassTable maps a structural class name to exactly one actual class.
// MemberIndex maps a structural member name to an ordered list of
// candidates; lists, not sets, so that ambiguity stays visible to the
// member linker.
//
// # Lifecycle
//
// Tables are filled by a single writer during the catalog pass, then frozen.
// After Freeze() they are read-only and safe for concurrent reads.
package index

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// ClassTable maps structural names to actual class symbols.
//
// Later entries for the same name replace earlier ones: a more specific
// fragment is catalogued after a less specific one.
type ClassTable struct {
	byName map[string]*ast.Declaration
	frozen bool
}

// NewClassTable creates an empty class table.
func NewClassTable() *ClassTable {
	return &ClassTable{byName: make(map[string]*ast.Declaration)}
}

// Put records class under name.
//
// Inputs:
//
//	name - Structural name of the actual class or type alias.
//	class - The class symbol. Must be a DeclKindClass declaration.
//
// Outputs:
//
//	replaced - The previous class under name, nil if none.
//	error - ErrFrozen or ErrInvalidEntry.
func (t *ClassTable) Put(name string, class *ast.Declaration) (replaced *ast.Declaration, err error) {
	if t.frozen {
		return nil, ErrFrozen
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty class name", ErrInvalidEntry)
	}
	if class == nil || class.Kind != ast.DeclKindClass {
		return nil, fmt.Errorf("%w: %s is not a class", ErrInvalidEntry, class)
	}
	replaced = t.byName[name]
	t.byName[name] = class
	return replaced, nil
}

// Get returns the class catalogued under name.
func (t *ClassTable) Get(name string) (*ast.Declaration, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// Len returns the number of catalogued names.
func (t *ClassTable) Len() int {
	return len(t.byName)
}

// Names returns all catalogued names, sorted.
func (t *ClassTable) Names() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Freeze makes the table read-only.
func (t *ClassTable) Freeze() {
	t.frozen = true
}
