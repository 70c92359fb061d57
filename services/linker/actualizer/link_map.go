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
	"fmt"
	"sort"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// Link is one expected-to-actual entry.
type Link struct {
	// Expect is the expected declaration's symbol.
	Expect ast.SymbolID

	// Actual is the actual declaration's symbol.
	Actual ast.SymbolID

	// Kind is the expected declaration's kind.
	Kind ast.DeclKind
}

// LinkMap maps expected symbols to actual symbols.
//
// Description:
//
//	Each expected symbol is a key at most once. Add never overwrites; a
//	second write for the same key fails with ErrLinkExists and leaves the
//	first link in place.
//
// Thread Safety: Not safe for concurrent writes. Read-only once returned
// from Collect.
type LinkMap struct {
	links  map[ast.SymbolID]Link
	byKind map[ast.DeclKind]int
}

// NewLinkMap creates an empty link map.
func NewLinkMap() *LinkMap {
	return &LinkMap{
		links:  make(map[ast.SymbolID]Link),
		byKind: make(map[ast.DeclKind]int),
	}
}

// Add records expect -> actual.
//
// Inputs:
//
//	expect - The expected declaration. Must not be nil.
//	actual - The actual declaration. Must not be nil.
//
// Outputs:
//
//	error - ErrInvalidLink for nil sides, ErrLinkExists if expect is
//	        already linked.
func (m *LinkMap) Add(expect, actual *ast.Declaration) error {
	if expect == nil || actual == nil {
		return fmt.Errorf("%w: nil declaration", ErrInvalidLink)
	}
	if expect.ID == "" || actual.ID == "" {
		return fmt.Errorf("%w: declaration without symbol", ErrInvalidLink)
	}
	if prev, ok := m.links[expect.ID]; ok {
		return fmt.Errorf("%w: %s -> %s, refusing %s", ErrLinkExists, expect.ID, prev.Actual, actual.ID)
	}
	m.links[expect.ID] = Link{Expect: expect.ID, Actual: actual.ID, Kind: expect.Kind}
	m.byKind[expect.Kind]++
	return nil
}

// Get returns the actual linked to expect.
func (m *LinkMap) Get(expect ast.SymbolID) (ast.SymbolID, bool) {
	l, ok := m.links[expect]
	return l.Actual, ok
}

// Has reports whether expect is linked.
func (m *LinkMap) Has(expect ast.SymbolID) bool {
	_, ok := m.links[expect]
	return ok
}

// Len returns the number of links.
func (m *LinkMap) Len() int {
	return len(m.links)
}

// CountByKind returns the number of links whose expected side has kind.
func (m *LinkMap) CountByKind(kind ast.DeclKind) int {
	return m.byKind[kind]
}

// Entries returns every link sorted by expected symbol.
func (m *LinkMap) Entries() []Link {
	out := make([]Link, 0, len(m.links))
	for _, l := range m.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Expect < out[j].Expect })
	return out
}
