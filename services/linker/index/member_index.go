// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"fmt"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// DefaultExpectedSize is the default initial capacity hint for MemberIndex.
const DefaultExpectedSize = 1024

// MemberIndexOptions configures MemberIndex.
type MemberIndexOptions struct {
	// ExpectedSize pre-sizes the name map.
	// Default: 1024
	ExpectedSize int
}

// DefaultMemberIndexOptions returns the default options.
func DefaultMemberIndexOptions() MemberIndexOptions {
	return MemberIndexOptions{ExpectedSize: DefaultExpectedSize}
}

// MemberIndexOption is a functional option for configuring MemberIndex.
type MemberIndexOption func(*MemberIndexOptions)

// WithExpectedSize sets the initial capacity hint.
func WithExpectedSize(n int) MemberIndexOption {
	return func(o *MemberIndexOptions) {
		o.ExpectedSize = n
	}
}

// MemberStats contains statistics about a MemberIndex.
type MemberStats struct {
	// TotalMembers is the number of indexed members.
	TotalMembers int

	// DistinctNames is the number of distinct structural names.
	DistinctNames int

	// AmbiguousNames is the number of names with more than one candidate.
	AmbiguousNames int

	// ByKind counts members per declaration kind.
	ByKind map[ast.DeclKind]int
}

// MemberIndex groups actual members by structural full name.
//
// Description:
//
//	Candidates for a name are kept in insertion order. A name with more
//	than one candidate is ambiguous; the index never picks one.
//
// Ownership:
//
//	The index stores pointers to declarations but does NOT own them.
type MemberIndex struct {
	byName     map[string][]*ast.Declaration
	kindCounts map[ast.DeclKind]int
	total      int
	frozen     bool
}

// NewMemberIndex creates an empty member index.
func NewMemberIndex(opts ...MemberIndexOption) *MemberIndex {
	options := DefaultMemberIndexOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.ExpectedSize < 0 {
		options.ExpectedSize = 0
	}
	return &MemberIndex{
		byName:     make(map[string][]*ast.Declaration, options.ExpectedSize),
		kindCounts: make(map[ast.DeclKind]int),
	}
}

// Add appends member to the candidates for name.
//
// Errors:
//
//	ErrFrozen - The index was frozen.
//	ErrInvalidEntry - member is nil, name is empty, or member is not a
//	                  function, constructor, property or enum entry.
func (idx *MemberIndex) Add(name string, member *ast.Declaration) error {
	if idx.frozen {
		return ErrFrozen
	}
	if name == "" {
		return fmt.Errorf("%w: empty member name", ErrInvalidEntry)
	}
	if member == nil {
		return fmt.Errorf("%w: member is nil", ErrInvalidEntry)
	}
	switch member.Kind {
	case ast.DeclKindFunction, ast.DeclKindConstructor, ast.DeclKindProperty, ast.DeclKindEnumEntry:
	default:
		return fmt.Errorf("%w: %s cannot be indexed as a member", ErrInvalidEntry, member)
	}

	idx.byName[name] = append(idx.byName[name], member)
	idx.kindCounts[member.Kind]++
	idx.total++
	return nil
}

// GetByName returns a defensive copy of the candidates for name, nil if none.
func (idx *MemberIndex) GetByName(name string) []*ast.Declaration {
	src := idx.byName[name]
	if len(src) == 0 {
		return nil
	}
	out := make([]*ast.Declaration, len(src))
	copy(out, src)
	return out
}

// Freeze makes the index read-only.
func (idx *MemberIndex) Freeze() {
	idx.frozen = true
}

// Stats returns statistics about the index.
func (idx *MemberIndex) Stats() MemberStats {
	byKind := make(map[ast.DeclKind]int, len(idx.kindCounts))
	for k, v := range idx.kindCounts {
		byKind[k] = v
	}
	ambiguous := 0
	for _, cands := range idx.byName {
		if len(cands) > 1 {
			ambiguous++
		}
	}
	return MemberStats{
		TotalMembers:   idx.total,
		DistinctNames:  len(idx.byName),
		AmbiguousNames: ambiguous,
		ByKind:         byKind,
	}
}
