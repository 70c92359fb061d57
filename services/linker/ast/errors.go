// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast provides the in-memory program graph consumed by the linker.
//
// A Program is a main fragment plus an ordered list of dependent fragments,
// least platform-specific first. Each fragment holds files, and each file
// holds a tree of declarations (classes, functions, properties, enum entries,
// constructors, type aliases and type parameters).
//
// # Ownership Model
//
// Declarations are built once through the Add* helpers, which set parent
// backlinks and symbol IDs. After construction they MUST NOT be mutated;
// every consumer (catalog, linkers, scopes) only reads them.
//
// # Thread Safety
//
// A fully constructed Program is safe for concurrent reads. Construction is
// single-writer.
package ast

import "errors"

// Sentinel errors for program graph validation.
var (
	// ErrInvalidDeclaration is returned when a declaration is nil, has no ID,
	// has an unknown kind, or has a broken parent backlink.
	ErrInvalidDeclaration = errors.New("invalid declaration")

	// ErrDuplicateSymbol is returned when two declarations share a SymbolID.
	// Symbol IDs are the identity keys of the link map and must be unique
	// across the whole program.
	ErrDuplicateSymbol = errors.New("duplicate symbol ID")

	// ErrInvalidProgram is returned when the program has no main fragment.
	ErrInvalidProgram = errors.New("invalid program")
)
