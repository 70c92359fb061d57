// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scope

import (
	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// Substitutor rewrites type parameter references in types.
type Substitutor interface {
	// SubstituteOrSelf returns t with every substituted type parameter
	// replaced, or t itself when nothing applies.
	SubstituteOrSelf(t ast.TypeRef) ast.TypeRef

	// IsEmpty reports whether the substitutor never changes anything.
	IsEmpty() bool
}

type emptySubstitutor struct{}

func (emptySubstitutor) SubstituteOrSelf(t ast.TypeRef) ast.TypeRef { return t }
func (emptySubstitutor) IsEmpty() bool                               { return true }

// Empty is the identity substitutor.
var Empty Substitutor = emptySubstitutor{}

// MapSubstitutor replaces type parameters, keyed by symbol, with types.
type MapSubstitutor map[ast.SymbolID]ast.TypeRef

// IsEmpty reports whether the map has no entries.
func (m MapSubstitutor) IsEmpty() bool {
	return len(m) == 0
}

// SubstituteOrSelf replaces type parameter references, recursing into
// type arguments. Nullability of the reference is kept.
func (m MapSubstitutor) SubstituteOrSelf(t ast.TypeRef) ast.TypeRef {
	if len(m) == 0 {
		return t
	}
	if t.IsTypeParameter() {
		if repl, ok := m[t.Target.ID]; ok {
			repl.Nullable = repl.Nullable || t.Nullable
			return repl
		}
		return t
	}
	if len(t.Args) == 0 {
		return t
	}
	args := make([]ast.TypeRef, len(t.Args))
	for i, a := range t.Args {
		args[i] = m.SubstituteOrSelf(a)
	}
	t.Args = args
	return t
}

// ForSupertype builds the substitution of a supertype instantiation: the
// supertype class's type parameters mapped onto the supertype's arguments.
//
// Returns Empty when the supertype does not resolve to a class or has no
// arguments. Extra parameters or arguments are ignored.
func ForSupertype(superType ast.TypeRef) Substitutor {
	class := superType.Class()
	if class == nil || len(superType.Args) == 0 || len(class.TypeParameters) == 0 {
		return Empty
	}
	n := min(len(class.TypeParameters), len(superType.Args))
	m := make(MapSubstitutor, n)
	for i := 0; i < n; i++ {
		m[class.TypeParameters[i].ID] = superType.Args[i]
	}
	return m
}
