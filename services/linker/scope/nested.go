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

// NestedClassifierScopeWithSubstitution wraps a scope so that inner
// classifiers come back with a supertype's substitution.
//
// Description:
//
//	The substitutor is computed once at construction. A classifier lookup
//	resolves the single class named name in the wrapped scope and reports
//	it with the substitutor if the class is inner, Empty otherwise. Lookups
//	that find no class, or several, report nothing. All other queries go
//	to the wrapped scope unchanged.
//
// Thread Safety: Safe for concurrent use if the wrapped scope is.
type NestedClassifierScopeWithSubstitution struct {
	original    Scope
	substitutor Substitutor
}

// NewNestedClassifierScopeWithSubstitution wraps original with sub. A nil
// sub is treated as Empty.
func NewNestedClassifierScopeWithSubstitution(original Scope, sub Substitutor) *NestedClassifierScopeWithSubstitution {
	if sub == nil {
		sub = Empty
	}
	return &NestedClassifierScopeWithSubstitution{original: original, substitutor: sub}
}

// WrapForSupertype wraps s with the substitution of superType.
func WrapForSupertype(s Scope, superType ast.TypeRef) *NestedClassifierScopeWithSubstitution {
	return NewNestedClassifierScopeWithSubstitution(s, ForSupertype(superType))
}

// Original returns the wrapped scope.
func (s *NestedClassifierScopeWithSubstitution) Original() Scope {
	return s.original
}

// Substitutor returns the substitution applied to inner classifiers.
func (s *NestedClassifierScopeWithSubstitution) Substitutor() Substitutor {
	return s.substitutor
}

// ProcessFunctionsByName forwards to the wrapped scope.
func (s *NestedClassifierScopeWithSubstitution) ProcessFunctionsByName(name string, fn func(*ast.Declaration)) {
	s.original.ProcessFunctionsByName(name, fn)
}

// ProcessPropertiesByName forwards to the wrapped scope.
func (s *NestedClassifierScopeWithSubstitution) ProcessPropertiesByName(name string, fn func(*ast.Declaration)) {
	s.original.ProcessPropertiesByName(name, fn)
}

// ProcessDeclaredConstructors forwards to the wrapped scope.
func (s *NestedClassifierScopeWithSubstitution) ProcessDeclaredConstructors(fn func(*ast.Declaration)) {
	s.original.ProcessDeclaredConstructors(fn)
}

// ProcessClassifiersByNameWithSubstitution reports the single classifier
// named name, paired with the substitutor when it is an inner class and
// with Empty otherwise. Nothing is reported when zero or several match.
func (s *NestedClassifierScopeWithSubstitution) ProcessClassifiersByNameWithSubstitution(name string, fn func(*ast.Declaration, Substitutor)) {
	matched, _ := SingleClassifier(s.original, name)
	if matched == nil || matched.Kind != ast.DeclKindClass {
		return
	}
	sub := Empty
	if matched.Inner {
		sub = s.substitutor
	}
	fn(matched, sub)
}

// MayContainName forwards to the wrapped scope.
func (s *NestedClassifierScopeWithSubstitution) MayContainName(name string) bool {
	return s.original.MayContainName(name)
}

// CallableNames forwards to the wrapped scope.
func (s *NestedClassifierScopeWithSubstitution) CallableNames() []string {
	return s.original.CallableNames()
}

// ClassifierNames forwards to the wrapped scope.
func (s *NestedClassifierScopeWithSubstitution) ClassifierNames() []string {
	return s.original.ClassifierNames()
}

// ScopeOwnerLookupNames forwards to the wrapped scope.
func (s *NestedClassifierScopeWithSubstitution) ScopeOwnerLookupNames() []string {
	return s.original.ScopeOwnerLookupNames()
}

var (
	_ Scope = (*ClassMemberScope)(nil)
	_ Scope = (*NestedClassifierScopeWithSubstitution)(nil)
)
