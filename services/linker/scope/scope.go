// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scope provides member lookup scopes over class declarations.
//
// NestedClassifierScopeWithSubstitution wraps another Scope and changes one
// query: classifier lookup by name returns the classifier paired with the
// substitution of a given supertype, when the classifier is an inner class.
// Every other query is forwarded unchanged.
package scope

import (
	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// Scope is the query surface of a containing-names-aware scope.
type Scope interface {
	// ProcessFunctionsByName calls fn for each function named name.
	ProcessFunctionsByName(name string, fn func(*ast.Declaration))

	// ProcessPropertiesByName calls fn for each property named name.
	ProcessPropertiesByName(name string, fn func(*ast.Declaration))

	// ProcessDeclaredConstructors calls fn for each declared constructor.
	ProcessDeclaredConstructors(fn func(*ast.Declaration))

	// ProcessClassifiersByNameWithSubstitution calls fn for each classifier
	// named name together with the substitution to apply to it.
	ProcessClassifiersByNameWithSubstitution(name string, fn func(*ast.Declaration, Substitutor))

	// MayContainName is a fast negative check. False means the scope
	// certainly has nothing named name.
	MayContainName(name string) bool

	// CallableNames returns the sorted names of functions and properties.
	CallableNames() []string

	// ClassifierNames returns the sorted names of nested classifiers.
	ClassifierNames() []string

	// ScopeOwnerLookupNames returns the qualified names of the scope owners.
	ScopeOwnerLookupNames() []string
}

// SingleClassifier returns the only classifier named name in s, or nil
// when there is none or more than one.
func SingleClassifier(s Scope, name string) (*ast.Declaration, Substitutor) {
	var (
		found *ast.Declaration
		sub   Substitutor
		count int
	)
	s.ProcessClassifiersByNameWithSubstitution(name, func(d *ast.Declaration, ds Substitutor) {
		count++
		found, sub = d, ds
	})
	if count != 1 {
		return nil, nil
	}
	return found, sub
}
