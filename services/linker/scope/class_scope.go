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
	"fmt"
	"sort"

	"github.com/AleutianAI/expectlink/services/linker/ast"
	"github.com/AleutianAI/expectlink/services/linker/fqname"
)

// ClassMemberScope is the scope of one class's declared members.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type ClassMemberScope struct {
	owner        *ast.Declaration
	functions    map[string][]*ast.Declaration
	properties   map[string][]*ast.Declaration
	classifiers  map[string][]*ast.Declaration
	constructors []*ast.Declaration
}

// NewClassMemberScope indexes the declared members of class.
//
// Panics if class is not a class declaration.
func NewClassMemberScope(class *ast.Declaration) *ClassMemberScope {
	if class == nil || class.Kind != ast.DeclKindClass {
		panic(fmt.Sprintf("scope: %s is not a class", class))
	}
	s := &ClassMemberScope{
		owner:       class,
		functions:   make(map[string][]*ast.Declaration),
		properties:  make(map[string][]*ast.Declaration),
		classifiers: make(map[string][]*ast.Declaration),
	}
	for _, d := range class.Declarations {
		switch d.Kind {
		case ast.DeclKindFunction:
			s.functions[d.Name] = append(s.functions[d.Name], d)
		case ast.DeclKindProperty:
			s.properties[d.Name] = append(s.properties[d.Name], d)
		case ast.DeclKindClass:
			s.classifiers[d.Name] = append(s.classifiers[d.Name], d)
		case ast.DeclKindConstructor:
			s.constructors = append(s.constructors, d)
		case ast.DeclKindTypeAlias:
			s.classifiers[d.Name] = append(s.classifiers[d.Name], d)
		case ast.DeclKindEnumEntry:
			s.properties[d.Name] = append(s.properties[d.Name], d)
		case ast.DeclKindFile, ast.DeclKindTypeParameter:
		default:
			panic(fmt.Sprintf("scope: unhandled declaration kind %s", d.Kind))
		}
	}
	return s
}

// Owner returns the class the scope belongs to.
func (s *ClassMemberScope) Owner() *ast.Declaration {
	return s.owner
}

// ProcessFunctionsByName calls fn for each member function named name, in declaration order.
func (s *ClassMemberScope) ProcessFunctionsByName(name string, fn func(*ast.Declaration)) {
	for _, d := range s.functions[name] {
		fn(d)
	}
}

// ProcessPropertiesByName calls fn for each property or enum entry named name.
func (s *ClassMemberScope) ProcessPropertiesByName(name string, fn func(*ast.Declaration)) {
	for _, d := range s.properties[name] {
		fn(d)
	}
}

// ProcessDeclaredConstructors calls fn for each constructor of the class.
func (s *ClassMemberScope) ProcessDeclaredConstructors(fn func(*ast.Declaration)) {
	for _, d := range s.constructors {
		fn(d)
	}
}

// ProcessClassifiersByNameWithSubstitution reports nested classifiers with
// the Empty substitutor.
func (s *ClassMemberScope) ProcessClassifiersByNameWithSubstitution(name string, fn func(*ast.Declaration, Substitutor)) {
	for _, d := range s.classifiers[name] {
		fn(d, Empty)
	}
}

// MayContainName reports whether any callable or classifier is named name.
func (s *ClassMemberScope) MayContainName(name string) bool {
	_, f := s.functions[name]
	_, p := s.properties[name]
	_, c := s.classifiers[name]
	return f || p || c
}

// CallableNames returns the sorted names of functions and properties.
func (s *ClassMemberScope) CallableNames() []string {
	return sortedKeys(s.functions, s.properties)
}

// ClassifierNames returns the sorted names of nested classes and type aliases.
func (s *ClassMemberScope) ClassifierNames() []string {
	return sortedKeys(s.classifiers)
}

// ScopeOwnerLookupNames returns the owner class's qualifying name.
func (s *ClassMemberScope) ScopeOwnerLookupNames() []string {
	return []string{fqname.Of(s.owner)}
}

func sortedKeys(ms ...map[string][]*ast.Declaration) []string {
	seen := make(map[string]struct{})
	for _, m := range ms {
		for k := range m {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
