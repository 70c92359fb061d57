// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fqname computes the names used to match expected declarations with
// actual ones.
//
// Two kinds of name exist:
//
//   - Of: the dotted qualifying name of a declaration ("pkg.Outer.Inner").
//   - FromExpect: the structural full name, which also encodes a member's
//     shape (type parameter arity, receiver, value parameter types) so that
//     overloads get distinct keys. It is the only matching criterion.
//
// Structural names are computed through an AliasMap so that an expected
// declaration nested in a class whose actual is a type alias lands on the
// same key as the member declared in the alias's expanded class.
package fqname

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// AliasMap maps an actual type alias's qualifying name to the qualifying
// name of the class it expands to. It has no reverse entries.
type AliasMap map[string]string

// Redirect rewrites a qualifying name through the alias map.
//
// Description:
//
//	The longest aliased prefix ending at a dot boundary is replaced, so
//	"pkg.D.Inner" becomes "pkg.E.Inner" when D is an alias of E. Names with
//	no aliased prefix are returned unchanged.
func (m AliasMap) Redirect(name string) string {
	if len(m) == 0 || name == "" {
		return name
	}
	if target, ok := m[name]; ok {
		return target
	}
	for i := len(name) - 1; i > 0; i-- {
		if name[i] != '.' {
			continue
		}
		if target, ok := m[name[:i]]; ok {
			return target + name[i:]
		}
	}
	return name
}

// Of returns the dotted qualifying name of d.
//
// Files yield their package; synthetic declarations with no parent use their
// own Package as prefix.
func Of(d *ast.Declaration) string {
	if d == nil {
		return ""
	}
	if d.Kind == ast.DeclKindFile {
		return d.Package
	}
	return qualify(parentName(d), d.Name)
}

// ForActual returns the catalog key of an actual class or type alias.
func ForActual(d *ast.Declaration) string {
	return FromExpect(d, nil)
}

// FromExpect returns the structural full name of d.
//
// Description:
//
//	Builds "<parent>.<name><shape>" where the parent's qualifying name is
//	redirected through aliases and shape depends on the kind:
//
//	  function/constructor: "<N>" type parameter arity when N > 0,
//	                        "[R]" extension receiver, "(P1,P2)" parameters
//	  property:             "[R]" extension receiver
//	  others:               nothing
//
// Inputs:
//
//	d - The declaration. Must not be nil.
//	aliases - Redirection map. May be nil.
//
// Outputs:
//
//	string - The structural full name.
func FromExpect(d *ast.Declaration, aliases AliasMap) string {
	var b strings.Builder
	if parent := parentName(d); parent != "" {
		b.WriteString(aliases.Redirect(parent))
		b.WriteByte('.')
	}
	b.WriteString(d.Name)

	switch d.Kind {
	case ast.DeclKindFunction, ast.DeclKindConstructor:
		if n := len(d.TypeParameters); n > 0 {
			b.WriteString("<" + strconv.Itoa(n) + ">")
		}
		writeReceiver(&b, d.Receiver, aliases)
		b.WriteByte('(')
		for i, p := range d.ValueParameters {
			if i > 0 {
				b.WriteByte(',')
			}
			writeType(&b, p.Type, aliases)
		}
		b.WriteByte(')')
	case ast.DeclKindProperty:
		writeReceiver(&b, d.Receiver, aliases)
	case ast.DeclKindFile, ast.DeclKindClass, ast.DeclKindEnumEntry,
		ast.DeclKindTypeAlias, ast.DeclKindTypeParameter:
	default:
		panic(fmt.Sprintf("fqname: unhandled declaration kind %s", d.Kind))
	}
	return b.String()
}

// TypeString renders a type reference the way structural names do.
func TypeString(t ast.TypeRef, aliases AliasMap) string {
	var b strings.Builder
	writeType(&b, t, aliases)
	return b.String()
}

func writeReceiver(b *strings.Builder, recv *ast.TypeRef, aliases AliasMap) {
	if recv == nil {
		return
	}
	b.WriteByte('[')
	writeType(b, *recv, aliases)
	b.WriteByte(']')
}

// writeType renders classes by redirected qualifying name and type
// parameters through typeParameterKey.
func writeType(b *strings.Builder, t ast.TypeRef, aliases AliasMap) {
	if t.IsTypeParameter() {
		b.WriteString(typeParameterKey(t.Target, aliases))
	} else {
		name := t.Name
		if t.Target != nil && t.Target.Kind == ast.DeclKindClass {
			name = Of(t.Target)
		}
		b.WriteString(aliases.Redirect(name))
	}

	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, arg := range t.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeType(b, arg, aliases)
		}
		b.WriteByte('>')
	}
	if t.Nullable {
		b.WriteByte('?')
	}
}

// typeParameterKey renders a type parameter reference by owner and
// position. Class type parameters carry the owner's redirected qualifying
// name so that an outer class's T and an inner class's U stay distinct:
// "#pkg.Outer#0", "#pkg.Outer.Inner#0". Function and alias type parameters
// are keyed by position only ("#F0", "#A0"); the member name already
// qualifies them.
func typeParameterKey(tp *ast.Declaration, aliases AliasMap) string {
	owner := tp.Parent
	if owner == nil {
		return "#" + tp.Name
	}
	index := slices.Index(owner.TypeParameters, tp)
	if index < 0 {
		return "#" + tp.Name
	}
	switch owner.Kind {
	case ast.DeclKindFunction, ast.DeclKindConstructor, ast.DeclKindProperty:
		return "#F" + strconv.Itoa(index)
	case ast.DeclKindTypeAlias:
		return "#A" + strconv.Itoa(index)
	default:
		return "#" + aliases.Redirect(Of(owner)) + "#" + strconv.Itoa(index)
	}
}

func parentName(d *ast.Declaration) string {
	if d.Parent == nil {
		return d.Package
	}
	return Of(d.Parent)
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
