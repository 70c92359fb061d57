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
	"slices"
)

// SymbolID is the identity of a declaration.
//
// Two declarations with the same structural name still have distinct IDs;
// link maps are keyed by SymbolID, never by name.
type SymbolID string

// DeclKind is the tag of the Declaration union.
//
// Every traversal in this module switches over DeclKind and panics on a kind
// it does not know, so adding a kind forces every site to be revisited.
type DeclKind int

const (
	// DeclKindUnknown is the zero value and never valid.
	DeclKindUnknown DeclKind = iota

	// DeclKindFile is a source file; it contains top-level declarations.
	DeclKindFile

	// DeclKindClass is a class, interface, enum, object or annotation class.
	DeclKindClass

	// DeclKindFunction is a named function, member or top-level.
	DeclKindFunction

	// DeclKindConstructor is a class constructor.
	DeclKindConstructor

	// DeclKindProperty is a member or top-level property.
	DeclKindProperty

	// DeclKindEnumEntry is an entry of an enum class.
	DeclKindEnumEntry

	// DeclKindTypeAlias is a type alias.
	DeclKindTypeAlias

	// DeclKindTypeParameter is a type parameter of a class, function or alias.
	DeclKindTypeParameter
)

// AllDeclKinds returns every valid DeclKind in declaration order.
func AllDeclKinds() []DeclKind {
	return []DeclKind{
		DeclKindFile,
		DeclKindClass,
		DeclKindFunction,
		DeclKindConstructor,
		DeclKindProperty,
		DeclKindEnumEntry,
		DeclKindTypeAlias,
		DeclKindTypeParameter,
	}
}

// String returns the string representation of the DeclKind.
func (k DeclKind) String() string {
	switch k {
	case DeclKindFile:
		return "file"
	case DeclKindClass:
		return "class"
	case DeclKindFunction:
		return "function"
	case DeclKindConstructor:
		return "constructor"
	case DeclKindProperty:
		return "property"
	case DeclKindEnumEntry:
		return "enum_entry"
	case DeclKindTypeAlias:
		return "type_alias"
	case DeclKindTypeParameter:
		return "type_parameter"
	default:
		return "unknown"
	}
}

// ParseDeclKind is the inverse of DeclKind.String.
func ParseDeclKind(s string) (DeclKind, error) {
	for _, k := range AllDeclKinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return DeclKindUnknown, fmt.Errorf("%w: unknown declaration kind %q", ErrInvalidDeclaration, s)
}

// ClassKind distinguishes the flavours of class declarations.
type ClassKind int

const (
	ClassKindClass ClassKind = iota
	ClassKindInterface
	ClassKindEnum
	ClassKindObject
	ClassKindAnnotation
)

// String returns the string representation of the ClassKind.
func (k ClassKind) String() string {
	switch k {
	case ClassKindClass:
		return "class"
	case ClassKindInterface:
		return "interface"
	case ClassKindEnum:
		return "enum"
	case ClassKindObject:
		return "object"
	case ClassKindAnnotation:
		return "annotation"
	default:
		return "unknown"
	}
}

// ParseClassKind is the inverse of ClassKind.String.
func ParseClassKind(s string) (ClassKind, error) {
	for k := ClassKindClass; k <= ClassKindAnnotation; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return ClassKindClass, fmt.Errorf("%w: unknown class kind %q", ErrInvalidDeclaration, s)
}

// TypeRef is a reference to a type: a classifier plus type arguments.
//
// Target points at the referenced class or type parameter declaration when
// it is known. It may point at a synthetic declaration that belongs to no
// file (builtins reachable only through a type alias).
type TypeRef struct {
	// Name is the fully qualified classifier name, or the type parameter
	// name for type parameter references.
	Name string

	// Args are the type arguments, in declaration order.
	Args []TypeRef

	// Nullable marks a nullable use of the type.
	Nullable bool

	// Target is the resolved classifier. May be nil for external types.
	Target *Declaration
}

// IsTypeParameter reports whether the reference points at a type parameter.
func (t TypeRef) IsTypeParameter() bool {
	return t.Target != nil && t.Target.Kind == DeclKindTypeParameter
}

// Class returns the referenced class declaration, or nil when the reference
// does not resolve to a class.
func (t TypeRef) Class() *Declaration {
	if t.Target == nil || t.Target.Kind != DeclKindClass {
		return nil
	}
	return t.Target
}

// ValueParameter is a value parameter of a function or constructor.
type ValueParameter struct {
	Name string
	Type TypeRef
}

// Declaration is one node of the program graph.
//
// Which fields are meaningful depends on Kind:
//
//	File:          Package, Path, Declarations
//	Class:         ClassKind, Inner, SuperTypes, TypeParameters, Declarations
//	Function:      TypeParameters, ValueParameters, Receiver, ReturnType, FakeOverride
//	Constructor:   ValueParameters, Primary
//	Property:      Receiver, Type, Getter, Setter, FakeOverride
//	EnumEntry:     (none)
//	TypeAlias:     TypeParameters, Expanded
//	TypeParameter: (none)
type Declaration struct {
	ID     SymbolID
	Kind   DeclKind
	Name   string
	Expect bool
	Actual bool

	// Parent is the owning container. Nil only for files and for synthetic
	// declarations that belong to no file.
	Parent *Declaration

	// Declarations are the nested declarations of a container, in order.
	Declarations []*Declaration

	// TypeParameters are declared type parameters, in declaration order.
	TypeParameters []*Declaration

	// Annotations are fully qualified annotation class names.
	Annotations []string

	// File
	Package string
	Path    string

	// Class
	ClassKind  ClassKind
	Inner      bool
	SuperTypes []TypeRef

	// Function / Constructor / Property
	ValueParameters []ValueParameter
	Receiver        *TypeRef
	ReturnType      *TypeRef
	Type            *TypeRef
	FakeOverride    bool
	Primary         bool
	Getter          *Declaration
	Setter          *Declaration

	// TypeAlias
	Expanded *TypeRef
}

// IsContainer reports whether the declaration can hold nested declarations.
func (d *Declaration) IsContainer() bool {
	switch d.Kind {
	case DeclKindFile, DeclKindClass:
		return true
	case DeclKindFunction, DeclKindConstructor, DeclKindProperty,
		DeclKindEnumEntry, DeclKindTypeAlias, DeclKindTypeParameter:
		return false
	default:
		panic(fmt.Sprintf("ast: unhandled declaration kind %s", d.Kind))
	}
}

// HasAnnotation reports whether the declaration carries the given annotation.
func (d *Declaration) HasAnnotation(fqName string) bool {
	return slices.Contains(d.Annotations, fqName)
}

// ParentClass returns the immediate parent if it is a class, nil otherwise.
func (d *Declaration) ParentClass() *Declaration {
	if d.Parent == nil || d.Parent.Kind != DeclKindClass {
		return nil
	}
	return d.Parent
}

// File returns the file that contains the declaration, or nil for
// synthetic declarations.
func (d *Declaration) File() *Declaration {
	for cur := d; cur != nil; cur = cur.Parent {
		if cur.Kind == DeclKindFile {
			return cur
		}
	}
	return nil
}

// String returns a short debug form: "kind name (id)".
func (d *Declaration) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s (%s)", d.Kind, d.Name, d.ID)
}

// Validate checks the declaration's own invariants.
//
// Description:
//
//	Checks the ID, the kind and that every child points back at d. Does not
//	recurse; use Program.Validate for the whole tree.
//
// Outputs:
//
//	error - Wraps ErrInvalidDeclaration when an invariant is broken.
func (d *Declaration) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: declaration is nil", ErrInvalidDeclaration)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: %s %q has no symbol ID", ErrInvalidDeclaration, d.Kind, d.Name)
	}
	if d.Kind == DeclKindUnknown || d.Kind > DeclKindTypeParameter {
		return fmt.Errorf("%w: %s has unknown kind %d", ErrInvalidDeclaration, d.ID, d.Kind)
	}
	for _, child := range d.Declarations {
		if child == nil {
			return fmt.Errorf("%w: %s has a nil child", ErrInvalidDeclaration, d.ID)
		}
		if child.Parent != d {
			return fmt.Errorf("%w: child %s of %s has parent %s", ErrInvalidDeclaration, child.ID, d.ID, child.Parent)
		}
	}
	for _, tp := range d.TypeParameters {
		if tp == nil || tp.Kind != DeclKindTypeParameter {
			return fmt.Errorf("%w: %s has a malformed type parameter", ErrInvalidDeclaration, d.ID)
		}
	}
	return nil
}
