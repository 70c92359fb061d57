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
	"strconv"
)

// DeclOption sets optional attributes on a declaration being added.
type DeclOption func(*Declaration)

// AsExpect marks the declaration as expected.
func AsExpect() DeclOption {
	return func(d *Declaration) { d.Expect = true }
}

// AsActual marks the declaration as actual.
func AsActual() DeclOption {
	return func(d *Declaration) { d.Actual = true }
}

// AsInner marks a class as inner.
func AsInner() DeclOption {
	return func(d *Declaration) { d.Inner = true }
}

// AsFakeOverride marks a function or property as a fake override.
func AsFakeOverride() DeclOption {
	return func(d *Declaration) { d.FakeOverride = true }
}

// AsPrimary marks a constructor as the primary constructor.
func AsPrimary() DeclOption {
	return func(d *Declaration) { d.Primary = true }
}

// WithClassKind sets the class kind.
func WithClassKind(k ClassKind) DeclOption {
	return func(d *Declaration) { d.ClassKind = k }
}

// WithAnnotations appends fully qualified annotation names.
func WithAnnotations(fqNames ...string) DeclOption {
	return func(d *Declaration) { d.Annotations = append(d.Annotations, fqNames...) }
}

// WithSuperTypes appends supertypes to a class.
func WithSuperTypes(types ...TypeRef) DeclOption {
	return func(d *Declaration) { d.SuperTypes = append(d.SuperTypes, types...) }
}

// WithValueParameters appends value parameters to a function or constructor.
func WithValueParameters(params ...ValueParameter) DeclOption {
	return func(d *Declaration) { d.ValueParameters = append(d.ValueParameters, params...) }
}

// WithReceiver sets the extension receiver of a function or property.
func WithReceiver(t TypeRef) DeclOption {
	return func(d *Declaration) { d.Receiver = &t }
}

// WithReturnType sets a function's return type.
func WithReturnType(t TypeRef) DeclOption {
	return func(d *Declaration) { d.ReturnType = &t }
}

// WithType sets a property's type.
func WithType(t TypeRef) DeclOption {
	return func(d *Declaration) { d.Type = &t }
}

// Param is shorthand for a ValueParameter.
func Param(name string, t TypeRef) ValueParameter {
	return ValueParameter{Name: name, Type: t}
}

// NamedType references a type by fully qualified name only.
func NamedType(fqName string, args ...TypeRef) TypeRef {
	return TypeRef{Name: fqName, Args: args}
}

// ClassType references a class declaration.
func ClassType(class *Declaration, args ...TypeRef) TypeRef {
	return TypeRef{Name: class.Name, Args: args, Target: class}
}

// ParamType references a type parameter declaration.
func ParamType(tp *Declaration) TypeRef {
	return TypeRef{Name: tp.Name, Target: tp}
}

// AddClass adds a nested or top-level class to a file or class.
func (d *Declaration) AddClass(name string, opts ...DeclOption) *Declaration {
	return d.addChild(DeclKindClass, name, opts)
}

// AddFunction adds a function to a file or class.
func (d *Declaration) AddFunction(name string, opts ...DeclOption) *Declaration {
	return d.addChild(DeclKindFunction, name, opts)
}

// AddConstructor adds a constructor to a class.
func (d *Declaration) AddConstructor(opts ...DeclOption) *Declaration {
	return d.addChild(DeclKindConstructor, "<init>", opts)
}

// AddProperty adds a property to a file or class.
func (d *Declaration) AddProperty(name string, opts ...DeclOption) *Declaration {
	return d.addChild(DeclKindProperty, name, opts)
}

// AddEnumEntry adds an enum entry to an enum class.
func (d *Declaration) AddEnumEntry(name string, opts ...DeclOption) *Declaration {
	return d.addChild(DeclKindEnumEntry, name, opts)
}

// AddTypeAlias adds a type alias expanding to the given type.
func (d *Declaration) AddTypeAlias(name string, expanded TypeRef, opts ...DeclOption) *Declaration {
	alias := d.addChild(DeclKindTypeAlias, name, opts)
	alias.Expanded = &expanded
	return alias
}

// AddTypeParameter appends a type parameter to a class, function or alias.
func (d *Declaration) AddTypeParameter(name string) *Declaration {
	tp := &Declaration{
		ID:     d.uniqueChildID("<" + name + ">"),
		Kind:   DeclKindTypeParameter,
		Name:   name,
		Parent: d,
	}
	d.TypeParameters = append(d.TypeParameters, tp)
	return tp
}

// AddGetter attaches a getter accessor to a property.
//
// Accessors are not listed in Declarations; they hang off the property and
// inherit its expect/actual flags.
func (d *Declaration) AddGetter() *Declaration {
	d.Getter = d.accessor("<get-" + d.Name + ">")
	return d.Getter
}

// AddSetter attaches a setter accessor to a property.
func (d *Declaration) AddSetter() *Declaration {
	d.Setter = d.accessor("<set-" + d.Name + ">")
	return d.Setter
}

func (d *Declaration) accessor(name string) *Declaration {
	return &Declaration{
		ID:           d.uniqueChildID(name),
		Kind:         DeclKindFunction,
		Name:         name,
		Expect:       d.Expect,
		Actual:       d.Actual,
		FakeOverride: d.FakeOverride,
		Parent:       d,
	}
}

func (d *Declaration) addChild(kind DeclKind, name string, opts []DeclOption) *Declaration {
	if !d.IsContainer() {
		panic(fmt.Sprintf("ast: cannot add %s %q to %s", kind, name, d))
	}
	child := &Declaration{
		ID:     d.uniqueChildID(name),
		Kind:   kind,
		Name:   name,
		Parent: d,
	}
	for _, opt := range opts {
		opt(child)
	}
	d.Declarations = append(d.Declarations, child)
	return child
}

// uniqueChildID derives a deterministic ID for a new child of d. Overloads
// get a "~N" suffix.
func (d *Declaration) uniqueChildID(name string) SymbolID {
	base := string(d.ID) + "/" + name
	taken := func(id SymbolID) bool {
		for _, c := range d.Declarations {
			if c.ID == id {
				return true
			}
		}
		for _, tp := range d.TypeParameters {
			if tp.ID == id {
				return true
			}
		}
		return (d.Getter != nil && d.Getter.ID == id) || (d.Setter != nil && d.Setter.ID == id)
	}
	id := SymbolID(base)
	for n := 1; taken(id); n++ {
		id = SymbolID(base + "~" + strconv.Itoa(n))
	}
	return id
}
