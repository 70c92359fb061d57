// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// ProgramSchemaVersion is the version of the program serialization schema.
// Increment when the format changes in a breaking way.
const ProgramSchemaVersion = "1.0"

// SerializableProgram is the JSON form of an ast.Program.
type SerializableProgram struct {
	SchemaVersion string                 `json:"schema_version"`
	Main          SerializableFragment   `json:"main"`
	Dependents    []SerializableFragment `json:"dependents,omitempty"`
	Synthetic     []SerializableDecl     `json:"synthetic,omitempty"`
}

// SerializableFragment is the JSON form of an ast.Fragment.
//
// Synthetic holds declarations that belong to no file, such as builtins
// reachable only through a type alias. When fragments are loaded one file
// each, their synthetic declarations are merged into the program.
type SerializableFragment struct {
	Name      string             `json:"name"`
	Files     []SerializableDecl `json:"files"`
	Synthetic []SerializableDecl `json:"synthetic,omitempty"`
}

// SerializableDecl is the JSON form of an ast.Declaration.
type SerializableDecl struct {
	ID     ast.SymbolID `json:"id"`
	Kind   string       `json:"kind"`
	Name   string       `json:"name"`
	Expect bool         `json:"expect,omitempty"`
	Actual bool         `json:"actual,omitempty"`

	Package string `json:"package,omitempty"`
	Path    string `json:"path,omitempty"`

	ClassKind  string             `json:"class_kind,omitempty"`
	Inner      bool               `json:"inner,omitempty"`
	SuperTypes []SerializableType `json:"super_types,omitempty"`

	Annotations    []string           `json:"annotations,omitempty"`
	TypeParameters []SerializableDecl `json:"type_parameters,omitempty"`
	Declarations   []SerializableDecl `json:"declarations,omitempty"`

	ValueParameters []SerializableParam `json:"value_parameters,omitempty"`
	Receiver        *SerializableType   `json:"receiver,omitempty"`
	ReturnType      *SerializableType   `json:"return_type,omitempty"`
	Type            *SerializableType   `json:"type,omitempty"`
	FakeOverride    bool                `json:"fake_override,omitempty"`
	Primary         bool                `json:"primary,omitempty"`
	Getter          *SerializableDecl   `json:"getter,omitempty"`
	Setter          *SerializableDecl   `json:"setter,omitempty"`

	Expanded *SerializableType `json:"expanded,omitempty"`
}

// SerializableType is the JSON form of an ast.TypeRef. Target is the
// referenced declaration's symbol, empty for external types.
type SerializableType struct {
	Name     string             `json:"name"`
	Target   ast.SymbolID       `json:"target,omitempty"`
	Args     []SerializableType `json:"args,omitempty"`
	Nullable bool               `json:"nullable,omitempty"`
}

// SerializableParam is the JSON form of an ast.ValueParameter.
type SerializableParam struct {
	Name string           `json:"name"`
	Type SerializableType `json:"type"`
}

// =============================================================================
// Encoding
// =============================================================================

// ToSerializableProgram converts a program to its JSON form.
//
// Thread Safety: Safe for concurrent use; the program is only read.
func ToSerializableProgram(p *ast.Program) *SerializableProgram {
	sp := &SerializableProgram{SchemaVersion: ProgramSchemaVersion}
	if p == nil {
		return sp
	}
	if p.Main != nil {
		sp.Main = toSerializableFragment(p.Main)
	}
	for _, f := range p.Dependents {
		sp.Dependents = append(sp.Dependents, toSerializableFragment(f))
	}
	for _, s := range p.Synthetic {
		sp.Synthetic = append(sp.Synthetic, toSerializableDecl(s))
	}
	return sp
}

func toSerializableFragment(f *ast.Fragment) SerializableFragment {
	sf := SerializableFragment{Name: f.Name, Files: make([]SerializableDecl, 0, len(f.Files))}
	for _, file := range f.Files {
		sf.Files = append(sf.Files, toSerializableDecl(file))
	}
	return sf
}

func toSerializableDecl(d *ast.Declaration) SerializableDecl {
	sd := SerializableDecl{
		ID:           d.ID,
		Kind:         d.Kind.String(),
		Name:         d.Name,
		Expect:       d.Expect,
		Actual:       d.Actual,
		Package:      d.Package,
		Path:         d.Path,
		Inner:        d.Inner,
		Annotations:  d.Annotations,
		FakeOverride: d.FakeOverride,
		Primary:      d.Primary,
		Receiver:     toSerializableTypePtr(d.Receiver),
		ReturnType:   toSerializableTypePtr(d.ReturnType),
		Type:         toSerializableTypePtr(d.Type),
		Expanded:     toSerializableTypePtr(d.Expanded),
	}
	if d.Kind == ast.DeclKindClass {
		sd.ClassKind = d.ClassKind.String()
	}
	for _, st := range d.SuperTypes {
		sd.SuperTypes = append(sd.SuperTypes, toSerializableType(st))
	}
	for _, tp := range d.TypeParameters {
		sd.TypeParameters = append(sd.TypeParameters, toSerializableDecl(tp))
	}
	for _, child := range d.Declarations {
		sd.Declarations = append(sd.Declarations, toSerializableDecl(child))
	}
	for _, vp := range d.ValueParameters {
		sd.ValueParameters = append(sd.ValueParameters, SerializableParam{Name: vp.Name, Type: toSerializableType(vp.Type)})
	}
	if d.Getter != nil {
		g := toSerializableDecl(d.Getter)
		sd.Getter = &g
	}
	if d.Setter != nil {
		s := toSerializableDecl(d.Setter)
		sd.Setter = &s
	}
	return sd
}

func toSerializableType(t ast.TypeRef) SerializableType {
	st := SerializableType{Name: t.Name, Nullable: t.Nullable}
	if t.Target != nil {
		st.Target = t.Target.ID
	}
	for _, a := range t.Args {
		st.Args = append(st.Args, toSerializableType(a))
	}
	return st
}

func toSerializableTypePtr(t *ast.TypeRef) *SerializableType {
	if t == nil {
		return nil
	}
	st := toSerializableType(*t)
	return &st
}

// =============================================================================
// Decoding
// =============================================================================

// FromSerializableProgram rebuilds a program from its JSON form.
//
// Description:
//
//	Declarations are built first with parent backlinks, then type
//	references are resolved by symbol ID across all fragments and
//	synthetic declarations.
//
// Outputs:
//
//	*ast.Program - The rebuilt program.
//	error - ErrNilInput, ErrSchemaVersion, ErrUnresolvedReference,
//	        ast.ErrDuplicateSymbol or ast.ErrInvalidDeclaration.
func FromSerializableProgram(sp *SerializableProgram) (*ast.Program, error) {
	if sp == nil {
		return nil, ErrNilInput
	}
	if sp.SchemaVersion != ProgramSchemaVersion {
		return nil, fmt.Errorf("%w: program schema %q, want %q", ErrSchemaVersion, sp.SchemaVersion, ProgramSchemaVersion)
	}

	dec := &decoder{byID: make(map[ast.SymbolID]*ast.Declaration)}
	p := &ast.Program{}

	main, err := dec.fragment(&sp.Main)
	if err != nil {
		return nil, err
	}
	p.Main = main
	for i := range sp.Dependents {
		f, err := dec.fragment(&sp.Dependents[i])
		if err != nil {
			return nil, err
		}
		p.Dependents = append(p.Dependents, f)
	}
	for i := range sp.Synthetic {
		s, err := dec.decl(&sp.Synthetic[i], nil)
		if err != nil {
			return nil, err
		}
		p.Synthetic = append(p.Synthetic, s)
	}

	if err := dec.resolve(); err != nil {
		return nil, err
	}
	return p, nil
}

type fixup struct {
	d  *ast.Declaration
	sd *SerializableDecl
}

type decoder struct {
	byID   map[ast.SymbolID]*ast.Declaration
	fixups []fixup
}

func (dec *decoder) fragment(sf *SerializableFragment) (*ast.Fragment, error) {
	f := ast.NewFragment(sf.Name)
	for i := range sf.Files {
		file, err := dec.decl(&sf.Files[i], nil)
		if err != nil {
			return nil, fmt.Errorf("fragment %s: %w", sf.Name, err)
		}
		if file.Kind != ast.DeclKindFile {
			return nil, fmt.Errorf("%w: fragment %s has a non-file root %s", ast.ErrInvalidDeclaration, sf.Name, file.ID)
		}
		f.Files = append(f.Files, file)
	}
	return f, nil
}

func (dec *decoder) decl(sd *SerializableDecl, parent *ast.Declaration) (*ast.Declaration, error) {
	kind, err := ast.ParseDeclKind(sd.Kind)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", sd.ID, err)
	}
	if sd.ID == "" {
		return nil, fmt.Errorf("%w: %s %q has no symbol ID", ast.ErrInvalidDeclaration, kind, sd.Name)
	}
	if _, dup := dec.byID[sd.ID]; dup {
		return nil, fmt.Errorf("%w: %s", ast.ErrDuplicateSymbol, sd.ID)
	}

	d := &ast.Declaration{
		ID:           sd.ID,
		Kind:         kind,
		Name:         sd.Name,
		Expect:       sd.Expect,
		Actual:       sd.Actual,
		Parent:       parent,
		Package:      sd.Package,
		Path:         sd.Path,
		Inner:        sd.Inner,
		FakeOverride: sd.FakeOverride,
		Primary:      sd.Primary,
	}
	if len(sd.Annotations) > 0 {
		d.Annotations = append([]string(nil), sd.Annotations...)
	}
	if sd.ClassKind != "" {
		ck, err := ast.ParseClassKind(sd.ClassKind)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", sd.ID, err)
		}
		d.ClassKind = ck
	}
	dec.byID[d.ID] = d
	dec.fixups = append(dec.fixups, fixup{d: d, sd: sd})

	for i := range sd.TypeParameters {
		tp, err := dec.decl(&sd.TypeParameters[i], d)
		if err != nil {
			return nil, err
		}
		d.TypeParameters = append(d.TypeParameters, tp)
	}
	for i := range sd.Declarations {
		child, err := dec.decl(&sd.Declarations[i], d)
		if err != nil {
			return nil, err
		}
		d.Declarations = append(d.Declarations, child)
	}
	if sd.Getter != nil {
		if d.Getter, err = dec.decl(sd.Getter, d); err != nil {
			return nil, err
		}
	}
	if sd.Setter != nil {
		if d.Setter, err = dec.decl(sd.Setter, d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (dec *decoder) resolve() error {
	for _, fx := range dec.fixups {
		d, sd := fx.d, fx.sd
		for _, st := range sd.SuperTypes {
			t, err := dec.typeRef(st)
			if err != nil {
				return fmt.Errorf("supertype of %s: %w", d.ID, err)
			}
			d.SuperTypes = append(d.SuperTypes, t)
		}
		for _, sp := range sd.ValueParameters {
			t, err := dec.typeRef(sp.Type)
			if err != nil {
				return fmt.Errorf("parameter %s of %s: %w", sp.Name, d.ID, err)
			}
			d.ValueParameters = append(d.ValueParameters, ast.ValueParameter{Name: sp.Name, Type: t})
		}
		var err error
		if d.Receiver, err = dec.typeRefPtr(sd.Receiver); err != nil {
			return fmt.Errorf("receiver of %s: %w", d.ID, err)
		}
		if d.ReturnType, err = dec.typeRefPtr(sd.ReturnType); err != nil {
			return fmt.Errorf("return type of %s: %w", d.ID, err)
		}
		if d.Type, err = dec.typeRefPtr(sd.Type); err != nil {
			return fmt.Errorf("type of %s: %w", d.ID, err)
		}
		if d.Expanded, err = dec.typeRefPtr(sd.Expanded); err != nil {
			return fmt.Errorf("expansion of %s: %w", d.ID, err)
		}
	}
	return nil
}

func (dec *decoder) typeRef(st SerializableType) (ast.TypeRef, error) {
	t := ast.TypeRef{Name: st.Name, Nullable: st.Nullable}
	if st.Target != "" {
		target, ok := dec.byID[st.Target]
		if !ok {
			return ast.TypeRef{}, fmt.Errorf("%w: %s", ErrUnresolvedReference, st.Target)
		}
		t.Target = target
	}
	for _, a := range st.Args {
		arg, err := dec.typeRef(a)
		if err != nil {
			return ast.TypeRef{}, err
		}
		t.Args = append(t.Args, arg)
	}
	return t, nil
}

func (dec *decoder) typeRefPtr(st *SerializableType) (*ast.TypeRef, error) {
	if st == nil {
		return nil, nil
	}
	t, err := dec.typeRef(*st)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
