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
	"errors"
	"testing"
)

func buildTestProgram() *Program {
	common := NewFragment("common")
	file := common.AddFile("a.kt", "pkg")
	a := file.AddClass("A", AsExpect())
	a.AddTypeParameter("T")
	a.AddFunction("f", AsExpect())
	p := a.AddProperty("p", AsExpect())
	p.AddGetter()

	jvm := NewFragment("jvm")
	jfile := jvm.AddFile("a.jvm.kt", "pkg")
	ja := jfile.AddClass("A", AsActual())
	ja.AddFunction("f", AsActual())

	return NewProgram(jvm, common)
}

func TestDeclKind_StringRoundTrip(t *testing.T) {
	for _, k := range AllDeclKinds() {
		parsed, err := ParseDeclKind(k.String())
		if err != nil {
			t.Fatalf("ParseDeclKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("round trip %s: got %s", k, parsed)
		}
	}

	if _, err := ParseDeclKind("module"); !errors.Is(err, ErrInvalidDeclaration) {
		t.Errorf("expected ErrInvalidDeclaration, got %v", err)
	}
}

func TestDeclaration_IsContainerCoversAllKinds(t *testing.T) {
	for _, k := range AllDeclKinds() {
		d := &Declaration{ID: "x", Kind: k}
		want := k == DeclKindFile || k == DeclKindClass
		if got := d.IsContainer(); got != want {
			t.Errorf("%s: IsContainer = %v, want %v", k, got, want)
		}
	}
}

func TestBuilder_ParentBacklinksAndIDs(t *testing.T) {
	f := NewFragment("common")
	file := f.AddFile("a.kt", "pkg")
	c := file.AddClass("C")
	f1 := c.AddFunction("f")
	f2 := c.AddFunction("f")
	tp := c.AddTypeParameter("T")

	if f1.Parent != c || f2.Parent != c || tp.Parent != c {
		t.Fatal("parent backlinks not set")
	}
	if f1.ID == f2.ID {
		t.Fatalf("overloads share ID %s", f1.ID)
	}
	if f2.ID != "common:a.kt/C/f~1" {
		t.Errorf("unexpected overload ID %s", f2.ID)
	}
	if tp.ID != "common:a.kt/C/<T>" {
		t.Errorf("unexpected type parameter ID %s", tp.ID)
	}
	if c.File() != file {
		t.Errorf("File() = %v, want %v", c.File(), file)
	}
}

func TestBuilder_AccessorsInheritFlags(t *testing.T) {
	f := NewFragment("common")
	file := f.AddFile("a.kt", "pkg")
	p := file.AddProperty("p", AsExpect())
	g := p.AddGetter()
	s := p.AddSetter()

	if !g.Expect || !s.Expect {
		t.Error("accessors should inherit expect flag")
	}
	if g.Parent != p || s.Parent != p {
		t.Error("accessor parent should be the property")
	}
	if len(p.Declarations) != 0 {
		t.Error("accessors must not be listed as children")
	}
}

func TestBuilder_AddToNonContainerPanics(t *testing.T) {
	f := NewFragment("common")
	fn := f.AddFile("a.kt", "pkg").AddFunction("f")

	defer func() {
		if recover() == nil {
			t.Error("expected panic adding a child to a function")
		}
	}()
	fn.AddClass("Nested")
}

func TestProgram_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		if err := buildTestProgram().Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})

	t.Run("nil main", func(t *testing.T) {
		p := &Program{}
		if err := p.Validate(); !errors.Is(err, ErrInvalidProgram) {
			t.Errorf("expected ErrInvalidProgram, got %v", err)
		}
	})

	t.Run("duplicate ID", func(t *testing.T) {
		p := buildTestProgram()
		dup := p.Main.Files[0].AddClass("Dup")
		dup.ID = p.Main.Files[0].Declarations[0].ID
		if err := p.Validate(); !errors.Is(err, ErrDuplicateSymbol) {
			t.Errorf("expected ErrDuplicateSymbol, got %v", err)
		}
	})

	t.Run("broken backlink", func(t *testing.T) {
		p := buildTestProgram()
		p.Main.Files[0].Declarations[0].Parent = nil
		if err := p.Validate(); !errors.Is(err, ErrInvalidDeclaration) {
			t.Errorf("expected ErrInvalidDeclaration, got %v", err)
		}
	})
}

func TestProgram_SymbolsIncludesTypeParametersAndAccessors(t *testing.T) {
	p := buildTestProgram()
	syms := p.Symbols()

	for _, id := range []SymbolID{
		"common:a.kt/A/<T>",
		"common:a.kt/A/p/<get-p>",
		"jvm:a.jvm.kt/A/f",
	} {
		if _, ok := syms[id]; !ok {
			t.Errorf("missing symbol %s", id)
		}
	}

	synth := p.AddSyntheticClass("kotlin", "Any")
	if d, ok := p.Lookup(synth.ID); !ok || d != synth {
		t.Errorf("synthetic class not found by Lookup")
	}
}

func TestWalk_SkipsChildrenWhenFalse(t *testing.T) {
	p := buildTestProgram()
	var visited []string
	WalkFragment(p.Dependents[0], func(d *Declaration) bool {
		visited = append(visited, d.Name)
		return d.Kind != DeclKindClass
	})

	want := []string{"a.kt", "A"}
	if len(visited) != len(want) {
		t.Fatalf("visited %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %s, want %s", i, visited[i], want[i])
		}
	}
}
