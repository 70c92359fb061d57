// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"errors"
	"testing"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

func newTestFile(t *testing.T) *ast.Declaration {
	t.Helper()
	return ast.NewFragment("jvm").AddFile("a.kt", "pkg")
}

func TestClassTable_PutGet(t *testing.T) {
	file := newTestFile(t)
	a := file.AddClass("A")
	a2 := file.AddClass("A2")

	table := NewClassTable()
	if _, err := table.Put("pkg.A", a); err != nil {
		t.Fatalf("Put: %v", err)
	}
	replaced, err := table.Put("pkg.A", a2)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if replaced != a {
		t.Errorf("replaced = %v, want %v", replaced, a)
	}

	got, ok := table.Get("pkg.A")
	if !ok || got != a2 {
		t.Errorf("Get = %v, %v; want later entry", got, ok)
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
}

func TestClassTable_RejectsInvalid(t *testing.T) {
	file := newTestFile(t)
	fn := file.AddFunction("f")
	table := NewClassTable()

	if _, err := table.Put("", file.AddClass("A")); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("empty name: got %v", err)
	}
	if _, err := table.Put("pkg.f", fn); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("function: got %v", err)
	}
	if _, err := table.Put("pkg.x", nil); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("nil: got %v", err)
	}

	table.Freeze()
	if _, err := table.Put("pkg.A", file.AddClass("B")); !errors.Is(err, ErrFrozen) {
		t.Errorf("frozen: got %v", err)
	}
}

func TestClassTable_NamesSorted(t *testing.T) {
	file := newTestFile(t)
	table := NewClassTable()
	for _, n := range []string{"pkg.C", "pkg.A", "pkg.B"} {
		if _, err := table.Put(n, file.AddClass(n)); err != nil {
			t.Fatalf("Put(%s): %v", n, err)
		}
	}
	names := table.Names()
	want := []string{"pkg.A", "pkg.B", "pkg.C"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

func TestMemberIndex_KeepsCandidatesInOrder(t *testing.T) {
	file := newTestFile(t)
	f1 := file.AddFunction("f")
	f2 := file.AddFunction("f")
	p := file.AddProperty("p")

	idx := NewMemberIndex(WithExpectedSize(4))
	for _, m := range []*ast.Declaration{f1, f2} {
		if err := idx.Add("pkg.f()", m); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := idx.Add("pkg.p", p); err != nil {
		t.Fatalf("Add: %v", err)
	}

	cands := idx.GetByName("pkg.f()")
	if len(cands) != 2 || cands[0] != f1 || cands[1] != f2 {
		t.Fatalf("candidates = %v", cands)
	}

	cands[0] = nil
	if idx.GetByName("pkg.f()")[0] != f1 {
		t.Error("GetByName must return a defensive copy")
	}
	if idx.GetByName("pkg.missing") != nil {
		t.Error("missing name should return nil")
	}

	stats := idx.Stats()
	if stats.TotalMembers != 3 || stats.DistinctNames != 2 || stats.AmbiguousNames != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.ByKind[ast.DeclKindFunction] != 2 || stats.ByKind[ast.DeclKindProperty] != 1 {
		t.Errorf("unexpected kind counts %+v", stats.ByKind)
	}
}

func TestMemberIndex_RejectsInvalid(t *testing.T) {
	file := newTestFile(t)
	idx := NewMemberIndex()

	if err := idx.Add("pkg.A", file.AddClass("A")); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("class: got %v", err)
	}
	if err := idx.Add("", file.AddFunction("f")); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("empty name: got %v", err)
	}
	if err := idx.Add("pkg.x", nil); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("nil: got %v", err)
	}

	idx.Freeze()
	if err := idx.Add("pkg.g()", file.AddFunction("g")); !errors.Is(err, ErrFrozen) {
		t.Errorf("frozen: got %v", err)
	}
}
