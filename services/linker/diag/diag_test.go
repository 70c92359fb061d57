// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diag

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

func fixture(t *testing.T) (cls, f1, f2 *ast.Declaration) {
	t.Helper()
	file := ast.NewFragment("common").AddFile("a.kt", "pkg")
	cls = file.AddClass("A", ast.AsExpect())
	f1 = file.AddFunction("f", ast.AsActual())
	f2 = file.AddFunction("f", ast.AsActual())
	return cls, f1, f2
}

func TestCollector(t *testing.T) {
	cls, f1, f2 := fixture(t)
	c := NewCollector()

	c.ReportMissingActual(cls)
	c.ReportAmbiguousActuals(f1, []*ast.Declaration{f1, f2})

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if c.Count(KindMissingActual) != 1 || c.Count(KindAmbiguousActuals) != 1 {
		t.Errorf("unexpected counts: %v", c.Diagnostics())
	}

	ds := c.Diagnostics()
	if ds[0].Symbol != cls.ID || ds[0].DeclKind != ast.DeclKindClass {
		t.Errorf("first event = %+v", ds[0])
	}
	if len(ds[1].Candidates) != 2 || ds[1].Candidates[1] != f2.ID {
		t.Errorf("candidates = %v", ds[1].Candidates)
	}

	ds[0].Name = "mutated"
	if c.Diagnostics()[0].Name != "A" {
		t.Error("Diagnostics must return a copy")
	}

	syms := c.Symbols(KindMissingActual)
	if len(syms) != 1 || syms[0] != cls.ID {
		t.Errorf("Symbols = %v", syms)
	}
}

func TestDiagnosticString(t *testing.T) {
	cls, f1, f2 := fixture(t)

	if s := MissingActual(cls).String(); !strings.Contains(s, "missing_actual") || !strings.Contains(s, "has no actual") {
		t.Errorf("MissingActual string = %q", s)
	}
	if s := AmbiguousActuals(f1, []*ast.Declaration{f1, f2}).String(); !strings.Contains(s, "2 actuals") {
		t.Errorf("AmbiguousActuals string = %q", s)
	}
	if Kind(0).String() != "unknown" {
		t.Errorf("zero Kind = %q", Kind(0).String())
	}
}

func TestLogReporter(t *testing.T) {
	cls, f1, f2 := fixture(t)
	var buf bytes.Buffer
	r := NewLogReporter(slog.New(slog.NewTextHandler(&buf, nil)))

	r.ReportMissingActual(cls)
	r.ReportAmbiguousActuals(f1, []*ast.Declaration{f1, f2})

	out := buf.String()
	if !strings.Contains(out, "expected declaration has no actual") {
		t.Errorf("missing-actual line absent: %s", out)
	}
	if !strings.Contains(out, string(cls.ID)) {
		t.Errorf("symbol absent: %s", out)
	}
	if !strings.Contains(out, "ambiguous actuals") {
		t.Errorf("ambiguous line absent: %s", out)
	}
}

func TestMulti(t *testing.T) {
	cls, f1, f2 := fixture(t)
	a, b := NewCollector(), NewCollector()
	m := Multi{a, b}

	m.ReportMissingActual(cls)
	m.ReportAmbiguousActuals(f1, []*ast.Declaration{f1, f2})

	for i, c := range []*Collector{a, b} {
		if c.Len() != 2 {
			t.Errorf("sink %d got %d events, want 2", i, c.Len())
		}
	}
}
