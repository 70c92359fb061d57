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
	"errors"
	"testing"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

func linkSet(runID string, links []SerializableLink, diags ...SerializableDiagnostic) *SerializableLinkSet {
	ls := &SerializableLinkSet{
		SchemaVersion: LinkSetSchemaVersion,
		RunID:         runID,
		Links:         links,
		Diagnostics:   diags,
	}
	ls.Hash = ls.ComputeHash()
	return ls
}

func TestDiffLinkSets_Identical(t *testing.T) {
	links := []SerializableLink{{Expect: "c:A", Actual: "j:A", Kind: "class"}}
	diff, err := DiffLinkSets(linkSet("r1", links), linkSet("r2", links))
	if err != nil {
		t.Fatalf("DiffLinkSets: %v", err)
	}
	if !diff.IsEmpty() {
		t.Errorf("expected empty diff, got %+v", diff.Summary)
	}
	if diff.BaseRunID != "r1" || diff.TargetRunID != "r2" {
		t.Errorf("run IDs = %s, %s", diff.BaseRunID, diff.TargetRunID)
	}
}

func TestDiffLinkSets_Changes(t *testing.T) {
	base := linkSet("r1", []SerializableLink{
		{Expect: "c:A", Actual: "j:A", Kind: "class"},
		{Expect: "c:A/f", Actual: "j:A/f", Kind: "function"},
		{Expect: "c:B", Actual: "j:B", Kind: "class"},
	}, SerializableDiagnostic{Kind: "missing_actual", Symbol: "c:C", DeclKind: "class"})

	target := linkSet("r2", []SerializableLink{
		{Expect: "c:A", Actual: "j:A", Kind: "class"},
		{Expect: "c:A/f", Actual: "j:A/f~1", Kind: "function"},
		{Expect: "c:C", Actual: "j:C", Kind: "class"},
	}, SerializableDiagnostic{Kind: "missing_actual", Symbol: "c:B", DeclKind: "class"})

	diff, err := DiffLinkSets(base, target)
	if err != nil {
		t.Fatalf("DiffLinkSets: %v", err)
	}

	if len(diff.Added) != 1 || diff.Added[0].Expect != "c:C" {
		t.Errorf("added = %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].Expect != "c:B" {
		t.Errorf("removed = %+v", diff.Removed)
	}
	want := Retarget{Expect: "c:A/f", BaseActual: "j:A/f", Actual: "j:A/f~1", Kind: "function"}
	if len(diff.Retargeted) != 1 || diff.Retargeted[0] != want {
		t.Errorf("retargeted = %+v", diff.Retargeted)
	}
	if len(diff.DiagnosticsAdded) != 1 || diff.DiagnosticsAdded[0].Symbol != ast.SymbolID("c:B") {
		t.Errorf("diagnostics added = %+v", diff.DiagnosticsAdded)
	}
	if len(diff.DiagnosticsRemoved) != 1 || diff.DiagnosticsRemoved[0].Symbol != ast.SymbolID("c:C") {
		t.Errorf("diagnostics removed = %+v", diff.DiagnosticsRemoved)
	}
	if diff.Summary.TotalChanges != 3 || diff.Summary.DiagnosticChanges != 2 {
		t.Errorf("summary = %+v", diff.Summary)
	}
	if diff.Summary.ChangeRatio != 1.0 {
		t.Errorf("change ratio = %f, want 1", diff.Summary.ChangeRatio)
	}
}

func TestDiffLinkSets_Nil(t *testing.T) {
	if _, err := DiffLinkSets(nil, linkSet("r", nil)); !errors.Is(err, ErrNilInput) {
		t.Errorf("got %v", err)
	}
}
