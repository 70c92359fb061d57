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
	"sort"

	"github.com/AleutianAI/expectlink/services/linker/ast"
)

// LinkSetDiff describes how the links of two runs differ.
type LinkSetDiff struct {
	// BaseRunID is the run ID of the base link set.
	BaseRunID string `json:"base_run_id"`

	// TargetRunID is the run ID of the target link set.
	TargetRunID string `json:"target_run_id"`

	// Added are links present only in target.
	Added []SerializableLink `json:"added"`

	// Removed are links present only in base.
	Removed []SerializableLink `json:"removed"`

	// Retargeted are expected symbols linked in both runs to different actuals.
	Retargeted []Retarget `json:"retargeted"`

	// DiagnosticsAdded are diagnostics present only in target.
	DiagnosticsAdded []SerializableDiagnostic `json:"diagnostics_added"`

	// DiagnosticsRemoved are diagnostics present only in base.
	DiagnosticsRemoved []SerializableDiagnostic `json:"diagnostics_removed"`

	Summary DiffSummary `json:"summary"`
}

// Retarget is one expected symbol whose actual changed.
type Retarget struct {
	Expect     ast.SymbolID `json:"expect"`
	BaseActual ast.SymbolID `json:"base_actual"`
	Actual     ast.SymbolID `json:"actual"`
	Kind       string       `json:"kind"`
}

// DiffSummary aggregates a LinkSetDiff.
type DiffSummary struct {
	// TotalChanges counts added, removed and retargeted links.
	TotalChanges int `json:"total_changes"`

	// DiagnosticChanges counts added and removed diagnostics.
	DiagnosticChanges int `json:"diagnostic_changes"`

	// ChangeRatio is TotalChanges over the larger link count. 0 if both are empty.
	ChangeRatio float64 `json:"change_ratio"`
}

// IsEmpty reports whether the two link sets are equivalent.
func (d *LinkSetDiff) IsEmpty() bool {
	return d.Summary.TotalChanges == 0 && d.Summary.DiagnosticChanges == 0
}

// DiffLinkSets compares two link sets.
//
// Description:
//
//	Links are matched by expected symbol. A link whose actual differs is
//	reported as retargeted, not as a removal plus an addition. Diagnostics
//	are matched by kind and symbol. Results are sorted by expected symbol.
//	Equal content hashes short-circuit to an empty diff.
//
// Inputs:
//
//	base - The earlier link set. Must not be nil.
//	target - The later link set. Must not be nil.
//
// Outputs:
//
//	*LinkSetDiff - The differences.
//	error - Non-nil if either input is nil.
func DiffLinkSets(base, target *SerializableLinkSet) (*LinkSetDiff, error) {
	if base == nil || target == nil {
		return nil, fmt.Errorf("%w: link sets must not be nil", ErrNilInput)
	}

	diff := &LinkSetDiff{
		BaseRunID:          base.RunID,
		TargetRunID:        target.RunID,
		Added:              []SerializableLink{},
		Removed:            []SerializableLink{},
		Retargeted:         []Retarget{},
		DiagnosticsAdded:   []SerializableDiagnostic{},
		DiagnosticsRemoved: []SerializableDiagnostic{},
	}
	if base.Hash != "" && base.Hash == target.Hash {
		return diff, nil
	}

	baseLinks := base.LinkMap()
	targetLinks := target.LinkMap()

	for id, tl := range targetLinks {
		bl, ok := baseLinks[id]
		switch {
		case !ok:
			diff.Added = append(diff.Added, tl)
		case bl.Actual != tl.Actual:
			diff.Retargeted = append(diff.Retargeted, Retarget{
				Expect:     id,
				BaseActual: bl.Actual,
				Actual:     tl.Actual,
				Kind:       tl.Kind,
			})
		}
	}
	for id, bl := range baseLinks {
		if _, ok := targetLinks[id]; !ok {
			diff.Removed = append(diff.Removed, bl)
		}
	}

	baseDiags := diagnosticSet(base.Diagnostics)
	targetDiags := diagnosticSet(target.Diagnostics)
	for key, d := range targetDiags {
		if _, ok := baseDiags[key]; !ok {
			diff.DiagnosticsAdded = append(diff.DiagnosticsAdded, d)
		}
	}
	for key, d := range baseDiags {
		if _, ok := targetDiags[key]; !ok {
			diff.DiagnosticsRemoved = append(diff.DiagnosticsRemoved, d)
		}
	}

	sortLinks(diff.Added)
	sortLinks(diff.Removed)
	sort.Slice(diff.Retargeted, func(i, j int) bool {
		return diff.Retargeted[i].Expect < diff.Retargeted[j].Expect
	})
	sortDiagnostics(diff.DiagnosticsAdded)
	sortDiagnostics(diff.DiagnosticsRemoved)

	total := len(diff.Added) + len(diff.Removed) + len(diff.Retargeted)
	diff.Summary = DiffSummary{
		TotalChanges:      total,
		DiagnosticChanges: len(diff.DiagnosticsAdded) + len(diff.DiagnosticsRemoved),
	}
	if n := max(len(baseLinks), len(targetLinks)); n > 0 {
		diff.Summary.ChangeRatio = float64(total) / float64(n)
	}
	return diff, nil
}

type diagnosticKey struct {
	kind   string
	symbol ast.SymbolID
}

func diagnosticSet(ds []SerializableDiagnostic) map[diagnosticKey]SerializableDiagnostic {
	out := make(map[diagnosticKey]SerializableDiagnostic, len(ds))
	for _, d := range ds {
		out[diagnosticKey{kind: d.Kind, symbol: d.Symbol}] = d
	}
	return out
}

func sortLinks(ls []SerializableLink) {
	sort.Slice(ls, func(i, j int) bool { return ls[i].Expect < ls[j].Expect })
}
