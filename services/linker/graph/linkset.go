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
	"encoding/hex"
	"sort"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/AleutianAI/expectlink/services/linker/actualizer"
	"github.com/AleutianAI/expectlink/services/linker/ast"
	"github.com/AleutianAI/expectlink/services/linker/diag"
)

// LinkSetSchemaVersion is the version of the link set schema.
const LinkSetSchemaVersion = "1.0"

// SerializableLinkSet is the JSON form of one linker run.
//
// Links are sorted by expected symbol and diagnostics by symbol then kind,
// so equal runs produce byte-equal documents and equal hashes.
type SerializableLinkSet struct {
	SchemaVersion  string                   `json:"schema_version"`
	RunID          string                   `json:"run_id"`
	CreatedAtMilli int64                    `json:"created_at_milli"`
	Links          []SerializableLink       `json:"links"`
	Aliases        map[string]string        `json:"aliases,omitempty"`
	Diagnostics    []SerializableDiagnostic `json:"diagnostics,omitempty"`
	Incomplete     bool                     `json:"incomplete,omitempty"`

	// Hash is the xxh3 hash of links, aliases and diagnostics. RunID and
	// timestamps do not contribute.
	Hash string `json:"hash"`
}

// SerializableLink is one expected-to-actual link.
type SerializableLink struct {
	Expect ast.SymbolID `json:"expect"`
	Actual ast.SymbolID `json:"actual"`
	Kind   string       `json:"kind"`
}

// SerializableDiagnostic is one diagnostic event.
type SerializableDiagnostic struct {
	Kind       string         `json:"kind"`
	Symbol     ast.SymbolID   `json:"symbol"`
	Name       string         `json:"name"`
	DeclKind   string         `json:"decl_kind"`
	Candidates []ast.SymbolID `json:"candidates,omitempty"`
}

// NewLinkSet captures a linker result and its diagnostics.
//
// Inputs:
//
//	res - The linker result. Must not be nil.
//	diags - Diagnostics reported during the run. May be nil.
func NewLinkSet(res *actualizer.Result, diags []diag.Diagnostic) (*SerializableLinkSet, error) {
	if res == nil || res.Links == nil {
		return nil, ErrNilInput
	}
	ls := &SerializableLinkSet{
		SchemaVersion:  LinkSetSchemaVersion,
		RunID:          res.RunID,
		CreatedAtMilli: time.Now().UnixMilli(),
		Incomplete:     res.Incomplete,
	}
	for _, l := range res.Links.Entries() {
		ls.Links = append(ls.Links, SerializableLink{Expect: l.Expect, Actual: l.Actual, Kind: l.Kind.String()})
	}
	if len(res.Aliases) > 0 {
		ls.Aliases = make(map[string]string, len(res.Aliases))
		for k, v := range res.Aliases {
			ls.Aliases[k] = v
		}
	}
	for _, d := range diags {
		ls.Diagnostics = append(ls.Diagnostics, SerializableDiagnostic{
			Kind:       d.Kind.String(),
			Symbol:     d.Symbol,
			Name:       d.Name,
			DeclKind:   d.DeclKind.String(),
			Candidates: d.Candidates,
		})
	}
	sortDiagnostics(ls.Diagnostics)
	ls.Hash = ls.ComputeHash()
	return ls, nil
}

// ComputeHash returns the content hash of the link set.
//
// Thread Safety: Safe for concurrent use.
func (ls *SerializableLinkSet) ComputeHash() string {
	h := xxh3.New()
	write := func(parts ...string) {
		for _, p := range parts {
			_, _ = h.WriteString(p)
			_, _ = h.Write([]byte{0})
		}
		_, _ = h.Write([]byte{'\n'})
	}

	write("links")
	for _, l := range ls.Links {
		write(string(l.Expect), string(l.Actual), l.Kind)
	}

	write("aliases")
	keys := make([]string, 0, len(ls.Aliases))
	for k := range ls.Aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write(k, ls.Aliases[k])
	}

	write("diagnostics")
	for _, d := range ls.Diagnostics {
		parts := []string{d.Kind, string(d.Symbol), d.DeclKind}
		for _, c := range d.Candidates {
			parts = append(parts, string(c))
		}
		write(parts...)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// LinkMap returns the links keyed by expected symbol.
func (ls *SerializableLinkSet) LinkMap() map[ast.SymbolID]SerializableLink {
	out := make(map[ast.SymbolID]SerializableLink, len(ls.Links))
	for _, l := range ls.Links {
		out[l.Expect] = l
	}
	return out
}

func sortDiagnostics(ds []SerializableDiagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Symbol != ds[j].Symbol {
			return ds[i].Symbol < ds[j].Symbol
		}
		return ds[i].Kind < ds[j].Kind
	})
}
