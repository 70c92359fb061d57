// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package actualizer

import (
	"fmt"
	"log/slog"

	"github.com/AleutianAI/expectlink/services/linker/ast"
	"github.com/AleutianAI/expectlink/services/linker/fqname"
)

// linkMembers resolves every expected member under d.
//
// Functions, constructors and properties are eligible when expected; enum
// entries when their enum class is expected.
func (r *run) linkMembers(d *ast.Declaration) {
	switch d.Kind {
	case ast.DeclKindFile, ast.DeclKindClass:
		for _, child := range d.Declarations {
			r.linkMembers(child)
		}

	case ast.DeclKindFunction, ast.DeclKindConstructor, ast.DeclKindProperty:
		if d.Expect {
			r.linkMember(d)
		}

	case ast.DeclKindEnumEntry:
		if parent := d.ParentClass(); parent != nil && parent.Expect {
			r.linkMember(d)
		}

	case ast.DeclKindTypeAlias, ast.DeclKindTypeParameter:

	default:
		panic(fmt.Sprintf("actualizer: unhandled declaration kind %s", d.Kind))
	}
}

// linkMember resolves one expected member.
//
// Description:
//
//	Exactly one candidate is linked. Several candidates are never resolved;
//	they are reported only under AmbiguityReport. With no candidate, a fake
//	override in a class that is not expected is left for a later pass, and
//	anything else is reported unless it is a primary constructor or its
//	parent is an optional expectation.
func (r *run) linkMember(expect *ast.Declaration) {
	name := fqname.FromExpect(expect, r.catalog.aliases)
	candidates := r.members.GetByName(name)

	switch {
	case len(candidates) == 1:
		r.linkResolvedMember(expect, candidates[0])

	case len(candidates) > 1:
		r.stats.Ambiguous++
		recordAmbiguous(expect.Kind)
		r.logger.Debug("expected member has several actuals",
			slog.String("symbol", string(expect.ID)),
			slog.String("name", name),
			slog.Int("candidates", len(candidates)),
		)
		if r.opts.AmbiguityPolicy == AmbiguityReport {
			r.reporter.ReportAmbiguousActuals(expect, candidates)
		}

	case isDeferredFakeOverride(expect):
		r.stats.DeferredFakeOverrides++
		recordDeferredFakeOverride()

	case r.isOptionalExpectation(expect.Parent) || isPrimaryConstructor(expect):
		r.stats.Exempt++

	default:
		r.reportMissing(expect)
	}
}

func (r *run) linkResolvedMember(expect, actual *ast.Declaration) {
	if !r.addLink(expect, actual) {
		return
	}
	r.stats.MemberLinks++

	switch expect.Kind {
	case ast.DeclKindFunction, ast.DeclKindConstructor:
		r.zipTypeParameters(expect, actual)
	case ast.DeclKindProperty:
		r.linkAccessor(expect.Getter, actual.Getter)
		r.linkAccessor(expect.Setter, actual.Setter)
	case ast.DeclKindEnumEntry:
	default:
		panic(fmt.Sprintf("actualizer: unhandled member kind %s", expect.Kind))
	}
}

func (r *run) linkAccessor(expect, actual *ast.Declaration) {
	if expect == nil || actual == nil {
		return
	}
	if r.addLink(expect, actual) {
		r.stats.AccessorLinks++
	}
}

// isDeferredFakeOverride reports whether d is a fake override whose parent
// is a class that is not expected.
func isDeferredFakeOverride(d *ast.Declaration) bool {
	parent := d.ParentClass()
	return d.FakeOverride && parent != nil && !parent.Expect
}

func isPrimaryConstructor(d *ast.Declaration) bool {
	return d.Kind == ast.DeclKindConstructor && d.Primary
}
