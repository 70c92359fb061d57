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

// linkClasses links every expected class under d and recurses into every
// class, linked or not, so nested expected classes are reached.
func (r *run) linkClasses(d *ast.Declaration) {
	switch d.Kind {
	case ast.DeclKindFile:
		for _, child := range d.Declarations {
			r.linkClasses(child)
		}

	case ast.DeclKindClass:
		if d.Expect {
			r.linkClass(d)
		}
		for _, child := range d.Declarations {
			r.linkClasses(child)
		}

	case ast.DeclKindFunction, ast.DeclKindConstructor, ast.DeclKindProperty,
		ast.DeclKindEnumEntry, ast.DeclKindTypeAlias, ast.DeclKindTypeParameter:

	default:
		panic(fmt.Sprintf("actualizer: unhandled declaration kind %s", d.Kind))
	}
}

func (r *run) linkClass(expect *ast.Declaration) {
	name := fqname.FromExpect(expect, r.catalog.aliases)
	actual, ok := r.catalog.classes.Get(name)
	if !ok {
		if r.isOptionalExpectation(expect) {
			r.stats.Exempt++
			return
		}
		r.reportMissing(expect)
		return
	}
	if r.addLink(expect, actual) {
		r.stats.ClassLinks++
	}
	r.zipTypeParameters(expect, actual)
}

// zipTypeParameters links type parameters positionally. Lists of different
// length are truncated to the shorter one.
func (r *run) zipTypeParameters(expect, actual *ast.Declaration) {
	n := min(len(expect.TypeParameters), len(actual.TypeParameters))
	if len(expect.TypeParameters) != len(actual.TypeParameters) {
		r.stats.ArityMismatches++
		r.logger.Debug("type parameter arity differs, truncating",
			slog.String("expect", string(expect.ID)),
			slog.String("actual", string(actual.ID)),
			slog.Int("expect_arity", len(expect.TypeParameters)),
			slog.Int("actual_arity", len(actual.TypeParameters)),
		)
	}
	for i := 0; i < n; i++ {
		if r.addLink(expect.TypeParameters[i], actual.TypeParameters[i]) {
			r.stats.TypeParameterLinks++
		}
	}
}

// isOptionalExpectation reports whether d is an expected class carrying an
// optional-expectation annotation. Only d itself is checked; an unmarked
// class nested in a marked one is not exempt.
func (r *run) isOptionalExpectation(d *ast.Declaration) bool {
	if d == nil || d.Kind != ast.DeclKindClass || !d.Expect {
		return false
	}
	for _, a := range d.Annotations {
		if _, ok := r.optional[a]; ok {
			return true
		}
	}
	return false
}
