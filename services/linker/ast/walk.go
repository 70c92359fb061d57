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

// WalkFunc is called for each visited declaration. Returning false skips
// the declaration's children.
type WalkFunc func(d *Declaration) bool

// Walk visits d and its nested Declarations depth-first, pre-order.
//
// Type parameters and property accessors are not visited; use WalkAll.
func Walk(d *Declaration, fn WalkFunc) {
	if d == nil || !fn(d) {
		return
	}
	for _, child := range d.Declarations {
		Walk(child, fn)
	}
}

// WalkAll is Walk that also visits type parameters and property accessors.
func WalkAll(d *Declaration, fn WalkFunc) {
	if d == nil || !fn(d) {
		return
	}
	for _, tp := range d.TypeParameters {
		WalkAll(tp, fn)
	}
	if d.Getter != nil {
		WalkAll(d.Getter, fn)
	}
	if d.Setter != nil {
		WalkAll(d.Setter, fn)
	}
	for _, child := range d.Declarations {
		WalkAll(child, fn)
	}
}

// WalkFragment walks every file of a fragment with Walk.
func WalkFragment(f *Fragment, fn WalkFunc) {
	for _, file := range f.Files {
		Walk(file, fn)
	}
}
