// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package actualizer links expected declarations to their actuals.
//
// A run has three phases over a read-only program graph:
//
//  1. Catalog: walk every fragment except the least specific one and record
//     actual classes (by structural name), actual members and actual type
//     alias redirections.
//  2. Class links: walk expected classes of every dependent fragment, look
//     them up in the catalog and zip their type parameters.
//  3. Member links: bucket actual members by structural name and resolve
//     every expected function, property, constructor and enum entry.
//
// Unmatched expected declarations are reported to an explicit Reporter.
// Nothing is kept between runs.
package actualizer

import "errors"

var (
	// ErrLinkExists is returned when a link is added twice for the same
	// expected symbol.
	ErrLinkExists = errors.New("link already exists")

	// ErrNilProgram is returned when Collect is called without a program.
	ErrNilProgram = errors.New("program is nil")

	// ErrNilReporter is returned when Collect is called without a reporter.
	ErrNilReporter = errors.New("reporter is nil")

	// ErrInvalidLink is returned for links with a nil or unnamed side.
	ErrInvalidLink = errors.New("invalid link")
)
