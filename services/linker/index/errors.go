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

import "errors"

// Sentinel errors for catalog tables.
var (
	// ErrFrozen is returned when adding to a table after Freeze().
	ErrFrozen = errors.New("table is frozen and cannot be modified")

	// ErrInvalidEntry is returned for nil declarations, empty names, or a
	// declaration whose kind the table does not accept.
	ErrInvalidEntry = errors.New("invalid entry")
)
