// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph persists program graphs and link sets.
//
// Program graphs travel as SerializableProgram JSON with symbol-ID
// references, so a fragment can point at declarations of another fragment.
// Link sets, the output of a linker run, are stored as gzip-compressed JSON
// snapshots in BadgerDB and can be diffed run against run.
package graph

import "errors"

var (
	// ErrSchemaVersion is returned for documents with an unsupported schema.
	ErrSchemaVersion = errors.New("unsupported schema version")

	// ErrUnresolvedReference is returned when a type reference names a
	// symbol that is not in the program.
	ErrUnresolvedReference = errors.New("unresolved symbol reference")

	// ErrNilInput is returned when a required document or result is nil.
	ErrNilInput = errors.New("input must not be nil")

	// ErrSnapshotNotFound is returned when a snapshot does not exist.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrIntegrity is returned when a stored snapshot fails a hash check.
	ErrIntegrity = errors.New("snapshot integrity check failed")
)
