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
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/expectlink/services/linker/config"
)

// BadgerDB key prefixes for link set snapshots.
const (
	keyPrefixSnap      = "links:snap:"
	keyPrefixSnapIndex = "links:snap:index:"
	keySuffixData      = ":data"
	keySuffixMeta      = ":meta"
	keySuffixLatest    = ":latest"
)

// SnapshotMetadata describes a saved link set.
type SnapshotMetadata struct {
	// SnapshotID is SHA256(Project + RunID)[:16].
	SnapshotID string `json:"snapshot_id"`

	// Project names the compilation the run belongs to.
	Project string `json:"project"`

	// ProjectHash is SHA256(Project)[:16] for key grouping.
	ProjectHash string `json:"project_hash"`

	// RunID is the linker run's ID.
	RunID string `json:"run_id"`

	// LinkSetHash is the link set's xxh3 content hash.
	LinkSetHash string `json:"link_set_hash"`

	// Label is an optional human-readable label.
	Label string `json:"label,omitempty"`

	// CreatedAtMilli is when the snapshot was saved (Unix milliseconds UTC).
	CreatedAtMilli int64 `json:"created_at_milli"`

	LinkCount       int `json:"link_count"`
	DiagnosticCount int `json:"diagnostic_count"`

	SchemaVersion string `json:"schema_version"`

	// CompressedSize is the size of the gzip payload in bytes.
	CompressedSize int64 `json:"compressed_size"`

	// ContentHash is the SHA256 hash of the gzip payload.
	ContentHash string `json:"content_hash"`
}

// SnapshotOption configures a SnapshotManager.
type SnapshotOption func(*SnapshotManager)

// WithListLimit sets the default page size of List.
func WithListLimit(n int) SnapshotOption {
	return func(m *SnapshotManager) {
		if n > 0 {
			m.listLimit = n
		}
	}
}

// SnapshotManager saves and loads link sets in BadgerDB.
//
// Description:
//
//	Each snapshot stores a gzip-compressed SerializableLinkSet plus
//	metadata for listing. A per-project "latest" pointer tracks the most
//	recent save.
//
// Thread Safety:
//
//	Safe for concurrent use. BadgerDB handles its own concurrency control.
type SnapshotManager struct {
	db        *badger.DB
	logger    *slog.Logger
	listLimit int
}

// NewSnapshotManager creates a SnapshotManager.
//
// Inputs:
//
//	db - An opened BadgerDB instance owned by the caller. Must not be nil.
//	logger - Logger for diagnostic output. Must not be nil.
//	opts - Functional options.
//
// Outputs:
//
//	*SnapshotManager - The configured manager.
//	error - Non-nil if db or logger is nil.
func NewSnapshotManager(db *badger.DB, logger *slog.Logger, opts ...SnapshotOption) (*SnapshotManager, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: badger db", ErrNilInput)
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger", ErrNilInput)
	}
	m := &SnapshotManager{db: db, logger: logger, listLimit: config.DefaultSnapshotListLimit}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Save persists a link set.
//
// Key Schema:
//
//	links:snap:{projectHash}:{snapshotID}:data -> gzip(JSON(SerializableLinkSet))
//	links:snap:{projectHash}:{snapshotID}:meta -> JSON(SnapshotMetadata)
//	links:snap:{projectHash}:latest            -> snapshotID
//	links:snap:index:{snapshotID}              -> projectHash
//
// Inputs:
//
//	ctx - Context for cancellation.
//	project - Names the compilation. Must not be empty.
//	ls - The link set. Must not be nil.
//	label - Optional label.
func (m *SnapshotManager) Save(ctx context.Context, project string, ls *SerializableLinkSet, label string) (*SnapshotMetadata, error) {
	if ls == nil {
		return nil, fmt.Errorf("%w: link set", ErrNilInput)
	}
	if project == "" {
		return nil, fmt.Errorf("project must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(ls)
	if err != nil {
		return nil, fmt.Errorf("marshaling link set: %w", err)
	}

	var compressed bytes.Buffer
	gw, err := gzip.NewWriterLevel(&compressed, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := gw.Write(jsonData); err != nil {
		return nil, fmt.Errorf("compressing link set: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("closing gzip writer: %w", err)
	}
	compressedData := compressed.Bytes()

	projectHash := ProjectHash(project)
	snapshotID := hashString(project + ":" + ls.RunID)[:16]

	meta := &SnapshotMetadata{
		SnapshotID:      snapshotID,
		Project:         project,
		ProjectHash:     projectHash,
		RunID:           ls.RunID,
		LinkSetHash:     ls.Hash,
		Label:           label,
		CreatedAtMilli:  time.Now().UnixMilli(),
		LinkCount:       len(ls.Links),
		DiagnosticCount: len(ls.Diagnostics),
		SchemaVersion:   ls.SchemaVersion,
		CompressedSize:  int64(len(compressedData)),
		ContentHash:     hashBytes(compressedData),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}

	dataKey, metaKey := snapshotKeys(projectHash, snapshotID)
	latestKey := keyPrefixSnap + projectHash + keySuffixLatest
	indexKey := keyPrefixSnapIndex + snapshotID

	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(dataKey), compressedData); err != nil {
			return fmt.Errorf("storing data: %w", err)
		}
		if err := txn.Set([]byte(metaKey), metaJSON); err != nil {
			return fmt.Errorf("storing metadata: %w", err)
		}
		if err := txn.Set([]byte(latestKey), []byte(snapshotID)); err != nil {
			return fmt.Errorf("updating latest pointer: %w", err)
		}
		if err := txn.Set([]byte(indexKey), []byte(projectHash)); err != nil {
			return fmt.Errorf("storing reverse index: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("writing snapshot to badger: %w", err)
	}

	m.logger.Info("link set snapshot saved",
		slog.String("snapshot_id", snapshotID),
		slog.String("project", project),
		slog.String("run_id", ls.RunID),
		slog.Int("links", meta.LinkCount),
		slog.Int64("compressed_size", meta.CompressedSize),
	)
	return meta, nil
}

// Load retrieves a link set by snapshot ID.
//
// Outputs:
//
//	*SerializableLinkSet - The stored link set.
//	*SnapshotMetadata - Its metadata.
//	error - ErrSnapshotNotFound, ErrIntegrity or a decode error.
func (m *SnapshotManager) Load(ctx context.Context, snapshotID string) (*SerializableLinkSet, *SnapshotMetadata, error) {
	if snapshotID == "" {
		return nil, nil, fmt.Errorf("snapshot ID must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	projectHash, err := m.getProjectHash(snapshotID)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}
	return m.loadByKeys(projectHash, snapshotID)
}

// LoadLatest loads the most recent snapshot of a project.
func (m *SnapshotManager) LoadLatest(ctx context.Context, project string) (*SerializableLinkSet, *SnapshotMetadata, error) {
	if project == "" {
		return nil, nil, fmt.Errorf("project must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	projectHash := ProjectHash(project)
	latestKey := keyPrefixSnap + projectHash + keySuffixLatest

	var snapshotID string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return notFound(err)
		}
		return item.Value(func(val []byte) error {
			snapshotID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("reading latest pointer for %s: %w", project, err)
	}
	return m.loadByKeys(projectHash, snapshotID)
}

// List returns snapshot metadata, newest first.
//
// Inputs:
//
//	ctx - Context for cancellation.
//	project - Optional filter. Empty lists every project.
//	limit - Maximum results. If <= 0, the manager's list limit applies.
func (m *SnapshotManager) List(ctx context.Context, project string, limit int) ([]*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = m.listLimit
	}

	prefix := keyPrefixSnap
	if project != "" {
		prefix = keyPrefixSnap + ProjectHash(project) + ":"
	}

	var results []*SnapshotMetadata
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())
			if !isMetaKey(key) {
				continue
			}
			var meta SnapshotMetadata
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				m.logger.Warn("skipping corrupt metadata", slog.String("key", key), slog.Any("error", err))
				continue
			}
			results = append(results, &meta)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAtMilli > results[j].CreatedAtMilli
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Delete removes a snapshot and, if it was the latest, the latest pointer.
func (m *SnapshotManager) Delete(ctx context.Context, snapshotID string) error {
	if snapshotID == "" {
		return fmt.Errorf("snapshot ID must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	projectHash, err := m.getProjectHash(snapshotID)
	if err != nil {
		return fmt.Errorf("looking up snapshot %s: %w", snapshotID, err)
	}

	dataKey, metaKey := snapshotKeys(projectHash, snapshotID)
	latestKey := keyPrefixSnap + projectHash + keySuffixLatest
	indexKey := keyPrefixSnapIndex + snapshotID

	err = m.db.Update(func(txn *badger.Txn) error {
		for _, k := range []string{dataKey, metaKey, indexKey} {
			if err := txn.Delete([]byte(k)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting %s: %w", k, err)
			}
		}
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return nil
		}
		var currentLatest string
		_ = item.Value(func(val []byte) error {
			currentLatest = string(val)
			return nil
		})
		if currentLatest == snapshotID {
			if err := txn.Delete([]byte(latestKey)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("deleting latest pointer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", snapshotID, err)
	}

	m.logger.Info("link set snapshot deleted", slog.String("snapshot_id", snapshotID))
	return nil
}

func (m *SnapshotManager) loadByKeys(projectHash, snapshotID string) (*SerializableLinkSet, *SnapshotMetadata, error) {
	dataKey, metaKey := snapshotKeys(projectHash, snapshotID)

	var compressedData, metaJSON []byte
	err := m.db.View(func(txn *badger.Txn) error {
		dataItem, err := txn.Get([]byte(dataKey))
		if err != nil {
			return fmt.Errorf("reading data for %s: %w", snapshotID, notFound(err))
		}
		if compressedData, err = dataItem.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying data for %s: %w", snapshotID, err)
		}
		metaItem, err := txn.Get([]byte(metaKey))
		if err != nil {
			return fmt.Errorf("reading metadata for %s: %w", snapshotID, notFound(err))
		}
		if metaJSON, err = metaItem.ValueCopy(nil); err != nil {
			return fmt.Errorf("copying metadata for %s: %w", snapshotID, err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var meta SnapshotMetadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling metadata for %s: %w", snapshotID, err)
	}
	if actual := hashBytes(compressedData); meta.ContentHash != "" && meta.ContentHash != actual {
		return nil, nil, fmt.Errorf("%w: %s payload hash %s, want %s", ErrIntegrity, snapshotID, actual, meta.ContentHash)
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressedData))
	if err != nil {
		return nil, nil, fmt.Errorf("decompressing snapshot %s: %w", snapshotID, err)
	}
	defer gr.Close()

	jsonData, err := io.ReadAll(gr)
	if err != nil {
		return nil, nil, fmt.Errorf("reading decompressed data for %s: %w", snapshotID, err)
	}

	var ls SerializableLinkSet
	if err := json.Unmarshal(jsonData, &ls); err != nil {
		return nil, nil, fmt.Errorf("unmarshaling link set for %s: %w", snapshotID, err)
	}
	if ls.SchemaVersion != LinkSetSchemaVersion {
		return nil, nil, fmt.Errorf("%w: link set schema %q, want %q", ErrSchemaVersion, ls.SchemaVersion, LinkSetSchemaVersion)
	}
	if got := ls.ComputeHash(); got != ls.Hash {
		return nil, nil, fmt.Errorf("%w: %s link set hash %s, want %s", ErrIntegrity, snapshotID, got, ls.Hash)
	}
	return &ls, &meta, nil
}

func (m *SnapshotManager) getProjectHash(snapshotID string) (string, error) {
	indexKey := keyPrefixSnapIndex + snapshotID
	var projectHash string
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(indexKey))
		if err != nil {
			return notFound(err)
		}
		return item.Value(func(val []byte) error {
			projectHash = string(val)
			return nil
		})
	})
	return projectHash, err
}

// ProjectHash returns SHA256(project)[:16], the key prefix of a project's
// snapshots.
func ProjectHash(project string) string {
	return hashString(project)[:16]
}

func snapshotKeys(projectHash, snapshotID string) (dataKey, metaKey string) {
	base := keyPrefixSnap + projectHash + ":" + snapshotID
	return base + keySuffixData, base + keySuffixMeta
}

func notFound(err error) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %w", ErrSnapshotNotFound, err)
	}
	return err
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func hashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func isMetaKey(key string) bool {
	return len(key) > len(keySuffixMeta) && key[len(key)-len(keySuffixMeta):] == keySuffixMeta
}
