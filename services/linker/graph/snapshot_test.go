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
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/expectlink/services/linker/actualizer"
	"github.com/AleutianAI/expectlink/services/linker/diag"
)

// newTestDB creates an in-memory BadgerDB for testing.
func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("failed to open in-memory badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSnapshotManager(t *testing.T, opts ...SnapshotOption) *SnapshotManager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	mgr, err := NewSnapshotManager(newTestDB(t), logger, opts...)
	if err != nil {
		t.Fatalf("NewSnapshotManager: %v", err)
	}
	return mgr
}

// buildTestLinkSet links the sample program and captures the result.
func buildTestLinkSet(t *testing.T) *SerializableLinkSet {
	t.Helper()
	s := buildSample(t)
	reporter := diag.NewCollector()
	res, err := actualizer.New(s.program, reporter).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	ls, err := NewLinkSet(res, reporter.Diagnostics())
	if err != nil {
		t.Fatalf("NewLinkSet: %v", err)
	}
	return ls
}

func TestNewSnapshotManager_NilInputs(t *testing.T) {
	if _, err := NewSnapshotManager(nil, slog.Default()); !errors.Is(err, ErrNilInput) {
		t.Errorf("nil db: got %v", err)
	}
	if _, err := NewSnapshotManager(newTestDB(t), nil); !errors.Is(err, ErrNilInput) {
		t.Errorf("nil logger: got %v", err)
	}
}

func TestNewLinkSet_HashIgnoresRunID(t *testing.T) {
	a := buildTestLinkSet(t)
	b := buildTestLinkSet(t)

	if a.RunID == b.RunID {
		t.Fatal("expected distinct run IDs")
	}
	if a.Hash != b.Hash {
		t.Errorf("hash differs across equal runs: %s vs %s", a.Hash, b.Hash)
	}
	if a.Hash != a.ComputeHash() {
		t.Error("stored hash should match recomputed hash")
	}

	b.Links = b.Links[1:]
	if b.ComputeHash() == a.Hash {
		t.Error("hash should change when links change")
	}
}

func TestNewLinkSet_NilResult(t *testing.T) {
	if _, err := NewLinkSet(nil, nil); !errors.Is(err, ErrNilInput) {
		t.Errorf("got %v", err)
	}
}

func TestSnapshotManager_SaveAndLoad(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()
	ls := buildTestLinkSet(t)

	meta, err := mgr.Save(ctx, "sample", ls, "first")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(meta.SnapshotID) != 16 {
		t.Errorf("snapshot ID length = %d, want 16", len(meta.SnapshotID))
	}
	if meta.LinkCount != len(ls.Links) || meta.LinkSetHash != ls.Hash || meta.Label != "first" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.CompressedSize <= 0 || meta.ContentHash == "" {
		t.Errorf("payload fields not set: %+v", meta)
	}

	loaded, loadedMeta, err := mgr.Load(ctx, meta.SnapshotID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Hash != ls.Hash || len(loaded.Links) != len(ls.Links) {
		t.Errorf("loaded link set differs: hash %s vs %s", loaded.Hash, ls.Hash)
	}
	if loadedMeta.RunID != ls.RunID {
		t.Errorf("RunID = %s, want %s", loadedMeta.RunID, ls.RunID)
	}
}

func TestSnapshotManager_SaveValidation(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	if _, err := mgr.Save(ctx, "sample", nil, ""); !errors.Is(err, ErrNilInput) {
		t.Errorf("nil link set: got %v", err)
	}
	if _, err := mgr.Save(ctx, "", buildTestLinkSet(t), ""); err == nil {
		t.Error("expected error for empty project")
	}
}

func TestSnapshotManager_LoadNonexistent(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	if _, _, err := mgr.Load(ctx, "doesnotexist0000"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load: got %v", err)
	}
	if _, _, err := mgr.LoadLatest(ctx, "nothing-saved"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadLatest: got %v", err)
	}
	if _, _, err := mgr.Load(ctx, ""); err == nil {
		t.Error("expected error for empty ID")
	}
}

func TestSnapshotManager_LoadLatest(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	if _, err := mgr.Save(ctx, "sample", buildTestLinkSet(t), "old"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := buildTestLinkSet(t)
	meta, err := mgr.Save(ctx, "sample", second, "new")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, loadedMeta, err := mgr.LoadLatest(ctx, "sample")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if loadedMeta.SnapshotID != meta.SnapshotID || loaded.RunID != second.RunID {
		t.Errorf("latest = %s, want %s", loadedMeta.SnapshotID, meta.SnapshotID)
	}
}

func TestSnapshotManager_List(t *testing.T) {
	mgr := newTestSnapshotManager(t, WithListLimit(2))
	ctx := context.Background()

	for range 3 {
		if _, err := mgr.Save(ctx, "alpha", buildTestLinkSet(t), ""); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if _, err := mgr.Save(ctx, "beta", buildTestLinkSet(t), ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	all, err := mgr.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("List all = %d, want 4", len(all))
	}

	alpha, err := mgr.List(ctx, "alpha", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(alpha) != 3 {
		t.Errorf("List alpha = %d, want 3", len(alpha))
	}
	for _, m := range alpha {
		if m.Project != "alpha" {
			t.Errorf("unexpected project %q", m.Project)
		}
	}

	limited, err := mgr.List(ctx, "", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("default limit = %d, want 2", len(limited))
	}
}

func TestSnapshotManager_Delete(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	meta, err := mgr.Save(ctx, "sample", buildTestLinkSet(t), "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mgr.Delete(ctx, meta.SnapshotID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, err := mgr.Load(ctx, meta.SnapshotID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load after delete: got %v", err)
	}
	if _, _, err := mgr.LoadLatest(ctx, "sample"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("LoadLatest after delete: got %v", err)
	}
	if err := mgr.Delete(ctx, meta.SnapshotID); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("second Delete: got %v", err)
	}
}

func TestSnapshotManager_DetectsCorruption(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx := context.Background()

	meta, err := mgr.Save(ctx, "sample", buildTestLinkSet(t), "")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	dataKey, _ := snapshotKeys(meta.ProjectHash, meta.SnapshotID)
	err = mgr.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(dataKey), []byte("not gzip"))
	})
	if err != nil {
		t.Fatalf("corrupting: %v", err)
	}

	if _, _, err := mgr.Load(ctx, meta.SnapshotID); !errors.Is(err, ErrIntegrity) {
		t.Errorf("got %v, want ErrIntegrity", err)
	}
}

func TestSnapshotManager_CancelledContext(t *testing.T) {
	mgr := newTestSnapshotManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mgr.Save(ctx, "sample", buildTestLinkSet(t), ""); !errors.Is(err, context.Canceled) {
		t.Errorf("Save: got %v", err)
	}
	if _, err := mgr.List(ctx, "", 0); !errors.Is(err, context.Canceled) {
		t.Errorf("List: got %v", err)
	}
}

func TestProjectHash(t *testing.T) {
	h1 := ProjectHash("alpha")
	h2 := ProjectHash("alpha")
	h3 := ProjectHash("beta")

	if len(h1) != 16 {
		t.Errorf("length = %d, want 16", len(h1))
	}
	if h1 != h2 {
		t.Error("same project should hash the same")
	}
	if h1 == h3 {
		t.Error("different projects should hash differently")
	}
}
