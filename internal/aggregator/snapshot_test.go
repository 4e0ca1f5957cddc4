// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package aggregator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tomtom215/marathon/internal/models"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := OpenBadgerStore(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_LoadMissing(t *testing.T) {
	store := openTestStore(t)

	if _, err := store.Load(context.Background(), "verao_2025"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestBadgerStore_SaveOverwrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	state := models.NewMarathonState("verao_2025")
	state.TotalPagesRead = 10
	if err := store.Save(ctx, &Snapshot{State: state, AppliedIDs: []string{"a"}}); err != nil {
		t.Fatal(err)
	}

	state.TotalPagesRead = 25
	state.Sequence = 2
	if err := store.Save(ctx, &Snapshot{State: state, AppliedIDs: []string{"a", "b"}, SavedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	snap, err := store.Load(ctx, "verao_2025")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.State.TotalPagesRead != 25 || snap.State.Sequence != 2 {
		t.Errorf("expected the latest snapshot, got %+v", snap.State)
	}
	if len(snap.AppliedIDs) != 2 || snap.AppliedIDs[1] != "b" {
		t.Errorf("unexpected applied ids %v", snap.AppliedIDs)
	}

	if _, err := store.Load(ctx, "inverno_2025"); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("snapshots must be keyed by marathon, got %v", err)
	}
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot")
	ctx := context.Background()

	store, err := OpenBadgerStore(BadgerConfig{Path: path, SyncWrites: true})
	if err != nil {
		t.Fatal(err)
	}
	state := models.NewMarathonState("verao_2025")
	state.TotalPagesRead = 42
	if err := store.Save(ctx, &Snapshot{State: state}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = OpenBadgerStore(BadgerConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()

	snap, err := store.Load(ctx, "verao_2025")
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if snap.State.TotalPagesRead != 42 {
		t.Errorf("expected 42 pages, got %d", snap.State.TotalPagesRead)
	}
}

func TestBadgerStore_Closed(t *testing.T) {
	store, err := OpenBadgerStore(BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}

	if err := store.Save(context.Background(), &Snapshot{}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
	if _, err := store.Load(context.Background(), "x"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("expected ErrStoreClosed, got %v", err)
	}
}

func TestOpenBadgerStore_RequiresPath(t *testing.T) {
	if _, err := OpenBadgerStore(BadgerConfig{}); err == nil {
		t.Error("expected an error without a path")
	}
}
