// Marathon - Real-Time Reading Marathon Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marathon

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marathon/internal/logging"
	"github.com/tomtom215/marathon/internal/models"
)

// Errors returned by snapshot stores.
var (
	// ErrSnapshotNotFound is returned by Load when nothing was saved yet.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("snapshot store is closed")
)

// Snapshot is the persisted form of the aggregator: the state and the ids of
// the most recently applied events, oldest first.
type Snapshot struct {
	State      models.MarathonState `json:"state"`
	AppliedIDs []string             `json:"appliedIds"`
	SavedAt    time.Time            `json:"savedAt"`
}

// SnapshotStore persists aggregator snapshots.
type SnapshotStore interface {
	Load(ctx context.Context, marathonID string) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
	Close() error
}

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// SyncWrites fsyncs every Save.
	SyncWrites bool

	// InMemory keeps everything in RAM, for tests.
	InMemory bool
}

// BadgerStore keeps one snapshot per marathon in BadgerDB.
type BadgerStore struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// OpenBadgerStore opens (or creates) the store described by cfg.
func OpenBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, fmt.Errorf("snapshot path is required")
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.SyncWrites = cfg.SyncWrites
	opts.Compression = options.Snappy
	opts.MemTableSize = 16 << 20
	opts.ValueLogFileSize = 16 << 20
	opts.NumCompactors = 2

	// Badger's own logger is far too chatty at info level.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("snapshot store opened")
	return &BadgerStore{db: db}, nil
}

func snapshotKey(marathonID string) []byte {
	return []byte("marathon/" + marathonID + "/snapshot")
}

// Load returns the snapshot saved for marathonID.
func (s *BadgerStore) Load(ctx context.Context, marathonID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var snap Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(marathonID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSnapshotNotFound
		}
		if err != nil {
			return fmt.Errorf("get snapshot: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &snap)
		})
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save overwrites the snapshot for snap.State.MarathonID.
func (s *BadgerStore) Save(ctx context.Context, snap *Snapshot) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(snap.State.MarathonID), data)
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Close flushes and closes the database. Further calls are no-ops.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close BadgerDB: %w", err)
	}
	logging.Info().Msg("snapshot store closed")
	return nil
}
