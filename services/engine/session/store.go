// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/atelier-research/mentor/services/engine/datatypes"
)

var (
	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session: not found")

	// ErrTurnConflict indicates an append at an index that already exists.
	ErrTurnConflict = errors.New("session: turn index conflict")
)

// Store persists session headers and append-only turn records.
//
// AppendTurn is atomic: a turn either commits with all of its embedded
// moves, links, and events, or not at all.
type Store interface {
	CreateSession(ctx context.Context, header datatypes.SessionHeader) error
	GetSession(ctx context.Context, id string) (datatypes.SessionHeader, error)
	UpdateSession(ctx context.Context, header datatypes.SessionHeader) error
	AppendTurn(ctx context.Context, sessionID string, turn datatypes.Turn) error
	Turns(ctx context.Context, sessionID string) ([]datatypes.Turn, error)
	Close() error
}

// key layout: sess/<id> for headers, turn/<id>/<index %06d> for turns.
func sessionKey(id string) []byte { return []byte("sess/" + id) }

func turnKey(id string, index int) []byte {
	return []byte(fmt.Sprintf("turn/%s/%06d", id, index))
}

func turnPrefix(id string) []byte { return []byte("turn/" + id + "/") }

// BadgerStore is the embedded persistent store.
//
// Thread Safety: safe for concurrent use; badger transactions provide
// per-turn atomicity.
type BadgerStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens the store at dir. An empty dir opens an in-memory
// database, used by tests and ephemeral deployments.
func OpenBadger(dir string, logger *slog.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db, logger: logger}, nil
}

// CreateSession writes a new session header.
func (s *BadgerStore) CreateSession(_ context.Context, header datatypes.SessionHeader) error {
	data, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("marshal session header: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(header.ID), data)
	})
}

// GetSession loads a session header.
func (s *BadgerStore) GetSession(_ context.Context, id string) (datatypes.SessionHeader, error) {
	var header datatypes.SessionHeader
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &header)
		})
	})
	return header, err
}

// UpdateSession rewrites a session header, used to stamp ended_at.
func (s *BadgerStore) UpdateSession(ctx context.Context, header datatypes.SessionHeader) error {
	if _, err := s.GetSession(ctx, header.ID); err != nil {
		return err
	}
	return s.CreateSession(ctx, header)
}

// AppendTurn commits one turn in a single transaction.
//
// Outputs:
//
//	error - ErrTurnConflict when the index exists; ErrSessionNotFound
//	for unknown sessions.
func (s *BadgerStore) AppendTurn(_ context.Context, sessionID string, turn datatypes.Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}
	key := turnKey(sessionID, turn.Index)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(sessionKey(sessionID)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		} else if err != nil {
			return err
		}
		if _, err := txn.Get(key); err == nil {
			return ErrTurnConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// Turns loads all turns for a session in index order.
func (s *BadgerStore) Turns(_ context.Context, sessionID string) ([]datatypes.Turn, error) {
	var turns []datatypes.Turn
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = turnPrefix(sessionID)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var t datatypes.Turn
				if err := json.Unmarshal(val, &t); err != nil {
					return err
				}
				turns = append(turns, t)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return turns, err
}

// Close releases the database.
func (s *BadgerStore) Close() error { return s.db.Close() }
