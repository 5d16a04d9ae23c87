// Copyright 2024 The deltaview Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package sqlitestore implements the operator storage contract on top
// of an embedded SQLite database. It trades the speed of memstore for
// state that can be inspected with ordinary SQL tooling while a graph
// is being debugged.
package sqlitestore

import (
	"database/sql"

	"github.com/deltaview/deltaview/internal/types"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite" // register driver
)

const schema = `
CREATE TABLE IF NOT EXISTS operator_state (
  k TEXT PRIMARY KEY,
  v TEXT NOT NULL
)`

// Store keeps operator state in a single SQLite table, one row per
// key, values JSON-encoded.
type Store struct {
	db *sql.DB
}

var _ types.Storage = (*Store)(nil)

// Open creates a store at the given DSN. Use ":memory:" for a
// throwaway store. The returned cancel function closes the database.
func Open(dsn string) (*Store, func(), error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}
	// The graph is single-threaded; one connection avoids table locks
	// between overlapping statements.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, nil, errors.Wrap(err, "could not create state table")
	}
	ret := &Store{db: db}
	return ret, func() { _ = db.Close() }, nil
}

// Get implements types.Storage.
func (s *Store) Get(key string) (any, bool, error) {
	var encoded string
	err := s.db.QueryRow(
		`SELECT v FROM operator_state WHERE k = ?`, key,
	).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.WithStack(err)
	}
	var value any
	if err := json.Unmarshal([]byte(encoded), &value); err != nil {
		return nil, false, errors.Wrapf(err, "corrupt value for key %q", key)
	}
	return value, true, nil
}

// Set implements types.Storage.
func (s *Store) Set(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encoding value for key %q", key)
	}
	_, err = s.db.Exec(
		`INSERT INTO operator_state (k, v) VALUES (?, ?)
		 ON CONFLICT (k) DO UPDATE SET v = excluded.v`,
		key, string(encoded))
	return errors.WithStack(err)
}

// Del implements types.Storage.
func (s *Store) Del(key string) error {
	_, err := s.db.Exec(`DELETE FROM operator_state WHERE k = ?`, key)
	return errors.WithStack(err)
}

// Scan implements types.Storage.
func (s *Store) Scan(prefix string, fn func(key string, value any) (bool, error)) error {
	rows, err := s.db.Query(
		`SELECT k, v FROM operator_state
		 WHERE substr(k, 1, length(?)) = ? ORDER BY k`,
		prefix, prefix)
	if err != nil {
		return errors.WithStack(err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, encoded string
		if err := rows.Scan(&key, &encoded); err != nil {
			return errors.WithStack(err)
		}
		var value any
		if err := json.Unmarshal([]byte(encoded), &value); err != nil {
			return errors.Wrapf(err, "corrupt value for key %q", key)
		}
		more, err := fn(key, value)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return errors.WithStack(rows.Err())
}

// Len returns the number of stored keys.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM operator_state`).Scan(&n)
	return n, errors.WithStack(err)
}
