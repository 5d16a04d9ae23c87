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

// Package source implements the in-memory row source at the leaves of
// the operator graph. A source owns the ordered row set for one table
// and maintains one btree index per distinct ordering requested by a
// connection.
package source

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/deltaview/deltaview/internal/util/keycode"
	"github.com/google/btree"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Source is the in-memory implementation of types.Source.
type Source struct {
	table      string
	columns    map[string]types.ColumnType
	primaryKey []string

	// rows is the authoritative set, keyed by encoded primary key.
	rows map[string]types.Row

	indexes     []*index
	connections []*connection
}

var _ types.Source = (*Source)(nil)

// An index is one btree over the full row set, ordered by a
// connection's ordering key.
type index struct {
	schema *types.Schema
	tree   *btree.BTreeG[types.Row]
}

// New returns an empty source for the given table.
func New(
	table string, columns map[string]types.ColumnType, primaryKey []string,
) (*Source, error) {
	if len(primaryKey) == 0 {
		return nil, errors.Errorf("table %s: primary key required", table)
	}
	for _, col := range primaryKey {
		if _, ok := columns[col]; !ok {
			return nil, errors.Errorf("table %s: key column %s not declared", table, col)
		}
	}
	return &Source{
		table:      table,
		columns:    columns,
		primaryKey: primaryKey,
		rows:       make(map[string]types.Row),
	}, nil
}

// Table implements types.Source.
func (s *Source) Table() string { return s.table }

// Connect implements types.Source.
func (s *Source) Connect(sort types.Ordering, filters ...types.Predicate) (types.Input, error) {
	idx, err := s.indexFor(sort)
	if err != nil {
		return nil, err
	}
	conn := &connection{
		source:  s,
		index:   idx,
		filters: filters,
	}
	s.connections = append(s.connections, conn)
	connectionsActive.WithLabelValues(s.table).Inc()
	return conn, nil
}

func (s *Source) indexFor(sort types.Ordering) (*index, error) {
	for _, idx := range s.indexes {
		if idx.schema.Sort.Equal(sort) {
			return idx, nil
		}
	}
	schema := &types.Schema{
		TableName:  s.table,
		Columns:    s.columns,
		PrimaryKey: s.primaryKey,
		Sort:       sort,
	}
	for _, part := range sort {
		if _, ok := s.columns[part.Column]; !ok {
			return nil, errors.Errorf("table %s: sort column %s not declared", s.table, part.Column)
		}
	}
	idx := &index{
		schema: schema,
		tree:   btree.NewG(16, lessFunc(schema)),
	}
	// Backfill the new index from the authoritative set.
	for _, row := range s.rows {
		idx.tree.ReplaceOrInsert(row)
	}
	s.indexes = append(s.indexes, idx)
	return idx, nil
}

// lessFunc adapts the schema ordering to the btree comparator. Rows
// are type-checked before they enter the source, so a comparison
// failure here is an upstream coding error.
func lessFunc(schema *types.Schema) btree.LessFunc[types.Row] {
	return func(a, b types.Row) bool {
		c, err := schema.Compare(a, b)
		if err != nil {
			panic(err)
		}
		return c < 0
	}
}

// Push implements types.Source. The row set is mutated only after
// every connection has been notified; during each notification the
// connection carries an overlay that makes the in-flight change
// visible to re-entrant fetches.
func (s *Source) Push(change types.Change) error {
	pushesTotal.WithLabelValues(s.table, change.Type.String()).Inc()
	timer := prometheus.NewTimer(pushDurations.WithLabelValues(s.table))
	defer timer.ObserveDuration()

	switch change.Type {
	case types.ChangeAdd:
		return s.pushAdd(change)
	case types.ChangeRemove:
		return s.pushRemove(change)
	case types.ChangeEdit:
		return s.pushEdit(change)
	default:
		return errors.Wrapf(types.ErrInvariant,
			"table %s: source cannot accept a %s change", s.table, change.Type)
	}
}

func (s *Source) pushAdd(change types.Change) error {
	row := change.Node.Row
	if err := s.checkRow(row); err != nil {
		return err
	}
	pk, err := s.pkKey(row)
	if err != nil {
		return err
	}
	if _, exists := s.rows[pk]; exists {
		return errors.Wrapf(types.ErrInvariant,
			"table %s: add of existing primary key %s", s.table, pk)
	}

	if err := s.notify(change, &overlay{add: row}); err != nil {
		return err
	}

	s.rows[pk] = row
	for _, idx := range s.indexes {
		idx.tree.ReplaceOrInsert(row)
	}
	return nil
}

func (s *Source) pushRemove(change types.Change) error {
	pk, err := s.pkKey(change.Node.Row)
	if err != nil {
		return err
	}
	stored, exists := s.rows[pk]
	if !exists {
		return errors.Wrapf(types.ErrInvariant,
			"table %s: remove of missing primary key %s", s.table, pk)
	}

	// Notify with the stored row so downstream state lookups match.
	out := types.RemoveChange(types.NewNode(stored))
	if err := s.notify(out, &overlay{remove: stored}); err != nil {
		return err
	}

	delete(s.rows, pk)
	for _, idx := range s.indexes {
		idx.tree.Delete(stored)
	}
	return nil
}

func (s *Source) pushEdit(change types.Change) error {
	if err := s.checkRow(change.Row); err != nil {
		return err
	}
	oldPK, err := s.pkKey(change.OldRow)
	if err != nil {
		return err
	}
	newPK, err := s.pkKey(change.Row)
	if err != nil {
		return err
	}
	stored, exists := s.rows[oldPK]
	if !exists {
		return errors.Wrapf(types.ErrInvariant,
			"table %s: edit of missing primary key %s", s.table, oldPK)
	}

	// A key-changing edit is not expressible downstream; split it.
	if oldPK != newPK {
		log.WithFields(log.Fields{
			"table": s.table,
			"old":   oldPK,
			"new":   newPK,
		}).Trace("splitting key-changing edit")
		if err := s.pushRemove(types.RemoveChange(types.NewNode(stored))); err != nil {
			return err
		}
		return s.pushAdd(types.AddChange(types.NewNode(change.Row)))
	}

	out := types.EditChange(stored, change.Row)
	if err := s.notify(out, &overlay{remove: stored, add: change.Row}); err != nil {
		return err
	}

	s.rows[newPK] = change.Row
	for _, idx := range s.indexes {
		idx.tree.Delete(stored)
		idx.tree.ReplaceOrInsert(change.Row)
	}
	return nil
}

func (s *Source) notify(change types.Change, ovl *overlay) error {
	for _, conn := range s.connections {
		if conn.output == nil {
			continue
		}
		conn.overlay = ovl
		err := conn.output.Push(change)
		conn.overlay = nil
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) checkRow(row types.Row) error {
	schema := &types.Schema{TableName: s.table, Columns: s.columns, PrimaryKey: s.primaryKey}
	return schema.CheckRow(row)
}

func (s *Source) pkKey(row types.Row) (string, error) {
	vals := make([]types.Value, len(s.primaryKey))
	for i, col := range s.primaryKey {
		vals[i] = row.Get(col)
	}
	return keycode.EncodeValues(vals)
}

func (s *Source) disconnect(conn *connection) {
	for i, c := range s.connections {
		if c == conn {
			s.connections = append(s.connections[:i], s.connections[i+1:]...)
			connectionsActive.WithLabelValues(s.table).Dec()
			return
		}
	}
}
