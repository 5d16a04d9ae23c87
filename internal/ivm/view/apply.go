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

package view

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/pkg/errors"
)

// apply folds one change into an entry list.
func (v *ArrayView) apply(entries *[]*Entry, schema *types.Schema, change types.Change) error {
	switch change.Type {
	case types.ChangeAdd:
		entry, err := v.nodeToEntry(change.Node, schema)
		if err != nil {
			return err
		}
		return insertEntry(entries, schema, entry)

	case types.ChangeRemove:
		// The node's streams still hold operator state; release it
		// whether or not their contents matter here.
		if err := drainRelationships(change.Node); err != nil {
			return err
		}
		idx := findByPK(*entries, schema, change.Node.Row)
		if idx < 0 {
			return errors.Wrapf(types.ErrInvariant,
				"view: remove of unknown row %v", change.Node.Row)
		}
		e := (*entries)[idx]
		e.refCount--
		if e.refCount <= 0 {
			*entries = append((*entries)[:idx], (*entries)[idx+1:]...)
		}
		return nil

	case types.ChangeEdit:
		idx := findByPK(*entries, schema, change.OldRow)
		if idx < 0 {
			return errors.Wrapf(types.ErrInvariant,
				"view: edit of unknown row %v", change.OldRow)
		}
		e := (*entries)[idx]
		*entries = append((*entries)[:idx], (*entries)[idx+1:]...)
		e.Row = change.Row
		return placeEntry(entries, schema, e)

	case types.ChangeChild:
		idx := findByPK(*entries, schema, change.ChildRow)
		if idx < 0 {
			return errors.Wrapf(types.ErrInvariant,
				"view: child change for unknown row %v", change.ChildRow)
		}
		relSchema, ok := schema.Relationships[change.RelationshipName]
		if !ok {
			return errors.Wrapf(types.ErrInvariant,
				"view: relationship %q missing from schema of table %s",
				change.RelationshipName, schema.TableName)
		}
		e := (*entries)[idx]
		if e.Children == nil {
			e.Children = make(map[string][]*Entry)
		}
		children := e.Children[change.RelationshipName]
		if err := v.apply(&children, relSchema, *change.Child); err != nil {
			return err
		}
		e.Children[change.RelationshipName] = children
		return nil

	default:
		return errors.Wrapf(types.ErrInvariant, "view: unknown change type %v", change.Type)
	}
}

// nodeToEntry materializes a node, recursively consuming its visible
// relationship streams. Hidden relationships are left unopened.
func (v *ArrayView) nodeToEntry(node *types.Node, schema *types.Schema) (*Entry, error) {
	entry := &Entry{Row: node.Row, refCount: 1}
	for name, factory := range node.Relationships {
		relSchema, ok := schema.Relationships[name]
		if !ok {
			return nil, errors.Wrapf(types.ErrInvariant,
				"view: relationship %q missing from schema of table %s",
				name, schema.TableName)
		}
		if relSchema.IsHidden {
			continue
		}
		stream, err := factory()
		if err != nil {
			return nil, err
		}
		var children []*Entry
		for stream.Next() {
			child, err := v.nodeToEntry(stream.Node(), relSchema)
			if err != nil {
				return nil, err
			}
			if err := insertEntry(&children, relSchema, child); err != nil {
				return nil, err
			}
		}
		if err := stream.Err(); err != nil {
			return nil, err
		}
		if entry.Children == nil {
			entry.Children = make(map[string][]*Entry)
		}
		entry.Children[name] = children
	}
	return entry, nil
}

// insertEntry places a new entry in order, folding it into an
// existing entry when the primary key is already present (a second
// disjunction branch produced the same row).
func insertEntry(entries *[]*Entry, schema *types.Schema, entry *Entry) error {
	if idx := findByPK(*entries, schema, entry.Row); idx >= 0 {
		(*entries)[idx].refCount++
		return nil
	}
	return placeEntry(entries, schema, entry)
}

// placeEntry inserts an entry at its ordering position.
func placeEntry(entries *[]*Entry, schema *types.Schema, entry *Entry) error {
	for i, e := range *entries {
		cmp, err := schema.Compare(entry.Row, e.Row)
		if err != nil {
			return err
		}
		if cmp < 0 {
			*entries = append(*entries, nil)
			copy((*entries)[i+1:], (*entries)[i:])
			(*entries)[i] = entry
			return nil
		}
	}
	*entries = append(*entries, entry)
	return nil
}

func findByPK(entries []*Entry, schema *types.Schema, row types.Row) int {
	for i, e := range entries {
		if schema.PrimaryKeyEqual(e.Row, row) {
			return i
		}
	}
	return -1
}

func drainRelationships(node *types.Node) error {
	for _, factory := range node.Relationships {
		stream, err := factory()
		if err != nil {
			return err
		}
		if err := types.DrainAll(stream); err != nil {
			return err
		}
	}
	return nil
}
