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

package exists

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/pkg/errors"
)

// Push implements types.Output.
func (e *Exists) Push(change types.Change) error {
	e.inPush = true
	defer func() { e.inPush = false }()

	switch change.Type {
	case types.ChangeAdd:
		size, _, err := e.nodeSize(change.Node)
		if err != nil {
			return err
		}
		if !e.passes(size) {
			return nil
		}
		return e.output.Push(change)

	case types.ChangeEdit:
		size, err := e.rowSize(change.Row)
		if err != nil {
			return err
		}
		if !e.passes(size) {
			return nil
		}
		return e.output.Push(change)

	case types.ChangeRemove:
		key, err := e.sizeKey(change.Node.Row)
		if err != nil {
			return err
		}
		size, ok, err := e.cachedSize(key)
		if err != nil {
			return err
		}
		if !ok {
			// Never sized means never surfaced.
			return nil
		}
		if err := e.storage.Del(key); err != nil {
			return err
		}
		if !e.passes(size) {
			return nil
		}
		return e.output.Push(change)

	case types.ChangeChild:
		if change.RelationshipName == e.relationship {
			switch change.Child.Type {
			case types.ChangeAdd:
				return e.pushChildAdd(change)
			case types.ChangeRemove:
				return e.pushChildRemove(change)
			}
		}
		// A change that cannot alter the relationship size passes
		// through only while the parent is in the output.
		size, err := e.rowSize(change.ChildRow)
		if err != nil {
			return err
		}
		if !e.passes(size) {
			return nil
		}
		return e.output.Push(change)

	default:
		return errors.Wrapf(types.ErrInvariant, "exists: unknown change type %v", change.Type)
	}
}

// pushChildAdd handles a direct add within the named relationship.
func (e *Exists) pushChildAdd(change types.Change) error {
	row := change.ChildRow
	key, err := e.sizeKey(row)
	if err != nil {
		return err
	}

	size, cached, err := e.cachedSize(key)
	if err != nil {
		return err
	}
	wasEmpty := !cached || size == 0
	if cached {
		size++
	} else {
		// The re-entrant fetch observes the in-flight change, so the
		// count already includes the added child.
		size, err = e.countRow(row)
		if err != nil {
			return err
		}
		wasEmpty = size <= 1
	}
	if size, err = e.setSize(key, size); err != nil {
		return err
	}

	if size == 1 && wasEmpty {
		if e.not {
			// The parent is leaving the NOT EXISTS output. The added
			// child was never part of that output, so the remove
			// carries an empty relationship.
			node, err := e.fetchNode(row)
			if err != nil {
				return err
			}
			node = node.WithRelationship(e.relationship, emptyFactory)
			return e.output.Push(types.RemoveChange(node))
		}
		// The parent just began to pass.
		node, err := e.fetchNode(row)
		if err != nil {
			return err
		}
		return e.output.Push(types.AddChange(node))
	}

	if !e.passes(size) {
		return nil
	}
	return e.output.Push(change)
}

// pushChildRemove handles a direct remove within the named
// relationship.
func (e *Exists) pushChildRemove(change types.Change) error {
	row := change.ChildRow
	key, err := e.sizeKey(row)
	if err != nil {
		return err
	}

	size, cached, err := e.cachedSize(key)
	if err != nil {
		return err
	}
	hadChildren := !cached || size > 0
	if cached {
		size--
	} else {
		// Post-change count; the removed child is already hidden.
		size, err = e.countRow(row)
		if err != nil {
			return err
		}
	}
	if size, err = e.setSize(key, size); err != nil {
		return err
	}

	if size == 0 && hadChildren {
		if e.not {
			// The parent just began to pass NOT EXISTS.
			node, err := e.fetchNode(row)
			if err != nil {
				return err
			}
			return e.output.Push(types.AddChange(node))
		}
		// The parent is leaving the EXISTS output. The removed child
		// was the only one in that output, so it is the only one the
		// remove may carry.
		node, err := e.fetchNode(row)
		if err != nil {
			return err
		}
		removed := change.Child.Node
		node = node.WithRelationship(e.relationship, func() (types.NodeStream, error) {
			return types.NewSliceStream([]*types.Node{removed}), nil
		})
		return e.output.Push(types.RemoveChange(node))
	}

	if !e.passes(size) {
		return nil
	}
	return e.output.Push(change)
}

// rowSize resolves a parent's relationship size from the cache,
// falling back to fetching the parent's node and counting.
func (e *Exists) rowSize(row types.Row) (int, error) {
	key, err := e.sizeKey(row)
	if err != nil {
		return 0, err
	}
	if size, ok, err := e.cachedSize(key); err != nil {
		return 0, err
	} else if ok {
		return size, nil
	}
	size, err := e.countRow(row)
	if err != nil {
		return 0, err
	}
	return e.setSize(key, size)
}

// countRow fetches the parent's node from the input and counts its
// relationship stream.
func (e *Exists) countRow(row types.Row) (int, error) {
	node, err := e.fetchNode(row)
	if err != nil {
		return 0, err
	}
	factory := node.Relationships[e.relationship]
	stream, err := factory()
	if err != nil {
		return 0, err
	}
	size := 0
	for stream.Next() {
		size++
	}
	sizesComputed.WithLabelValues(e.relationship).Inc()
	return size, stream.Err()
}

// fetchNode retrieves the current node for a parent row from the
// input. The row must be present; a miss is a protocol violation by
// the upstream operator.
func (e *Exists) fetchNode(row types.Row) (*types.Node, error) {
	schema := e.Schema()
	constraint := make(types.Constraint, len(e.joinKey))
	for _, col := range e.joinKey {
		constraint[col] = row.Get(col)
	}
	stream, err := e.input.Fetch(types.FetchRequest{
		Constraint: constraint,
		Start:      &types.Start{Row: row, Basis: types.BasisAt},
	})
	if err != nil {
		return nil, err
	}
	for stream.Next() {
		node := stream.Node()
		if schema.PrimaryKeyEqual(node.Row, row) {
			if err := types.Drain(stream); err != nil {
				return nil, err
			}
			return node, nil
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return nil, errors.Wrapf(types.ErrInvariant,
		"exists: no node for row %v in table %s", row, schema.TableName)
}
