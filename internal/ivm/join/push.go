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

package join

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/deltaview/deltaview/internal/util/keycode"
	"github.com/deltaview/deltaview/internal/util/rowval"
	"github.com/pkg/errors"
)

// pushParent handles a change arriving on the parent input.
func (j *Join) pushParent(change types.Change) error {
	parentPushes.WithLabelValues(j.relationship, change.Type.String()).Inc()

	switch change.Type {
	case types.ChangeAdd:
		key, err := j.keySetKey(change.Node.Row)
		if err != nil {
			return err
		}
		if err := j.storage.Set(key, true); err != nil {
			return err
		}
		node := change.Node.WithRelationship(
			j.relationship, j.childFactory(change.Node.Row, false))
		return j.output.Push(types.AddChange(node))

	case types.ChangeRemove:
		key, err := j.keySetKey(change.Node.Row)
		if err != nil {
			return err
		}
		if err := j.storage.Del(key); err != nil {
			return err
		}
		node := change.Node.WithRelationship(
			j.relationship, j.childFactory(change.Node.Row, true))
		return j.output.Push(types.RemoveChange(node))

	case types.ChangeEdit:
		// A join-key edit rebinds the relationship; it is only
		// expressible downstream as a remove of the old correlation
		// followed by an add of the new one.
		if !j.sameKeyValues(change.OldRow, change.Row, j.parentKey) {
			if err := j.pushParent(types.RemoveChange(types.NewNode(change.OldRow))); err != nil {
				return err
			}
			return j.pushParent(types.AddChange(types.NewNode(change.Row)))
		}
		return j.output.Push(change)

	case types.ChangeChild:
		// A change within one of the parent's other relationships;
		// the parent row itself is stable, so it passes through.
		return j.output.Push(change)

	default:
		return errors.Wrapf(types.ErrInvariant, "join: unknown change type %v", change.Type)
	}
}

// pushChild handles a change arriving on the child input by
// attaching it to every parent currently in the output that shares
// the child's key values.
func (j *Join) pushChild(change types.Change) error {
	childPushes.WithLabelValues(j.relationship, change.Type.String()).Inc()

	switch change.Type {
	case types.ChangeAdd, types.ChangeRemove:
		return j.attachToParents(change.Node.Row, change)

	case types.ChangeEdit:
		// A join-key edit moves the child between parents; dispatch
		// each half against the key-set separately.
		if !j.sameKeyValues(change.OldRow, change.Row, j.childKey) {
			remove := types.RemoveChange(types.NewNode(change.OldRow))
			if err := j.attachToParents(change.OldRow, remove); err != nil {
				return err
			}
			add := types.AddChange(types.NewNode(change.Row))
			return j.attachToParents(change.Row, add)
		}
		return j.attachToParents(change.Row, change)

	case types.ChangeChild:
		return j.attachToParents(change.ChildRow, change)

	default:
		return errors.Wrapf(types.ErrInvariant, "join: unknown change type %v", change.Type)
	}
}

// attachToParents wraps inner in a child change for every matching
// parent. A child row with no key-set entry has no surfaced parent
// and is silently dropped.
func (j *Join) attachToParents(childRow types.Row, inner types.Change) error {
	keyVals := types.ValuesOf(childRow, j.childKey)
	encoded, err := keycode.EncodeValues(keyVals)
	if err != nil {
		return err
	}

	// The key-set answers which parent primary keys are live for
	// these key values.
	livePKs := make(map[string]struct{})
	prefix := keycode.Prefix(keySetPrefix, encoded)
	err = j.storage.Scan(prefix, func(key string, _ any) (bool, error) {
		livePKs[key[len(prefix):]] = struct{}{}
		return true, nil
	})
	if err != nil {
		return err
	}
	if len(livePKs) == 0 {
		orphanedChildren.WithLabelValues(j.relationship).Inc()
		return nil
	}

	// The parent rows themselves come from a constrained fetch, which
	// observes any in-flight source overlay.
	constraint := make(types.Constraint, len(j.parentKey))
	for i, col := range j.parentKey {
		constraint[col] = keyVals[i]
	}
	parents, err := j.parent.Fetch(types.FetchRequest{Constraint: constraint})
	if err != nil {
		return err
	}
	for parents.Next() {
		row := parents.Node().Row
		pkEnc, err := keycode.EncodeValues(j.schema.PrimaryKeyValues(row))
		if err != nil {
			return err
		}
		if _, ok := livePKs[pkEnc]; !ok {
			continue
		}
		if err := j.output.Push(types.ChildChange(row, j.relationship, inner)); err != nil {
			return err
		}
	}
	return parents.Err()
}

func (j *Join) sameKeyValues(a, b types.Row, columns []string) bool {
	for _, col := range columns {
		if !rowval.Equal(a.Get(col), b.Get(col)) {
			return false
		}
	}
	return true
}
