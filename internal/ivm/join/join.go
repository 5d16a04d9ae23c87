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

// Package join implements parent/child correlation over a compound
// join key. The joined stream yields parent rows whose named
// relationship lazily produces the child rows sharing the parent's
// key values.
package join

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/deltaview/deltaview/internal/util/keycode"
	"github.com/pkg/errors"
)

// keySetPrefix namespaces the seen-parent entries within the
// operator's storage.
const keySetPrefix = "pKeySet"

// Join binds a parent input to a child input. The i-th parent key
// column correlates with the i-th child key column.
type Join struct {
	parent       types.Input
	child        types.Input
	parentKey    []string
	childKey     []string
	relationship string
	storage      types.Storage

	schema *types.Schema
	output types.Output
}

var _ types.Input = (*Join)(nil)

// New attaches a join to its parent and child inputs; the join owns
// both.
func New(
	parent, child types.Input,
	parentKey, childKey []string,
	relationship string,
	storage types.Storage,
) (*Join, error) {
	if len(parentKey) == 0 || len(parentKey) != len(childKey) {
		return nil, errors.Errorf(
			"join: parent key %v and child key %v must be non-empty and congruent",
			parentKey, childKey)
	}
	if _, ok := parent.Schema().Relationships[relationship]; ok {
		return nil, errors.Errorf("join: relationship %q already bound", relationship)
	}
	j := &Join{
		parent:       parent,
		child:        child,
		parentKey:    parentKey,
		childKey:     childKey,
		relationship: relationship,
		storage:      storage,
		schema:       parent.Schema().WithRelationship(relationship, child.Schema()),
	}
	parent.SetOutput(&parentEnd{j})
	child.SetOutput(&childEnd{j})
	return j, nil
}

// Schema implements types.Input.
func (j *Join) Schema() *types.Schema { return j.schema }

// SetOutput implements types.Input.
func (j *Join) SetOutput(out types.Output) { j.output = out }

// Fetch implements types.Input. Consuming the stream records a
// key-set entry per parent so that later child pushes can locate
// their parents.
func (j *Join) Fetch(req types.FetchRequest) (types.NodeStream, error) {
	ps, err := j.parent.Fetch(req)
	if err != nil {
		return nil, err
	}
	return j.wrap(ps, false), nil
}

// Cleanup implements types.Input. Consuming the stream deletes the
// key-set entries and releases child-side state.
func (j *Join) Cleanup(req types.FetchRequest) (types.NodeStream, error) {
	ps, err := j.parent.Cleanup(req)
	if err != nil {
		return nil, err
	}
	return j.wrap(ps, true), nil
}

func (j *Join) wrap(parents types.NodeStream, cleanup bool) types.NodeStream {
	return &types.FuncStream{Fn: func() (*types.Node, error) {
		if !parents.Next() {
			return nil, parents.Err()
		}
		node := parents.Node()
		key, err := j.keySetKey(node.Row)
		if err != nil {
			return nil, err
		}
		if cleanup {
			if err := j.storage.Del(key); err != nil {
				return nil, err
			}
		} else {
			if err := j.storage.Set(key, true); err != nil {
				return nil, err
			}
		}
		return node.WithRelationship(j.relationship, j.childFactory(node.Row, cleanup)), nil
	}}
}

// childFactory returns the single-shot relationship stream for one
// parent row.
func (j *Join) childFactory(parentRow types.Row, cleanup bool) types.StreamFactory {
	req := types.FetchRequest{Constraint: j.childConstraint(parentRow)}
	return func() (types.NodeStream, error) {
		if cleanup {
			return j.child.Cleanup(req)
		}
		return j.child.Fetch(req)
	}
}

func (j *Join) childConstraint(parentRow types.Row) types.Constraint {
	ret := make(types.Constraint, len(j.childKey))
	for i, col := range j.childKey {
		ret[col] = parentRow.Get(j.parentKey[i])
	}
	return ret
}

func (j *Join) keySetKey(parentRow types.Row) (string, error) {
	keyVals, err := keycode.EncodeValues(types.ValuesOf(parentRow, j.parentKey))
	if err != nil {
		return "", err
	}
	pkVals, err := keycode.EncodeValues(j.schema.PrimaryKeyValues(parentRow))
	if err != nil {
		return "", err
	}
	return keycode.Join(keySetPrefix, keyVals, pkVals), nil
}

// Destroy implements types.Input. The operator's storage is cleared
// along with both inputs.
func (j *Join) Destroy() error {
	if err := clearPrefix(j.storage, keySetPrefix+keycode.Separator); err != nil {
		return err
	}
	if err := j.parent.Destroy(); err != nil {
		return err
	}
	return j.child.Destroy()
}

func clearPrefix(storage types.Storage, prefix string) error {
	var keys []string
	err := storage.Scan(prefix, func(key string, _ any) (bool, error) {
		keys = append(keys, key)
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := storage.Del(key); err != nil {
			return err
		}
	}
	return nil
}

// parentEnd and childEnd give each input a distinct push target.
type parentEnd struct{ j *Join }

func (p *parentEnd) Push(change types.Change) error { return p.j.pushParent(change) }

type childEnd struct{ j *Join }

func (c *childEnd) Push(change types.Change) error { return c.j.pushChild(change) }

var (
	_ types.Output = (*parentEnd)(nil)
	_ types.Output = (*childEnd)(nil)
)
