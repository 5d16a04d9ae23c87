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

// Package filter implements row-level predicate evaluation. A Filter
// drops rows as they stream through it; predicates compose with
// And/Or/Not so that boolean expressions collapse to a single pass
// without materializing intermediate sets.
package filter

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/pkg/errors"
)

// Filter applies a predicate to every row flowing through it.
type Filter struct {
	input  types.Input
	pred   types.Predicate
	output types.Output
}

var _ types.Operator = (*Filter)(nil)

// New attaches a filter to its input. The filter owns the input.
func New(input types.Input, pred types.Predicate) *Filter {
	f := &Filter{input: input, pred: pred}
	input.SetOutput(f)
	return f
}

// Schema implements types.Input. A filter narrows the row set but
// not the row shape.
func (f *Filter) Schema() *types.Schema { return f.input.Schema() }

// SetOutput implements types.Input.
func (f *Filter) SetOutput(out types.Output) { f.output = out }

// Fetch implements types.Input.
func (f *Filter) Fetch(req types.FetchRequest) (types.NodeStream, error) {
	in, err := f.input.Fetch(req)
	if err != nil {
		return nil, err
	}
	return f.filtered(in), nil
}

// Cleanup implements types.Input.
func (f *Filter) Cleanup(req types.FetchRequest) (types.NodeStream, error) {
	in, err := f.input.Cleanup(req)
	if err != nil {
		return nil, err
	}
	return f.filtered(in), nil
}

func (f *Filter) filtered(in types.NodeStream) types.NodeStream {
	return &types.FuncStream{Fn: func() (*types.Node, error) {
		for in.Next() {
			node := in.Node()
			if f.pred(node.Row) {
				return node, nil
			}
		}
		return nil, in.Err()
	}}
}

// Destroy implements types.Input.
func (f *Filter) Destroy() error {
	return f.input.Destroy()
}

// Push implements types.Output. An edit whose match status changes is
// rewritten into the add or remove the downstream operator actually
// observes.
func (f *Filter) Push(change types.Change) error {
	switch change.Type {
	case types.ChangeAdd, types.ChangeRemove:
		if !f.pred(change.Node.Row) {
			return nil
		}
		return f.output.Push(change)

	case types.ChangeEdit:
		oldMatch := f.pred(change.OldRow)
		newMatch := f.pred(change.Row)
		switch {
		case oldMatch && newMatch:
			return f.output.Push(change)
		case newMatch:
			return f.output.Push(types.AddChange(types.NewNode(change.Row)))
		case oldMatch:
			return f.output.Push(types.RemoveChange(types.NewNode(change.OldRow)))
		default:
			return nil
		}

	case types.ChangeChild:
		if !f.pred(change.ChildRow) {
			return nil
		}
		return f.output.Push(change)

	default:
		return errors.Wrapf(types.ErrInvariant, "filter: unknown change type %v", change.Type)
	}
}
