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

// Package view materializes the top of an operator graph into an
// ordered array that is kept in sync by applying pushes
// incrementally.
package view

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// An Entry is one materialized row plus its materialized children.
// The reference count distinguishes identical rows produced by
// different branches of a disjunction.
type Entry struct {
	Row      types.Row
	Children map[string][]*Entry

	refCount int
}

// RefCount returns the entry's reference count.
func (e *Entry) RefCount() int { return e.refCount }

// ArrayView is the terminal sink of a graph.
type ArrayView struct {
	input    types.Input
	schema   *types.Schema
	entries  []*Entry
	onChange []func()

	hydrated  bool
	destroyed bool
}

var _ types.Output = (*ArrayView)(nil)

// New attaches a view to the root operator. The view owns the root.
func New(input types.Input) *ArrayView {
	v := &ArrayView{input: input, schema: input.Schema()}
	input.SetOutput(v)
	return v
}

// OnChange registers a callback invoked after every applied push.
func (v *ArrayView) OnChange(fn func()) {
	v.onChange = append(v.onChange, fn)
}

// Hydrate performs the initial fetch and materializes the result.
func (v *ArrayView) Hydrate() error {
	if v.hydrated {
		return errors.New("view already hydrated")
	}
	v.hydrated = true
	stream, err := v.input.Fetch(types.FetchRequest{})
	if err != nil {
		return err
	}
	for stream.Next() {
		entry, err := v.nodeToEntry(stream.Node(), v.schema)
		if err != nil {
			return err
		}
		if err := insertEntry(&v.entries, v.schema, entry); err != nil {
			return err
		}
	}
	return stream.Err()
}

// Entries returns the materialized entries in view order. The result
// must not be modified.
func (v *ArrayView) Entries() []*Entry { return v.entries }

// Rows returns the top-level rows in view order.
func (v *ArrayView) Rows() []types.Row {
	ret := make([]types.Row, len(v.entries))
	for i, e := range v.entries {
		ret[i] = e.Row
	}
	return ret
}

// Push implements types.Output.
func (v *ArrayView) Push(change types.Change) error {
	if err := v.apply(&v.entries, v.schema, change); err != nil {
		return err
	}
	for _, fn := range v.onChange {
		fn()
	}
	return nil
}

// Destroy tears the subscription down: a cleanup pass releases every
// operator's state, then the input chain is destroyed.
func (v *ArrayView) Destroy() error {
	if v.destroyed {
		return nil
	}
	v.destroyed = true
	stream, err := v.input.Cleanup(types.FetchRequest{})
	if err != nil {
		return err
	}
	if err := types.DrainAll(stream); err != nil {
		return err
	}
	v.entries = nil
	return v.input.Destroy()
}

// ScanInto decodes the materialized entries into a pointer to a
// slice of structs. Relationship names map to struct fields of slice
// type; column names map by the usual mapstructure rules.
func (v *ArrayView) ScanInto(dest any) error {
	plain := make([]map[string]any, len(v.entries))
	for i, e := range v.entries {
		plain[i] = entryToMap(e)
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dest,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.Wrap(dec.Decode(plain), "decoding view rows")
}

func entryToMap(e *Entry) map[string]any {
	ret := make(map[string]any, len(e.Row)+len(e.Children))
	for k, val := range e.Row {
		ret[k] = val
	}
	for name, children := range e.Children {
		plain := make([]map[string]any, len(children))
		for i, c := range children {
			plain[i] = entryToMap(c)
		}
		ret[name] = plain
	}
	return ret
}
