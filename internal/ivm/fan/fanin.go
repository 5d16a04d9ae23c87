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

package fan

import (
	"reflect"

	"github.com/deltaview/deltaview/internal/types"
	"github.com/pkg/errors"
)

// FanIn merges the N branches that descend from one FanOut. On fetch
// it merge-sorts the branch streams and drops consecutive duplicate
// primary keys; on push it accumulates the branch pushes for one
// upstream change and collapses them into a single coherent push when
// the FanOut signals the end of its broadcast.
type FanIn struct {
	fanOut *FanOut
	inputs []types.Input
	output types.Output

	accum []types.Change
}

var _ types.Operator = (*FanIn)(nil)

// NewFanIn pairs a fan-in with its fan-out and branch inputs. All
// inputs must transitively descend from the given fan-out. The fan-in
// owns the branch inputs.
func NewFanIn(fanOut *FanOut, inputs ...types.Input) (*FanIn, error) {
	if len(inputs) == 0 {
		return nil, errors.New("fan-in requires at least one input")
	}
	f := &FanIn{fanOut: fanOut, inputs: inputs}
	for _, in := range inputs {
		in.SetOutput(f)
	}
	fanOut.fanIn = f
	return f, nil
}

// Schema implements types.Input. Branches transform the same upstream
// rows, so every branch shares the row shape; the first branch is
// representative.
func (f *FanIn) Schema() *types.Schema { return f.inputs[0].Schema() }

// SetOutput implements types.Input.
func (f *FanIn) SetOutput(out types.Output) { f.output = out }

// Fetch implements types.Input.
func (f *FanIn) Fetch(req types.FetchRequest) (types.NodeStream, error) {
	return f.merged(req, types.Input.Fetch)
}

// Cleanup implements types.Input.
func (f *FanIn) Cleanup(req types.FetchRequest) (types.NodeStream, error) {
	return f.merged(req, types.Input.Cleanup)
}

func (f *FanIn) merged(
	req types.FetchRequest, via func(types.Input, types.FetchRequest) (types.NodeStream, error),
) (types.NodeStream, error) {
	streams := make([]types.NodeStream, len(f.inputs))
	for i, in := range f.inputs {
		s, err := via(in, req)
		if err != nil {
			return nil, err
		}
		streams[i] = s
	}
	return &mergeStream{
		schema:  f.Schema(),
		reverse: req.Reverse,
		streams: streams,
		heads:   make([]*types.Node, len(streams)),
	}, nil
}

// Destroy implements types.Input. Each branch is destroyed once; the
// fan-out counts those calls and releases the shared input on the
// last one.
func (f *FanIn) Destroy() error {
	for _, in := range f.inputs {
		if err := in.Destroy(); err != nil {
			return err
		}
	}
	return nil
}

// Push implements types.Output. Branch pushes accumulate until the
// fan-out reports that its broadcast is complete.
func (f *FanIn) Push(change types.Change) error {
	for _, prior := range f.accum {
		if sameChange(prior, change) {
			return nil
		}
	}
	f.accum = append(f.accum, change)
	return nil
}

// mergeStream merge-sorts N branch streams, dropping consecutive
// nodes that repeat a primary key.
type mergeStream struct {
	schema  *types.Schema
	reverse bool
	streams []types.NodeStream
	heads   []*types.Node
	done    []bool

	last types.Row
	cur  *types.Node
	err  error
}

var _ types.NodeStream = (*mergeStream)(nil)

func (m *mergeStream) Next() bool {
	if m.err != nil {
		return false
	}
	if m.done == nil {
		m.done = make([]bool, len(m.streams))
	}
	for {
		best := -1
		for i := range m.streams {
			if m.heads[i] == nil && !m.done[i] {
				if m.streams[i].Next() {
					m.heads[i] = m.streams[i].Node()
				} else {
					if err := m.streams[i].Err(); err != nil {
						m.err = err
						return false
					}
					m.done[i] = true
				}
			}
			if m.heads[i] == nil {
				continue
			}
			if best < 0 {
				best = i
				continue
			}
			cmp, err := m.schema.Compare(m.heads[i].Row, m.heads[best].Row)
			if err != nil {
				m.err = err
				return false
			}
			if m.reverse {
				cmp = -cmp
			}
			if cmp < 0 {
				best = i
			}
		}
		if best < 0 {
			m.cur = nil
			return false
		}

		node := m.heads[best]
		m.heads[best] = nil
		if m.last != nil && m.schema.PrimaryKeyEqual(node.Row, m.last) {
			continue
		}
		m.last = node.Row
		m.cur = node
		return true
	}
}

func (m *mergeStream) Node() *types.Node { return m.cur }
func (m *mergeStream) Err() error        { return m.err }

// sameChange reports whether two accumulated changes are the same
// forwarded change, as opposed to two branches deriving distinct
// changes for the same row. Branch operators forward the change value
// but share the boxed payloads, so payload identity is the test.
func sameChange(a, b types.Change) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case types.ChangeAdd, types.ChangeRemove:
		return a.Node == b.Node
	case types.ChangeEdit:
		return mapID(a.OldRow) == mapID(b.OldRow) && mapID(a.Row) == mapID(b.Row)
	case types.ChangeChild:
		return a.Child == b.Child && a.RelationshipName == b.RelationshipName
	default:
		return false
	}
}

func mapID(r types.Row) uintptr {
	if r == nil {
		return 0
	}
	return reflect.ValueOf(r).Pointer()
}
