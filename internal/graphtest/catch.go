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

// Package graphtest provides the in-memory harnesses the operator
// tests are written against: a Catch sink that records pushes in a
// comparable form, and a wire-assembled fixture.
package graphtest

import (
	"github.com/deltaview/deltaview/internal/types"
)

// A CaughtNode is a node with its relationship streams fully
// materialized, suitable for equality assertions.
type CaughtNode struct {
	Row           types.Row
	Relationships map[string][]CaughtNode
}

// A CaughtChange mirrors types.Change with materialized nodes.
type CaughtChange struct {
	Type         string
	Node         *CaughtNode
	OldRow       types.Row
	Row          types.Row
	ParentRow    types.Row
	Relationship string
	Child        *CaughtChange
}

// Catch terminates a graph under test. It materializes every push it
// receives, consuming relationship streams the way a real view
// would.
type Catch struct {
	input  types.Input
	pushes []CaughtChange
}

var _ types.Output = (*Catch)(nil)

// NewCatch attaches a catch sink to the root operator.
func NewCatch(input types.Input) *Catch {
	c := &Catch{input: input}
	input.SetOutput(c)
	return c
}

// Fetch materializes a full fetch of the input.
func (c *Catch) Fetch() ([]CaughtNode, error) {
	return c.FetchReq(types.FetchRequest{})
}

// FetchReq materializes a fetch with the given request.
func (c *Catch) FetchReq(req types.FetchRequest) ([]CaughtNode, error) {
	stream, err := c.input.Fetch(req)
	if err != nil {
		return nil, err
	}
	return materializeStream(stream)
}

// Cleanup materializes a full cleanup pass of the input, releasing
// all operator state along the way.
func (c *Catch) Cleanup() ([]CaughtNode, error) {
	stream, err := c.input.Cleanup(types.FetchRequest{})
	if err != nil {
		return nil, err
	}
	return materializeStream(stream)
}

// Push implements types.Output.
func (c *Catch) Push(change types.Change) error {
	caught, err := materializeChange(change)
	if err != nil {
		return err
	}
	c.pushes = append(c.pushes, *caught)
	return nil
}

// Pushes returns the recorded pushes in arrival order.
func (c *Catch) Pushes() []CaughtChange { return c.pushes }

// Reset discards the recorded pushes.
func (c *Catch) Reset() { c.pushes = nil }

// Destroy tears down the graph under test.
func (c *Catch) Destroy() error { return c.input.Destroy() }

func materializeStream(stream types.NodeStream) ([]CaughtNode, error) {
	var ret []CaughtNode
	for stream.Next() {
		node, err := materializeNode(stream.Node())
		if err != nil {
			return nil, err
		}
		ret = append(ret, *node)
	}
	return ret, stream.Err()
}

func materializeNode(node *types.Node) (*CaughtNode, error) {
	ret := &CaughtNode{Row: node.Row}
	for name, factory := range node.Relationships {
		stream, err := factory()
		if err != nil {
			return nil, err
		}
		children, err := materializeStream(stream)
		if err != nil {
			return nil, err
		}
		if ret.Relationships == nil {
			ret.Relationships = make(map[string][]CaughtNode)
		}
		ret.Relationships[name] = children
	}
	return ret, nil
}

func materializeChange(change types.Change) (*CaughtChange, error) {
	ret := &CaughtChange{Type: change.Type.String()}
	switch change.Type {
	case types.ChangeAdd, types.ChangeRemove:
		node, err := materializeNode(change.Node)
		if err != nil {
			return nil, err
		}
		ret.Node = node
	case types.ChangeEdit:
		ret.OldRow = change.OldRow
		ret.Row = change.Row
	case types.ChangeChild:
		ret.ParentRow = change.ChildRow
		ret.Relationship = change.RelationshipName
		child, err := materializeChange(*change.Child)
		if err != nil {
			return nil, err
		}
		ret.Child = child
	}
	return ret, nil
}
