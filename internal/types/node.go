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

package types

// A StreamFactory produces the child stream of one relationship.
// Each returned stream is single-use and borrows iterator state from
// the producing operator; it must be fully consumed, or drained,
// before the next Fetch, Cleanup, or Push call on the graph. A
// factory obtained from Fetch may be invoked again to restart the
// traversal; a factory obtained from Cleanup releases state as it is
// consumed and must be invoked at most once.
type StreamFactory func() (NodeStream, error)

// A Node is a row plus its lazy child relationships. Nodes are the
// unit flowing through Fetch and Cleanup.
type Node struct {
	Row           Row
	Relationships map[string]StreamFactory
}

// NewNode returns a node with no relationships.
func NewNode(row Row) *Node {
	return &Node{Row: row}
}

// WithRelationship returns a copy of the node carrying an additional
// relationship. The original node is not modified.
func (n *Node) WithRelationship(name string, factory StreamFactory) *Node {
	ret := &Node{
		Row:           n.Row,
		Relationships: make(map[string]StreamFactory, len(n.Relationships)+1),
	}
	for k, v := range n.Relationships {
		ret.Relationships[k] = v
	}
	ret.Relationships[name] = factory
	return ret
}

// A NodeStream is a single-use pull iterator over nodes, in the
// producing operator's ordering. Usage follows the database cursor
// shape:
//
//	for stream.Next() {
//		node := stream.Node()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
type NodeStream interface {
	// Next advances to the next node. It returns false when the
	// stream is exhausted or an error occurred.
	Next() bool

	// Node returns the current node. Only valid after Next returned
	// true.
	Node() *Node

	// Err returns the error that terminated iteration, if any.
	Err() error
}

// Drain consumes the remainder of a stream without opening any
// relationship the consumer has not already opened. Used when a
// consumer stops early but per-row state must still be visited.
func Drain(s NodeStream) error {
	for s.Next() {
	}
	return s.Err()
}

// DrainAll consumes the remainder of a stream and recursively opens
// and drains every relationship of every node. Cleanup paths use this
// so that nested operator state is fully released.
func DrainAll(s NodeStream) error {
	for s.Next() {
		if err := drainNode(s.Node()); err != nil {
			return err
		}
	}
	return s.Err()
}

func drainNode(n *Node) error {
	for _, factory := range n.Relationships {
		child, err := factory()
		if err != nil {
			return err
		}
		if err := DrainAll(child); err != nil {
			return err
		}
	}
	return nil
}

// sliceStream yields nodes from a materialized slice.
type sliceStream struct {
	nodes []*Node
	cur   *Node
}

// NewSliceStream returns a stream over already-materialized nodes.
func NewSliceStream(nodes []*Node) NodeStream {
	return &sliceStream{nodes: nodes}
}

func (s *sliceStream) Next() bool {
	if len(s.nodes) == 0 {
		s.cur = nil
		return false
	}
	s.cur = s.nodes[0]
	s.nodes = s.nodes[1:]
	return true
}

func (s *sliceStream) Node() *Node { return s.cur }
func (s *sliceStream) Err() error  { return nil }

// errStream is a stream that fails immediately.
type errStream struct{ err error }

// NewErrStream returns a stream whose first Next reports failure.
func NewErrStream(err error) NodeStream { return &errStream{err: err} }

func (s *errStream) Next() bool  { return false }
func (s *errStream) Node() *Node { return nil }
func (s *errStream) Err() error  { return s.err }

// EmptyStream is a stream with no nodes.
func EmptyStream() NodeStream { return &sliceStream{} }

// FuncStream adapts a pull function to a NodeStream. The function
// returns (nil, nil) at end of stream.
type FuncStream struct {
	Fn  func() (*Node, error)
	cur *Node
	err error
}

func (s *FuncStream) Next() bool {
	if s.err != nil || s.Fn == nil {
		return false
	}
	n, err := s.Fn()
	if err != nil {
		s.err = err
		s.cur = nil
		return false
	}
	if n == nil {
		s.Fn = nil
		s.cur = nil
		return false
	}
	s.cur = n
	return true
}

func (s *FuncStream) Node() *Node { return s.cur }
func (s *FuncStream) Err() error  { return s.err }
