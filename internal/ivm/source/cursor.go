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

package source

import (
	"github.com/deltaview/deltaview/internal/types"
)

// A cursor iterates a connection's index lazily by re-seeking the
// btree for each element, so that no fetch materializes the row set.
// It splices the connection's overlay into iteration: the overlay's
// added row appears at its ordering position and the removed row is
// hidden.
type cursor struct {
	conn *connection
	req  types.FetchRequest

	// Tree-side state.
	treePending types.Row
	treeLast    types.Row
	treeStarted bool
	treeDone    bool

	// Overlay-side state: the spliced row not yet emitted.
	ovlPending types.Row

	cur *types.Node
	err error
}

var _ types.NodeStream = (*cursor)(nil)

func newCursor(conn *connection, req types.FetchRequest) *cursor {
	c := &cursor{conn: conn, req: req}
	if ovl := conn.overlay; ovl != nil && ovl.add != nil {
		row := ovl.add
		if req.Constraint.Matches(row) && conn.admits(row) {
			ok, err := c.inStartBounds(row)
			if err != nil {
				c.err = err
			} else if ok {
				c.ovlPending = row
			}
		}
	}
	return c
}

func (c *cursor) Next() bool {
	if c.err != nil {
		return false
	}
	c.fillTree()
	if c.err != nil {
		return false
	}

	var row types.Row
	switch {
	case c.treePending == nil && c.ovlPending == nil:
		c.cur = nil
		return false
	case c.treePending == nil:
		row = c.takeOverlay()
	case c.ovlPending == nil:
		row = c.takeTree()
	default:
		cmp, err := c.schema().Compare(c.ovlPending, c.treePending)
		if err != nil {
			c.err = err
			return false
		}
		if c.req.Reverse {
			cmp = -cmp
		}
		if cmp < 0 {
			row = c.takeOverlay()
		} else {
			row = c.takeTree()
		}
	}

	c.cur = types.NewNode(row)
	return true
}

func (c *cursor) Node() *types.Node { return c.cur }
func (c *cursor) Err() error        { return c.err }

func (c *cursor) schema() *types.Schema { return c.conn.index.schema }

func (c *cursor) takeTree() types.Row {
	row := c.treePending
	c.treePending = nil
	c.treeLast = row
	c.treeStarted = true
	return row
}

func (c *cursor) takeOverlay() types.Row {
	row := c.ovlPending
	c.ovlPending = nil
	return row
}

// fillTree seeks the next admissible tree row strictly after the last
// one emitted (or at the requested start position).
func (c *cursor) fillTree() {
	if c.treePending != nil || c.treeDone {
		return
	}

	var pivot types.Row
	skipEqual := false
	switch {
	case c.treeStarted:
		pivot = c.treeLast
		skipEqual = true
	case c.req.Start != nil:
		pivot = c.req.Start.Row
		skipEqual = c.req.Start.Basis == types.BasisAfter
	}

	ovl := c.conn.overlay
	schema := c.schema()
	var found types.Row
	iter := func(row types.Row) bool {
		if skipEqual {
			cmp, err := schema.Compare(row, pivot)
			if err != nil {
				c.err = err
				return false
			}
			if cmp == 0 {
				return true
			}
		}
		if ovl != nil && ovl.remove != nil && schema.PrimaryKeyEqual(row, ovl.remove) {
			return true
		}
		if !c.req.Constraint.Matches(row) || !c.conn.admits(row) {
			return true
		}
		found = row
		return false
	}

	tree := c.conn.index.tree
	switch {
	case pivot == nil && !c.req.Reverse:
		tree.Ascend(iter)
	case pivot == nil:
		tree.Descend(iter)
	case !c.req.Reverse:
		tree.AscendGreaterOrEqual(pivot, iter)
	default:
		tree.DescendLessOrEqual(pivot, iter)
	}

	if c.err != nil {
		return
	}
	if found == nil {
		c.treeDone = true
		return
	}
	c.treePending = found
}

// inStartBounds reports whether the overlay row falls within the
// requested start position.
func (c *cursor) inStartBounds(row types.Row) (bool, error) {
	if c.req.Start == nil {
		return true, nil
	}
	cmp, err := c.schema().Compare(row, c.req.Start.Row)
	if err != nil {
		return false, err
	}
	if c.req.Reverse {
		cmp = -cmp
	}
	if c.req.Start.Basis == types.BasisAfter {
		return cmp > 0, nil
	}
	return cmp >= 0, nil
}
