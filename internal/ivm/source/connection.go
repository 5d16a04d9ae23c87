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

// An overlay is the transient visibility layer installed on a
// connection while its output processes a push. Re-entrant fetches
// issued during that push observe the post-change state: the added
// row is spliced into iteration order and the removed row is hidden.
// An edit populates both fields.
type overlay struct {
	add    types.Row
	remove types.Row
}

// A connection is a per-ordering view of a source, acting as the
// graph's Input for that source.
type connection struct {
	source  *Source
	index   *index
	filters []types.Predicate
	output  types.Output
	overlay *overlay

	destroyed bool
}

var _ types.Input = (*connection)(nil)

// Schema implements types.Input.
func (c *connection) Schema() *types.Schema { return c.index.schema }

// SetOutput implements types.Input.
func (c *connection) SetOutput(out types.Output) { c.output = out }

// Fetch implements types.Input.
func (c *connection) Fetch(req types.FetchRequest) (types.NodeStream, error) {
	return newCursor(c, req), nil
}

// Cleanup implements types.Input. A source keeps no per-fetch state,
// so cleanup is the same iteration as fetch.
func (c *connection) Cleanup(req types.FetchRequest) (types.NodeStream, error) {
	return c.Fetch(req)
}

// Destroy implements types.Input. The source itself is owned by the
// graph, so destroying a connection only detaches it.
func (c *connection) Destroy() error {
	if c.destroyed {
		return nil
	}
	c.destroyed = true
	c.output = nil
	c.source.disconnect(c)
	return nil
}

func (c *connection) admits(row types.Row) bool {
	for _, f := range c.filters {
		if !f(row) {
			return false
		}
	}
	return true
}
