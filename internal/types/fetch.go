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

import "github.com/deltaview/deltaview/internal/util/rowval"

// A Constraint restricts a fetch to rows whose named columns equal
// the given values exactly.
type Constraint map[string]Value

// Matches reports whether a row satisfies the constraint. A nil
// constraint matches every row.
func (c Constraint) Matches(row Row) bool {
	for col, want := range c {
		if !rowval.Equal(row.Get(col), want) {
			return false
		}
	}
	return true
}

// Basis selects whether a fetch starts at or immediately after the
// given row.
type Basis int

// Start bases.
const (
	BasisAt Basis = iota
	BasisAfter
)

// A Start positions a fetch within the ordering.
type Start struct {
	Row   Row
	Basis Basis
}

// A FetchRequest selects and orders the nodes produced by Fetch and
// Cleanup.
type FetchRequest struct {
	// Constraint restricts results by exact equality on one or more
	// columns. Optional.
	Constraint Constraint

	// Start positions the stream at or after a row in the ordering.
	// Optional.
	Start *Start

	// Reverse iterates the ordering backwards.
	Reverse bool
}
