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

// A Predicate is a row-level filter. Predicates supplied at connect
// time are hoisted into the source and prune iteration before rows
// enter the graph.
type Predicate func(Row) bool

// A Source is a leaf of the graph: an ordered in-memory set of rows
// for one table. The same source may serve many connections, each
// with its own ordering.
type Source interface {
	// Table returns the source's table name.
	Table() string

	// Connect returns a fresh Input producing the source's rows in
	// the given ordering, restricted by the optional hoisted filters.
	Connect(sort Ordering, filters ...Predicate) (Input, error)

	// Push mutates the row set and notifies every connection.
	Push(change Change) error
}
