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

// Package types contains data types and interfaces that define the
// major functional blocks of the view-maintenance graph. The goal of
// placing the types into this package is to make it easy to compose
// operators as the engine evolves.
package types

import (
	"github.com/deltaview/deltaview/internal/util/rowval"
	"github.com/pkg/errors"
)

// Row and Value are re-exported here so that operator code reads
// types.Row without importing the value package directly.
type (
	// Row maps column names to scalar values.
	Row = rowval.Row
	// Value is a JSON-like scalar.
	Value = rowval.Value
)

// Undefined marks an absent optional column. See rowval.Undefined.
var Undefined = rowval.Undefined

var (
	// ErrInvariant indicates that a precondition of the change
	// protocol was broken by an upstream operator: an add of an
	// existing primary key, a remove of a missing one, or a child
	// change naming an unknown parent or relationship. The graph
	// makes no recovery attempt.
	ErrInvariant = errors.New("change protocol invariant violated")

	// ErrDestroyMisuse indicates that an operator was destroyed more
	// times than its contract allows.
	ErrDestroyMisuse = errors.New("operator destroyed too many times")
)

// An Input is the upstream endpoint of an operator: the surface a
// downstream operator fetches from and registers itself against.
type Input interface {
	// Schema describes the rows this input produces.
	Schema() *Schema

	// Fetch returns a lazy ordered stream of nodes matching the
	// request. Any per-row state the operator keeps is created as the
	// stream is consumed.
	Fetch(req FetchRequest) (NodeStream, error)

	// Cleanup returns the same stream as Fetch, but releases the
	// per-row state as it is consumed. Callers must drain the result
	// (and every relationship it opens) to fully release state.
	Cleanup(req FetchRequest) (NodeStream, error)

	// SetOutput registers the downstream consumer of this input's
	// pushes. An input has exactly one output.
	SetOutput(out Output)

	// Destroy releases the operator and, transitively, the input it
	// owns. Destroy is idempotent except where documented otherwise.
	Destroy() error
}

// An Output receives changes pushed from upstream.
type Output interface {
	// Push delivers a single change. The call returns only once all
	// synchronous downstream effects have been emitted.
	Push(change Change) error
}

// An Operator is an inner node of the graph: it consumes an Input and
// is itself an Input for the next operator downstream.
type Operator interface {
	Input
	Output
}

// Storage is the keyed state abstraction supplied to stateful
// operators. Keys are operator-namespaced strings; values are small
// JSON-serializable scalars. Implementations need not be persistent.
type Storage interface {
	// Get retrieves the value associated with the key. The boolean
	// reports presence; a missing key is not an error.
	Get(key string) (any, bool, error)

	// Set stores a value under the key, replacing any prior value.
	Set(key string, value any) error

	// Del removes the key. Deleting a missing key is a no-op.
	Del(key string) error

	// Scan visits every key with the given prefix in lexicographic
	// order. The callback returns false to stop early.
	Scan(prefix string, fn func(key string, value any) (bool, error)) error
}
