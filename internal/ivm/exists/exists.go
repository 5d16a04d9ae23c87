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

// Package exists filters parents by the presence (EXISTS) or absence
// (NOT EXISTS) of rows in one named relationship, maintaining an
// incrementally-updated per-parent size cache.
package exists

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/deltaview/deltaview/internal/util/keycode"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// sizeKeyPrefix namespaces the size-cache entries within the
// operator's storage.
const sizeKeyPrefix = "row"

// Exists passes through parents whose named relationship is
// non-empty; with Not set, parents whose relationship is empty.
type Exists struct {
	input        types.Input
	relationship string
	not          bool

	// joinKey is the parent-side correlation key of the relationship.
	// Parents sharing its values share relationship contents, which
	// lets a computed size be reused across them.
	joinKey []string

	// joinKeyIsPK degenerates the size key to row//<json(pk)> and
	// disables prefix reuse (no two parents share the key).
	joinKeyIsPK bool

	storage types.Storage
	output  types.Output

	// inPush disables prefix-based size reuse while a push is being
	// processed: relationships may be mid-update across parents
	// sharing the join key.
	inPush bool
}

var _ types.Operator = (*Exists)(nil)

// New attaches an exists filter to its input, which must expose the
// named relationship. The operator owns the input.
func New(
	input types.Input, relationship string, joinKey []string, not bool, storage types.Storage,
) (*Exists, error) {
	schema := input.Schema()
	if _, ok := schema.Relationships[relationship]; !ok {
		return nil, errors.Wrapf(types.ErrInvariant,
			"exists: relationship %q missing from schema of table %s",
			relationship, schema.TableName)
	}
	if len(joinKey) == 0 {
		return nil, errors.New("exists: join key required")
	}
	e := &Exists{
		input:        input,
		relationship: relationship,
		not:          not,
		joinKey:      joinKey,
		joinKeyIsPK:  sameColumns(joinKey, schema.PrimaryKey),
		storage:      storage,
	}
	input.SetOutput(e)
	return e, nil
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Schema implements types.Input.
func (e *Exists) Schema() *types.Schema { return e.input.Schema() }

// SetOutput implements types.Input.
func (e *Exists) SetOutput(out types.Output) { e.output = out }

// passes applies the filter sense to a relationship size.
func (e *Exists) passes(size int) bool {
	return (size > 0) != e.not
}

// Fetch implements types.Input.
func (e *Exists) Fetch(req types.FetchRequest) (types.NodeStream, error) {
	in, err := e.input.Fetch(req)
	if err != nil {
		return nil, err
	}
	return e.wrap(in, false), nil
}

// Cleanup implements types.Input. Size-cache entries are deleted as
// parents stream through.
func (e *Exists) Cleanup(req types.FetchRequest) (types.NodeStream, error) {
	in, err := e.input.Cleanup(req)
	if err != nil {
		return nil, err
	}
	return e.wrap(in, true), nil
}

func (e *Exists) wrap(in types.NodeStream, cleanup bool) types.NodeStream {
	return &types.FuncStream{Fn: func() (*types.Node, error) {
		for in.Next() {
			node := in.Node()
			size, counted, err := e.nodeSize(node)
			if err != nil {
				return nil, err
			}
			if cleanup {
				key, err := e.sizeKey(node.Row)
				if err != nil {
					return nil, err
				}
				if err := e.storage.Del(key); err != nil {
					return nil, err
				}
				// Counting consumed the single-shot cleanup stream;
				// hand downstream an empty replacement.
				if counted {
					node = node.WithRelationship(e.relationship, emptyFactory)
				}
			}
			if e.passes(size) {
				return node, nil
			}
			if cleanup {
				if err := e.drainSkipped(node, counted); err != nil {
					return nil, err
				}
			}
		}
		return nil, in.Err()
	}}
}

func emptyFactory() (types.NodeStream, error) {
	return types.EmptyStream(), nil
}

// drainSkipped releases the state of a node that cleanup filtered
// out: its relationship streams still hold operator state below us.
func (e *Exists) drainSkipped(node *types.Node, relConsumed bool) error {
	for name, factory := range node.Relationships {
		if relConsumed && name == e.relationship {
			continue
		}
		s, err := factory()
		if err != nil {
			return err
		}
		if err := types.DrainAll(s); err != nil {
			return err
		}
	}
	return nil
}

// nodeSize resolves the relationship size for a node, counting the
// node's own relationship stream as a last resort. The boolean
// reports whether the stream was consumed to produce the size.
func (e *Exists) nodeSize(node *types.Node) (int, bool, error) {
	key, err := e.sizeKey(node.Row)
	if err != nil {
		return 0, false, err
	}
	if size, ok, err := e.cachedSize(key); err != nil {
		return 0, false, err
	} else if ok {
		return size, false, nil
	}

	if size, ok, err := e.prefixSize(node.Row, key); err != nil {
		return 0, false, err
	} else if ok {
		return size, false, nil
	}

	factory, ok := node.Relationships[e.relationship]
	if !ok {
		return 0, false, errors.Wrapf(types.ErrInvariant,
			"exists: node for %v lacks relationship %q", node.Row, e.relationship)
	}
	stream, err := factory()
	if err != nil {
		return 0, false, err
	}
	size := 0
	for stream.Next() {
		size++
	}
	if err := stream.Err(); err != nil {
		return 0, false, err
	}
	sizesComputed.WithLabelValues(e.relationship).Inc()
	return size, true, e.storage.Set(key, size)
}

// prefixSize reuses a size cached for another parent sharing the
// same join-key values. Disabled during push and for primary-key
// joins.
func (e *Exists) prefixSize(row types.Row, fullKey string) (int, bool, error) {
	if e.inPush || e.joinKeyIsPK {
		return 0, false, nil
	}
	encoded, err := keycode.EncodeValues(types.ValuesOf(row, e.joinKey))
	if err != nil {
		return 0, false, err
	}
	found := false
	size := 0
	err = e.storage.Scan(keycode.Prefix(sizeKeyPrefix, encoded),
		func(_ string, value any) (bool, error) {
			size = toInt(value)
			found = true
			return false, nil
		})
	if err != nil || !found {
		return 0, false, err
	}
	sizesReused.WithLabelValues(e.relationship).Inc()
	return size, true, e.storage.Set(fullKey, size)
}

func (e *Exists) cachedSize(key string) (int, bool, error) {
	v, ok, err := e.storage.Get(key)
	if err != nil || !ok {
		return 0, ok, err
	}
	return toInt(v), true, nil
}

func (e *Exists) sizeKey(row types.Row) (string, error) {
	pkEnc, err := keycode.EncodeValues(e.Schema().PrimaryKeyValues(row))
	if err != nil {
		return "", err
	}
	if e.joinKeyIsPK {
		return keycode.Join(sizeKeyPrefix, "", pkEnc), nil
	}
	joinEnc, err := keycode.EncodeValues(types.ValuesOf(row, e.joinKey))
	if err != nil {
		return "", err
	}
	return keycode.Join(sizeKeyPrefix, joinEnc, pkEnc), nil
}

// setSize writes a size, clamping at zero. A decrement below zero
// indicates an inconsistent cache; it is the one tolerated corruption
// (see the size-clamp note in the package tests) and is surfaced as a
// warning rather than an error.
func (e *Exists) setSize(key string, size int) (int, error) {
	if size < 0 {
		log.WithFields(log.Fields{
			"relationship": e.relationship,
			"key":          key,
		}).Warn("relationship size underflow; clamping to zero")
		sizeUnderflows.WithLabelValues(e.relationship).Inc()
		size = 0
	}
	return size, e.storage.Set(key, size)
}

// Destroy implements types.Input.
func (e *Exists) Destroy() error {
	var keys []string
	err := e.storage.Scan(sizeKeyPrefix+keycode.Separator,
		func(key string, _ any) (bool, error) {
			keys = append(keys, key)
			return true, nil
		})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := e.storage.Del(key); err != nil {
			return err
		}
	}
	return e.input.Destroy()
}

func toInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		// Sizes round-trip through JSON in some storage backends.
		return int(t)
	default:
		return 0
	}
}
