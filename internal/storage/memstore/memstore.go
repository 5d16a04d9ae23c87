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

// Package memstore provides the default, in-memory implementation of
// the operator storage contract.
package memstore

import (
	"strings"

	"github.com/deltaview/deltaview/internal/types"
	"github.com/google/btree"
)

type kv struct {
	key   string
	value any
}

// Store keeps operator state in an ordered in-memory tree so that
// prefix scans walk keys lexicographically.
type Store struct {
	tree *btree.BTreeG[kv]
}

var _ types.Storage = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		tree: btree.NewG(16, func(a, b kv) bool { return a.key < b.key }),
	}
}

// Get implements types.Storage.
func (s *Store) Get(key string) (any, bool, error) {
	item, ok := s.tree.Get(kv{key: key})
	if !ok {
		return nil, false, nil
	}
	return item.value, true, nil
}

// Set implements types.Storage.
func (s *Store) Set(key string, value any) error {
	s.tree.ReplaceOrInsert(kv{key: key, value: value})
	return nil
}

// Del implements types.Storage.
func (s *Store) Del(key string) error {
	s.tree.Delete(kv{key: key})
	return nil
}

// Scan implements types.Storage.
func (s *Store) Scan(prefix string, fn func(key string, value any) (bool, error)) error {
	var err error
	s.tree.AscendGreaterOrEqual(kv{key: prefix}, func(item kv) bool {
		if !strings.HasPrefix(item.key, prefix) {
			return false
		}
		var more bool
		more, err = fn(item.key, item.value)
		return err == nil && more
	})
	return err
}

// Len returns the number of stored keys. Tests use this to verify
// that cleanup left no state behind.
func (s *Store) Len() int {
	return s.tree.Len()
}
