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

// Package opspace carves per-operator namespaces out of one shared
// storage, so that a graph of stateful operators can run against a
// single backing store.
package opspace

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/google/uuid"
)

type namespaced struct {
	delegate types.Storage
	prefix   string
}

var _ types.Storage = (*namespaced)(nil)

// Wrap scopes a storage under the given namespace.
func Wrap(delegate types.Storage, namespace string) types.Storage {
	return &namespaced{delegate: delegate, prefix: namespace + "/"}
}

// Fresh scopes a storage under a newly-allocated namespace.
func Fresh(delegate types.Storage) types.Storage {
	return Wrap(delegate, uuid.NewString())
}

func (n *namespaced) Get(key string) (any, bool, error) {
	return n.delegate.Get(n.prefix + key)
}

func (n *namespaced) Set(key string, value any) error {
	return n.delegate.Set(n.prefix+key, value)
}

func (n *namespaced) Del(key string) error {
	return n.delegate.Del(n.prefix + key)
}

func (n *namespaced) Scan(prefix string, fn func(key string, value any) (bool, error)) error {
	return n.delegate.Scan(n.prefix+prefix, func(key string, value any) (bool, error) {
		return fn(key[len(n.prefix):], value)
	})
}
