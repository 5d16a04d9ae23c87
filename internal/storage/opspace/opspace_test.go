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

package opspace

import (
	"testing"

	"github.com/deltaview/deltaview/internal/storage/memstore"
	"github.com/stretchr/testify/require"
)

func TestNamespacing(t *testing.T) {
	r := require.New(t)
	backing := memstore.New()
	a := Wrap(backing, "a")
	b := Wrap(backing, "b")

	r.NoError(a.Set("k", 1))
	r.NoError(b.Set("k", 2))

	v, ok, err := a.Get("k")
	r.NoError(err)
	r.True(ok)
	r.Equal(1, v)

	var keys []string
	r.NoError(b.Scan("", func(key string, _ any) (bool, error) {
		keys = append(keys, key)
		return true, nil
	}))
	r.Equal([]string{"k"}, keys)

	r.NoError(a.Del("k"))
	_, ok, err = a.Get("k")
	r.NoError(err)
	r.False(ok)
	_, ok, err = b.Get("k")
	r.NoError(err)
	r.True(ok)
}

func TestFreshNamespacesAreDisjoint(t *testing.T) {
	r := require.New(t)
	backing := memstore.New()
	a := Fresh(backing)
	b := Fresh(backing)

	r.NoError(a.Set("k", 1))
	_, ok, err := b.Get("k")
	r.NoError(err)
	r.False(ok)
}
