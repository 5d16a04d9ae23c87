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

package memstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	r := require.New(t)
	s := New()

	_, ok, err := s.Get("missing")
	r.NoError(err)
	r.False(ok)

	r.NoError(s.Set("a", 1))
	r.NoError(s.Set("a", 2))
	v, ok, err := s.Get("a")
	r.NoError(err)
	r.True(ok)
	r.Equal(2, v)
	r.Equal(1, s.Len())

	r.NoError(s.Del("a"))
	r.NoError(s.Del("a"))
	r.Equal(0, s.Len())
}

func TestScan(t *testing.T) {
	r := require.New(t)
	s := New()
	r.NoError(s.Set("p/b", 2))
	r.NoError(s.Set("p/a", 1))
	r.NoError(s.Set("q/a", 3))
	r.NoError(s.Set("p", 0))

	var keys []string
	r.NoError(s.Scan("p/", func(key string, value any) (bool, error) {
		keys = append(keys, key)
		return true, nil
	}))
	r.Equal([]string{"p/a", "p/b"}, keys)

	// Early stop.
	keys = nil
	r.NoError(s.Scan("p/", func(key string, _ any) (bool, error) {
		keys = append(keys, key)
		return false, nil
	}))
	r.Equal([]string{"p/a"}, keys)
}
