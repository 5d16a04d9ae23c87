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

package rowval

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	a := assert.New(t)
	a.Nil(Normalize(Undefined))
	a.Nil(Normalize(nil))
	a.Equal(float64(42), Normalize(42))
	a.Equal(float64(42), Normalize(int64(42)))
	a.Equal("x", Normalize("x"))
	a.Equal(true, Normalize(true))
}

func TestCompare(t *testing.T) {
	r := require.New(t)

	tcs := []struct {
		a, b     Value
		expected int
	}{
		{nil, nil, 0},
		{nil, "x", -1},
		{"x", nil, 1},
		{Undefined, nil, 0},
		{Undefined, false, -1},
		{false, true, -1},
		{true, true, 0},
		{1, 2, -1},
		{2.5, 2.5, 0},
		{10, int64(2), 1},
		{"a", "b", -1},
		{"b", "b", 0},
	}
	for _, tc := range tcs {
		c, err := Compare(tc.a, tc.b)
		r.NoError(err)
		r.Equalf(tc.expected, c, "%v vs %v", tc.a, tc.b)
	}
}

func TestCompareMismatch(t *testing.T) {
	r := require.New(t)
	_, err := Compare("x", 1)
	r.Error(err)
	r.True(errors.Is(err, ErrTypeMismatch))
	_, err = Compare(true, "x")
	r.True(errors.Is(err, ErrTypeMismatch))
}

func TestRowGet(t *testing.T) {
	a := assert.New(t)
	row := Row{"a": 1, "b": Undefined}
	a.Equal(float64(1), row.Get("a"))
	a.Nil(row.Get("b"))
	a.Nil(row.Get("missing"))
}

func TestRowsEqual(t *testing.T) {
	a := assert.New(t)
	a.True(RowsEqual(
		Row{"a": 1, "b": Undefined},
		Row{"a": float64(1), "b": nil}))
	a.True(RowsEqual(Row{"a": nil}, Row{}))
	a.False(RowsEqual(Row{"a": 1}, Row{"a": 2}))
	a.False(RowsEqual(Row{"a": "x"}, Row{}))
}
