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

package fan_test

import (
	"testing"

	"github.com/deltaview/deltaview/internal/graphtest"
	"github.com/deltaview/deltaview/internal/ivm/fan"
	"github.com/deltaview/deltaview/internal/ivm/filter"
	"github.com/deltaview/deltaview/internal/ivm/source"
	"github.com/deltaview/deltaview/internal/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func boolSource(t *testing.T, rows ...types.Row) *source.Source {
	t.Helper()
	r := require.New(t)
	src, err := source.New("t", map[string]types.ColumnType{
		"id": types.ColumnString,
		"a":  types.ColumnBoolean,
		"b":  types.ColumnBoolean,
	}, []string{"id"})
	r.NoError(err)
	for _, row := range rows {
		r.NoError(src.Push(types.AddChange(types.NewNode(row))))
	}
	return src
}

// disjunction builds a OR b OR (a AND NOT b) over the source.
func disjunction(t *testing.T, src *source.Source) *fan.FanIn {
	r := require.New(t)
	conn, err := src.Connect(types.Asc("id"))
	r.NoError(err)

	fanOut := fan.NewFanOut(conn)
	branches := []types.Input{
		filter.New(fanOut, filter.IsTrue("a")),
		filter.New(fanOut, filter.IsTrue("b")),
		filter.New(fanOut, filter.And(filter.IsTrue("a"), filter.Not(filter.IsTrue("b")))),
	}
	fanIn, err := fan.NewFanIn(fanOut, branches...)
	r.NoError(err)
	return fanIn
}

func TestDisjunctionEmitsSinglePush(t *testing.T) {
	r := require.New(t)
	src := boolSource(t)
	catch := graphtest.NewCatch(disjunction(t, src))

	nodes, err := catch.Fetch()
	r.NoError(err)
	r.Empty(nodes)

	r.NoError(src.Push(types.AddChange(
		types.NewNode(types.Row{"id": "r1", "a": true, "b": false}))))

	pushes := catch.Pushes()
	r.Len(pushes, 1)
	r.Equal("add", pushes[0].Type)
	r.Equal(types.Row{"id": "r1", "a": true, "b": false}, pushes[0].Node.Row)
}

func TestDisjunctionFetchDeduplicates(t *testing.T) {
	r := require.New(t)
	src := boolSource(t,
		types.Row{"id": "r1", "a": true, "b": true},
		types.Row{"id": "r2", "a": false, "b": true},
		types.Row{"id": "r3", "a": false, "b": false},
	)
	catch := graphtest.NewCatch(disjunction(t, src))

	nodes, err := catch.Fetch()
	r.NoError(err)
	r.Len(nodes, 2)
	r.Equal("r1", nodes[0].Row["id"])
	r.Equal("r2", nodes[1].Row["id"])
}

func TestDisjunctionEditAcrossBranches(t *testing.T) {
	r := require.New(t)
	src := boolSource(t, types.Row{"id": "r1", "a": true, "b": false})
	catch := graphtest.NewCatch(disjunction(t, src))

	_, err := catch.Fetch()
	r.NoError(err)

	// Branch a: edit -> remove; branch b: edit -> add. The fan-in
	// synthesizes a single edit.
	r.NoError(src.Push(types.EditChange(
		types.Row{"id": "r1", "a": true, "b": false},
		types.Row{"id": "r1", "a": false, "b": true})))

	pushes := catch.Pushes()
	r.Len(pushes, 1)
	r.Equal("edit", pushes[0].Type)
	r.Equal(types.Row{"id": "r1", "a": true, "b": false}, pushes[0].OldRow)
	r.Equal(types.Row{"id": "r1", "a": false, "b": true}, pushes[0].Row)
}

// TestIdentityEquivalence checks that FanOut -> identity -> FanIn is
// observationally indistinguishable from the bare input.
func TestIdentityEquivalence(t *testing.T) {
	r := require.New(t)
	rows := []types.Row{
		{"id": "r1", "a": true, "b": false},
		{"id": "r2", "a": false, "b": true},
	}

	bare := boolSource(t, rows...)
	bareConn, err := bare.Connect(types.Asc("id"))
	r.NoError(err)
	bareCatch := graphtest.NewCatch(bareConn)

	wrapped := boolSource(t, rows...)
	conn, err := wrapped.Connect(types.Asc("id"))
	r.NoError(err)
	fanOut := fan.NewFanOut(conn)
	identity := filter.New(fanOut, func(types.Row) bool { return true })
	fanIn, err := fan.NewFanIn(fanOut, identity)
	r.NoError(err)
	wrappedCatch := graphtest.NewCatch(fanIn)

	bareNodes, err := bareCatch.Fetch()
	r.NoError(err)
	wrappedNodes, err := wrappedCatch.Fetch()
	r.NoError(err)
	r.Equal(bareNodes, wrappedNodes)

	for _, change := range []types.Change{
		types.AddChange(types.NewNode(types.Row{"id": "r3", "a": true, "b": true})),
		types.EditChange(
			types.Row{"id": "r1", "a": true, "b": false},
			types.Row{"id": "r1", "a": true, "b": true}),
		types.RemoveChange(types.NewNode(types.Row{"id": "r2"})),
	} {
		r.NoError(bare.Push(change))
		r.NoError(wrapped.Push(change))
	}
	r.Equal(bareCatch.Pushes(), wrappedCatch.Pushes())
}

func TestFanOutDestroyAccounting(t *testing.T) {
	r := require.New(t)
	src := boolSource(t)
	conn, err := src.Connect(types.Asc("id"))
	r.NoError(err)

	fanOut := fan.NewFanOut(conn)
	b1 := filter.New(fanOut, filter.IsTrue("a"))
	b2 := filter.New(fanOut, filter.IsTrue("b"))
	fanIn, err := fan.NewFanIn(fanOut, b1, b2)
	r.NoError(err)

	// One destroy per branch.
	r.NoError(fanIn.Destroy())

	// A further destroy overshoots the output count.
	err = fanOut.Destroy()
	r.True(errors.Is(err, types.ErrDestroyMisuse))
}
