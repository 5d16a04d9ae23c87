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

package join_test

import (
	"testing"

	"github.com/deltaview/deltaview/internal/graphtest"
	"github.com/deltaview/deltaview/internal/ivm/join"
	"github.com/deltaview/deltaview/internal/ivm/source"
	"github.com/deltaview/deltaview/internal/storage/memstore"
	"github.com/deltaview/deltaview/internal/types"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	r        *require.Assertions
	issues   *source.Source
	comments *source.Source
	store    *memstore.Store
	catch    *graphtest.Catch
}

// newFixture builds issue JOIN comment AS comments ON id = issueID.
func newFixture(t *testing.T, issues, comments []types.Row) *fixture {
	t.Helper()
	r := require.New(t)

	issueSrc, err := source.New("issue", map[string]types.ColumnType{
		"id": types.ColumnString,
	}, []string{"id"})
	r.NoError(err)
	for _, row := range issues {
		r.NoError(issueSrc.Push(types.AddChange(types.NewNode(row))))
	}

	commentSrc, err := source.New("comment", map[string]types.ColumnType{
		"id":      types.ColumnString,
		"issueID": types.ColumnString,
	}, []string{"id"})
	r.NoError(err)
	for _, row := range comments {
		r.NoError(commentSrc.Push(types.AddChange(types.NewNode(row))))
	}

	issueConn, err := issueSrc.Connect(types.Asc("id"))
	r.NoError(err)
	commentConn, err := commentSrc.Connect(types.Asc("id"))
	r.NoError(err)

	store := memstore.New()
	j, err := join.New(issueConn, commentConn,
		[]string{"id"}, []string{"issueID"}, "comments", store)
	r.NoError(err)

	return &fixture{
		r:        r,
		issues:   issueSrc,
		comments: commentSrc,
		store:    store,
		catch:    graphtest.NewCatch(j),
	}
}

func (f *fixture) storeKeys() []string {
	var keys []string
	f.r.NoError(f.store.Scan("", func(key string, _ any) (bool, error) {
		keys = append(keys, key)
		return true, nil
	}))
	return keys
}

func TestAddParentHydratesChildren(t *testing.T) {
	f := newFixture(t, nil, []types.Row{{"id": "c1", "issueID": "i1"}})

	nodes, err := f.catch.Fetch()
	f.r.NoError(err)
	f.r.Empty(nodes)

	f.r.NoError(f.issues.Push(types.AddChange(types.NewNode(types.Row{"id": "i1"}))))

	pushes := f.catch.Pushes()
	f.r.Len(pushes, 1)
	f.r.Equal("add", pushes[0].Type)
	f.r.Equal(types.Row{"id": "i1"}, pushes[0].Node.Row)
	f.r.Equal([]graphtest.CaughtNode{
		{Row: types.Row{"id": "c1", "issueID": "i1"}},
	}, pushes[0].Node.Relationships["comments"])

	f.r.Equal([]string{`pKeySet/["i1"]/["i1"]`}, f.storeKeys())
}

func TestOrphanChildIsDropped(t *testing.T) {
	f := newFixture(t, []types.Row{{"id": "i1"}}, nil)

	nodes, err := f.catch.Fetch()
	f.r.NoError(err)
	f.r.Len(nodes, 1)
	f.r.Empty(nodes[0].Relationships["comments"])

	f.r.NoError(f.comments.Push(types.AddChange(
		types.NewNode(types.Row{"id": "c1", "issueID": "i2"}))))

	f.r.Empty(f.catch.Pushes())
}

func TestChildChangesReachAllParents(t *testing.T) {
	// Two issues sharing one owner key; the child is the user row.
	r := require.New(t)
	issueSrc, err := source.New("issue", map[string]types.ColumnType{
		"id":      types.ColumnString,
		"ownerID": types.ColumnString,
	}, []string{"id"})
	r.NoError(err)
	for _, row := range []types.Row{
		{"id": "i1", "ownerID": "u2"},
		{"id": "i2", "ownerID": "u2"},
	} {
		r.NoError(issueSrc.Push(types.AddChange(types.NewNode(row))))
	}
	userSrc, err := source.New("user", map[string]types.ColumnType{
		"id": types.ColumnString,
	}, []string{"id"})
	r.NoError(err)
	r.NoError(userSrc.Push(types.AddChange(types.NewNode(types.Row{"id": "u2"}))))

	issueConn, err := issueSrc.Connect(types.Asc("id"))
	r.NoError(err)
	userConn, err := userSrc.Connect(types.Asc("id"))
	r.NoError(err)

	j, err := join.New(issueConn, userConn,
		[]string{"ownerID"}, []string{"id"}, "owner", memstore.New())
	r.NoError(err)
	catch := graphtest.NewCatch(j)

	nodes, err := catch.Fetch()
	r.NoError(err)
	r.Len(nodes, 2)
	r.Len(nodes[0].Relationships["owner"], 1)

	// A primary-key edit of the user splits into remove and add at
	// the source; the remove reaches both correlated parents, the
	// add matches no parent key and vanishes.
	r.NoError(userSrc.Push(types.EditChange(
		types.Row{"id": "u2"}, types.Row{"id": "u1"})))

	pushes := catch.Pushes()
	r.Len(pushes, 2)
	for i, parentID := range []string{"i1", "i2"} {
		r.Equal("child", pushes[i].Type)
		r.Equal("owner", pushes[i].Relationship)
		r.Equal(parentID, pushes[i].ParentRow["id"])
		r.Equal("remove", pushes[i].Child.Type)
		r.Equal(types.Row{"id": "u2"}, pushes[i].Child.Node.Row)
	}

	// The joined rows remain, with the relationship now empty.
	catch.Reset()
	nodes, err = catch.Fetch()
	r.NoError(err)
	r.Len(nodes, 2)
	r.Empty(nodes[0].Relationships["owner"])
	r.Empty(nodes[1].Relationships["owner"])
}

func TestChildJoinKeyEditMovesChild(t *testing.T) {
	f := newFixture(t,
		[]types.Row{{"id": "i1"}, {"id": "i2"}},
		[]types.Row{{"id": "c1", "issueID": "i1"}})

	_, err := f.catch.Fetch()
	f.r.NoError(err)

	f.r.NoError(f.comments.Push(types.EditChange(
		types.Row{"id": "c1", "issueID": "i1"},
		types.Row{"id": "c1", "issueID": "i2"})))

	pushes := f.catch.Pushes()
	f.r.Len(pushes, 2)
	f.r.Equal("child", pushes[0].Type)
	f.r.Equal("i1", pushes[0].ParentRow["id"])
	f.r.Equal("remove", pushes[0].Child.Type)
	f.r.Equal("i2", pushes[1].ParentRow["id"])
	f.r.Equal("add", pushes[1].Child.Type)
}

func TestCompoundKeyCorrelatesComponentwise(t *testing.T) {
	r := require.New(t)

	orderSrc, err := source.New("order", map[string]types.ColumnType{
		"id":     types.ColumnString,
		"region": types.ColumnString,
		"day":    types.ColumnNumber,
	}, []string{"id"})
	r.NoError(err)
	for _, row := range []types.Row{
		{"id": "o1", "region": "eu", "day": 1},
		{"id": "o2", "region": "us", "day": 1},
	} {
		r.NoError(orderSrc.Push(types.AddChange(types.NewNode(row))))
	}

	shipmentSrc, err := source.New("shipment", map[string]types.ColumnType{
		"id":         types.ColumnString,
		"destRegion": types.ColumnString,
		"destDay":    types.ColumnNumber,
	}, []string{"id"})
	r.NoError(err)
	for _, row := range []types.Row{
		{"id": "s1", "destRegion": "eu", "destDay": 1},
		// A matching region with a different day must not correlate.
		{"id": "s2", "destRegion": "us", "destDay": 2},
	} {
		r.NoError(shipmentSrc.Push(types.AddChange(types.NewNode(row))))
	}

	orderConn, err := orderSrc.Connect(types.Asc("id"))
	r.NoError(err)
	shipmentConn, err := shipmentSrc.Connect(types.Asc("id"))
	r.NoError(err)

	j, err := join.New(orderConn, shipmentConn,
		[]string{"region", "day"}, []string{"destRegion", "destDay"},
		"shipments", memstore.New())
	r.NoError(err)
	catch := graphtest.NewCatch(j)

	nodes, err := catch.Fetch()
	r.NoError(err)
	r.Len(nodes, 2)
	r.Len(nodes[0].Relationships["shipments"], 1)
	r.Equal("s1", nodes[0].Relationships["shipments"][0].Row["id"])
	r.Empty(nodes[1].Relationships["shipments"])
}

func TestCleanupReleasesState(t *testing.T) {
	f := newFixture(t,
		[]types.Row{{"id": "i1"}, {"id": "i2"}},
		[]types.Row{{"id": "c1", "issueID": "i1"}})

	_, err := f.catch.Fetch()
	f.r.NoError(err)
	f.r.Len(f.storeKeys(), 2)

	_, err = f.catch.Cleanup()
	f.r.NoError(err)
	f.r.Equal(0, f.store.Len())
}

func TestAddRemoveRoundTrip(t *testing.T) {
	f := newFixture(t, []types.Row{{"id": "i1"}}, nil)

	before, err := f.catch.Fetch()
	f.r.NoError(err)
	keysBefore := f.storeKeys()

	row := types.Row{"id": "i2"}
	f.r.NoError(f.issues.Push(types.AddChange(types.NewNode(row))))
	f.r.NoError(f.issues.Push(types.RemoveChange(types.NewNode(row))))

	after, err := f.catch.Fetch()
	f.r.NoError(err)
	f.r.Equal(before, after)
	f.r.Equal(keysBefore, f.storeKeys())
}
