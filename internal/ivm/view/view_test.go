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

package view_test

import (
	"testing"

	"github.com/deltaview/deltaview/internal/ivm/join"
	"github.com/deltaview/deltaview/internal/ivm/source"
	"github.com/deltaview/deltaview/internal/ivm/view"
	"github.com/deltaview/deltaview/internal/storage/memstore"
	"github.com/deltaview/deltaview/internal/types"
	"github.com/stretchr/testify/require"
)

func newViewFixture(
	t *testing.T, issues, comments []types.Row,
) (*source.Source, *source.Source, *view.ArrayView) {
	t.Helper()
	r := require.New(t)

	issueSrc, err := source.New("issue", map[string]types.ColumnType{
		"id":    types.ColumnString,
		"title": types.ColumnString,
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
	j, err := join.New(issueConn, commentConn,
		[]string{"id"}, []string{"issueID"}, "comments", memstore.New())
	r.NoError(err)

	return issueSrc, commentSrc, view.New(j)
}

func TestHydrateAndIncrementalMaintenance(t *testing.T) {
	r := require.New(t)
	issues, comments, v := newViewFixture(t,
		[]types.Row{{"id": "i2", "title": "two"}},
		[]types.Row{{"id": "c1", "issueID": "i2"}})

	changes := 0
	v.OnChange(func() { changes++ })
	r.NoError(v.Hydrate())

	entries := v.Entries()
	r.Len(entries, 1)
	r.Equal("i2", entries[0].Row["id"])
	r.Len(entries[0].Children["comments"], 1)

	// A new issue lands in ordering position.
	r.NoError(issues.Push(types.AddChange(
		types.NewNode(types.Row{"id": "i1", "title": "one"}))))
	r.Equal([]types.Row{
		{"id": "i1", "title": "one"},
		{"id": "i2", "title": "two"},
	}, v.Rows())

	// A child add flows into the nested entries.
	r.NoError(comments.Push(types.AddChange(
		types.NewNode(types.Row{"id": "c2", "issueID": "i1"}))))
	r.Len(v.Entries()[0].Children["comments"], 1)

	// An edit rewrites the row in place.
	r.NoError(issues.Push(types.EditChange(
		types.Row{"id": "i1", "title": "one"},
		types.Row{"id": "i1", "title": "first"})))
	r.Equal("first", v.Entries()[0].Row["title"])
	r.Len(v.Entries()[0].Children["comments"], 1)

	// A remove deletes the entry.
	r.NoError(issues.Push(types.RemoveChange(
		types.NewNode(types.Row{"id": "i2"}))))
	r.Len(v.Entries(), 1)

	r.Equal(4, changes)
}

func TestReferenceCounting(t *testing.T) {
	r := require.New(t)
	_, _, v := newViewFixture(t, nil, nil)
	r.NoError(v.Hydrate())

	row := types.Row{"id": "i1", "title": "one"}
	node := types.NewNode(row)

	// Two branches of a disjunction can surface the same row.
	r.NoError(v.Push(types.AddChange(node)))
	r.NoError(v.Push(types.AddChange(node)))
	r.Len(v.Entries(), 1)
	r.Equal(2, v.Entries()[0].RefCount())

	r.NoError(v.Push(types.RemoveChange(node)))
	r.Len(v.Entries(), 1)
	r.NoError(v.Push(types.RemoveChange(node)))
	r.Empty(v.Entries())
}

func TestScanInto(t *testing.T) {
	r := require.New(t)
	_, _, v := newViewFixture(t,
		[]types.Row{{"id": "i1", "title": "one"}},
		[]types.Row{
			{"id": "c1", "issueID": "i1"},
			{"id": "c2", "issueID": "i1"},
		})
	r.NoError(v.Hydrate())

	type comment struct {
		ID      string `mapstructure:"id"`
		IssueID string `mapstructure:"issueID"`
	}
	type issue struct {
		ID       string    `mapstructure:"id"`
		Title    string    `mapstructure:"title"`
		Comments []comment `mapstructure:"comments"`
	}

	var out []issue
	r.NoError(v.ScanInto(&out))
	r.Equal([]issue{{
		ID:    "i1",
		Title: "one",
		Comments: []comment{
			{ID: "c1", IssueID: "i1"},
			{ID: "c2", IssueID: "i1"},
		},
	}}, out)
}

func TestDestroyTearsDownGraph(t *testing.T) {
	r := require.New(t)
	store := memstore.New()

	issueSrc, err := source.New("issue", map[string]types.ColumnType{
		"id": types.ColumnString,
	}, []string{"id"})
	r.NoError(err)
	r.NoError(issueSrc.Push(types.AddChange(types.NewNode(types.Row{"id": "i1"}))))
	commentSrc, err := source.New("comment", map[string]types.ColumnType{
		"id":      types.ColumnString,
		"issueID": types.ColumnString,
	}, []string{"id"})
	r.NoError(err)

	issueConn, err := issueSrc.Connect(types.Asc("id"))
	r.NoError(err)
	commentConn, err := commentSrc.Connect(types.Asc("id"))
	r.NoError(err)
	j, err := join.New(issueConn, commentConn,
		[]string{"id"}, []string{"issueID"}, "comments", store)
	r.NoError(err)

	v := view.New(j)
	r.NoError(v.Hydrate())
	r.Equal(1, store.Len())

	r.NoError(v.Destroy())
	r.Equal(0, store.Len())
	r.NoError(v.Destroy())
}
