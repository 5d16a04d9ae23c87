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

package types

import "fmt"

// ChangeType tags the variant of a Change.
type ChangeType int

// The change variants.
const (
	ChangeAdd ChangeType = iota
	ChangeRemove
	ChangeEdit
	ChangeChild
)

func (t ChangeType) String() string {
	switch t {
	case ChangeAdd:
		return "add"
	case ChangeRemove:
		return "remove"
	case ChangeEdit:
		return "edit"
	case ChangeChild:
		return "child"
	default:
		return fmt.Sprintf("ChangeType(%d)", int(t))
	}
}

// A Change is a single notification flowing downstream. Exactly one
// variant's fields are populated, selected by Type:
//
//   - add:    Node
//   - remove: Node
//   - edit:   OldRow, Row (same primary key, no node)
//   - child:  ChildRow (the parent row), RelationshipName, Child
//
// A child change wraps a change to one relationship of a parent row
// that is already present in the operator's output; it nests through
// Child for deeper relationships.
type Change struct {
	Type ChangeType

	// Add, Remove.
	Node *Node

	// Edit.
	OldRow Row
	Row    Row

	// Child.
	ChildRow         Row
	RelationshipName string
	Child            *Change
}

// AddChange wraps a node in an add change.
func AddChange(node *Node) Change {
	return Change{Type: ChangeAdd, Node: node}
}

// RemoveChange wraps a node in a remove change.
func RemoveChange(node *Node) Change {
	return Change{Type: ChangeRemove, Node: node}
}

// EditChange describes a non-key update of a row.
func EditChange(oldRow, row Row) Change {
	return Change{Type: ChangeEdit, OldRow: oldRow, Row: row}
}

// ChildChange wraps an inner change to the named relationship of the
// given parent row.
func ChildChange(parentRow Row, relationship string, inner Change) Change {
	return Change{
		Type:             ChangeChild,
		ChildRow:         parentRow,
		RelationshipName: relationship,
		Child:            &inner,
	}
}

// TargetRow returns the row the change applies to: the node's row for
// add/remove, the new row for edit, and the parent row for child.
func (c *Change) TargetRow() Row {
	switch c.Type {
	case ChangeAdd, ChangeRemove:
		return c.Node.Row
	case ChangeEdit:
		return c.Row
	case ChangeChild:
		return c.ChildRow
	default:
		return nil
	}
}

func (c Change) String() string {
	switch c.Type {
	case ChangeEdit:
		return fmt.Sprintf("edit{%v -> %v}", c.OldRow, c.Row)
	case ChangeChild:
		return fmt.Sprintf("child{%v, %s, %s}", c.ChildRow, c.RelationshipName, c.Child)
	default:
		return fmt.Sprintf("%s{%v}", c.Type, c.Node.Row)
	}
}
