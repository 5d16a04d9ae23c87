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

package fan

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/pkg/errors"
)

// fanOutDone is called by the paired FanOut once every branch has
// seen the upstream change. The accumulated branch pushes collapse
// into at most one downstream push, selected by the upstream change
// type.
func (f *FanIn) fanOutDone(upstream types.ChangeType) error {
	accum := f.accum
	f.accum = nil
	if len(accum) == 0 {
		return nil
	}
	collapseTotal.WithLabelValues(upstream.String()).Inc()
	if f.output == nil {
		return nil
	}

	byType := make(map[types.ChangeType][]types.Change, 4)
	for _, c := range accum {
		byType[c.Type] = append(byType[c.Type], c)
	}

	switch upstream {
	case types.ChangeAdd, types.ChangeRemove:
		same := byType[upstream]
		if len(same) != len(accum) {
			return errors.Wrapf(types.ErrInvariant,
				"fan-in: branch produced a foreign change for upstream %s", upstream)
		}
		return f.output.Push(mergeSameType(same))

	case types.ChangeEdit:
		if child := byType[types.ChangeChild]; len(child) > 0 {
			return errors.Wrap(types.ErrInvariant,
				"fan-in: branch produced a child change for an upstream edit")
		}
		return f.output.Push(f.collapseMixed(byType))

	case types.ChangeChild:
		if child := byType[types.ChangeChild]; len(child) > 0 {
			return f.output.Push(child[0])
		}
		return f.output.Push(f.collapseMixed(byType))

	default:
		return errors.Wrapf(types.ErrInvariant, "fan-in: unknown upstream type %v", upstream)
	}
}

// collapseMixed implements the shared add/remove/edit merge: a
// surviving edit wins; an add and a remove combine into a synthesized
// edit; otherwise the lone type is merged and passed through.
func (f *FanIn) collapseMixed(byType map[types.ChangeType][]types.Change) types.Change {
	adds := byType[types.ChangeAdd]
	removes := byType[types.ChangeRemove]
	edits := byType[types.ChangeEdit]

	switch {
	case len(edits) > 0:
		// A combined edit is preferred over an add/remove split for
		// external observability.
		return edits[0]
	case len(adds) > 0 && len(removes) > 0:
		return types.EditChange(
			mergeSameType(removes).Node.Row,
			mergeSameType(adds).Node.Row,
		)
	case len(adds) > 0:
		return mergeSameType(adds)
	default:
		return mergeSameType(removes)
	}
}

// mergeSameType merges N same-typed, same-row changes into one,
// unioning their relationship maps. Branches disagree only in child
// relationships (an intervening Exists materializes different child
// streams); when two branches bind the same relationship name, the
// later branch wins.
func mergeSameType(changes []types.Change) types.Change {
	if len(changes) == 1 {
		return changes[0]
	}
	merged := &types.Node{
		Row:           changes[0].Node.Row,
		Relationships: make(map[string]types.StreamFactory),
	}
	for _, c := range changes {
		for name, factory := range c.Node.Relationships {
			merged.Relationships[name] = factory
		}
	}
	return types.Change{Type: changes[0].Type, Node: merged}
}
