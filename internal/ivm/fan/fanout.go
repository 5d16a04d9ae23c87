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

// Package fan implements the paired FanOut and FanIn operators that
// realize disjunction. FanOut duplicates one stream into N branches;
// FanIn re-merges the branches while preserving the guarantee that
// one upstream change produces at most one downstream change.
package fan

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/pkg/errors"
)

// FanOut has one input and N outputs. Every fetch, cleanup, and push
// is forwarded to all outputs. After broadcasting a push it tells the
// paired FanIn which upstream change type initiated the broadcast, so
// the FanIn can flush deterministically.
type FanOut struct {
	input   types.Input
	outputs []types.Output
	fanIn   *FanIn

	destroyCalls int
}

var _ types.Operator = (*FanOut)(nil)

// NewFanOut attaches a fan-out to its input. The fan-out owns the
// input.
func NewFanOut(input types.Input) *FanOut {
	f := &FanOut{input: input}
	input.SetOutput(f)
	return f
}

// Schema implements types.Input.
func (f *FanOut) Schema() *types.Schema { return f.input.Schema() }

// SetOutput implements types.Input. Each branch that uses the fan-out
// as its input registers here; the call order defines the branch
// order.
func (f *FanOut) SetOutput(out types.Output) {
	f.outputs = append(f.outputs, out)
}

// Fetch implements types.Input.
func (f *FanOut) Fetch(req types.FetchRequest) (types.NodeStream, error) {
	return f.input.Fetch(req)
}

// Cleanup implements types.Input.
func (f *FanOut) Cleanup(req types.FetchRequest) (types.NodeStream, error) {
	return f.input.Cleanup(req)
}

// Destroy implements types.Input. A fan-out requires one destroy call
// per registered output; the final call destroys the shared input.
func (f *FanOut) Destroy() error {
	f.destroyCalls++
	switch {
	case len(f.outputs) == 0, f.destroyCalls == len(f.outputs):
		return f.input.Destroy()
	case f.destroyCalls > len(f.outputs):
		return errors.Wrapf(types.ErrDestroyMisuse,
			"fan-out with %d outputs destroyed %d times", len(f.outputs), f.destroyCalls)
	default:
		return nil
	}
}

// Push implements types.Output.
func (f *FanOut) Push(change types.Change) error {
	for _, out := range f.outputs {
		if err := out.Push(change); err != nil {
			return err
		}
	}
	if f.fanIn != nil {
		return f.fanIn.fanOutDone(change.Type)
	}
	return nil
}
