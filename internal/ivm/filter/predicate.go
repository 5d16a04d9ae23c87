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

package filter

import (
	"github.com/deltaview/deltaview/internal/types"
	"github.com/deltaview/deltaview/internal/util/rowval"
)

// Equals matches rows whose column equals the given value.
func Equals(column string, value types.Value) types.Predicate {
	want := rowval.Normalize(value)
	return func(row types.Row) bool {
		return rowval.Equal(row.Get(column), want)
	}
}

// IsTrue matches rows whose boolean column is true.
func IsTrue(column string) types.Predicate {
	return Equals(column, true)
}

// And matches rows accepted by every predicate.
func And(preds ...types.Predicate) types.Predicate {
	return func(row types.Row) bool {
		for _, p := range preds {
			if !p(row) {
				return false
			}
		}
		return true
	}
}

// Or matches rows accepted by any predicate. This is the row-level
// form; disjunctions over differently-shaped branches use FanOut and
// FanIn instead.
func Or(preds ...types.Predicate) types.Predicate {
	return func(row types.Row) bool {
		for _, p := range preds {
			if p(row) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(pred types.Predicate) types.Predicate {
	return func(row types.Row) bool {
		return !pred(row)
	}
}
