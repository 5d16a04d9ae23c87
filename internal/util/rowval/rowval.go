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

// Package rowval contains the value-level machinery shared by every
// operator: the scalar value union, the undefined marker, value
// normalization, and the total ordering used by sorted row sets.
package rowval

import (
	"github.com/pkg/errors"
)

// A Value is a JSON-like scalar: string, float64, bool, nil, or the
// explicit Undefined marker. Integer-typed Go values are accepted on
// input and normalized to float64.
type Value = any

type undefinedType struct{}

// Undefined marks a column that is absent from a row, as opposed to a
// column that is present with a null value. The two are distinct in
// row payloads but compare as equal.
var Undefined Value = undefinedType{}

// IsUndefined returns true if v is the Undefined marker.
func IsUndefined(v Value) bool {
	_, ok := v.(undefinedType)
	return ok
}

// Normalize maps Undefined to nil and widens integer values to
// float64 so that values originating from JSON and values constructed
// in code compare consistently.
func Normalize(v Value) Value {
	switch t := v.(type) {
	case undefinedType:
		return nil
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// ErrTypeMismatch is returned when two values of incompatible types
// are compared in an ordering column.
var ErrTypeMismatch = errors.New("value type mismatch")

// Compare returns the relative order of two normalized values. Null
// (and Undefined) sorts before every other value. Comparing a string
// against a number, or a bool against either, is a fatal protocol
// error and returns ErrTypeMismatch.
func Compare(a, b Value) (int, error) {
	a = Normalize(a)
	b = Normalize(b)

	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, nil
		case a == nil:
			return -1, nil
		default:
			return 1, nil
		}
	}

	switch at := a.(type) {
	case bool:
		bt, ok := b.(bool)
		if !ok {
			return 0, mismatch(a, b)
		}
		switch {
		case at == bt:
			return 0, nil
		case !at:
			return -1, nil
		default:
			return 1, nil
		}
	case float64:
		bt, ok := b.(float64)
		if !ok {
			return 0, mismatch(a, b)
		}
		switch {
		case at < bt:
			return -1, nil
		case at > bt:
			return 1, nil
		default:
			return 0, nil
		}
	case string:
		bt, ok := b.(string)
		if !ok {
			return 0, mismatch(a, b)
		}
		switch {
		case at < bt:
			return -1, nil
		case at > bt:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, errors.Wrapf(ErrTypeMismatch, "unsupported value type %T", a)
	}
}

func mismatch(a, b Value) error {
	return errors.Wrapf(ErrTypeMismatch, "cannot compare %T against %T", a, b)
}

// Equal reports whether two normalized values are equal. Values of
// incompatible types are unequal rather than an error; equality is
// used for constraint checks, where a mismatched type simply fails to
// match.
func Equal(a, b Value) bool {
	a = Normalize(a)
	b = Normalize(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// A Row maps column names to scalar values. Rows are immutable once
// they have entered a source; operators share them freely.
type Row map[string]Value

// Get returns the normalized value of a column. Absent columns read
// as nil, matching the Undefined-to-null normalization.
func (r Row) Get(column string) Value {
	v, ok := r[column]
	if !ok {
		return nil
	}
	return Normalize(v)
}

// RowsEqual reports deep equality of two rows under normalization.
func RowsEqual(a, b Row) bool {
	for k := range a {
		if !Equal(a.Get(k), b.Get(k)) {
			return false
		}
	}
	for k := range b {
		if _, ok := a[k]; !ok && b.Get(k) != nil {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy of the row. Scalar values need no deep
// copy.
func (r Row) Clone() Row {
	ret := make(Row, len(r))
	for k, v := range r {
		ret[k] = v
	}
	return ret
}
