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

// Package keycode encodes composite storage keys. Every component is
// a JSON-encoded tuple of normalized scalars, which gives
// byte-for-byte equality for equal tuples and makes prefix scans line
// up with tuple prefixes.
package keycode

import (
	"strings"

	"github.com/deltaview/deltaview/internal/util/rowval"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Separator joins key components.
const Separator = "/"

// EncodeValues renders a tuple of values as a JSON array. Undefined
// values are normalized to null first so that equal tuples encode to
// equal bytes.
func EncodeValues(values []rowval.Value) (string, error) {
	norm := make([]rowval.Value, len(values))
	for i, v := range values {
		norm[i] = rowval.Normalize(v)
	}
	buf, err := json.Marshal(norm)
	if err != nil {
		return "", errors.Wrap(err, "encoding key tuple")
	}
	return string(buf), nil
}

// DecodeValues is the inverse of EncodeValues.
func DecodeValues(encoded string) ([]rowval.Value, error) {
	var ret []rowval.Value
	if err := json.Unmarshal([]byte(encoded), &ret); err != nil {
		return nil, errors.Wrapf(err, "decoding key tuple %q", encoded)
	}
	return ret, nil
}

// Join assembles a storage key from its components.
func Join(parts ...string) string {
	return strings.Join(parts, Separator)
}

// Prefix assembles a scan prefix: the joined components plus a
// trailing separator, so the scan cannot match a sibling component
// that merely shares leading bytes.
func Prefix(parts ...string) string {
	return Join(parts...) + Separator
}
