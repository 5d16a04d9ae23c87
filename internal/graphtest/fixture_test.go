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

package graphtest

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewFixture(t *testing.T) {
	r := require.New(t)
	fixture, err := NewFixture()
	r.NoError(err)
	r.NotNil(fixture.Store)
	r.Equal(log.WarnLevel, fixture.Logger.GetLevel())
	r.True(fixture.StoreEmpty())

	// Operator namespaces within the fixture store are disjoint.
	a := fixture.OpStorage()
	b := fixture.OpStorage()
	r.NoError(a.Set("k", 1))
	_, ok, err := b.Get("k")
	r.NoError(err)
	r.False(ok)
	r.False(fixture.StoreEmpty())
}
