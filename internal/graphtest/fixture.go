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
	"github.com/deltaview/deltaview/internal/storage/memstore"
	"github.com/deltaview/deltaview/internal/storage/opspace"
	"github.com/deltaview/deltaview/internal/types"
	log "github.com/sirupsen/logrus"
)

// Fixture provides the shared services a graph under test consumes.
// Construct one by calling NewFixture or by incorporating Set into a
// Wire provider set.
type Fixture struct {
	Logger *log.Logger
	Store  *memstore.Store
}

// OpStorage allocates a fresh operator namespace within the
// fixture's store.
func (f *Fixture) OpStorage() types.Storage {
	return opspace.Fresh(f.Store)
}

// StoreEmpty reports whether every operator released its state.
func (f *Fixture) StoreEmpty() bool {
	return f.Store.Len() == 0
}

// ProvideLogger is called by Wire. Tests run quiet by default.
func ProvideLogger() *log.Logger {
	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	return logger
}

// ProvideStore is called by Wire.
func ProvideStore() *memstore.Store {
	return memstore.New()
}
