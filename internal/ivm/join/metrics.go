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

package join

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	parentPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "join_parent_pushes_total",
		Help: "the number of changes received on the parent input",
	}, []string{"relationship", "type"})
	childPushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "join_child_pushes_total",
		Help: "the number of changes received on the child input",
	}, []string{"relationship", "type"})
	orphanedChildren = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "join_orphaned_child_changes_total",
		Help: "the number of child changes dropped for lack of a live parent",
	}, []string{"relationship"})
)
