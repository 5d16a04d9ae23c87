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

package exists

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sizesComputed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exists_sizes_computed_total",
		Help: "the number of relationship sizes counted by enumeration",
	}, []string{"relationship"})
	sizesReused = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exists_sizes_reused_total",
		Help: "the number of relationship sizes reused across parents sharing a join key",
	}, []string{"relationship"})
	sizeUnderflows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exists_size_underflows_total",
		Help: "the number of size decrements clamped at zero",
	}, []string{"relationship"})
)
