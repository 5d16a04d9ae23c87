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

package source

import (
	"github.com/deltaview/deltaview/internal/util/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_pushes_total",
		Help: "the number of changes pushed into this source",
	}, []string{"table", "type"})
	pushDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "source_push_duration_seconds",
		Help:    "the length of time it took to propagate a change to all connections",
		Buckets: metrics.LatencyBuckets,
	}, metrics.TableLabels)
	connectionsActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "source_connections_active",
		Help: "the number of live connections on this source",
	}, []string{"table"})
)
