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

// Package metrics contains common prometheus support code shared by
// the per-operator metrics files.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// TableLabels are the labels to use for operator metrics that are
// specific to one table's stream.
var TableLabels = []string{"table"}

// LatencyBuckets covers the expected range of in-graph call
// durations: pushes are typically sub-millisecond, hydrating fetches
// can run much longer.
var LatencyBuckets = []float64{
	.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5, 10,
}

// TableValues constructs the label values to associate with
// TableLabels.
func TableValues(table string) prometheus.Labels {
	return prometheus.Labels{"table": table}
}
