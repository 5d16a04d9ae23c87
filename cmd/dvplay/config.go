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

package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Config contains the user-visible configuration for replaying a
// change log through the demo graph.
type Config struct {
	Input           string
	MetricsBindAddr string
	RequireComments bool
	Storage         string
	SQLitePath      string
	Verbose         bool
}

// Bind registers flags.
func (c *Config) Bind(flags *pflag.FlagSet) {
	flags.StringVar(
		&c.Input,
		"input",
		"-",
		"a newline-delimited JSON change log; - reads stdin")
	flags.StringVar(
		&c.MetricsBindAddr,
		"metricsAddr",
		"",
		"if set, serve prometheus metrics on this network address")
	flags.BoolVar(
		&c.RequireComments,
		"requireComments",
		false,
		"keep only issues that have at least one comment")
	flags.StringVar(
		&c.Storage,
		"storage",
		"memory",
		"operator state backend: memory or sqlite")
	flags.StringVar(
		&c.SQLitePath,
		"sqlitePath",
		":memory:",
		"the SQLite DSN to use with --storage=sqlite")
	flags.BoolVar(
		&c.Verbose,
		"verbose",
		false,
		"enable trace logging")
}

// Preflight validates the configuration.
func (c *Config) Preflight() error {
	if c.Input == "" {
		return errors.New("input unset")
	}
	switch c.Storage {
	case "memory", "sqlite":
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage)
	}
	return nil
}
