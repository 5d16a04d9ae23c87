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

// dvplay replays a change log through a demo issue/comment query
// graph and prints the materialized view. It exists to exercise the
// engine end to end from the command line:
//
//	dvplay --input changes.ndjson --requireComments
//
// Each input line is one change:
//
//	{"table":"issue","type":"add","row":{"id":"i1","title":"hello"}}
//	{"table":"issue","type":"edit","oldRow":{...},"row":{...}}
//	{"table":"comment","type":"remove","row":{"id":"c1","issueID":"i1"}}
package main

import (
	"bufio"
	"net/http"
	"os"

	"github.com/deltaview/deltaview/internal/ivm/exists"
	"github.com/deltaview/deltaview/internal/ivm/join"
	"github.com/deltaview/deltaview/internal/ivm/source"
	"github.com/deltaview/deltaview/internal/ivm/view"
	"github.com/deltaview/deltaview/internal/storage/memstore"
	"github.com/deltaview/deltaview/internal/storage/opspace"
	"github.com/deltaview/deltaview/internal/storage/sqlitestore"
	"github.com/deltaview/deltaview/internal/types"
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

func main() {
	cfg := &Config{}
	cfg.Bind(pflag.CommandLine)
	pflag.Parse()
	if err := cfg.Preflight(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if cfg.Verbose {
		log.SetLevel(log.TraceLevel)
	}
	if err := run(cfg); err != nil {
		log.WithError(err).Fatal("replay failed")
	}
}

// changeLine is the wire form of one input line.
type changeLine struct {
	Table  string         `json:"table"`
	Type   string         `json:"type"`
	Row    map[string]any `json:"row"`
	OldRow map[string]any `json:"oldRow"`
}

func run(cfg *Config) error {
	storage, cancel, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer cancel()

	if cfg.MetricsBindAddr != "" {
		go func() {
			log.WithField("addr", cfg.MetricsBindAddr).Info("serving metrics")
			if err := http.ListenAndServe(cfg.MetricsBindAddr, promhttp.Handler()); err != nil {
				log.WithError(err).Warn("metrics server stopped")
			}
		}()
	}

	issues, comments, root, err := buildGraph(cfg, storage)
	if err != nil {
		return err
	}

	v := view.New(root)
	if err := v.Hydrate(); err != nil {
		return err
	}

	in := os.Stdin
	if cfg.Input != "-" {
		f, err := os.Open(cfg.Input)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		in = f
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var parsed changeLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			return errors.Wrapf(err, "malformed change %q", line)
		}
		change, err := toChange(&parsed)
		if err != nil {
			return err
		}
		var target types.Source
		switch parsed.Table {
		case "issue":
			target = issues
		case "comment":
			target = comments
		default:
			return errors.Errorf("unknown table %q", parsed.Table)
		}
		if err := target.Push(change); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.WithStack(err)
	}

	return printView(v)
}

func openStorage(cfg *Config) (types.Storage, func(), error) {
	if cfg.Storage == "sqlite" {
		return openSQLite(cfg)
	}
	return memstore.New(), func() {}, nil
}

func openSQLite(cfg *Config) (types.Storage, func(), error) {
	store, cancel, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return store, cancel, nil
}

// buildGraph assembles issue JOIN comment, optionally filtered by
// EXISTS(comments).
func buildGraph(
	cfg *Config, storage types.Storage,
) (issues, comments types.Source, root types.Input, _ error) {
	issueSource, err := source.New("issue",
		map[string]types.ColumnType{
			"id":    types.ColumnString,
			"title": types.ColumnString,
		}, []string{"id"})
	if err != nil {
		return nil, nil, nil, err
	}
	commentSource, err := source.New("comment",
		map[string]types.ColumnType{
			"id":      types.ColumnString,
			"issueID": types.ColumnString,
			"body":    types.ColumnString,
		}, []string{"id"})
	if err != nil {
		return nil, nil, nil, err
	}

	issueConn, err := issueSource.Connect(types.Asc("id"))
	if err != nil {
		return nil, nil, nil, err
	}
	commentConn, err := commentSource.Connect(types.Asc("id"))
	if err != nil {
		return nil, nil, nil, err
	}

	joined, err := join.New(
		issueConn, commentConn,
		[]string{"id"}, []string{"issueID"},
		"comments",
		opspace.Fresh(storage))
	if err != nil {
		return nil, nil, nil, err
	}

	root = joined
	if cfg.RequireComments {
		filtered, err := exists.New(
			joined, "comments", []string{"id"}, false, opspace.Fresh(storage))
		if err != nil {
			return nil, nil, nil, err
		}
		root = filtered
	}
	return issueSource, commentSource, root, nil
}

func toChange(line *changeLine) (types.Change, error) {
	switch line.Type {
	case "add":
		return types.AddChange(types.NewNode(types.Row(line.Row))), nil
	case "remove":
		return types.RemoveChange(types.NewNode(types.Row(line.Row))), nil
	case "edit":
		if line.OldRow == nil {
			return types.Change{}, errors.New("edit requires oldRow")
		}
		return types.EditChange(types.Row(line.OldRow), types.Row(line.Row)), nil
	default:
		return types.Change{}, errors.Errorf("unknown change type %q", line.Type)
	}
}

func printView(v *view.ArrayView) error {
	type issueOut struct {
		ID       string           `mapstructure:"id" json:"id"`
		Title    string           `mapstructure:"title" json:"title"`
		Comments []map[string]any `mapstructure:"comments" json:"comments"`
	}
	var out []issueOut
	if err := v.ScanInto(&out); err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return errors.WithStack(enc.Encode(out))
}
