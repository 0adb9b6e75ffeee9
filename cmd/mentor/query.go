// Copyright 2025 Mentor Authors
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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/retrieval"
)

// QueryCmd runs one retrieval query from the command line, the same
// path the retrieve_* tools take.
type QueryCmd struct {
	Query      string `arg:"" help:"Question or keywords (Vietnamese)."`
	Collection string `help:"Query one collection instead of routing (e.g. regulation)."`
	JSON       bool   `help:"Print structured JSON instead of text."`
}

func (c *QueryCmd) Run(cli *CLI) error {
	ctx, stop := signalContext(context.Background())
	defer stop()

	cfg, _, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}

	comps := newComponents(cfg)
	defer comps.Close()

	engine, err := comps.buildEngine()
	if err != nil {
		return err
	}

	query := retrieval.ExpandAcronyms(strings.TrimSpace(c.Query))

	collections := []string{c.Collection}
	if c.Collection == "" {
		router, err := comps.buildRouter()
		if err != nil {
			return err
		}
		collections = router.Route(ctx, query).Collections
	}

	if c.JSON {
		return printJSONResults(ctx, comps, query, collections)
	}

	var blocks []string
	for _, collection := range collections {
		res, err := engine.Retrieve(ctx, query, collection)
		if err != nil {
			return fmt.Errorf("retrieval failed for %s: %w", collection, err)
		}
		blocks = append(blocks, retrieval.FormatText(query, res))
	}
	fmt.Println(strings.Join(blocks, "\n\n"))
	return nil
}

func printJSONResults(ctx context.Context, comps *components, query string, collections []string) error {
	engine, err := comps.buildEngine()
	if err != nil {
		return err
	}

	out := make(map[string]any, len(collections))
	for _, collection := range collections {
		res, err := engine.Retrieve(ctx, query, collection)
		if err != nil {
			return fmt.Errorf("retrieval failed for %s: %w", collection, err)
		}
		switch collection {
		case config.CategoryRegulation:
			out[collection] = retrieval.FormatRegulationResult(query, res)
		case config.CategoryCurriculum:
			out[collection] = retrieval.FormatCurriculumResult(query, res)
		default:
			out[collection] = res
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// RouteCmd shows which collections the router would consult for a
// query, without retrieving anything.
type RouteCmd struct {
	Query string `arg:"" help:"Question to classify."`
}

func (c *RouteCmd) Run(cli *CLI) error {
	ctx, stop := signalContext(context.Background())
	defer stop()

	cfg, _, err := loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}

	comps := newComponents(cfg)
	defer comps.Close()

	router, err := comps.buildRouter()
	if err != nil {
		return err
	}

	route := router.Route(ctx, retrieval.ExpandAcronyms(strings.TrimSpace(c.Query)))
	fmt.Printf("Strategy:    %s\n", route.Strategy)
	fmt.Printf("Collections: %s\n", strings.Join(route.Collections, ", "))
	if route.Reasoning != "" {
		fmt.Printf("Reasoning:   %s\n", route.Reasoning)
	}
	return nil
}
