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

package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// CategoryRegulation and CategoryCurriculum are the two document
// categories processed out of the box. Additional categories can be
// declared in the config; each maps to one vector collection.
const (
	CategoryRegulation = "regulation"
	CategoryCurriculum = "curriculum"
)

// PipelineConfig configures the document processing pipeline.
//
// Example:
//
//	pipeline:
//	  data_dir: ./data
//	  workers: 4
//	  categories:
//	    regulation: {}
//	    curriculum:
//	      flatten: true
type PipelineConfig struct {
	// DataDir is the root directory for pipeline data. Per-category
	// source and processed directories default to subdirectories of it.
	// Default: ./data
	DataDir string `yaml:"data_dir,omitempty"`

	// Categories maps category name to its directory layout.
	// Default: regulation and curriculum.
	Categories map[string]*CategoryConfig `yaml:"categories,omitempty"`

	// Workers bounds batch-mode concurrency (pipeline run --all).
	// Default: 4
	Workers int `yaml:"workers,omitempty"`

	// SkipFailures lets batch runs continue past failed documents.
	SkipFailures bool `yaml:"skip_failures,omitempty"`

	Filter     FilterConfig     `yaml:"filter,omitempty"`
	Fix        FixConfig        `yaml:"fix,omitempty"`
	Metadata   MetadataConfig   `yaml:"metadata,omitempty"`
	Parser     ParserConfig     `yaml:"parser,omitempty"`
	EmbedIndex EmbedIndexConfig `yaml:"embed_index,omitempty"`
}

// CategoryConfig configures one document category.
type CategoryConfig struct {
	// SourceDir holds raw input files (pdf, docx, xlsx, md, txt).
	// Default: <data_dir>/<category>/source
	SourceDir string `yaml:"source_dir,omitempty"`

	// ProcessedDir holds per-document working directories with stage
	// artifacts and the .pipeline.json state sidecar.
	// Default: <data_dir>/<category>/processed
	ProcessedDir string `yaml:"processed_dir,omitempty"`

	// Flatten enables the table-flattening stage between fix and
	// metadata. Default: true for curriculum, false otherwise.
	Flatten *bool `yaml:"flatten,omitempty"`

	// Parser overrides the pipeline-level parser type for this category
	// (native or remote).
	Parser string `yaml:"parser,omitempty"`
}

// FilterConfig configures the quality filter stage.
type FilterConfig struct {
	// MinWords rejects documents with fewer words outright.
	// Default: 50
	MinWords int `yaml:"min_words,omitempty"`

	// MinQualityScore rejects documents scoring below it on the blended
	// word/paragraph/density score. Default: 0.5
	MinQualityScore float64 `yaml:"min_quality_score,omitempty"`

	// MaxLinkRatio rejects documents whose share of link-only lines
	// exceeds it. Default: 0.7
	MaxLinkRatio float64 `yaml:"max_link_ratio,omitempty"`

	// ErrorMarkers are substrings that mark a scraped error page.
	ErrorMarkers []string `yaml:"error_markers,omitempty"`
}

// FixConfig configures the LLM-backed markdown repair stage.
type FixConfig struct {
	// LLM names the entry in the llms map used for repair.
	// Default: "default"
	LLM string `yaml:"llm,omitempty"`

	// RequestsPerMinute paces calls for free-tier API protection.
	// Zero disables pacing. Default: 15
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty"`
}

// MetadataConfig configures the metadata generation stage.
type MetadataConfig struct {
	// CodesFile persists the regulation-code lookup table.
	// Default: <data_dir>/regulation_codes.json
	CodesFile string `yaml:"codes_file,omitempty"`

	// LLM names the entry in the llms map used for extraction.
	// Default: "default"
	LLM string `yaml:"llm,omitempty"`

	// RequestsPerMinute paces extraction calls for free-tier API
	// protection. Zero disables pacing. Default: 15
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty"`
}

// ParserType selects the parse-stage implementation.
type ParserType string

const (
	ParserNative ParserType = "native"
	ParserRemote ParserType = "remote"
)

// ParserConfig configures the parse stage.
type ParserConfig struct {
	// Type selects native (zero-cost, in-process) or remote (external
	// high-quality service) parsing. Default: native
	Type ParserType `yaml:"type,omitempty"`

	// RemoteURL is the base URL of the remote parsing service.
	// Required when type is remote.
	RemoteURL string `yaml:"remote_url,omitempty"`

	// APIKey authenticates against the remote parsing service.
	APIKey string `yaml:"api_key,omitempty"`

	// PricePerPageUSD is the remote service's per-page price used for
	// stage cost accounting.
	PricePerPageUSD float64 `yaml:"price_per_page_usd,omitempty"`

	// PollInterval is the job-status polling cadence for remote parses.
	// Default: 2s
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`

	// Timeout bounds a whole remote parse (upload to final poll).
	// Default: 10m
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// EmbedIndexConfig configures the embed-and-index stage.
type EmbedIndexConfig struct {
	// Embedder names the entry in the embedders map.
	// Default: "default"
	Embedder string `yaml:"embedder,omitempty"`

	// BatchSize bounds how many chunks are embedded per provider call.
	// Default: 64
	BatchSize int `yaml:"batch_size,omitempty"`
}

// SetDefaults applies default values to PipelineConfig.
func (c *PipelineConfig) SetDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Workers == 0 {
		c.Workers = 4
	}

	if c.Categories == nil {
		c.Categories = make(map[string]*CategoryConfig)
	}
	if len(c.Categories) == 0 {
		c.Categories[CategoryRegulation] = &CategoryConfig{}
		c.Categories[CategoryCurriculum] = &CategoryConfig{}
	}
	for name, cat := range c.Categories {
		if cat == nil {
			cat = &CategoryConfig{}
			c.Categories[name] = cat
		}
		if cat.SourceDir == "" {
			cat.SourceDir = filepath.Join(c.DataDir, name, "source")
		}
		if cat.ProcessedDir == "" {
			cat.ProcessedDir = filepath.Join(c.DataDir, name, "processed")
		}
		if cat.Flatten == nil {
			cat.Flatten = BoolPtr(name == CategoryCurriculum)
		}
	}

	c.Filter.SetDefaults()
	c.Fix.SetDefaults()
	if c.Metadata.CodesFile == "" {
		c.Metadata.CodesFile = filepath.Join(c.DataDir, "regulation_codes.json")
	}
	c.Metadata.SetDefaults()
	c.Parser.SetDefaults()
	c.EmbedIndex.SetDefaults()
}

// SetDefaults applies default values to FilterConfig.
func (c *FilterConfig) SetDefaults() {
	if c.MinWords == 0 {
		c.MinWords = 50
	}
	if c.MinQualityScore == 0 {
		c.MinQualityScore = 0.5
	}
	if c.MaxLinkRatio == 0 {
		c.MaxLinkRatio = 0.7
	}
	if len(c.ErrorMarkers) == 0 {
		c.ErrorMarkers = []string{"404", "not found", "Không tìm thấy"}
	}
}

// SetDefaults applies default values to FixConfig.
func (c *FixConfig) SetDefaults() {
	if c.LLM == "" {
		c.LLM = DefaultProviderName
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 15
	}
}

// SetDefaults applies default values to MetadataConfig.
func (c *MetadataConfig) SetDefaults() {
	if c.LLM == "" {
		c.LLM = DefaultProviderName
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 15
	}
}

// SetDefaults applies default values to ParserConfig.
func (c *ParserConfig) SetDefaults() {
	if c.Type == "" {
		c.Type = ParserNative
	}
	if c.PollInterval == 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Minute
	}
}

// SetDefaults applies default values to EmbedIndexConfig.
func (c *EmbedIndexConfig) SetDefaults() {
	if c.Embedder == "" {
		c.Embedder = DefaultProviderName
	}
	if c.BatchSize == 0 {
		c.BatchSize = 64
	}
}

// Validate checks the pipeline configuration.
func (c *PipelineConfig) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for name, cat := range c.Categories {
		if cat == nil {
			continue
		}
		if cat.SourceDir == "" {
			return fmt.Errorf("category '%s': source_dir is required", name)
		}
		if cat.ProcessedDir == "" {
			return fmt.Errorf("category '%s': processed_dir is required", name)
		}
		if cat.Parser != "" && cat.Parser != string(ParserNative) && cat.Parser != string(ParserRemote) {
			return fmt.Errorf("category '%s': invalid parser %q (valid: native, remote)", name, cat.Parser)
		}
	}

	if err := c.Filter.Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if c.Fix.RequestsPerMinute < 0 {
		return fmt.Errorf("fix: requests_per_minute cannot be negative")
	}
	if c.Metadata.RequestsPerMinute < 0 {
		return fmt.Errorf("metadata: requests_per_minute cannot be negative")
	}
	if err := c.Parser.Validate(); err != nil {
		return fmt.Errorf("parser: %w", err)
	}
	if c.EmbedIndex.BatchSize < 1 {
		return fmt.Errorf("embed_index: batch_size must be at least 1")
	}
	return nil
}

// Validate checks the filter configuration.
func (c *FilterConfig) Validate() error {
	if c.MinWords < 0 {
		return fmt.Errorf("min_words cannot be negative")
	}
	if c.MinQualityScore < 0 || c.MinQualityScore > 1 {
		return fmt.Errorf("min_quality_score must be between 0 and 1, got %f", c.MinQualityScore)
	}
	if c.MaxLinkRatio < 0 || c.MaxLinkRatio > 1 {
		return fmt.Errorf("max_link_ratio must be between 0 and 1, got %f", c.MaxLinkRatio)
	}
	return nil
}

// Validate checks the parser configuration.
func (c *ParserConfig) Validate() error {
	switch c.Type {
	case ParserNative, ParserRemote:
	default:
		return fmt.Errorf("invalid parser type %q (valid: native, remote)", c.Type)
	}
	if c.Type == ParserRemote && c.RemoteURL == "" {
		return fmt.Errorf("remote_url is required for the remote parser")
	}
	if c.PricePerPageUSD < 0 {
		return fmt.Errorf("price_per_page_usd cannot be negative")
	}
	return nil
}

// FlattenEnabled reports whether the flatten stage runs for this category.
func (c *CategoryConfig) FlattenEnabled() bool {
	return BoolValue(c.Flatten, false)
}
