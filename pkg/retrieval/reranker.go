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

package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/httpclient"
)

// Reranker scores candidate texts against a query using a remote
// cross-encoder service. The wire protocol is a single POST:
//
//	{"query": "...", "texts": ["...", ...], "normalize": true}
//
// answered with one score per text, in input order:
//
//	{"scores": [0.91, 0.12, ...]}
//
// Cross-encoder inference on CPU is slow for long candidate lists, so
// the default timeout is generous (120s). Failures are classified as
// RerankError; the engine treats every kind as a fallback signal.
type Reranker struct {
	url     string
	timeout time.Duration
	client  *httpclient.Client
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	Normalize bool     `json:"normalize"`
}

type rerankResponse struct {
	Scores []float64 `json:"scores"`
}

// NewReranker creates a reranker client from configuration. Returns
// nil when no URL is configured; a nil Reranker means the engine keeps
// merged raw order.
func NewReranker(cfg *config.RerankerConfig) *Reranker {
	if cfg == nil || !cfg.IsEnabled() {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	// No HTTP retries: the engine falls back to raw order on any rerank
	// failure, and retrying a slow cross-encoder only doubles latency.
	return &Reranker{
		url:     cfg.URL,
		timeout: timeout,
		client: httpclient.New(
			httpclient.WithTimeout(timeout),
			httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy {
				return httpclient.NoRetry
			}),
		),
	}
}

// Score returns one relevance score per text, in input order. Scores
// are normalized to [0, 1] by the service (normalize: true).
func (r *Reranker) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{Query: query, Texts: texts, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil && resp == nil {
		return nil, classifyRerankTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, newRerankRemoteError(
			fmt.Sprintf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), nil)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, newRerankInvalidResponseError(fmt.Sprintf("decode response: %v", err))
	}
	if len(parsed.Scores) != len(texts) {
		return nil, newRerankInvalidResponseError(
			fmt.Sprintf("got %d scores for %d texts", len(parsed.Scores), len(texts)))
	}
	return parsed.Scores, nil
}
