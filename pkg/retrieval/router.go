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
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/llm"
)

// Route is a routing decision: which collections a query should be
// retrieved from and why.
type Route struct {
	Collections []string
	Strategy    config.RoutingStrategy
	Reasoning   string
}

// Router decides which collections serve a query. The query_all
// strategy consults every collection; llm_classification asks an LLM
// and falls back to query_all whenever the answer is missing or names
// no known collection. Routing therefore never fails, it only narrows.
type Router struct {
	cfg       *config.RouterConfig
	available []string
	completer llm.Completer
}

// collectionHints describes the known collections to the classifier.
// Unknown collection names are listed bare.
var collectionHints = map[string]string{
	config.CategoryRegulation: "quy chế, quy định học vụ, học phí, điểm số, tốt nghiệp, kỷ luật, chính sách của trường",
	config.CategoryCurriculum: "chương trình đào tạo, ngành học, môn học, tín chỉ, kế hoạch học tập theo ngành",
}

// NewRouter creates a query router. The completer may be nil when the
// strategy is query_all.
func NewRouter(cfg *config.RouterConfig, available []string, completer llm.Completer) *Router {
	return &Router{cfg: cfg, available: available, completer: completer}
}

// Collections returns the routable collection set: the configured
// subset when present, all available collections otherwise.
func (r *Router) Collections() []string {
	if len(r.cfg.Collections) > 0 {
		return r.cfg.Collections
	}
	return r.available
}

// Route classifies a query onto collections.
func (r *Router) Route(ctx context.Context, query string) Route {
	collections := r.Collections()

	if r.cfg.Strategy != config.RoutingLLMClassification || r.completer == nil {
		return Route{
			Collections: collections,
			Strategy:    config.RoutingQueryAll,
			Reasoning:   "every collection is consulted",
		}
	}

	matched, answer, err := r.classify(ctx, query, collections)
	if err != nil {
		slog.Warn("Route classification failed, querying all collections",
			"query", query, "error", err)
		return Route{
			Collections: collections,
			Strategy:    config.RoutingLLMClassification,
			Reasoning:   fmt.Sprintf("classification failed (%v), querying all", err),
		}
	}

	return Route{
		Collections: matched,
		Strategy:    config.RoutingLLMClassification,
		Reasoning:   answer,
	}
}

// classify asks the LLM which collections apply and parses the answer
// by collection-name matching. Returns ClassificationError when the
// answer names nothing known.
func (r *Router) classify(ctx context.Context, query string, collections []string) ([]string, string, error) {
	temperature := 0.0
	resp, err := r.completer.Complete(ctx, llm.Request{
		System:      routerSystemPrompt,
		Prompt:      buildRouterPrompt(query, collections),
		Temperature: &temperature,
		MaxTokens:   100,
	})
	if err != nil {
		return nil, "", fmt.Errorf("classification call: %w", err)
	}

	answer := strings.TrimSpace(resp.Text)
	lower := strings.ToLower(answer)

	if strings.Contains(lower, "all") || strings.Contains(lower, "tất cả") {
		return collections, answer, nil
	}

	var matched []string
	for _, c := range collections {
		if strings.Contains(lower, strings.ToLower(c)) {
			matched = append(matched, c)
		}
	}
	if len(matched) == 0 {
		return nil, answer, &ClassificationError{Answer: answer}
	}
	return matched, answer, nil
}

const routerSystemPrompt = `Bạn là bộ định tuyến truy vấn cho trợ lý sinh viên đại học.
Nhiệm vụ: chọn những bộ sưu tập tài liệu phù hợp để trả lời câu hỏi.

Quy tắc:
- Câu hỏi về một ngành học, môn học hoặc chương trình đào tạo cụ thể thuộc về curriculum.
- Câu hỏi về quy chế, học phí, điểm, tốt nghiệp hoặc chính sách thuộc về regulation.
- Tên trường đại học KHÔNG phải là tên ngành học.
- Nếu không chắc chắn, trả lời "all".

Chỉ trả lời bằng tên bộ sưu tập (phân tách bằng dấu phẩy) hoặc "all". Không giải thích.`

func buildRouterPrompt(query string, collections []string) string {
	var b strings.Builder
	b.WriteString("Các bộ sưu tập:\n")
	for _, c := range collections {
		if hint, ok := collectionHints[c]; ok {
			fmt.Fprintf(&b, "- %s: %s\n", c, hint)
		} else {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}
	fmt.Fprintf(&b, "\nCâu hỏi: %s\n\nTrả lời:", query)
	return b.String()
}
