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

	"github.com/mentorvn/mentor/pkg/llm"
)

// HyDE implements hypothetical document embeddings: instead of
// embedding the query directly, a small model writes a passage that
// would answer it, and that passage is embedded. Question embeddings
// sit far from statement embeddings; the hypothetical passage lands
// much closer to the real regulation text.
//
// Paper: "Precise Zero-Shot Dense Retrieval without Relevance Labels"
// https://arxiv.org/abs/2212.10496
type HyDE struct {
	completer llm.Completer
}

// NewHyDE creates a HyDE expander on the given completer.
func NewHyDE(completer llm.Completer) *HyDE {
	return &HyDE{completer: completer}
}

// GenerateHypotheticalDocument writes a short passage answering the
// query in the register of a Vietnamese university document.
func (h *HyDE) GenerateHypotheticalDocument(ctx context.Context, query string) (string, error) {
	if h.completer == nil {
		return "", fmt.Errorf("completer is required for HyDE")
	}

	prompt := fmt.Sprintf(`Write a hypothetical excerpt from a Vietnamese university regulation or curriculum document that would directly answer this student question: "%s"

The excerpt should:
- Be 100-200 words, written in Vietnamese
- Use the formal administrative register of such documents
- Directly address the core of the question
- Not mention that it is hypothetical

Excerpt:`, sanitizePromptInput(query))

	temp := 0.7
	resp, err := h.completer.Complete(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: &temp,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("generate hypothetical document: %w", err)
	}

	result := strings.TrimSpace(resp.Text)
	if result == "" {
		return "", fmt.Errorf("model returned an empty hypothetical document")
	}

	slog.Debug("Generated hypothetical document",
		"query", query,
		"hypothetical_length", len(result))

	return result, nil
}

// sanitizePromptInput strips role markers and delimiter runs so a user
// query cannot restructure the prompt it is embedded in.
func sanitizePromptInput(input string) string {
	sanitized := input
	for _, marker := range []string{
		"SYSTEM:", "System:", "system:",
		"ASSISTANT:", "Assistant:", "assistant:",
		"USER:", "User:", "user:",
	} {
		sanitized = strings.ReplaceAll(sanitized, marker, "")
	}
	for _, delim := range []string{"---", "===", "***", "```"} {
		sanitized = strings.ReplaceAll(sanitized, delim, "")
	}
	return strings.TrimSpace(sanitized)
}
