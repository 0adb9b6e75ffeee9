// Package markdownfix repairs the header structure of converted
// documents with an LLM. The repair is strictly structural: header
// markup and blank lines may change, content words may not. Calls are
// paced to stay inside free-tier request budgets.
package markdownfix

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/llm"
	"github.com/mentorvn/mentor/pkg/ratelimit"
)

// Fixer rewrites markdown header hierarchy for one document category.
type Fixer struct {
	completer llm.Completer
}

// NewFixer wraps completer with requests-per-minute pacing from cfg and
// returns the fixer. Pacing sleeps before dispatch, so a batch run over
// many documents spreads its calls instead of burning the budget up
// front.
func NewFixer(completer llm.Completer, cfg config.FixConfig) *Fixer {
	cfg.SetDefaults()
	if cfg.RequestsPerMinute > 0 {
		limiter := ratelimit.NewLimiter(cfg.RequestsPerMinute, ratelimit.NewMemoryStore(),
			ratelimit.WithIdentifier("markdown-fix"))
		completer = llm.NewPacedCompleter(completer, limiter)
	}
	return &Fixer{completer: completer}
}

// Fix repairs the header structure of markdown for the given category
// and returns the corrected document. LLM errors propagate; an empty
// repair result is an error, never an empty document.
func (f *Fixer) Fix(ctx context.Context, markdown, category string) (string, error) {
	if strings.TrimSpace(markdown) == "" {
		return "", fmt.Errorf("markdown fix: input document is empty")
	}
	system, err := promptFor(category)
	if err != nil {
		return "", err
	}

	temp := 0.0
	resp, err := f.completer.Complete(ctx, llm.Request{
		System:      system,
		Prompt:      markdown,
		Temperature: &temp,
	})
	if err != nil {
		return "", fmt.Errorf("markdown fix: %w", err)
	}

	fixed := strings.TrimSpace(stripCodeFences(resp.Text))
	if fixed == "" {
		return "", fmt.Errorf("markdown fix: model returned an empty document")
	}
	fixed = ensureTableSpacing(fixed)

	slog.Debug("Fixed markdown structure",
		"category", category,
		"model", f.completer.GetModelName(),
		"input_chars", len(markdown),
		"output_chars", len(fixed))
	return fixed, nil
}
