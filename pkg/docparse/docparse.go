// Package docparse turns source documents (PDF, DOCX, XLSX, markdown) into
// markdown text for the processing pipeline. Two implementations exist: the
// native parser extracts in-process at zero cost, and the remote parser
// uploads to an external parsing service that bills per page.
package docparse

import (
	"context"
	"fmt"

	"github.com/mentorvn/mentor/pkg/config"
)

// Result is the outcome of parsing one document.
type Result struct {
	// Markdown is the extracted document text.
	Markdown string

	// Pages is the source page count when the format has pages.
	Pages int

	// CostUSD is the monetary cost of this parse. Zero for native parsing.
	CostUSD float64

	// Metadata carries format-specific details (title, page/sheet counts).
	Metadata map[string]string
}

// DocumentParser extracts markdown from a source document.
type DocumentParser interface {
	// Parse reads the document at path and returns its markdown rendition.
	Parse(ctx context.Context, path string) (*Result, error)

	// CanParse reports whether the parser handles this file type.
	CanParse(path string) bool

	// Name returns the parser name.
	Name() string
}

// NewParser creates a document parser from configuration.
func NewParser(cfg *config.ParserConfig) (DocumentParser, error) {
	if cfg == nil {
		return NewNativeParser(), nil
	}

	switch cfg.Type {
	case config.ParserNative, "":
		return NewNativeParser(), nil
	case config.ParserRemote:
		return NewRemoteParser(*cfg)
	default:
		return nil, fmt.Errorf("unsupported parser type: %s", cfg.Type)
	}
}
