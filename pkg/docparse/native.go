package docparse

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// NativeParser extracts document text in-process using format-specific
// libraries. Zero cost, suitable for born-digital documents; scanned PDFs
// need the remote parser.
type NativeParser struct {
	formats []nativeFormat
}

// nativeFormat is the internal interface for individual format handlers.
type nativeFormat interface {
	CanParse(path string) bool
	Parse(ctx context.Context, path string) (*Result, error)
	Extensions() []string
}

// NewNativeParser creates a native parser with all built-in format handlers.
func NewNativeParser() *NativeParser {
	return &NativeParser{
		formats: []nativeFormat{
			&pdfFormat{},
			&docxFormat{},
			&xlsxFormat{},
			&textFormat{},
		},
	}
}

// Parse finds the matching format handler and extracts content.
func (p *NativeParser) Parse(ctx context.Context, path string) (*Result, error) {
	for _, f := range p.formats {
		if f.CanParse(path) {
			return f.Parse(ctx, path)
		}
	}
	return nil, fmt.Errorf("no native parser available for extension %q", filepath.Ext(path))
}

// CanParse reports whether any format handler covers the file.
func (p *NativeParser) CanParse(path string) bool {
	for _, f := range p.formats {
		if f.CanParse(path) {
			return true
		}
	}
	return false
}

// Name returns the parser name.
func (p *NativeParser) Name() string {
	return "native"
}

// SupportedExtensions returns all extensions the native parser handles.
func (p *NativeParser) SupportedExtensions() []string {
	seen := make(map[string]bool)
	for _, f := range p.formats {
		for _, ext := range f.Extensions() {
			seen[ext] = true
		}
	}
	result := make([]string, 0, len(seen))
	for ext := range seen {
		result = append(result, ext)
	}
	return result
}

var _ DocumentParser = (*NativeParser)(nil)

// =============================================================================
// PDF
// =============================================================================

type pdfFormat struct{}

func (p *pdfFormat) CanParse(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".pdf"
}

func (p *pdfFormat) Extensions() []string {
	return []string{".pdf"}
}

func (p *pdfFormat) Parse(ctx context.Context, path string) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	var contentParts []string
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			contentParts = append(contentParts, fmt.Sprintf("--- Page %d (extraction failed: %v) ---", pageNum, err))
			continue
		}

		if strings.TrimSpace(text) != "" {
			contentParts = append(contentParts, fmt.Sprintf("--- Page %d ---\n%s", pageNum, text))
		}
	}

	content := strings.Join(contentParts, "\n\n")

	metadata := map[string]string{
		"type":  "PDF Document",
		"title": filepath.Base(path),
		"pages": fmt.Sprintf("%d", totalPages),
	}
	metadata["word_count"] = fmt.Sprintf("%d", len(strings.Fields(content)))
	if fileInfo, err := os.Stat(path); err == nil {
		metadata["file_size"] = fmt.Sprintf("%d", fileInfo.Size())
		metadata["file_modified"] = fileInfo.ModTime().Format(time.RFC3339)
	}

	return &Result{
		Markdown: content,
		Pages:    totalPages,
		Metadata: metadata,
	}, nil
}

// =============================================================================
// DOCX
// =============================================================================

type docxFormat struct{}

func (p *docxFormat) CanParse(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".docx"
}

func (p *docxFormat) Extensions() []string {
	return []string{".docx"}
}

func (p *docxFormat) Parse(ctx context.Context, path string) (*Result, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Word document: %w", err)
	}
	defer doc.Close()

	content := docxText(doc.Editable().GetContent())

	metadata := map[string]string{
		"type":       "Word Document",
		"title":      filepath.Base(path),
		"paragraphs": fmt.Sprintf("%d", len(strings.Split(content, "\n\n"))),
	}

	return &Result{
		Markdown: content,
		Metadata: metadata,
	}, nil
}

var (
	docxParaEnd = regexp.MustCompile(`</w:p>`)
	docxBreak   = regexp.MustCompile(`<w:(?:br|cr)[^>]*/?>`)
	docxTab     = regexp.MustCompile(`<w:tab[^>]*/?>`)
	docxTag     = regexp.MustCompile(`<[^>]+>`)
	multiBlank  = regexp.MustCompile(`\n{3,}`)
)

// docxText reduces the word/document.xml body to plain text: paragraph and
// line-break elements become newlines, remaining markup is stripped, and XML
// entities are decoded.
func docxText(raw string) string {
	s := docxParaEnd.ReplaceAllString(raw, "\n\n")
	s = docxBreak.ReplaceAllString(s, "\n")
	s = docxTab.ReplaceAllString(s, "\t")
	s = docxTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = multiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// =============================================================================
// XLSX
// =============================================================================

type xlsxFormat struct{}

// xlsxMaxCells bounds cells rendered per sheet so a stray workbook cannot
// produce a megabyte of markdown.
const xlsxMaxCells = 1000

func (p *xlsxFormat) CanParse(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".xlsx"
}

func (p *xlsxFormat) Extensions() []string {
	return []string{".xlsx"}
}

// Parse renders each sheet as a markdown table, first row as the header.
// Curriculum spreadsheets arrive this way and the downstream chunker treats
// markdown tables as atomic blocks.
func (p *xlsxFormat) Parse(ctx context.Context, path string) (*Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel document: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	var contentParts []string

	for _, sheetName := range sheets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheetName)
		if err != nil {
			contentParts = append(contentParts, fmt.Sprintf("Error reading sheet %s: %v", sheetName, err))
			continue
		}
		if len(rows) == 0 {
			continue
		}

		var sheetText strings.Builder
		if len(sheets) > 1 {
			sheetText.WriteString(fmt.Sprintf("## %s\n\n", sheetName))
		}
		sheetText.WriteString(sheetToMarkdownTable(rows))

		if text := strings.TrimSpace(sheetText.String()); text != "" {
			contentParts = append(contentParts, text)
		}
	}

	content := strings.Join(contentParts, "\n\n")

	metadata := map[string]string{
		"type":   "Excel Spreadsheet",
		"title":  filepath.Base(path),
		"sheets": fmt.Sprintf("%d", len(sheets)),
	}

	return &Result{
		Markdown: content,
		Metadata: metadata,
	}, nil
}

// sheetToMarkdownTable renders rows as a markdown table. The first row
// becomes the header; short rows are padded to the header width and long
// rows are cut to it.
func sheetToMarkdownTable(rows [][]string) string {
	width := len(rows[0])
	if width == 0 {
		return ""
	}

	var b strings.Builder
	cellCount := 0
	truncated := false

	writeRow := func(row []string) {
		b.WriteString("|")
		for i := 0; i < width; i++ {
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			cell = strings.ReplaceAll(cell, "|", "\\|")
			cell = strings.ReplaceAll(cell, "\n", " ")
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[0])
	b.WriteString("|" + strings.Repeat(" --- |", width) + "\n")

	for _, row := range rows[1:] {
		if cellCount+width > xlsxMaxCells {
			truncated = true
			break
		}
		writeRow(row)
		cellCount += width
	}

	if truncated {
		b.WriteString("\n... (truncated)\n")
	}

	return b.String()
}

// =============================================================================
// Markdown / plain text
// =============================================================================

// textFormat passes through documents that are already text. Scraped pages
// land in the source directory as markdown and skip binary extraction.
type textFormat struct{}

func (p *textFormat) CanParse(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".txt"
}

func (p *textFormat) Extensions() []string {
	return []string{".md", ".txt"}
}

func (p *textFormat) Parse(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}

	kind := "Plain Text"
	if strings.ToLower(filepath.Ext(path)) == ".md" {
		kind = "Markdown"
	}

	return &Result{
		Markdown: string(data),
		Metadata: map[string]string{
			"type":  kind,
			"title": filepath.Base(path),
		},
	}, nil
}
