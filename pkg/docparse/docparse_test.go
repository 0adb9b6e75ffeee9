package docparse

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mentorvn/mentor/pkg/config"
)

func TestNativeParserCanParse(t *testing.T) {
	p := NewNativeParser()

	tests := []struct {
		path string
		want bool
	}{
		{"quy-che-dao-tao.pdf", true},
		{"thong-bao.DOCX", true},
		{"ctdt-khmt-2024.xlsx", true},
		{"scraped-page.md", true},
		{"notes.txt", true},
		{"archive.zip", false},
		{"image.png", false},
	}

	for _, tt := range tests {
		if got := p.CanParse(tt.path); got != tt.want {
			t.Errorf("CanParse(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestNativeParserUnsupportedExtension(t *testing.T) {
	p := NewNativeParser()

	_, err := p.Parse(context.Background(), "document.zip")
	if err == nil {
		t.Fatal("Parse() error = nil, want unsupported extension error")
	}
	if !strings.Contains(err.Error(), "no native parser") {
		t.Errorf("Parse() error = %v, want mention of missing parser", err)
	}
}

func TestTextPassthrough(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quy-che.md")
	content := "# QUY CHẾ ĐÀO TẠO\n\nĐiều 1. Phạm vi điều chỉnh và đối tượng áp dụng\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	p := NewNativeParser()
	result, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if result.Markdown != content {
		t.Errorf("Parse() markdown does not match source content")
	}
	if result.CostUSD != 0 {
		t.Errorf("native parse cost = %f, want 0", result.CostUSD)
	}
	if result.Metadata["type"] != "Markdown" {
		t.Errorf("metadata type = %q, want Markdown", result.Metadata["type"])
	}
}

func TestXLSXRendersMarkdownTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctdt.xlsx")

	f := excelize.NewFile()
	cells := map[string]any{
		"A1": "STT", "B1": "Mã HP", "C1": "Tên học phần", "D1": "TC",
		"A2": 1, "B2": "IT001", "C2": "Nhập môn lập trình", "D2": 4,
		"A3": 2, "B3": "MA003", "C3": "Đại số | Giải tích", "D3": 3,
	}
	for ref, v := range cells {
		if err := f.SetCellValue("Sheet1", ref, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	p := NewNativeParser()
	result, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	md := result.Markdown
	if !strings.Contains(md, "| STT | Mã HP | Tên học phần | TC |") {
		t.Errorf("markdown missing header row:\n%s", md)
	}
	if !strings.Contains(md, "| --- | --- | --- | --- |") {
		t.Errorf("markdown missing separator row:\n%s", md)
	}
	if !strings.Contains(md, "Nhập môn lập trình") {
		t.Errorf("markdown missing data row content:\n%s", md)
	}
	if !strings.Contains(md, `Đại số \| Giải tích`) {
		t.Errorf("pipe character not escaped in cell:\n%s", md)
	}
	if result.Metadata["sheets"] != "1" {
		t.Errorf("metadata sheets = %q, want 1", result.Metadata["sheets"])
	}
	// Single-sheet workbooks get no sheet heading.
	if strings.Contains(md, "## Sheet1") {
		t.Errorf("unexpected sheet heading for single-sheet workbook:\n%s", md)
	}
}

func TestSheetToMarkdownTablePadsShortRows(t *testing.T) {
	rows := [][]string{
		{"Mã HP", "Tên học phần", "TC"},
		{"IT001", "Nhập môn lập trình"},
	}

	table := sheetToMarkdownTable(rows)
	lines := strings.Split(strings.TrimSpace(table), "\n")
	if len(lines) != 3 {
		t.Fatalf("table has %d lines, want 3:\n%s", len(lines), table)
	}
	if got := strings.Count(lines[2], "|"); got != 4 {
		t.Errorf("padded row has %d pipes, want 4: %s", got, lines[2])
	}
}

func TestDocxText(t *testing.T) {
	raw := `<w:body><w:p><w:r><w:t>QUY CHẾ ĐÀO TẠO</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Điều 1. Phạm vi &amp; đối tượng</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Khoản 1.</w:t><w:br/><w:t>Khoản 2.</w:t></w:r></w:p></w:body>`

	got := docxText(raw)
	want := "QUY CHẾ ĐÀO TẠO\n\nĐiều 1. Phạm vi & đối tượng\n\nKhoản 1.\nKhoản 2."
	if got != want {
		t.Errorf("docxText() =\n%q\nwant\n%q", got, want)
	}
}

func TestRemoteParserParsesDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quy-che.pdf")
	if err := os.WriteFile(path, []byte("fake pdf bytes"), 0644); err != nil {
		t.Fatal(err)
	}

	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer parse-key" {
			t.Errorf("Authorization = %q, want Bearer parse-key", got)
		}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/parse":
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Errorf("FormFile() error = %v", err)
				http.Error(w, "bad upload", http.StatusBadRequest)
				return
			}
			file.Close()
			if header.Filename != "quy-che.pdf" {
				t.Errorf("uploaded filename = %q, want quy-che.pdf", header.Filename)
			}
			w.Write([]byte(`{"job_id": "job-42"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v1/parse/job-42":
			polls++
			if polls == 1 {
				w.Write([]byte(`{"status": "processing"}`))
				return
			}
			w.Write([]byte(`{"status": "completed", "markdown": "# QUY CHẾ ĐÀO TẠO\n\nĐiều 1.", "pages": 3}`))
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	parser, err := NewRemoteParser(config.ParserConfig{
		Type:            config.ParserRemote,
		RemoteURL:       server.URL,
		APIKey:          "parse-key",
		PricePerPageUSD: 0.01,
		PollInterval:    10 * time.Millisecond,
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewRemoteParser() error = %v", err)
	}

	result, err := parser.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !strings.Contains(result.Markdown, "QUY CHẾ") {
		t.Errorf("markdown = %q, want parsed content", result.Markdown)
	}
	if result.Pages != 3 {
		t.Errorf("pages = %d, want 3", result.Pages)
	}
	if math.Abs(result.CostUSD-0.03) > 1e-9 {
		t.Errorf("cost = %f, want 0.03", result.CostUSD)
	}
	if polls < 2 {
		t.Errorf("polls = %d, want at least 2 (processing then completed)", polls)
	}
}

func TestRemoteParserFailedJob(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"job_id": "job-9"}`))
			return
		}
		w.Write([]byte(`{"status": "failed", "error": "unreadable document"}`))
	}))
	defer server.Close()

	parser, err := NewRemoteParser(config.ParserConfig{
		RemoteURL:    server.URL,
		PollInterval: 10 * time.Millisecond,
		Timeout:      5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewRemoteParser() error = %v", err)
	}

	_, err = parser.Parse(context.Background(), path)
	if err == nil {
		t.Fatal("Parse() error = nil, want failure from remote job")
	}
	if !strings.Contains(err.Error(), "unreadable document") {
		t.Errorf("Parse() error = %v, want remote error message", err)
	}
}

func TestRemoteParserTimesOut(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slow.pdf")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(`{"job_id": "job-slow"}`))
			return
		}
		w.Write([]byte(`{"status": "processing"}`))
	}))
	defer server.Close()

	parser, err := NewRemoteParser(config.ParserConfig{
		RemoteURL:    server.URL,
		PollInterval: 10 * time.Millisecond,
		Timeout:      80 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRemoteParser() error = %v", err)
	}

	_, err = parser.Parse(context.Background(), path)
	if err == nil {
		t.Fatal("Parse() error = nil, want timeout")
	}
}

func TestNewParserFromConfig(t *testing.T) {
	p, err := NewParser(nil)
	if err != nil {
		t.Fatalf("NewParser(nil) error = %v", err)
	}
	if p.Name() != "native" {
		t.Errorf("default parser = %q, want native", p.Name())
	}

	_, err = NewParser(&config.ParserConfig{Type: config.ParserRemote})
	if err == nil {
		t.Error("NewParser(remote without URL) error = nil, want error")
	}

	p, err = NewParser(&config.ParserConfig{Type: config.ParserRemote, RemoteURL: "http://localhost:9000"})
	if err != nil {
		t.Fatalf("NewParser(remote) error = %v", err)
	}
	if p.Name() != "remote" {
		t.Errorf("parser = %q, want remote", p.Name())
	}

	_, err = NewParser(&config.ParserConfig{Type: "ocr"})
	if err == nil {
		t.Error("NewParser(unsupported) error = nil, want error")
	}
}
