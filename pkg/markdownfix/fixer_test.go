package markdownfix

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/llm"
)

type fakeCompleter struct {
	reply    string
	err      error
	requests []llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.reply, OutputTokens: len(f.reply) / 4}, nil
}

func (f *fakeCompleter) GetModelName() string { return "fake-model" }

func (f *fakeCompleter) Close() error { return nil }

func TestFixer_Fix(t *testing.T) {
	fake := &fakeCompleter{reply: "```markdown\n# CHƯƠNG I\n\n## Điều 1. Phạm vi điều chỉnh\n\nNội dung điều một.\n```"}
	fixer := NewFixer(fake, config.FixConfig{})

	got, err := fixer.Fix(context.Background(), "CHƯƠNG I\nĐiều 1. Phạm vi điều chỉnh\nNội dung điều một.", CategoryRegulation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(got, "```") {
		t.Errorf("code fence survived: %q", got)
	}
	if !strings.HasPrefix(got, "# CHƯƠNG I") {
		t.Errorf("unexpected document start: %q", got)
	}

	if len(fake.requests) != 1 {
		t.Fatalf("expected 1 LLM call, got %d", len(fake.requests))
	}
	req := fake.requests[0]
	if !strings.Contains(req.System, "Điều") || !strings.Contains(req.System, "10 words") {
		t.Errorf("regulation prompt missing hierarchy or consistency rule:\n%s", req.System)
	}
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Errorf("expected temperature 0, got %v", req.Temperature)
	}
}

func TestFixer_CategoryPrompts(t *testing.T) {
	fake := &fakeCompleter{reply: "# Chương trình đào tạo"}
	fixer := NewFixer(fake, config.FixConfig{})

	if _, err := fixer.Fix(context.Background(), "Chương trình đào tạo", CategoryCurriculum); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(fake.requests[0].System, "Mục tiêu đào tạo") {
		t.Errorf("curriculum prompt not selected:\n%s", fake.requests[0].System)
	}

	if _, err := fixer.Fix(context.Background(), "text", "thesis"); err == nil {
		t.Fatalf("expected error for unknown category")
	}
	if len(fake.requests) != 1 {
		t.Errorf("unknown category must not reach the model, got %d calls", len(fake.requests))
	}
}

func TestFixer_PropagatesModelError(t *testing.T) {
	wantErr := errors.New("quota exhausted")
	fixer := NewFixer(&fakeCompleter{err: wantErr}, config.FixConfig{})

	_, err := fixer.Fix(context.Background(), "Điều 1. Nội dung", CategoryRegulation)
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestFixer_EmptyResultIsError(t *testing.T) {
	fixer := NewFixer(&fakeCompleter{reply: "```\n```"}, config.FixConfig{})
	if _, err := fixer.Fix(context.Background(), "Điều 1. Nội dung", CategoryRegulation); err == nil {
		t.Fatalf("expected error for empty repair result")
	}

	fixer = NewFixer(&fakeCompleter{reply: "ignored"}, config.FixConfig{})
	if _, err := fixer.Fix(context.Background(), "   \n", CategoryRegulation); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced document",
			in:   "```markdown\n# Tiêu đề\nNội dung.\n```",
			want: "# Tiêu đề\nNội dung.",
		},
		{
			name: "no fences",
			in:   "# Tiêu đề\nNội dung.",
			want: "# Tiêu đề\nNội dung.",
		},
		{
			name: "unclosed fence",
			in:   "```\n# Tiêu đề",
			want: "# Tiêu đề",
		},
		{
			name: "inner fence preserved",
			in:   "```\n# Tiêu đề\n```python\nprint()\n```\nSau đoạn mã.\n```",
			want: "# Tiêu đề\n```python\nprint()\n```\nSau đoạn mã.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFences(tt.in); got != tt.want {
				t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEnsureTableSpacing(t *testing.T) {
	in := "Danh sách học phần:\n| Mã HP | Tên |\n| --- | --- |\n| IT001 | Nhập môn lập trình |"
	want := "Danh sách học phần:\n\n| Mã HP | Tên |\n| --- | --- |\n| IT001 | Nhập môn lập trình |"
	got := ensureTableSpacing(in)
	if got != want {
		t.Errorf("blank line not inserted:\n%q\nwant:\n%q", got, want)
	}
	if again := ensureTableSpacing(got); again != got {
		t.Errorf("not idempotent:\n%q\nvs:\n%q", again, got)
	}
}

func TestEnsureTableSpacing_NoChangeCases(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{
			name: "already blank",
			in:   "Giới thiệu.\n\n| A | B |\n| --- | --- |",
		},
		{
			name: "table at document start",
			in:   "| A | B |\n| --- | --- |\n| 1 | 2 |",
		},
		{
			name: "preceded by separator",
			in:   "| --- | --- |\n| A | B |\n| --- | --- |",
		},
		{
			name: "pipes without separator are not a table",
			in:   "Ghi chú a | b\nkhông phải bảng",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ensureTableSpacing(tt.in); got != tt.in {
				t.Errorf("content changed:\n%q\n->\n%q", tt.in, got)
			}
		})
	}
}

func TestIsTableSeparator(t *testing.T) {
	yes := []string{"| --- | --- |", "|---|---|", "| :--- | ---: |", "--- | ---"}
	for _, line := range yes {
		if !isTableSeparator(line) {
			t.Errorf("isTableSeparator(%q) = false, want true", line)
		}
	}
	no := []string{"---", "| A | B |", "văn bản thường", "- gạch đầu dòng"}
	for _, line := range no {
		if isTableSeparator(line) {
			t.Errorf("isTableSeparator(%q) = true, want false", line)
		}
	}
}
