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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mentorvn/mentor/pkg/chunker"
	"github.com/mentorvn/mentor/pkg/config"
)

func newTestIndex(t *testing.T) *LexicalIndex {
	t.Helper()
	ix, err := OpenLexicalIndex(":memory:")
	if err != nil {
		t.Fatalf("OpenLexicalIndex: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func regulationChunks() []chunker.Chunk {
	return []chunker.Chunk{
		{
			ID:   "chunk-1",
			Text: "Điều 14. Sinh viên được công nhận tốt nghiệp khi tích lũy đủ số tín chỉ của chương trình đào tạo.",
			Metadata: map[string]any{
				"document_id": "790-qd-dhcntt",
				"title":       "Quy chế đào tạo",
			},
		},
		{
			ID:   "chunk-2",
			Text: "Điều 3. Học phí được thu theo từng học kỳ căn cứ số tín chỉ đăng ký.",
			Metadata: map[string]any{
				"document_id": "790-qd-dhcntt",
				"title":       "Quy chế đào tạo",
			},
		},
		{
			ID:   "chunk-3",
			Text: "Mức thu lệ phí xét tuyển do nhà trường công bố hằng năm.",
			Metadata: map[string]any{
				"document_id": "828-qd-dhcntt",
				"title":       "Quy định lệ phí",
			},
		},
	}
}

func TestLexicalIndex_Search(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	if err := ix.Rebuild(ctx, "regulation", regulationChunks()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	nodes, err := ix.Search(ctx, "regulation", "tốt nghiệp tín chỉ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(nodes) == 0 {
		t.Fatal("no lexical hits")
	}
	if nodes[0].ID != "chunk-1" {
		t.Errorf("best hit = %s, want chunk-1", nodes[0].ID)
	}
	if nodes[0].DocumentID() != "790-qd-dhcntt" {
		t.Errorf("document_id = %s", nodes[0].DocumentID())
	}
	if title := metaString(nodes[0].Metadata, "title"); title != "Quy chế đào tạo" {
		t.Errorf("metadata title = %q", title)
	}
}

func TestLexicalIndex_SearchWithoutDiacritics(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	if err := ix.Rebuild(ctx, "regulation", regulationChunks()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	// Students frequently type without tone marks; the tokenizer folds
	// both sides so "tot nghiep" must still reach chunk-1.
	nodes, err := ix.Search(ctx, "regulation", "tot nghiep", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(nodes) == 0 {
		t.Fatal("diacritic-free query found nothing")
	}
	if nodes[0].ID != "chunk-1" {
		t.Errorf("best hit = %s, want chunk-1", nodes[0].ID)
	}
}

func TestLexicalIndex_ScoresNormalized(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	if err := ix.Rebuild(ctx, "regulation", regulationChunks()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	nodes, err := ix.Search(ctx, "regulation", "tín chỉ học kỳ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(nodes) < 2 {
		t.Fatalf("want at least 2 hits, got %d", len(nodes))
	}
	if nodes[0].Score != 1.0 {
		t.Errorf("best score = %v, want 1.0", nodes[0].Score)
	}
	for i, n := range nodes {
		if n.Score < 0 || n.Score > 1 {
			t.Errorf("nodes[%d].Score = %v outside [0,1]", i, n.Score)
		}
		if i > 0 && nodes[i-1].Score < n.Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestLexicalIndex_CollectionIsolation(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	if err := ix.Rebuild(ctx, "regulation", regulationChunks()); err != nil {
		t.Fatalf("Rebuild regulation: %v", err)
	}
	curriculum := []chunker.Chunk{{
		ID:       "cur-1",
		Text:     "Học kỳ 1 gồm các môn Toán rời rạc và Nhập môn lập trình.",
		Metadata: map[string]any{"document_id": "ctdt-khmt-2022"},
	}}
	if err := ix.Rebuild(ctx, "curriculum", curriculum); err != nil {
		t.Fatalf("Rebuild curriculum: %v", err)
	}

	nodes, err := ix.Search(ctx, "curriculum", "học kỳ", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, n := range nodes {
		if n.ID != "cur-1" {
			t.Errorf("curriculum search leaked %s", n.ID)
		}
	}
}

func TestLexicalIndex_RebuildReplaces(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	if err := ix.Rebuild(ctx, "regulation", regulationChunks()); err != nil {
		t.Fatalf("first Rebuild: %v", err)
	}
	if err := ix.Rebuild(ctx, "regulation", regulationChunks()[:1]); err != nil {
		t.Fatalf("second Rebuild: %v", err)
	}

	n, err := ix.Count(ctx, "regulation")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count after rebuild = %d, want 1", n)
	}
}

func TestLexicalIndex_SkipsEmptyChunks(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()
	chunks := []chunker.Chunk{
		{ID: "empty", Text: "   "},
		{ID: "real", Text: "Nội dung thật.", Metadata: map[string]any{"document_id": "d"}},
	}
	if err := ix.Rebuild(ctx, "regulation", chunks); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	n, err := ix.Count(ctx, "regulation")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		isErr bool
	}{
		{name: "single term", in: "tốt", want: "tốt"},
		{name: "multi term OR-joined", in: "tốt nghiệp", want: "tốt OR nghiệp"},
		{name: "explicit operator kept", in: "tín AND chỉ", want: "tín AND chỉ"},
		{name: "special char escaped", in: "điều(1)", want: `điều"("1")"`},
		{name: "quoted phrase preserved", in: `"học kỳ 1"`, want: `"học kỳ 1"`},
		{name: "empty", in: "   ", isErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prepareFTSQuery(tt.in)
			if tt.isErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("prepareFTSQuery: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLexicalIndex_IndexPipelineArtifacts(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "regulation", "processed")
	docDir := filepath.Join(processed, "790-qd-dhcntt")
	if err := os.MkdirAll(docDir, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(regulationChunks())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(docDir, "chunks.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.PipelineConfig{
		DataDir: dir,
		Categories: map[string]*config.CategoryConfig{
			"regulation": {ProcessedDir: processed},
		},
	}

	ix := newTestIndex(t)
	ctx := context.Background()
	if err := ix.IndexPipelineArtifacts(ctx, cfg); err != nil {
		t.Fatalf("IndexPipelineArtifacts: %v", err)
	}

	n, err := ix.Count(ctx, "regulation")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != len(regulationChunks()) {
		t.Errorf("indexed %d chunks, want %d", n, len(regulationChunks()))
	}
}

func TestLexicalIndex_MissingProcessedDir(t *testing.T) {
	cfg := &config.PipelineConfig{
		Categories: map[string]*config.CategoryConfig{
			"regulation": {ProcessedDir: filepath.Join(t.TempDir(), "missing")},
		},
	}
	ix := newTestIndex(t)
	if err := ix.IndexPipelineArtifacts(context.Background(), cfg); err != nil {
		t.Fatalf("missing processed dir should yield empty corpus, got %v", err)
	}
}

func BenchmarkLexicalSearch(b *testing.B) {
	ix, err := OpenLexicalIndex(":memory:")
	if err != nil {
		b.Fatalf("OpenLexicalIndex: %v", err)
	}
	defer func() { _ = ix.Close() }()

	chunks := make([]chunker.Chunk, 0, 500)
	for i := 0; i < 500; i++ {
		chunks = append(chunks, chunker.Chunk{
			ID: fmt.Sprintf("chunk-%d", i),
			Text: fmt.Sprintf("Điều %d. Sinh viên tích lũy tín chỉ trong học kỳ %d theo chương trình đào tạo.",
				i, i%3+1),
			Metadata: map[string]any{"document_id": fmt.Sprintf("doc-%d", i%20)},
		})
	}
	if err := ix.Rebuild(context.Background(), "regulation", chunks); err != nil {
		b.Fatalf("Rebuild: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ix.Search(context.Background(), "regulation", "tín chỉ tốt nghiệp", 20); err != nil {
			b.Fatal(err)
		}
	}
}
