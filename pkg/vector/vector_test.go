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

package vector

import (
	"context"
	"testing"

	"github.com/mentorvn/mentor/pkg/config"
)

func newMemoryProvider(t *testing.T) *ChromemProvider {
	t.Helper()
	p, err := NewChromemProvider("")
	if err != nil {
		t.Fatalf("NewChromemProvider() error = %v", err)
	}
	return p
}

func regulationDocs() []Document {
	return []Document{
		{
			ID:      "reg-001",
			Content: "Điều 4. Thời gian đào tạo chuẩn của chương trình là 4 năm.",
			Vector:  []float32{1, 0, 0},
			Metadata: map[string]any{
				"category":    "regulation",
				"document_id": "quy-che-dao-tao",
			},
		},
		{
			ID:      "reg-002",
			Content: "Điều 5. Sinh viên đăng ký học phần qua cổng thông tin.",
			Vector:  []float32{0, 1, 0},
			Metadata: map[string]any{
				"category":    "regulation",
				"document_id": "quy-che-dao-tao",
			},
		},
		{
			ID:      "cur-001",
			Content: "Học phần Nhập môn lập trình gồm 4 tín chỉ.",
			Vector:  []float32{0, 0, 1},
			Metadata: map[string]any{
				"category":    "curriculum",
				"document_id": "ctdt-khmt",
			},
		},
	}
}

func TestChromemUpsertAndSearch(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	if err := p.UpsertBatch(ctx, "chunks", regulationDocs()); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	results, err := p.Search(ctx, "chunks", []float32{0.9, 0.1, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].ID != "reg-001" {
		t.Errorf("top result ID = %q, want reg-001", results[0].ID)
	}
	if results[0].Content == "" {
		t.Error("top result content is empty, want stored chunk text")
	}
	if got := results[0].Metadata["category"]; got != "regulation" {
		t.Errorf("top result category = %v, want regulation", got)
	}
	if results[0].Score < results[1].Score {
		t.Errorf("results not ordered by score: %f < %f", results[0].Score, results[1].Score)
	}
}

func TestChromemSearchClampsTopK(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	docs := regulationDocs()[:2]
	if err := p.UpsertBatch(ctx, "chunks", docs); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	// Asking for more results than stored documents must not fail.
	results, err := p.Search(ctx, "chunks", []float32{1, 0, 0}, 20)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != len(docs) {
		t.Errorf("Search() returned %d results, want %d", len(results), len(docs))
	}
}

func TestChromemSearchEmptyCollection(t *testing.T) {
	p := newMemoryProvider(t)

	results, err := p.Search(context.Background(), "empty", []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatalf("Search() on empty collection error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() on empty collection returned %d results, want 0", len(results))
	}
}

func TestChromemSearchWithFilter(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	if err := p.UpsertBatch(ctx, "chunks", regulationDocs()); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	results, err := p.SearchWithFilter(ctx, "chunks", []float32{0, 0, 1}, 10, map[string]any{
		"category": "curriculum",
	})
	if err != nil {
		t.Fatalf("SearchWithFilter() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("SearchWithFilter() returned %d results, want 1", len(results))
	}
	if results[0].ID != "cur-001" {
		t.Errorf("filtered result ID = %q, want cur-001", results[0].ID)
	}
}

func TestChromemDelete(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	if err := p.UpsertBatch(ctx, "chunks", regulationDocs()); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	if err := p.Delete(ctx, "chunks", "reg-001"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	results, err := p.Search(ctx, "chunks", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	for _, r := range results {
		if r.ID == "reg-001" {
			t.Error("deleted document still present in search results")
		}
	}
}

func TestChromemDeleteByFilter(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	if err := p.UpsertBatch(ctx, "chunks", regulationDocs()); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	if err := p.DeleteByFilter(ctx, "chunks", map[string]any{"category": "regulation"}); err != nil {
		t.Fatalf("DeleteByFilter() error = %v", err)
	}

	results, err := p.Search(ctx, "chunks", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "cur-001" {
		t.Errorf("after DeleteByFilter got %d results, want only cur-001", len(results))
	}
}

func TestChromemDeleteCollection(t *testing.T) {
	p := newMemoryProvider(t)
	ctx := context.Background()

	if err := p.UpsertBatch(ctx, "chunks", regulationDocs()); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}

	if err := p.DeleteCollection(ctx, "chunks"); err != nil {
		t.Fatalf("DeleteCollection() error = %v", err)
	}

	// A fresh collection with the same name starts empty.
	results, err := p.Search(ctx, "chunks", []float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search() after DeleteCollection error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() after DeleteCollection returned %d results, want 0", len(results))
	}
}

func TestChromemPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p1, err := NewChromemProvider(dir)
	if err != nil {
		t.Fatalf("NewChromemProvider() error = %v", err)
	}
	if err := p1.UpsertBatch(ctx, "chunks", regulationDocs()); err != nil {
		t.Fatalf("UpsertBatch() error = %v", err)
	}
	if err := p1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	p2, err := NewChromemProvider(dir)
	if err != nil {
		t.Fatalf("NewChromemProvider() reopen error = %v", err)
	}
	results, err := p2.Search(ctx, "chunks", []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search() after reopen error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "reg-002" {
		t.Fatalf("Search() after reopen = %+v, want reg-002", results)
	}
}

func TestNilProvider(t *testing.T) {
	var p Provider = NilProvider{}
	ctx := context.Background()

	results, err := p.Search(ctx, "chunks", []float32{1}, 5)
	if err != nil {
		t.Errorf("NilProvider.Search() error = %v, want nil", err)
	}
	if len(results) != 0 {
		t.Errorf("NilProvider.Search() returned %d results, want 0", len(results))
	}

	if err := p.Upsert(ctx, "chunks", "id", []float32{1}, nil); err == nil {
		t.Error("NilProvider.Upsert() error = nil, want error")
	}
	if err := p.CreateCollection(ctx, "chunks", 3); err == nil {
		t.Error("NilProvider.CreateCollection() error = nil, want error")
	}
	if p.Name() != "nil" {
		t.Errorf("NilProvider.Name() = %q, want nil", p.Name())
	}
}

func TestNewProviderFromConfig(t *testing.T) {
	p, err := NewProvider(nil)
	if err != nil {
		t.Fatalf("NewProvider(nil) error = %v", err)
	}
	if _, ok := p.(NilProvider); !ok {
		t.Errorf("NewProvider(nil) = %T, want NilProvider", p)
	}

	cfg := &config.VectorStoreConfig{
		Provider: config.VectorProviderChromem,
		Path:     t.TempDir(),
	}
	p, err = NewProvider(cfg)
	if err != nil {
		t.Fatalf("NewProvider(chromem) error = %v", err)
	}
	if p.Name() != "chromem" {
		t.Errorf("provider name = %q, want chromem", p.Name())
	}

	_, err = NewProvider(&config.VectorStoreConfig{Provider: "faiss"})
	if err == nil {
		t.Error("NewProvider(unsupported) error = nil, want error")
	}
}
