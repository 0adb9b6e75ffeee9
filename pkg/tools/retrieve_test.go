package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/retrieval"
	"github.com/mentorvn/mentor/pkg/vector"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (stubEmbedder) GetDimension() int     { return 3 }
func (stubEmbedder) GetModelName() string  { return "stub-embed" }
func (stubEmbedder) UnitPriceUSD() float64 { return 0 }
func (stubEmbedder) Close() error          { return nil }

type stubStore struct {
	vector.NilProvider
	results []vector.Result
}

func (s *stubStore) Search(context.Context, string, []float32, int) ([]vector.Result, error) {
	return s.results, nil
}

func newToolEngine(t *testing.T, results []vector.Result) *retrieval.Engine {
	t.Helper()
	engine, err := retrieval.NewEngine(retrieval.EngineOptions{
		Config:   config.RetrievalConfig{},
		Embedder: stubEmbedder{},
		Vectors:  &stubStore{results: results},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine
}

func regulationHit(id string, score float32) vector.Result {
	return vector.Result{
		ID:      id,
		Score:   score,
		Content: "Điều 5. Điều kiện tốt nghiệp",
		Metadata: map[string]any{
			"document_id":          "quy-che-828",
			"title":                "Quy chế đào tạo",
			"base_regulation_code": "828/QĐ-DHCNTT",
			"document_type":        "original",
			"year":                 2023,
		},
	}
}

func TestRetrieveRegulationTool(t *testing.T) {
	engine := newToolEngine(t, []vector.Result{regulationHit("a", 0.9)})
	tool := NewRetrieveRegulationTool(engine)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query": "điều kiện tốt nghiệp",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}

	typed, ok := result.Output.(*retrieval.RegulationResult)
	if !ok {
		t.Fatalf("Output type = %T, want *retrieval.RegulationResult", result.Output)
	}
	if len(typed.Documents) != 1 {
		t.Fatalf("got %d documents, want 1", len(typed.Documents))
	}
	doc := typed.Documents[0]
	if doc.RegulationNumber != "828/QĐ-DHCNTT" {
		t.Errorf("RegulationNumber = %q", doc.RegulationNumber)
	}
	if doc.DocumentType != "original" {
		t.Errorf("DocumentType = %q", doc.DocumentType)
	}
	if result.Content == "" {
		t.Error("Content should carry the human-readable rendering")
	}
}

func TestRetrieveCurriculumTool(t *testing.T) {
	engine := newToolEngine(t, []vector.Result{{
		ID:      "c1",
		Score:   0.8,
		Content: "Học kỳ 1: IT001, MA003",
		Metadata: map[string]any{
			"document_id":  "ctdt-khmt-2024",
			"title":        "Chương trình đào tạo Khoa học Máy tính",
			"major":        "Khoa học Máy tính",
			"program_type": "Chính quy",
		},
	}})
	tool := NewRetrieveCurriculumTool(engine)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query": "chương trình đào tạo khoa học máy tính",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	typed, ok := result.Output.(*retrieval.CurriculumResult)
	if !ok {
		t.Fatalf("Output type = %T, want *retrieval.CurriculumResult", result.Output)
	}
	if len(typed.Documents) != 1 || typed.Documents[0].Major != "Khoa học Máy tính" {
		t.Errorf("documents = %+v", typed.Documents)
	}
}

func TestRetrieveTools_EmptyQuery(t *testing.T) {
	engine := newToolEngine(t, nil)
	router := retrieval.NewRouter(&config.RouterConfig{Strategy: config.RoutingQueryAll}, engine.Collections(), nil)

	for _, tool := range []Tool{
		NewRetrieveDocumentsTool(engine, router),
		NewRetrieveRegulationTool(engine),
		NewRetrieveCurriculumTool(engine),
	} {
		result, err := tool.Execute(context.Background(), map[string]interface{}{"query": "   "})
		if err != nil {
			t.Fatalf("%s: Execute: %v", tool.GetName(), err)
		}
		if result.Success {
			t.Errorf("%s: expected failure for empty query", tool.GetName())
		}
		if !strings.Contains(result.Error, "query") {
			t.Errorf("%s: error = %q", tool.GetName(), result.Error)
		}
	}
}

func TestRetrieveDocumentsTool_QueriesAllRoutedCollections(t *testing.T) {
	engine := newToolEngine(t, []vector.Result{regulationHit("a", 0.9)})
	router := retrieval.NewRouter(&config.RouterConfig{Strategy: config.RoutingQueryAll}, engine.Collections(), nil)
	tool := NewRetrieveDocumentsTool(engine, router)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"query": "điều kiện tốt nghiệp",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	// query_all touches both collections; each produces a block.
	if got := strings.Count(result.Content, "Tìm thấy"); got != 2 {
		t.Errorf("content has %d result blocks, want 2:\n%s", got, result.Content)
	}
}

func TestRetrieveTools_Definitions(t *testing.T) {
	engine := newToolEngine(t, nil)
	router := retrieval.NewRouter(&config.RouterConfig{Strategy: config.RoutingQueryAll}, engine.Collections(), nil)

	for _, tool := range []Tool{
		NewRetrieveDocumentsTool(engine, router),
		NewRetrieveRegulationTool(engine),
		NewRetrieveCurriculumTool(engine),
	} {
		info := tool.GetInfo()
		if info.Name != tool.GetName() {
			t.Errorf("info name %q != tool name %q", info.Name, tool.GetName())
		}
		if len(info.Parameters) != 1 || info.Parameters[0].Name != "query" || !info.Parameters[0].Required {
			t.Errorf("%s: parameters = %+v, want required query", info.Name, info.Parameters)
		}
		if info.InputSchema["type"] != "object" {
			t.Errorf("%s: input schema type = %v", info.Name, info.InputSchema["type"])
		}
		props, _ := info.InputSchema["properties"].(map[string]interface{})
		if _, ok := props["query"]; !ok {
			t.Errorf("%s: input schema missing query property: %v", info.Name, info.InputSchema)
		}
	}
}
