package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mentorvn/mentor/pkg/config"
	"github.com/mentorvn/mentor/pkg/retrieval"
)

// RetrieveDocumentsTool searches every routed collection and renders the
// hits as one human-readable block.
type RetrieveDocumentsTool struct {
	engine *retrieval.Engine
	router *retrieval.Router
}

// NewRetrieveDocumentsTool creates the retrieve_documents tool.
func NewRetrieveDocumentsTool(engine *retrieval.Engine, router *retrieval.Router) *RetrieveDocumentsTool {
	return &RetrieveDocumentsTool{engine: engine, router: router}
}

func (t *RetrieveDocumentsTool) GetName() string {
	return "retrieve_documents"
}

func (t *RetrieveDocumentsTool) GetDescription() string {
	return "Tìm kiếm tài liệu của trường (quy chế, quy định, chương trình đào tạo) theo câu hỏi tiếng Việt"
}

func (t *RetrieveDocumentsTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "Câu hỏi hoặc từ khóa cần tra cứu",
				Required:    true,
			},
		},
		InputSchema: inputSchema[queryArgs](),
	}
}

func (t *RetrieveDocumentsTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return errorResult(t.GetName(), "query is required", start), nil
	}
	query = retrieval.ExpandAcronyms(query)

	route := t.router.Route(ctx, query)

	var blocks []string
	for _, collection := range route.Collections {
		res, err := t.engine.Retrieve(ctx, query, collection)
		if err != nil {
			return errorResult(t.GetName(), fmt.Sprintf("retrieval failed for %s: %v", collection, err), start), nil
		}
		blocks = append(blocks, retrieval.FormatText(query, res))
	}

	return successResult(t.GetName(), strings.Join(blocks, "\n\n"), nil, start), nil
}

// RetrieveRegulationTool searches the regulation collection and returns
// the typed structured result.
type RetrieveRegulationTool struct {
	engine *retrieval.Engine
}

// NewRetrieveRegulationTool creates the retrieve_regulation tool.
func NewRetrieveRegulationTool(engine *retrieval.Engine) *RetrieveRegulationTool {
	return &RetrieveRegulationTool{engine: engine}
}

func (t *RetrieveRegulationTool) GetName() string {
	return "retrieve_regulation"
}

func (t *RetrieveRegulationTool) GetDescription() string {
	return "Tra cứu quy chế, quy định của trường; trả về kết quả có cấu trúc kèm mã văn bản và điểm liên quan"
}

func (t *RetrieveRegulationTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "Câu hỏi về quy chế, quy định",
				Required:    true,
			},
		},
		InputSchema: inputSchema[queryArgs](),
	}
}

func (t *RetrieveRegulationTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return errorResult(t.GetName(), "query is required", start), nil
	}
	query = retrieval.ExpandAcronyms(query)

	res, err := t.engine.Retrieve(ctx, query, config.CategoryRegulation)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("retrieval failed: %v", err), start), nil
	}

	formatted := retrieval.FormatRegulationResult(query, res)
	return successResult(t.GetName(), retrieval.FormatText(query, res), formatted, start), nil
}

// RetrieveCurriculumTool searches the curriculum collection and returns
// the typed structured result.
type RetrieveCurriculumTool struct {
	engine *retrieval.Engine
}

// NewRetrieveCurriculumTool creates the retrieve_curriculum tool.
func NewRetrieveCurriculumTool(engine *retrieval.Engine) *RetrieveCurriculumTool {
	return &RetrieveCurriculumTool{engine: engine}
}

func (t *RetrieveCurriculumTool) GetName() string {
	return "retrieve_curriculum"
}

func (t *RetrieveCurriculumTool) GetDescription() string {
	return "Tra cứu chương trình đào tạo các ngành; trả về kết quả có cấu trúc kèm ngành và hệ đào tạo"
}

func (t *RetrieveCurriculumTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "query",
				Type:        "string",
				Description: "Câu hỏi về chương trình đào tạo",
				Required:    true,
			},
		},
		InputSchema: inputSchema[queryArgs](),
	}
}

func (t *RetrieveCurriculumTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return errorResult(t.GetName(), "query is required", start), nil
	}
	query = retrieval.ExpandAcronyms(query)

	res, err := t.engine.Retrieve(ctx, query, config.CategoryCurriculum)
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("retrieval failed: %v", err), start), nil
	}

	formatted := retrieval.FormatCurriculumResult(query, res)
	return successResult(t.GetName(), retrieval.FormatText(query, res), formatted, start), nil
}
