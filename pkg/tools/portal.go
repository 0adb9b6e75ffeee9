package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mentorvn/mentor/pkg/portal"
)

// GetGradesTool fetches the student transcript from the portal.
type GetGradesTool struct {
	client *portal.Client
}

// NewGetGradesTool creates the get_grades tool.
func NewGetGradesTool(client *portal.Client) *GetGradesTool {
	return &GetGradesTool{client: client}
}

func (t *GetGradesTool) GetName() string {
	return "get_grades"
}

func (t *GetGradesTool) GetDescription() string {
	return "Lấy bảng điểm của sinh viên từ cổng thông tin đào tạo"
}

func (t *GetGradesTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "cookie",
				Type:        "string",
				Description: "Cookie phiên đăng nhập của sinh viên; bỏ trống để dùng phiên đã cấu hình",
				Required:    false,
			},
		},
		InputSchema: inputSchema[cookieArgs](),
	}
}

func (t *GetGradesTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	grades, err := t.client.Grades(ctx, stringArg(args, "cookie"))
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to fetch grades: %v", err), start), nil
	}

	return successResult(t.GetName(), grades.Text(), grades, start), nil
}

// GetScheduleTool fetches the student weekly timetable from the portal.
type GetScheduleTool struct {
	client *portal.Client
}

// NewGetScheduleTool creates the get_schedule tool.
func NewGetScheduleTool(client *portal.Client) *GetScheduleTool {
	return &GetScheduleTool{client: client}
}

func (t *GetScheduleTool) GetName() string {
	return "get_schedule"
}

func (t *GetScheduleTool) GetDescription() string {
	return "Lấy thời khóa biểu của sinh viên từ cổng thông tin đào tạo"
}

func (t *GetScheduleTool) GetInfo() ToolInfo {
	return ToolInfo{
		Name:        t.GetName(),
		Description: t.GetDescription(),
		Parameters: []ToolParameter{
			{
				Name:        "cookie",
				Type:        "string",
				Description: "Cookie phiên đăng nhập của sinh viên; bỏ trống để dùng phiên đã cấu hình",
				Required:    false,
			},
		},
		InputSchema: inputSchema[cookieArgs](),
	}
}

func (t *GetScheduleTool) Execute(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
	start := time.Now()

	schedule, err := t.client.Schedule(ctx, stringArg(args, "cookie"))
	if err != nil {
		return errorResult(t.GetName(), fmt.Sprintf("failed to fetch schedule: %v", err), start), nil
	}

	return successResult(t.GetName(), schedule.Text(), schedule, start), nil
}
