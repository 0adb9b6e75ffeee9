package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// queryArgs models the single-argument shape of the retrieval tools.
type queryArgs struct {
	Query string `json:"query" jsonschema:"required,description=Câu hỏi hoặc từ khóa cần tra cứu"`
}

// cookieArgs models the optional session-cookie argument of the portal
// tools.
type cookieArgs struct {
	Cookie string `json:"cookie,omitempty" jsonschema:"description=Cookie phiên đăng nhập; bỏ trống để dùng phiên đã cấu hình"`
}

// inputSchema reflects an args struct into the JSON schema served with
// tool definitions and registered with MCP runtimes.
//
// Supported tags:
//   - json:"name" / json:",omitempty"
//   - jsonschema:"required,description=..."
func inputSchema[T any]() map[string]interface{} {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}

	// Wire consumers only need the object shape.
	delete(result, "$schema")
	delete(result, "$id")
	return result
}
