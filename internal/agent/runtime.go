package agent

import "context"

// ParamType is the JSON type of a tool parameter.
type ParamType string

const (
	TypeString      ParamType = "string"
	TypeInteger     ParamType = "integer"
	TypeStringArray ParamType = "string_array"
)

// Param describes one tool parameter.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
}

// ToolSpec is the declaration of a tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// ToolCall is a model request to run a tool.
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the answer to a ToolCall.
type ToolResult struct {
	Name   string
	Output string
}

// Reply is one model response: text, tool calls, or both.
type Reply struct {
	Text  string
	Calls []ToolCall
}

// Session is a multi-turn conversation with a model. A reply with tool
// calls must be answered with SendResults, one result per call, before the
// next SendText.
type Session interface {
	SendText(ctx context.Context, text string) (Reply, error)
	SendResults(ctx context.Context, results []ToolResult) (Reply, error)
}

// Model starts sessions with a fixed system prompt and tool set.
type Model interface {
	NewSession(system string, tools []ToolSpec) (Session, error)
}
