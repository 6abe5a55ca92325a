// Package llm provides LLM client implementations.
package llm

import "log/slog"

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message roles used throughout the conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Finish reasons reported by the completion API.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

// Message represents a chat message for the LLM.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool responses
}

// ToolCall represents a tool invocation requested by the model.
// Arguments is the raw JSON argument object exactly as the provider
// sent it; decoding happens at the tool registry boundary.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"` // Always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatResponse is the unified response from a chat completion call.
type ChatResponse struct {
	Model        string
	Message      Message
	FinishReason string

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}
