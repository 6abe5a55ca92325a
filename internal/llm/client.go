package llm

import "context"

// Client is the interface the agent and evaluator depend on. Implementations
// are constructed once at startup and passed down explicitly; there is no
// package-level shared client.
type Client interface {
	// Chat sends a chat completion request, optionally advertising tools,
	// and returns the response.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// ChatStructured sends a completion request constrained to the given
	// JSON schema and returns the raw JSON content string.
	ChatStructured(ctx context.Context, model string, messages []Message, schemaName string, schema map[string]any) (string, error)
}
