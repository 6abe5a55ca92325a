package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/micdig/emissary/internal/httpkit"
)

// DefaultBaseURL is the OpenAI API endpoint. Any OpenAI-compatible
// server (vLLM, LiteLLM, llama.cpp) can be substituted via config.
const DefaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient is a client for OpenAI-compatible chat completion APIs.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIClient creates a new client. baseURL may be empty for the
// public OpenAI endpoint.
func NewOpenAIClient(apiKey, baseURL string, logger *slog.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Completions can take a while before headers arrive on long prompts,
	// so the transport gets a generous response header timeout.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		logger:  logger.With("provider", "openai"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0), // rely on ctx deadlines
			httpkit.WithTransport(t),
		),
	}
}

// OpenAI request/response types

type chatRequest struct {
	Model          string           `json:"model"`
	Messages       []Message        `json:"messages"`
	Tools          []map[string]any `json:"tools,omitempty"`
	ResponseFormat *responseFormat  `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatCompletion struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int     `json:"index"`
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	req := chatRequest{
		Model:    model,
		Messages: messages,
		Tools:    tools,
	}
	return c.complete(ctx, req)
}

// ChatStructured sends a schema-constrained completion request and returns
// the raw JSON content string. The schema follows the json_schema strict
// response format; the model must emit an object matching it exactly.
func (c *OpenAIClient) ChatStructured(ctx context.Context, model string, messages []Message, schemaName string, schema map[string]any) (string, error) {
	req := chatRequest{
		Model:    model,
		Messages: messages,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchema{
				Name:   schemaName,
				Strict: true,
				Schema: schema,
			},
		},
	}

	resp, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

func (c *OpenAIClient) complete(ctx context.Context, req chatRequest) (*ChatResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("preparing request",
		"model", req.Model,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
		"structured", req.ResponseFormat != nil,
	)
	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return nil, fmt.Errorf("openai API error %d: %s", resp.StatusCode, errBody)
	}

	var completion chatCompletion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion %s", completion.ID)
	}

	choice := completion.Choices[0]
	result := &ChatResponse{
		Model:        completion.Model,
		Message:      choice.Message,
		FinishReason: choice.FinishReason,
		InputTokens:  completion.Usage.PromptTokens,
		OutputTokens: completion.Usage.CompletionTokens,
	}

	c.logger.Debug("response received",
		"model", result.Model,
		"finish_reason", result.FinishReason,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"tool_calls", len(result.Message.ToolCalls),
	)
	c.logger.Log(ctx, LevelTrace, "response content", "content", result.Message.Content)

	return result, nil
}
