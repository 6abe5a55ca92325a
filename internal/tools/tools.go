// Package tools defines the tools the model may invoke during a chat turn.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/micdig/emissary/internal/notify"
)

// Tool represents a callable tool. Parameters is the JSON schema
// advertised to the model; Handler receives the decoded arguments and
// returns a small status object serialized back into the conversation.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]any
	Handler     func(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Registry holds the closed set of available tools. All tools are
// registered at construction; the dispatch table is immutable afterwards
// and safe for concurrent chat turns.
type Registry struct {
	tools    map[string]*Tool
	ordered  []string
	notifier notify.Pusher
	logger   *slog.Logger
}

// NewRegistry creates a tool registry wired to the given notifier.
func NewRegistry(notifier notify.Pusher, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		tools:    make(map[string]*Tool),
		notifier: notifier,
		logger:   logger.With("component", "tools"),
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.register(&Tool{
		Name:        "record_user_details",
		Description: "Use this tool to record that a user is interested in being in touch and provided an email address",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"email": map[string]any{
					"type":        "string",
					"description": "The email address of this user",
				},
				"name": map[string]any{
					"type":        "string",
					"description": "The user's name, if they provided it",
				},
				"notes": map[string]any{
					"type":        "string",
					"description": "Any additional information about the conversation that's worth recording to give context",
				},
			},
			"required":             []string{"email"},
			"additionalProperties": false,
		},
		Handler: r.handleRecordUserDetails,
	})

	r.register(&Tool{
		Name:        "record_unknown_question",
		Description: "Always use this tool to record any question that couldn't be answered as you didn't know the answer",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question that couldn't be answered",
				},
			},
			"required":             []string{"question"},
			"additionalProperties": false,
		},
		Handler: r.handleRecordUnknownQuestion,
	})
}

func (r *Registry) register(t *Tool) {
	r.tools[t.Name] = t
	r.ordered = append(r.ordered, t.Name)
}

// Get retrieves a tool by name, or nil if not registered.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// List returns all tool schemas in registration order, in the function
// calling format the completion API expects.
func (r *Registry) List() []map[string]any {
	result := make([]map[string]any, 0, len(r.ordered))
	for _, name := range r.ordered {
		t := r.tools[name]
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name and returns its result serialized as JSON.
//
// An unknown tool name yields an empty success object rather than an
// error, so a hallucinated tool call doesn't abort the turn. Malformed
// argument JSON is a contract violation and the error propagates to the
// controller.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		r.logger.Warn("unknown tool requested", "tool", name)
		return "{}", nil
	}

	var args map[string]any
	if argsJSON != "" {
		if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
			return "", fmt.Errorf("tool %s: invalid arguments: %w", name, err)
		}
	}

	r.logger.Info("tool called", "tool", name)

	result, err := tool.Handler(ctx, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("tool %s: encode result: %w", name, err)
	}
	return string(encoded), nil
}

// Tool handlers

func (r *Registry) handleRecordUserDetails(ctx context.Context, args map[string]any) (map[string]any, error) {
	email, _ := args["email"].(string)
	name := stringArg(args, "name", "Name not provided")
	notes := stringArg(args, "notes", "not provided")

	r.push(ctx, fmt.Sprintf("Recording interest from %s with email %s and notes %s", name, email, notes))
	return map[string]any{"status": "success"}, nil
}

func (r *Registry) handleRecordUnknownQuestion(ctx context.Context, args map[string]any) (map[string]any, error) {
	question, _ := args["question"].(string)

	r.push(ctx, fmt.Sprintf("%s it appears I don't know how to answer that", question))
	return map[string]any{"status": "success"}, nil
}

// push sends a best-effort notification. Delivery failures are logged
// and never surfaced into the tool result.
func (r *Registry) push(ctx context.Context, message string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Push(ctx, message); err != nil {
		r.logger.Warn("notification failed", "error", err)
	}
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
