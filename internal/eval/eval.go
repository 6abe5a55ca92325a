// Package eval grades candidate replies with a second, schema-constrained
// LLM call.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/micdig/emissary/internal/llm"
	"github.com/micdig/emissary/internal/persona"
	"github.com/micdig/emissary/internal/prompts"
)

// Evaluation is the verdict on a candidate reply.
type Evaluation struct {
	IsAcceptable bool   `json:"is_acceptable"`
	Feedback     string `json:"feedback"`
}

// Schema is the JSON schema the evaluator model must conform to.
var Schema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"is_acceptable": map[string]any{
			"type":        "boolean",
			"description": "Whether the agent's response meets quality standards",
		},
		"feedback": map[string]any{
			"type":        "string",
			"description": "Explanation of the evaluation decision",
		},
	},
	"required":             []string{"is_acceptable", "feedback"},
	"additionalProperties": false,
}

// Evaluator runs the quality-control call. It holds its own client
// handle and model so it can be pointed at a cheaper model than the
// main assistant.
type Evaluator struct {
	client  llm.Client
	model   string
	persona *persona.Context
	logger  *slog.Logger
}

// New creates an evaluator.
func New(client llm.Client, model string, p *persona.Context, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		client:  client,
		model:   model,
		persona: p,
		logger:  logger.With("component", "eval"),
	}
}

// Evaluate grades reply against the persona's behavioral contract.
// history is the conversation before this turn; the current turn's
// tool-call rounds are not part of the judgment. Failures and malformed
// verdicts propagate — there is no retry.
func (e *Evaluator) Evaluate(ctx context.Context, reply, message string, history []llm.Message) (*Evaluation, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: prompts.EvaluatorSystem(e.persona)},
		{Role: llm.RoleUser, Content: prompts.EvaluatorUser(reply, message, history)},
	}

	content, err := e.client.ChatStructured(ctx, e.model, messages, "evaluation", Schema)
	if err != nil {
		return nil, fmt.Errorf("evaluation call: %w", err)
	}

	var verdict Evaluation
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	e.logger.Debug("reply evaluated", "acceptable", verdict.IsAcceptable)
	return &verdict, nil
}
