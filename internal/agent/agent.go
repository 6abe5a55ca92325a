// Package agent implements the chat turn control loop: the iterative
// exchange with the LLM, tool dispatch, quality evaluation, and the
// single bounded regeneration after a rejected reply.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/micdig/emissary/internal/eval"
	"github.com/micdig/emissary/internal/llm"
	"github.com/micdig/emissary/internal/persona"
	"github.com/micdig/emissary/internal/prompts"
	"github.com/micdig/emissary/internal/tools"
)

// Agent drives one chat turn at a time. All collaborators are injected
// at construction and immutable afterwards, so concurrent turns are
// independent.
type Agent struct {
	client    llm.Client
	model     string
	registry  *tools.Registry
	evaluator *eval.Evaluator
	persona   *persona.Context
	logger    *slog.Logger
}

// New creates an agent.
func New(client llm.Client, model string, registry *tools.Registry, evaluator *eval.Evaluator, p *persona.Context, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		client:    client,
		model:     model,
		registry:  registry,
		evaluator: evaluator,
		persona:   p,
		logger:    logger.With("component", "agent"),
	}
}

// Chat runs one turn: it produces exactly one final reply for message
// given the caller-owned prior history. The caller keeps ownership of
// history; only the new reply is returned.
//
// Any LLM or evaluator failure aborts the turn — no partial reply is
// ever returned. Tool notifications are the only side effects.
func (a *Agent) Chat(ctx context.Context, message string, history []llm.Message) (string, error) {
	logger := a.logger.With("request_id", uuid.NewString())
	logger.Info("chat turn started", "history", len(history))

	// Working conversation: system prompt, prior history, new message.
	working := make([]llm.Message, 0, len(history)+2)
	working = append(working, llm.Message{Role: llm.RoleSystem, Content: prompts.System(a.persona)})
	working = append(working, history...)
	working = append(working, llm.Message{Role: llm.RoleUser, Content: message})

	toolSchemas := a.registry.List()

	var reply string
	for round := 1; ; round++ {
		resp, err := a.client.Chat(ctx, a.model, working, toolSchemas)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}

		if resp.FinishReason != llm.FinishToolCalls {
			reply = resp.Message.Content
			break
		}

		logger.Debug("tool calls requested", "round", round, "count", len(resp.Message.ToolCalls))

		// The assistant's tool-call message must precede the results,
		// each result correlated to its invocation by ID.
		working = append(working, resp.Message)
		for _, tc := range resp.Message.ToolCalls {
			result, err := a.registry.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				return "", err
			}
			working = append(working, llm.Message{
				Role:       llm.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
			})
		}
	}

	// Quality control judges the reply against the original history,
	// not the tool-augmented working conversation.
	verdict, err := a.evaluator.Evaluate(ctx, reply, message, history)
	if err != nil {
		return "", err
	}

	if verdict.IsAcceptable {
		logger.Info("chat turn completed", "regenerated", false)
		return reply, nil
	}

	logger.Info("reply rejected, regenerating", "feedback", verdict.Feedback)
	reply, err = a.rerun(ctx, reply, message, history, verdict.Feedback)
	if err != nil {
		return "", err
	}

	logger.Info("chat turn completed", "regenerated", true)
	return reply, nil
}

// rerun makes the single regeneration attempt. Its output is final —
// it is never evaluated again, which bounds the cost of a turn at one
// retry.
func (a *Agent) rerun(ctx context.Context, rejected, message string, history []llm.Message, feedback string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: prompts.Rerun(a.persona, rejected, feedback)})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	resp, err := a.client.Chat(ctx, a.model, messages, nil)
	if err != nil {
		return "", fmt.Errorf("regeneration: %w", err)
	}
	return resp.Message.Content, nil
}
