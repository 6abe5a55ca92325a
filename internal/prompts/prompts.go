// Package prompts builds the system and user prompts for the assistant
// and its evaluator. Everything here is a pure function over the persona
// context and conversation state.
package prompts

import (
	"fmt"
	"strings"

	"github.com/micdig/emissary/internal/llm"
	"github.com/micdig/emissary/internal/persona"
)

// System returns the main system prompt that defines the agent's role
// and tool usage rules.
func System(p *persona.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are acting as %s. You are answering questions on %s's website, "+
		"particularly questions related to %s's career, background, skills and experience. "+
		"Your responsibility is to represent %s for interactions on the website as faithfully as possible. "+
		"You are given a summary of %s's background profile which you can use to answer questions. "+
		"Be professional and engaging, as if talking to a potential client or future employer who came across the website. "+
		"If you don't know the answer to any question, use your record_unknown_question tool to record the question that you couldn't answer, "+
		"even if it's about something trivial or unrelated to career. "+
		"If the user is engaging in discussion, try to steer them towards getting in touch via email; "+
		"ask for their email and record it using your record_user_details tool.",
		p.Name, p.Name, p.Name, p.Name, p.Name)

	fmt.Fprintf(&b, "\n\n## Summary:\n%s\n\n## Profile:\n%s\n\n", p.Summary, p.Profile)
	fmt.Fprintf(&b, "With this context, please chat with the user, always staying in character as %s.", p.Name)

	return b.String()
}

// EvaluatorSystem returns the system prompt for the response evaluator.
// It restates the agent's behavioral contract so the evaluator can judge
// against the same rules.
func EvaluatorSystem(p *persona.Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an evaluator that decides whether a response to a question is acceptable. "+
		"You are provided with a conversation between a User and an Agent. "+
		"Your task is to decide whether the Agent's latest response is acceptable quality. "+
		"The Agent is playing the role of %s and is representing %s on their website. "+
		"The Agent has been instructed to be professional and engaging, as if talking to a potential client or future employer who came across the website. "+
		"The Agent is expected to not answer any other random and disconnected questions and should redirect them to questions about %s and information about their summary. "+
		"When the Agent is using the record_user_details tool make sure the agent asks the user for a name and email. "+
		"The Agent has been provided with context on %s in the form of their profile summary. Here's the information:",
		p.Name, p.Name, p.Name, p.Name)

	fmt.Fprintf(&b, "\n\n## Summary:\n%s\n\n## Profile:\n%s\n\n", p.Summary, p.Profile)
	b.WriteString("With this context, please evaluate the latest response, replying with whether the response is acceptable and your feedback.")

	return b.String()
}

// EvaluatorUser returns the user prompt carrying the conversation under
// evaluation. history is the prior conversation only — the tool-call
// rounds of the current turn are deliberately excluded.
func EvaluatorUser(reply, message string, history []llm.Message) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Here's the conversation between the User and the Agent:\n\n%s\n\n", FormatHistory(history))
	fmt.Fprintf(&b, "Here's the latest message from the User:\n\n%s\n\n", message)
	fmt.Fprintf(&b, "Here's the latest response from the Agent:\n\n%s\n\n", reply)
	b.WriteString("Please evaluate the response, replying with whether it is acceptable as a bool and your feedback as a string answer.")

	return b.String()
}

// Rerun returns the system prompt for the single regeneration attempt,
// extending System with the rejected answer and the evaluator's reason.
func Rerun(p *persona.Context, reply, feedback string) string {
	var b strings.Builder

	b.WriteString(System(p))
	b.WriteString("\n\n## Previous answer rejected\nYou just tried to reply, but the quality control rejected your reply\n")
	fmt.Fprintf(&b, "## Your attempted answer:\n%s\n\n", reply)
	fmt.Fprintf(&b, "## Reason for rejection:\n%s\n\n", feedback)

	return b.String()
}

// FormatHistory renders prior conversation messages as readable
// role-prefixed lines for inclusion in an evaluator prompt.
func FormatHistory(history []llm.Message) string {
	if len(history) == 0 {
		return "(no prior conversation)"
	}

	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s: %s", capitalize(m.Role), m.Content)
	}
	return b.String()
}

// capitalize uppercases the first byte of a role label. History is
// caller-supplied, so an empty or unknown role must render rather than
// fault the turn.
func capitalize(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
