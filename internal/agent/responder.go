// Package agent holds the three LLM-backed agents of the assistant: the
// responder that answers users, the summarizer that builds user memory and
// the optimizer that learns rules from negative feedback.
package agent

import (
	"context"
	"fmt"

	"autoasesor/internal/llm"
)

// Responder answers a user question given the full conversation transcript,
// system prompt included. One call, no retries; a failure aborts only the
// current turn.
type Responder struct {
	llm llm.Client
}

func NewResponder(client llm.Client) *Responder {
	return &Responder{llm: client}
}

func (r *Responder) Respond(ctx context.Context, transcript []llm.Message) (string, error) {
	resp, err := r.llm.Generate(ctx, transcript)
	if err != nil {
		return "", fmt.Errorf("respond: %w", err)
	}
	return resp.Content, nil
}
