// Package llmtest provides a deterministic llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"

	"autoasesor/internal/llm"
)

// ScriptedClient answers each Generate call through the Script function,
// which receives the outgoing messages and returns the canned reply.
// Every call is recorded for later inspection.
type ScriptedClient struct {
	Script func(messages []llm.Message) (string, error)
	Calls  [][]llm.Message
}

func (c *ScriptedClient) Generate(ctx context.Context, messages []llm.Message) (llm.Response, error) {
	snapshot := make([]llm.Message, len(messages))
	copy(snapshot, messages)
	c.Calls = append(c.Calls, snapshot)

	if c.Script == nil {
		return llm.Response{}, fmt.Errorf("llmtest: no script configured")
	}
	content, err := c.Script(messages)
	if err != nil {
		return llm.Response{}, err
	}
	return llm.Response{Content: content, Model: "scripted"}, nil
}

// LastMessage returns the content of the final message of the most recent
// call, or the empty string when nothing was recorded.
func (c *ScriptedClient) LastMessage() string {
	if len(c.Calls) == 0 {
		return ""
	}
	call := c.Calls[len(c.Calls)-1]
	if len(call) == 0 {
		return ""
	}
	return call[len(call)-1].Content
}
