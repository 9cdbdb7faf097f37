// Package gateway defines the boundary to the remote LLM service. A Gateway
// sends a conversation plus the available tool schemas and returns either a
// final natural-language answer or one-or-more tool invocation requests.
// Vendor adapters live in the subpackages; they translate the internal tool
// schemas into whatever declaration format the remote service expects. The
// translation is pure and stateless.
//
// A Gateway never executes tools. Tool execution happens in the agent loop,
// only after a successful response is received, which keeps retries of the
// same completion request idempotent-safe.
package gateway

import (
	"context"
	"time"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/tool"
)

// Mode controls whether the model decides about tool use itself. AUTO is the
// default and currently the only supported mode; the type exists so a forced
// mode can be added without changing the Gateway signature.
type Mode int

const (
	// ModeAuto lets the model decide whether to use tools.
	ModeAuto Mode = iota
)

// Request is the normalized gateway input.
type Request struct {
	System string
	Turns  []core.Turn
	Tools  []tool.Schema
	Mode   Mode
}

// Usage captures token usage statistics for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the gateway output: either final answer text or a batch of
// tool invocation requests (possibly with accompanying text).
type Completion struct {
	Text      string
	ToolCalls []core.ToolCall
	Usage     Usage
}

// IsToolRequest reports whether the completion asks for tool execution.
func (c *Completion) IsToolRequest() bool { return len(c.ToolCalls) > 0 }

// Info contains metadata about a gateway implementation.
type Info struct {
	Provider string
	Model    string
}

// Gateway is the minimal interface agents use to drive generation.
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Info() Info
}

// CompleteWithRetry calls the gateway with bounded retry and exponential
// backoff. Only transient failures are retried; invalid-request and
// quota-exceeded errors surface immediately. Retrying is safe because the
// gateway never executes tools.
func CompleteWithRetry(ctx context.Context, g Gateway, req Request, attempts int, backoff time.Duration) (*Completion, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		comp, err := g.Complete(ctx, req)
		if err == nil {
			return comp, nil
		}
		lastErr = err
		if !core.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, lastErr
}
