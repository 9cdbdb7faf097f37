// Package agent implements the bounded tool-calling loop that drives one
// specialized agent against the model gateway. The loop alternates model
// completions with local tool execution until the model produces a final
// answer, the round-trip budget runs out, or the context is cancelled.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/gateway"
	"github.com/hupe1980/finsight/logging"
	"github.com/hupe1980/finsight/memory"
	"github.com/hupe1980/finsight/metrics"
	"github.com/hupe1980/finsight/session"
	"github.com/hupe1980/finsight/tool"
)

// DefaultMaxTurns bounds the number of model round-trips per invocation.
const DefaultMaxTurns = 4

// Options configures an Agent.
type Options struct {
	// MaxTurns is the model round-trip budget. Reaching it without a final
	// answer yields a partial result, never an error.
	MaxTurns int

	// RetryAttempts and RetryBackoff control transient-failure retry on
	// gateway calls.
	RetryAttempts int
	RetryBackoff  time.Duration

	Logger   logging.Logger
	Metrics  *metrics.Metrics
	Sessions *session.Store
	Memory   memory.Store
}

// Agent runs the tool-calling loop for one agent type. Agents are stateless
// between invocations; all per-run state lives in the conversation, the
// session and the memory store.
type Agent struct {
	agentType    string
	systemPrompt string
	gateway      gateway.Gateway
	registry     *tool.Registry
	opts         Options
	logger       logging.Logger
}

// New constructs an agent bound to a gateway and tool registry.
func New(agentType, systemPrompt string, gw gateway.Gateway, registry *tool.Registry, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxTurns:      DefaultMaxTurns,
		RetryAttempts: 3,
		RetryBackoff:  500 * time.Millisecond,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTurns < 1 {
		opts.MaxTurns = DefaultMaxTurns
	}
	return &Agent{
		agentType:    agentType,
		systemPrompt: systemPrompt,
		gateway:      gw,
		registry:     registry,
		opts:         opts,
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// Type returns the agent type identifier.
func (a *Agent) Type() string { return a.agentType }

// Execute runs one invocation. It always returns a terminal result, and it
// records exactly one memory entry per call regardless of outcome. A gateway
// failure or cancellation mid-loop fails the invocation but keeps whatever
// tool outputs were already accumulated.
func (a *Agent) Execute(ctx context.Context, subjectID, sessionID, prompt string, runContext map[string]any) core.AgentResult {
	start := time.Now()
	analysis := map[string]any{}

	conv := core.NewConversation()
	a.appendTurn(sessionID, conv, core.NewUserTurn(renderPrompt(prompt, runContext)))

	res := a.runLoop(ctx, sessionID, conv, analysis)
	res.AgentType = a.agentType
	res.SessionID = sessionID
	res.Analysis = analysis
	res.Elapsed = time.Since(start)
	res.Timestamp = time.Now().UTC()

	a.opts.Metrics.ObserveAgent(a.agentType, string(res.Status), res.Elapsed)
	a.logger.Info("agent.done",
		"agent_type", a.agentType,
		"session_id", sessionID,
		"status", string(res.Status),
		"model_calls", res.ModelCalls,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)

	if a.opts.Memory != nil {
		input := map[string]any{"prompt": prompt}
		if len(runContext) > 0 {
			// snapshot: the caller may keep mutating its map after this
			// entry is recorded
			input["context"] = maps.Clone(runContext)
		}
		a.opts.Memory.Record(ctx, core.NewMemoryEntry(subjectID, input, res))
	}
	return res
}

// runLoop drives the model round-trips. It fills Status, Insights, Error,
// ModelCalls and TokenCount; the caller stamps the rest.
func (a *Agent) runLoop(ctx context.Context, sessionID string, conv *core.Conversation, analysis map[string]any) core.AgentResult {
	var res core.AgentResult
	lastText := ""
	seenCalls := map[string]bool{}

	for turn := 1; turn <= a.opts.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			res.Status = core.StatusFailed
			res.Error = err.Error()
			return res
		}

		req := gateway.Request{
			System: a.systemPrompt,
			Turns:  conv.Turns(),
			Tools:  a.registry.ListFor(a.agentType),
			Mode:   gateway.ModeAuto,
		}
		comp, err := gateway.CompleteWithRetry(ctx, a.gateway, req, a.opts.RetryAttempts, a.opts.RetryBackoff)
		res.ModelCalls++
		if err != nil {
			a.opts.Metrics.ObserveModelCall(a.gateway.Info().Provider, "error")
			a.logger.Warn("agent.model_call.failed", "agent_type", a.agentType, "turn", turn, "error", err.Error())
			res.Status = core.StatusFailed
			res.Error = fmt.Sprintf("model call failed on turn %d: %v", turn, err)
			return res
		}
		a.opts.Metrics.ObserveModelCall(a.gateway.Info().Provider, "ok")
		res.TokenCount += comp.Usage.TotalTokens

		if !comp.IsToolRequest() {
			a.appendTurn(sessionID, conv, core.NewModelTurn(comp.Text))
			res.Status = core.StatusCompleted
			res.Insights = comp.Text
			return res
		}

		if comp.Text != "" {
			lastText = comp.Text
		}
		a.appendTurn(sessionID, conv, core.NewToolRequestTurn(comp.Text, comp.ToolCalls))
		a.executeCalls(ctx, sessionID, conv, comp.ToolCalls, analysis, seenCalls)
	}

	// budget exhausted without a final answer
	res.Status = core.StatusPartial
	if lastText != "" {
		res.Insights = lastText
	} else {
		res.Insights = core.InconclusiveInsight
	}
	return res
}

// executeCalls runs every requested tool call in order. Failures, including
// unknown tool names, become error-carrying tool-result turns so the model
// can react on the next round-trip.
func (a *Agent) executeCalls(ctx context.Context, sessionID string, conv *core.Conversation, calls []core.ToolCall, analysis map[string]any, seen map[string]bool) {
	for _, call := range calls {
		if sig := callSignature(call); seen[sig] {
			a.logger.Debug("agent.tool.repeated", "agent_type", a.agentType, "tool", call.Name)
		} else {
			seen[sig] = true
		}
		out, err := a.registry.Execute(ctx, call.Name, call.Arguments)
		result := core.ToolResult{CallID: call.ID, Name: call.Name}
		if err != nil {
			result.Error = err.Error()
			a.opts.Metrics.ObserveTool(call.Name, "error")
			a.logger.Warn("agent.tool.failed", "agent_type", a.agentType, "tool", call.Name, "error", err.Error())
		} else {
			result.Output = out
			analysis[call.Name] = out
			a.opts.Metrics.ObserveTool(call.Name, "ok")
			a.logger.Debug("agent.tool.ok", "agent_type", a.agentType, "tool", call.Name)
		}
		a.appendTurn(sessionID, conv, core.NewToolResultTurn(result))
	}
}

// appendTurn records the turn in the local conversation and mirrors it to
// the session when one is attached.
func (a *Agent) appendTurn(sessionID string, conv *core.Conversation, t core.Turn) {
	conv.Append(t)
	if a.opts.Sessions == nil || sessionID == "" {
		return
	}
	if err := a.opts.Sessions.Append(sessionID, t); err != nil {
		a.logger.Warn("agent.session.append_failed", "session_id", sessionID, "error", err.Error())
	}
}

// callSignature identifies a tool call by name and argument payload. Repeated
// signatures are executed again; the turn budget is the only bound.
func callSignature(call core.ToolCall) string {
	raw, err := json.Marshal(call.Arguments)
	if err != nil {
		return call.Name
	}
	return call.Name + ":" + string(raw)
}

// renderPrompt folds the run context into the opening user turn so the model
// sees prior-run knowledge alongside the task.
func renderPrompt(prompt string, runContext map[string]any) string {
	if len(runContext) == 0 {
		return prompt
	}
	raw, err := json.MarshalIndent(runContext, "", "  ")
	if err != nil {
		return prompt
	}
	return prompt + "\n\nCONTEXT:\n" + string(raw)
}
