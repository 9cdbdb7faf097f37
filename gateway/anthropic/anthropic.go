// Package anthropic provides a gateway adapter for the Anthropic Claude
// Messages API, including function/tool calling.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/gateway"
	"github.com/hupe1980/finsight/tool"
)

// Options configures the Anthropic gateway adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Gateway wraps the Anthropic Messages API behind the generic
// gateway.Gateway interface.
type Gateway struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic gateway using the official client.
func New(optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Gateway{client: &client, opts: opts}
}

// NewFromClient creates a new Anthropic gateway from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{client: client, opts: opts}
}

// Complete implements gateway.Gateway for the non-streaming Messages API.
func (g *Gateway) Complete(ctx context.Context, req gateway.Request) (*gateway.Completion, error) {
	if len(req.Turns) == 0 {
		return nil, &core.InvalidRequestError{Reason: "conversation has no turns"}
	}

	params := anthropic.MessageNewParams{
		Model:       g.opts.Model,
		Messages:    buildMessages(req.Turns),
		MaxTokens:   g.opts.MaxTokens,
		Temperature: anthropic.Float(g.opts.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}

	comp := &gateway.Completion{
		Usage: gateway.Usage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			comp.Text += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			args := map[string]any{}
			if tu.Input != nil {
				if raw, err := json.Marshal(tu.Input); err == nil {
					_ = json.Unmarshal(raw, &args)
				}
			}
			comp.ToolCalls = append(comp.ToolCalls, core.ToolCall{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: args,
			})
		}
	}
	return comp, nil
}

// Info returns metadata describing this Anthropic gateway.
func (g *Gateway) Info() gateway.Info {
	return gateway.Info{Provider: "anthropic", Model: string(g.opts.Model)}
}

// buildMessages converts finsight turns into Anthropic message params.
// Consecutive tool-result turns are grouped into one user message so role
// alternation stays valid.
func buildMessages(turns []core.Turn) []anthropic.MessageParam {
	var messages []anthropic.MessageParam
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			messages = append(messages, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, t := range turns {
		switch t.Role {
		case core.RoleUser:
			flushResults()
			if t.Text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Text)))
			}
		case core.RoleModel:
			flushResults()
			var content []anthropic.ContentBlockParamUnion
			if t.Text != "" {
				content = append(content, anthropic.NewTextBlock(t.Text))
			}
			for _, call := range t.ToolCalls {
				content = append(content, anthropic.NewToolUseBlock(call.ID, call.Arguments, call.Name))
			}
			if len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
		case core.RoleToolResult:
			if t.Result == nil {
				continue
			}
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(
				t.Result.CallID,
				renderResult(*t.Result),
				t.Result.Error != "",
			))
		}
	}
	flushResults()
	return messages
}

// renderResult serializes a tool result for the model.
func renderResult(res core.ToolResult) string {
	if res.Error != "" {
		return fmt.Sprintf("error: %s", res.Error)
	}
	raw, err := json.Marshal(res.Output)
	if err != nil {
		return fmt.Sprintf("%v", res.Output)
	}
	return string(raw)
}

// buildTools converts finsight tool schemas to Anthropic tool declarations.
func buildTools(schemas []tool.Schema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(schemas))
	for i, s := range schemas {
		js := s.JSONSchema()
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if properties, ok := js["properties"]; ok {
			inputSchema.Properties = properties
		}
		if required, ok := js["required"].([]string); ok {
			inputSchema.Required = required
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, s.Name)
	}
	return out
}

// classify maps SDK failures onto the gateway error taxonomy.
func classify(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return &core.QuotaExceededError{Service: "anthropic", Err: err}
		case apierr.StatusCode >= 500:
			return &core.TransientServiceError{Service: "anthropic", Err: err}
		default:
			return &core.InvalidRequestError{Reason: "anthropic rejected the request", Err: err}
		}
	}
	// Network-level failures (timeouts, DNS, connection resets) arrive as
	// plain errors and are treated as transient.
	return &core.TransientServiceError{Service: "anthropic", Err: err}
}
