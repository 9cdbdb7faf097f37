// Package openai provides a gateway adapter for the OpenAI Chat Completions
// API, including function/tool calling.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/gateway"
	"github.com/hupe1980/finsight/tool"
)

// Options configure the OpenAI gateway adapter. Fields mirror a subset of
// Chat Completion parameters intentionally kept minimal.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
}

// Gateway wraps the OpenAI Chat Completions API behind the generic
// gateway.Gateway interface.
type Gateway struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI gateway using the official client.
func New(optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := openai.NewClient(clientOpts...)

	return &Gateway{client: &client, opts: opts}
}

// NewFromClient creates a new OpenAI gateway from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Gateway {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 2048,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Gateway{client: client, opts: opts}
}

// Complete implements gateway.Gateway for non-streaming chat completions.
func (g *Gateway) Complete(ctx context.Context, req gateway.Request) (*gateway.Completion, error) {
	if len(req.Turns) == 0 {
		return nil, &core.InvalidRequestError{Reason: "conversation has no turns"}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(req.System, req.Turns),
		Model:               g.opts.Model,
		Temperature:         openai.Float(g.opts.Temperature),
		MaxCompletionTokens: openai.Int(g.opts.MaxCompletionTokens),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &core.TransientServiceError{Service: "openai", Err: fmt.Errorf("no choices returned")}
	}

	ch0 := resp.Choices[0]
	comp := &gateway.Completion{
		Text: ch0.Message.Content,
		Usage: gateway.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	for _, tc := range ch0.Message.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		comp.ToolCalls = append(comp.ToolCalls, core.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return comp, nil
}

// Info returns metadata describing this OpenAI gateway.
func (g *Gateway) Info() gateway.Info {
	return gateway.Info{Provider: "openai", Model: g.opts.Model}
}

// buildMessages converts finsight turns into OpenAI chat messages. Tool
// results follow the assistant message that requested them, matched by call
// id as the Chat Completions API requires.
func buildMessages(system string, turns []core.Turn) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}

	for _, t := range turns {
		switch t.Role {
		case core.RoleUser:
			if t.Text != "" {
				messages = append(messages, openai.UserMessage(t.Text))
			}
		case core.RoleModel:
			if len(t.ToolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(t.Text))
				continue
			}
			toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(t.ToolCalls))
			for _, call := range t.ToolCalls {
				raw, err := json.Marshal(call.Arguments)
				if err != nil {
					raw = []byte("{}")
				}
				toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
					ID:   call.ID,
					Type: "function",
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      call.Name,
						Arguments: string(raw),
					},
				})
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: toolCalls,
			}
			// text accompanying a tool request is part of the recorded turn
			if t.Text != "" {
				assistant.Content.OfString = openai.String(t.Text)
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case core.RoleToolResult:
			if t.Result == nil {
				continue
			}
			messages = append(messages, openai.ToolMessage(renderResult(*t.Result), t.Result.CallID))
		}
	}
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

// buildTools converts finsight tool schemas to OpenAI tool declarations.
func buildTools(schemas []tool.Schema) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(schemas))
	for i, s := range schemas {
		out[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        s.Name,
				Description: openai.String(s.Description),
				Parameters:  s.JSONSchema(),
			},
		}
	}
	return out
}

// classify maps SDK failures onto the gateway error taxonomy.
func classify(err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == 429:
			return &core.QuotaExceededError{Service: "openai", Err: err}
		case apierr.StatusCode >= 500:
			return &core.TransientServiceError{Service: "openai", Err: err}
		default:
			return &core.InvalidRequestError{Reason: "openai rejected the request", Err: err}
		}
	}
	return &core.TransientServiceError{Service: "openai", Err: err}
}
