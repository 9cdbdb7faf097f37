package core

import (
	"time"
)

// Role identifies the author of a conversation turn. The set is closed:
// turns are created through the New*Turn constructors only.
type Role string

const (
	// RoleUser marks a turn carrying caller-provided input.
	RoleUser Role = "user"
	// RoleModel marks a turn produced by the remote model, either free text
	// or one-or-more tool invocation requests.
	RoleModel Role = "model"
	// RoleToolResult marks a turn carrying the outcome of a single tool call.
	RoleToolResult Role = "tool_result"
)

// ToolCall is a tool invocation request surfaced by the model. It is created
// when a gateway completion contains a function-call directive and consumed
// exactly once by the agent loop.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult captures the outcome of a previously requested tool call. Error
// is populated instead of Output when the handler failed; the model gets a
// chance to react to either.
type ToolResult struct {
	CallID string         `json:"call_id"`
	Name   string         `json:"name"`
	Output map[string]any `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Turn is one element of the ordered conversation log sent to the model.
// Exactly one payload is set depending on Role:
//
//	RoleUser       -> Text
//	RoleModel      -> Text and/or ToolCalls
//	RoleToolResult -> ToolResult
type Turn struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Text      string      `json:"text,omitempty"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
	Result    *ToolResult `json:"result,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewUserTurn creates a user-authored text turn.
func NewUserTurn(text string) Turn {
	return Turn{ID: NewID(), Role: RoleUser, Text: text, Timestamp: time.Now().UTC()}
}

// NewModelTurn creates a model-authored turn carrying final answer text.
func NewModelTurn(text string) Turn {
	return Turn{ID: NewID(), Role: RoleModel, Text: text, Timestamp: time.Now().UTC()}
}

// NewToolRequestTurn records a model tool request verbatim, including any
// accompanying text the model produced alongside the calls.
func NewToolRequestTurn(text string, calls []ToolCall) Turn {
	return Turn{ID: NewID(), Role: RoleModel, Text: text, ToolCalls: calls, Timestamp: time.Now().UTC()}
}

// NewToolResultTurn creates a turn answering a single tool call.
func NewToolResultTurn(res ToolResult) Turn {
	return Turn{ID: NewID(), Role: RoleToolResult, Result: &res, Timestamp: time.Now().UTC()}
}

// IsToolRequest reports whether the turn contains at least one tool call.
func (t Turn) IsToolRequest() bool { return len(t.ToolCalls) > 0 }

// Conversation is an append-only ordered log of turns. The zero value is
// ready to use. It is not safe for concurrent mutation; within one agent
// invocation the loop is the single writer.
type Conversation struct {
	turns []Turn
}

// NewConversation builds a conversation pre-seeded with the given turns.
func NewConversation(turns ...Turn) *Conversation {
	c := &Conversation{}
	c.turns = append(c.turns, turns...)
	return c
}

// Append adds a turn to the end of the log.
func (c *Conversation) Append(t Turn) { c.turns = append(c.turns, t) }

// Turns returns a defensive copy of the ordered log.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns recorded so far.
func (c *Conversation) Len() int { return len(c.turns) }

// Last returns the most recent turn and true, or a zero turn and false when
// the log is empty.
func (c *Conversation) Last() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}
