package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transient", &TransientServiceError{Service: "llm", Err: fmt.Errorf("boom")}, true},
		{"wrapped transient", fmt.Errorf("call: %w", &TransientServiceError{Service: "llm", Err: fmt.Errorf("boom")}), true},
		{"quota", &QuotaExceededError{Service: "llm", Err: fmt.Errorf("429")}, false},
		{"invalid request", &InvalidRequestError{Reason: "bad args"}, false},
		{"unknown tool", &UnknownToolError{Name: "nope"}, false},
		{"plain error", fmt.Errorf("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestAgentResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  AgentResult
		wantErr bool
	}{
		{"completed with insights", AgentResult{AgentType: "a", Status: StatusCompleted, Insights: "fine"}, false},
		{"completed without insights", AgentResult{AgentType: "a", Status: StatusCompleted}, true},
		{"failed with error", AgentResult{AgentType: "a", Status: StatusFailed, Error: "boom"}, false},
		{"failed without error", AgentResult{AgentType: "a", Status: StatusFailed}, true},
		{"partial with marker", AgentResult{AgentType: "a", Status: StatusPartial, Insights: InconclusiveInsight}, false},
		{"partial empty", AgentResult{AgentType: "a", Status: StatusPartial}, true},
		{"unknown status", AgentResult{AgentType: "a", Status: Status("weird")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConversationAppendOnly(t *testing.T) {
	conv := NewConversation(NewUserTurn("hello"))
	conv.Append(NewModelTurn("hi"))

	require.Equal(t, 2, conv.Len())

	// mutating the returned slice must not affect the log
	turns := conv.Turns()
	turns[0].Text = "tampered"
	fresh := conv.Turns()
	assert.Equal(t, "hello", fresh[0].Text)

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, RoleModel, last.Role)
}

func TestTurnConstructors(t *testing.T) {
	call := ToolCall{ID: "c1", Name: "calculate_balance", Arguments: map[string]any{}}
	req := NewToolRequestTurn("working on it", []ToolCall{call})
	assert.True(t, req.IsToolRequest())
	assert.Equal(t, RoleModel, req.Role)

	res := NewToolResultTurn(ToolResult{CallID: "c1", Name: "calculate_balance", Output: map[string]any{"current_balance": 97000.0}})
	require.NotNil(t, res.Result)
	assert.Equal(t, RoleToolResult, res.Role)
	assert.False(t, res.IsToolRequest())

	assert.NotEmpty(t, req.ID)
	assert.NotEqual(t, req.ID, res.ID)
}

func TestNewMemoryEntry(t *testing.T) {
	res := AgentResult{
		AgentType:  "financial_analyst",
		SessionID:  "sess_1",
		Status:     StatusCompleted,
		Insights:   "all good",
		Analysis:   map[string]any{"calculate_balance": map[string]any{"current_balance": 97000.0}},
		TokenCount: 42,
	}
	e := NewMemoryEntry("subject-1", map[string]any{"prompt": "analyze"}, res)

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "subject-1", e.SubjectID)
	assert.Equal(t, res.AgentType, e.AgentType)
	assert.Equal(t, res.Analysis, e.Output)
	assert.Equal(t, StatusCompleted, e.Status)
	assert.Equal(t, 42, e.TokenCount)
	assert.False(t, e.CreatedAt.IsZero())
}
