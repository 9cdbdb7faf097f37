package core

import (
	"fmt"
	"time"
)

// Status is the terminal state of one agent invocation.
type Status string

const (
	// StatusCompleted means the loop produced a final natural-language answer.
	StatusCompleted Status = "completed"
	// StatusFailed means the invocation failed terminally (gateway error,
	// deadline, ...). Error detail is mandatory.
	StatusFailed Status = "failed"
	// StatusPartial means the turn limit was reached before a final answer;
	// the result carries a best-effort answer or an inconclusive marker.
	StatusPartial Status = "partial"
)

// InconclusiveInsight is recorded when the turn limit is exhausted without
// the model ever producing natural-language text.
const InconclusiveInsight = "inconclusive: turn limit reached before a final answer was produced"

// AgentResult is the immutable outcome of one agent invocation.
type AgentResult struct {
	AgentType  string         `json:"agent_type"`
	SessionID  string         `json:"session_id"`
	Status     Status         `json:"status"`
	Insights   string         `json:"insights,omitempty"`
	Analysis   map[string]any `json:"analysis,omitempty"`
	Error      string         `json:"error,omitempty"`
	ModelCalls int            `json:"model_calls"`
	TokenCount int            `json:"token_count"`
	Elapsed    time.Duration  `json:"elapsed"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Validate checks the structural invariants: completed results carry insight
// text, failed results carry error detail.
func (r AgentResult) Validate() error {
	switch r.Status {
	case StatusCompleted:
		if r.Insights == "" {
			return fmt.Errorf("completed result for agent %s has empty insight text", r.AgentType)
		}
	case StatusFailed:
		if r.Error == "" {
			return fmt.Errorf("failed result for agent %s has no error detail", r.AgentType)
		}
	case StatusPartial:
		// partial results always carry at least the inconclusive marker
		if r.Insights == "" {
			return fmt.Errorf("partial result for agent %s has no best-effort answer", r.AgentType)
		}
	default:
		return fmt.Errorf("unknown status %q", r.Status)
	}
	return nil
}

// MemoryEntry is the durable record of one agent invocation. Entries are
// append-only and never mutated after creation.
type MemoryEntry struct {
	ID         string         `json:"id"`
	SubjectID  string         `json:"subject_id"`
	AgentType  string         `json:"agent_type"`
	SessionID  string         `json:"session_id"`
	Input      map[string]any `json:"input,omitempty"`
	Output     map[string]any `json:"output,omitempty"`
	Insights   string         `json:"insights,omitempty"`
	Status     Status         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Duration   time.Duration  `json:"duration"`
	TokenCount int            `json:"token_count"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewMemoryEntry derives a memory entry from an agent result and its input
// snapshot.
func NewMemoryEntry(subjectID string, input map[string]any, res AgentResult) MemoryEntry {
	return MemoryEntry{
		ID:         NewID(),
		SubjectID:  subjectID,
		AgentType:  res.AgentType,
		SessionID:  res.SessionID,
		Input:      input,
		Output:     res.Analysis,
		Insights:   res.Insights,
		Status:     res.Status,
		Error:      res.Error,
		Duration:   res.Elapsed,
		TokenCount: res.TokenCount,
		CreatedAt:  time.Now().UTC(),
	}
}
