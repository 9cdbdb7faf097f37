package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Errors local to one tool call or one agent are contained
// and reflected in that agent's result; they never abort sibling agents or
// the whole orchestration.

// DuplicateToolError indicates a tool name was registered twice. This is a
// programming error and is never retried.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError indicates a lookup for a tool name that was never
// registered. Inside the agent loop it is converted into a tool-result turn
// so the model can react; everywhere else it is fatal.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// SessionNotFoundError indicates an operation on an expired or absent
// session.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found or expired", e.ID)
}

// ConfigurationError indicates missing or invalid credentials for an
// optional external capability. Callers degrade rather than abort.
type ConfigurationError struct {
	Component string
	Reason    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Reason)
}

// TransientServiceError wraps network failures and 5xx responses from remote
// services. Eligible for bounded retry with backoff.
type TransientServiceError struct {
	Service string
	Err     error
}

func (e *TransientServiceError) Error() string {
	return fmt.Sprintf("transient error from %s: %v", e.Service, e.Err)
}

func (e *TransientServiceError) Unwrap() error { return e.Err }

// InvalidRequestError wraps malformed prompts, schemas or arguments. Never
// retried, surfaced immediately.
type InvalidRequestError struct {
	Reason string
	Err    error
}

func (e *InvalidRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid request: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

func (e *InvalidRequestError) Unwrap() error { return e.Err }

// QuotaExceededError wraps rate or budget limit responses. Never retried;
// carries a distinct kind so callers can disable the feature.
type QuotaExceededError struct {
	Service string
	Err     error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %v", e.Service, e.Err)
}

func (e *QuotaExceededError) Unwrap() error { return e.Err }

// ToolExecutionError wraps a failure raised by a registered tool handler. It
// is converted into a tool-result turn, not an immediate abort of the loop.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient service failure that a
// caller may retry with backoff. Quota and invalid-request errors are
// explicitly not retryable.
func IsRetryable(err error) bool {
	var transient *TransientServiceError
	return errors.As(err, &transient)
}
