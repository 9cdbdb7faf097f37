// Package memory provides the durable record of past agent executions and
// the historical context derived from it. Entries are append-only and shared
// across orchestration runs, unlike session state which is run-scoped.
package memory

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/hupe1980/finsight/core"
)

// Query filters a recency lookup. Zero-value fields are ignored.
type Query struct {
	SubjectID     string
	AgentType     string
	Limit         int
	MaxAge        time.Duration
	OnlyCompleted bool
}

// Cursor is a lazily-produced, finite, non-restartable sequence of entries
// ordered newest-first.
type Cursor interface {
	Next() bool
	Entry() core.MemoryEntry
	Err() error
	Close() error
}

// Store persists memory entries. Record never fails the caller's main flow:
// persistence errors are logged and swallowed by implementations so that
// observability never blocks functional execution.
type Store interface {
	Record(ctx context.Context, e core.MemoryEntry)
	QueryRecent(ctx context.Context, q Query) (Cursor, error)
}

// Collect drains a cursor into a slice, closing it afterwards.
func Collect(c Cursor) ([]core.MemoryEntry, error) {
	defer c.Close()
	var out []core.MemoryEntry
	for c.Next() {
		out = append(out, c.Entry())
	}
	return out, c.Err()
}

// contextWindow bounds how many recent entries feed BuildContext.
const contextWindow = 5

// summaryLimit truncates insight text in context summaries.
const summaryLimit = 200

// BuildContext aggregates recent completed entries per agent type into a
// compact summary map suitable for injection into a new agent's prompt. The
// aggregation is pure: two calls with no intervening Record return identical
// output.
func BuildContext(ctx context.Context, s Store, subjectID string) (map[string]any, error) {
	minimal := map[string]any{
		"subject_id":            subjectID,
		"has_previous_analyses": false,
	}

	cursor, err := s.QueryRecent(ctx, Query{
		SubjectID:     subjectID,
		Limit:         contextWindow,
		OnlyCompleted: true,
	})
	if err != nil {
		return minimal, err
	}
	entries, err := Collect(cursor)
	if err != nil {
		return minimal, err
	}
	if len(entries) == 0 {
		return minimal, nil
	}

	out := map[string]any{
		"subject_id":              subjectID,
		"has_previous_analyses":   true,
		"previous_analysis_count": len(entries),
	}

	latest := entries[0]
	out["latest_analysis"] = map[string]any{
		"agent_type": latest.AgentType,
		"timestamp":  latest.CreatedAt.Format(time.RFC3339),
		"summary":    truncate(latest.Insights, summaryLimit),
	}

	// Newest entry per agent type, with key metrics surfaced by name.
	// Missing metrics are omitted, never defaulted.
	byAgent := map[string]any{}
	for _, e := range entries {
		if _, seen := byAgent[e.AgentType]; seen {
			continue
		}
		agentCtx := map[string]any{
			"timestamp": e.CreatedAt.Format(time.RFC3339),
			"summary":   truncate(e.Insights, summaryLimit),
		}
		for key, path := range metricPaths {
			if v, ok := dig(e.Output, path...); ok {
				agentCtx[key] = v
			}
		}
		byAgent[e.AgentType] = agentCtx
	}
	out["agents"] = byAgent

	return out, nil
}

// metricPaths names the cross-agent metrics surfaced into context, keyed by
// their location in the structured analysis payload.
var metricPaths = map[string][]string{
	"current_balance":      {"calculate_balance", "current_balance"},
	"runway_months":        {"calculate_runway", "runway_months"},
	"runway_status":        {"calculate_runway", "status"},
	"burn_rate":            {"calculate_burn_rate", "burn_rate"},
	"investment_readiness": {"assess_financial_readiness", "readiness"},
}

// dig walks nested string-keyed maps along path.
func dig(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, p := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// Performance aggregates execution statistics over a recency window.
type Performance struct {
	WindowDays     int     `json:"period_days"`
	Total          int     `json:"total_executions"`
	Completed      int     `json:"completed_executions"`
	Failed         int     `json:"failed_executions"`
	SuccessRate    float64 `json:"success_rate"`
	AvgDurationMS  float64 `json:"avg_execution_time_ms"`
	TotalTokens    int     `json:"total_tokens_used"`
	AvgTokensPerEx float64 `json:"avg_tokens_per_execution"`
}

// PerformanceMetrics computes execution statistics for a subject (empty for
// all subjects) and agent type (empty for all types) over the given window.
func PerformanceMetrics(ctx context.Context, s Store, subjectID, agentType string, windowDays int) (Performance, error) {
	perf := Performance{WindowDays: windowDays}

	cursor, err := s.QueryRecent(ctx, Query{
		SubjectID: subjectID,
		AgentType: agentType,
		MaxAge:    time.Duration(windowDays) * 24 * time.Hour,
	})
	if err != nil {
		return perf, err
	}
	entries, err := Collect(cursor)
	if err != nil {
		return perf, err
	}

	var totalDuration time.Duration
	for _, e := range entries {
		perf.Total++
		switch e.Status {
		case core.StatusCompleted:
			perf.Completed++
		case core.StatusFailed:
			perf.Failed++
		}
		totalDuration += e.Duration
		perf.TotalTokens += e.TokenCount
	}
	if perf.Total > 0 {
		perf.SuccessRate = float64(perf.Completed) / float64(perf.Total)
		perf.AvgDurationMS = float64(totalDuration.Milliseconds()) / float64(perf.Total)
		perf.AvgTokensPerEx = float64(perf.TotalTokens) / float64(perf.Total)
	}
	return perf, nil
}
