package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/finsight/agent"
	"github.com/hupe1980/finsight/core"
)

func TestSummarize(t *testing.T) {
	results := map[string]core.AgentResult{
		agent.TypeFinancialAnalyst: {
			Status: core.StatusCompleted,
			Analysis: map[string]any{
				"calculate_balance": map[string]any{"current_balance": 42000.0},
			},
		},
		agent.TypeRunwayPredictor: {
			Status: core.StatusCompleted,
			Analysis: map[string]any{
				"calculate_runway":    map[string]any{"runway_months": 5.25, "status": "warning"},
				"calculate_burn_rate": map[string]any{"burn_rate": 8000.0},
			},
		},
		agent.TypeInvestmentAdvisor: {Status: core.StatusFailed},
	}

	summary := summarize(results)
	assert.Equal(t, 2, summary["agents_completed"])
	assert.Equal(t, 1, summary["agents_failed"])
	assert.Equal(t, 42000.0, summary["current_balance"])
	assert.Equal(t, 5.25, summary["runway_months"])
	assert.Equal(t, "warning", summary["runway_status"])
	assert.Equal(t, 8000.0, summary["burn_rate"])
	// the advisor failed, so its metric never appears
	assert.NotContains(t, summary, "investment_readiness")
}

func TestSummarizeOmitsNilMetrics(t *testing.T) {
	results := map[string]core.AgentResult{
		agent.TypeRunwayPredictor: {
			Status: core.StatusCompleted,
			Analysis: map[string]any{
				// positive cash flow leaves runway_months unset
				"calculate_runway": map[string]any{"runway_months": nil, "status": "positive_cash_flow"},
			},
		},
	}

	summary := summarize(results)
	assert.NotContains(t, summary, "runway_months")
	assert.Equal(t, "positive_cash_flow", summary["runway_status"])
}

func TestOverallStatus(t *testing.T) {
	completed := core.AgentResult{Status: core.StatusCompleted}
	partial := core.AgentResult{Status: core.StatusPartial}
	failed := core.AgentResult{Status: core.StatusFailed}

	tests := []struct {
		name    string
		results map[string]core.AgentResult
		want    string
	}{
		{"all completed", map[string]core.AgentResult{"a": completed, "b": completed}, "success"},
		{"some completed", map[string]core.AgentResult{"a": completed, "b": failed}, "partial"},
		{"partial counts as incomplete", map[string]core.AgentResult{"a": completed, "b": partial}, "partial"},
		{"none completed", map[string]core.AgentResult{"a": failed, "b": failed}, "failed"},
		{"empty", nil, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, overallStatus(tt.results))
		})
	}
}
