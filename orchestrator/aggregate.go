package orchestrator

import (
	"github.com/hupe1980/finsight/agent"
	"github.com/hupe1980/finsight/core"
)

// summaryPaths maps summary keys to the agent and tool output they come
// from. Keys with no value in the run are omitted from the summary, never
// defaulted.
var summaryPaths = []struct {
	key   string
	agent string
	path  []string
}{
	{"current_balance", agent.TypeFinancialAnalyst, []string{"calculate_balance", "current_balance"}},
	{"runway_months", agent.TypeRunwayPredictor, []string{"calculate_runway", "runway_months"}},
	{"runway_status", agent.TypeRunwayPredictor, []string{"calculate_runway", "status"}},
	{"burn_rate", agent.TypeRunwayPredictor, []string{"calculate_burn_rate", "burn_rate"}},
	{"investment_readiness", agent.TypeInvestmentAdvisor, []string{"assess_financial_readiness", "readiness"}},
}

// summarize extracts the cross-agent key metrics by name from each agent's
// structured payload.
func summarize(results map[string]core.AgentResult) map[string]any {
	summary := map[string]any{}

	completed, failed := 0, 0
	for _, res := range results {
		if res.Status == core.StatusCompleted {
			completed++
		} else if res.Status == core.StatusFailed {
			failed++
		}
	}
	summary["agents_completed"] = completed
	summary["agents_failed"] = failed

	for _, sp := range summaryPaths {
		res, ok := results[sp.agent]
		if !ok {
			continue
		}
		if v, ok := dig(res.Analysis, sp.path...); ok && v != nil {
			summary[sp.key] = v
		}
	}
	return summary
}

// overallStatus is success when every agent completed, failed when none did,
// partial otherwise.
func overallStatus(results map[string]core.AgentResult) string {
	if len(results) == 0 {
		return "failed"
	}
	completed := 0
	for _, res := range results {
		if res.Status == core.StatusCompleted {
			completed++
		}
	}
	switch completed {
	case len(results):
		return "success"
	case 0:
		return "failed"
	default:
		return "partial"
	}
}

// dig walks nested string-keyed maps along the path.
func dig(m map[string]any, path ...string) (any, bool) {
	var current any = m
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
