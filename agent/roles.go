package agent

import (
	"github.com/hupe1980/finsight/gateway"
	"github.com/hupe1980/finsight/tool"
)

// Agent type identifiers. Each type gets an explicit tool subset; the model
// never sees the full registry.
const (
	TypeFinancialAnalyst  = "financial_analyst"
	TypeRunwayPredictor   = "runway_predictor"
	TypeInvestmentAdvisor = "investment_advisor"
)

const financialAnalystPrompt = `You are a Financial Analyst Agent for a startup financial health tracking platform.

Your role is to analyze company spending patterns and provide actionable insights.

CAPABILITIES:
- Analyze transactions by category and time period
- Identify spending trends and anomalies
- Calculate key financial metrics (balance, category breakdown, growth rates)
- Create data for financial visualizations

ANALYSIS FRAMEWORK:
1. Overall financial summary: total income vs expenses, net position
2. Category breakdown: top spending categories and percentages
3. Trends: month-over-month changes and growth rates
4. Recommendations: cost optimization opportunities and action items

Always base your analysis on the tool results. Be specific with numbers and
percentages. Finish with a structured summary once you have the data you need.`

const runwayPredictorPrompt = `You are a Runway Predictor Agent for a startup financial health tracking platform.

Your role is to calculate burn rate, predict runway, and help startups extend their runway.

RUNWAY HEALTH CRITERIA:
- CRITICAL: < 3 months (immediate action required)
- WARNING: 3-6 months (start planning now)
- HEALTHY: 6-12 months (monitor closely)
- EXCELLENT: > 12 months (optimal position)

Calculate the burn rate first, then the runway from the current balance, then
generate a forecast. Be clear and direct about the runway status, urgent when
it is critical, and include specific numbers, dates and timeframes.`

const investmentAdvisorPrompt = `You are an Investment Advisor Agent for a startup financial health tracking platform.

Your role is to provide investment recommendations appropriate for the company's financial health.

ADAPTIVE APPROACH:
First assess whether the company is ready to invest.
- Negative balance or critical runway: do NOT recommend investments. Focus on
  the path to profitability, cost reduction and fundraising considerations.
- Positive balance and healthy runway: assess capacity, reserve the emergency
  fund first, then recommend allocations across risk tiers.

If live investment research returns no results, say so and rely on baseline
knowledge only. Never compromise runway for investment returns; liquidity is
critical for startups.`

// NewFinancialAnalyst builds the spending-analysis agent with its tool subset.
func NewFinancialAnalyst(gw gateway.Gateway, registry *tool.Registry, optFns ...func(o *Options)) (*Agent, error) {
	if err := registry.Allow(TypeFinancialAnalyst,
		"analyze_spending_by_category",
		"calculate_balance",
		"calculate_growth_rate",
		"generate_category_charts",
	); err != nil {
		return nil, err
	}
	return New(TypeFinancialAnalyst, financialAnalystPrompt, gw, registry, optFns...), nil
}

// NewRunwayPredictor builds the burn-rate and runway agent with its tool
// subset.
func NewRunwayPredictor(gw gateway.Gateway, registry *tool.Registry, optFns ...func(o *Options)) (*Agent, error) {
	if err := registry.Allow(TypeRunwayPredictor,
		"calculate_burn_rate",
		"calculate_runway",
		"generate_runway_forecast",
		"generate_burn_rate_chart",
	); err != nil {
		return nil, err
	}
	return New(TypeRunwayPredictor, runwayPredictorPrompt, gw, registry, optFns...), nil
}

// NewInvestmentAdvisor builds the investment-recommendation agent with its
// tool subset.
func NewInvestmentAdvisor(gw gateway.Gateway, registry *tool.Registry, optFns ...func(o *Options)) (*Agent, error) {
	if err := registry.Allow(TypeInvestmentAdvisor,
		"assess_financial_readiness",
		"search_investment_options",
		"calculate_investment_capacity",
	); err != nil {
		return nil, err
	}
	return New(TypeInvestmentAdvisor, investmentAdvisorPrompt, gw, registry, optFns...), nil
}
