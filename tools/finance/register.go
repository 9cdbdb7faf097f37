package finance

import (
	"context"
	"time"

	"github.com/hupe1980/finsight/tool"
)

// Toolset exposes the financial calculations over a fixed transaction
// dataset as registry tools. The dataset is bound at construction; the model
// only supplies scalar arguments, never raw transactions.
type Toolset struct {
	Transactions   []Transaction
	InitialCapital float64

	// Clock overrides the time source for period filtering. Defaults to
	// time.Now.
	Clock func() time.Time
}

func (ts *Toolset) now() time.Time {
	if ts.Clock != nil {
		return ts.Clock()
	}
	return time.Now().UTC()
}

// Register adds every financial calculation tool to the registry.
func (ts *Toolset) Register(r *tool.Registry) error {
	specs := []struct {
		schema  tool.Schema
		handler tool.Handler
	}{
		{
			schema: tool.Schema{
				Name:        "calculate_balance",
				Description: "Calculate the current cash balance from initial capital and the full transaction history",
				Parameters:  []tool.Parameter{},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return Balance(ts.InitialCapital, ts.Transactions), nil
			},
		},
		{
			schema: tool.Schema{
				Name:        "calculate_burn_rate",
				Description: "Calculate the average monthly net burn rate over a trailing period",
				Parameters: []tool.Parameter{
					{Name: "period_months", Type: "integer", Description: "Number of trailing months to analyze (default 3)"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return BurnRate(ts.Transactions, intArg(args, "period_months", 3), ts.now()), nil
			},
		},
		{
			schema: tool.Schema{
				Name:        "calculate_runway",
				Description: "Calculate months of runway remaining given a balance and monthly burn rate",
				Parameters: []tool.Parameter{
					{Name: "current_balance", Type: "number", Description: "Current cash balance", Required: true},
					{Name: "monthly_burn_rate", Type: "number", Description: "Monthly net burn rate", Required: true},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return Runway(numArg(args, "current_balance", 0), numArg(args, "monthly_burn_rate", 0), ts.now()), nil
			},
		},
		{
			schema: tool.Schema{
				Name:        "analyze_spending_by_category",
				Description: "Break down expenses by category with totals and percentages",
				Parameters: []tool.Parameter{
					{Name: "period_months", Type: "integer", Description: "Trailing months to analyze, 0 for all time"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return SpendingByCategory(ts.Transactions, intArg(args, "period_months", 0), ts.now()), nil
			},
		},
		{
			schema: tool.Schema{
				Name:        "calculate_growth_rate",
				Description: "Calculate the month-over-month growth rate of income or expenses",
				Parameters: []tool.Parameter{
					{Name: "metric", Type: "string", Description: "Which flow to measure", Enum: []string{"income", "expense"}},
					{Name: "period_months", Type: "integer", Description: "Trailing months to analyze (default 6)"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				metric := TransactionType(strArg(args, "metric", string(Income)))
				return GrowthRate(ts.Transactions, metric, intArg(args, "period_months", 6), ts.now()), nil
			},
		},
		{
			schema: tool.Schema{
				Name:        "assess_financial_readiness",
				Description: "Assess whether the company is financially ready to invest",
				Parameters: []tool.Parameter{
					{Name: "current_balance", Type: "number", Description: "Current cash balance", Required: true},
					{Name: "monthly_burn_rate", Type: "number", Description: "Monthly net burn rate", Required: true},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return AssessReadiness(numArg(args, "current_balance", 0), numArg(args, "monthly_burn_rate", 0), ts.now()), nil
			},
		},
		{
			schema: tool.Schema{
				Name:        "calculate_investment_capacity",
				Description: "Calculate how much can be safely invested after reserving an emergency fund",
				Parameters: []tool.Parameter{
					{Name: "current_balance", Type: "number", Description: "Current cash balance", Required: true},
					{Name: "monthly_expenses", Type: "number", Description: "Average monthly expenses", Required: true},
					{Name: "emergency_fund_months", Type: "integer", Description: "Months of expenses to hold back (default 6)"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return InvestmentCapacity(
					numArg(args, "current_balance", 0),
					numArg(args, "monthly_expenses", 0),
					intArg(args, "emergency_fund_months", 6),
				), nil
			},
		},
		{
			schema: tool.Schema{
				Name:        "calculate_health_score",
				Description: "Combine runway, revenue growth and expense control into a 0-100 health score",
				Parameters: []tool.Parameter{
					{Name: "current_balance", Type: "number", Description: "Current cash balance", Required: true},
					{Name: "monthly_burn_rate", Type: "number", Description: "Monthly net burn rate", Required: true},
					{Name: "revenue_growth_rate", Type: "number", Description: "Month-over-month revenue growth percent"},
					{Name: "expense_growth_rate", Type: "number", Description: "Month-over-month expense growth percent"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				return HealthScore(
					numArg(args, "current_balance", 0),
					numArg(args, "monthly_burn_rate", 0),
					numArg(args, "revenue_growth_rate", 0),
					numArg(args, "expense_growth_rate", 0),
				), nil
			},
		},
	}

	for _, s := range specs {
		if err := r.Register(s.schema, s.handler); err != nil {
			return err
		}
	}
	return nil
}

// Model-produced JSON decodes all numbers as float64; these helpers coerce
// with a fallback instead of panicking on a missing or oddly typed argument.

func numArg(args map[string]any, name string, def float64) float64 {
	switch v := args[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

func intArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func strArg(args map[string]any, name string, def string) string {
	if v, ok := args[name].(string); ok && v != "" {
		return v
	}
	return def
}
