package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/finsight/artifact"
	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/tool"
	"github.com/hupe1980/finsight/tools/finance"
)

// Toolset exposes the chart builders as registry tools. When an artifact
// store and session id are configured, full payloads are persisted there and
// the tool result carries the artifact id alongside the data.
type Toolset struct {
	Transactions   []finance.Transaction
	InitialCapital float64

	Artifacts artifact.Store
	SessionID string

	Clock func() time.Time
}

func (ts *Toolset) now() time.Time {
	if ts.Clock != nil {
		return ts.Clock()
	}
	return time.Now().UTC()
}

// Register adds every chart generation tool to the registry.
func (ts *Toolset) Register(r *tool.Registry) error {
	specs := []struct {
		schema  tool.Schema
		handler tool.Handler
	}{
		{
			schema: tool.Schema{
				Name:        "generate_burn_rate_chart",
				Description: "Generate a month-by-month burn rate chart series",
				Parameters: []tool.Parameter{
					{Name: "months", Type: "integer", Description: "Trailing months to include (default 12)"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				payload := BurnRateChart(ts.Transactions, intArg(args, "months", 12), ts.now())
				return ts.persist(payload)
			},
		},
		{
			schema: tool.Schema{
				Name:        "generate_category_charts",
				Description: "Generate a category breakdown chart for income or expenses",
				Parameters: []tool.Parameter{
					{Name: "transaction_type", Type: "string", Description: "Which flow to chart", Enum: []string{"income", "expense"}},
					{Name: "top_n", Type: "integer", Description: "Number of top categories to show (default 10)"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				txType := finance.TransactionType(strArg(args, "transaction_type", string(finance.Expense)))
				payload := CategoryBreakdownChart(ts.Transactions, txType, intArg(args, "top_n", 10))
				return ts.persist(payload)
			},
		},
		{
			schema: tool.Schema{
				Name:        "generate_runway_forecast",
				Description: "Project the balance forward at the current burn rate and find the depletion point",
				Parameters: []tool.Parameter{
					{Name: "current_balance", Type: "number", Description: "Current cash balance", Required: true},
					{Name: "monthly_burn_rate", Type: "number", Description: "Monthly net burn rate", Required: true},
					{Name: "forecast_months", Type: "integer", Description: "Months to project (default 12)"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				payload := RunwayForecastChart(
					numArg(args, "current_balance", 0),
					numArg(args, "monthly_burn_rate", 0),
					intArg(args, "forecast_months", 12),
					ts.now(),
				)
				return ts.persist(payload)
			},
		},
		{
			schema: tool.Schema{
				Name:        "generate_balance_history_chart",
				Description: "Generate end-of-month balances over the trailing window",
				Parameters: []tool.Parameter{
					{Name: "months", Type: "integer", Description: "Trailing months to include (default 12)"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				payload := BalanceHistoryChart(ts.InitialCapital, ts.Transactions, intArg(args, "months", 12), ts.now())
				return ts.persist(payload)
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

// persist saves the payload to the artifact store when one is configured and
// annotates the result with the artifact id. Without a store the payload is
// returned as-is.
func (ts *Toolset) persist(payload map[string]any) (map[string]any, error) {
	if ts.Artifacts == nil || ts.SessionID == "" {
		return payload, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode chart payload: %w", err)
	}
	id := core.NewID()
	if err := ts.Artifacts.Save(ts.SessionID, id, raw); err != nil {
		return nil, fmt.Errorf("save chart artifact: %w", err)
	}
	payload["artifact_id"] = id
	return payload, nil
}

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
