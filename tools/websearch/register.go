package websearch

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/finsight/logging"
	"github.com/hupe1980/finsight/tool"
)

// Toolset exposes search-backed research tools. A nil Provider means no
// credentials are configured; every tool then returns an empty result set
// with a degraded marker and the invocation still succeeds.
type Toolset struct {
	Provider   Provider
	MaxResults int
	Logger     logging.Logger

	Clock func() time.Time
}

func (ts *Toolset) now() time.Time {
	if ts.Clock != nil {
		return ts.Clock()
	}
	return time.Now().UTC()
}

// Register adds the research tools to the registry.
func (ts *Toolset) Register(r *tool.Registry) error {
	specs := []struct {
		schema  tool.Schema
		handler tool.Handler
	}{
		{
			schema: tool.Schema{
				Name:        "search_investment_options",
				Description: "Research current investment options suited to a company stage and risk profile",
				Parameters: []tool.Parameter{
					{Name: "company_stage", Type: "string", Description: "Stage of the company", Required: true, Enum: []string{"seed", "early", "growth", "mature"}},
					{Name: "risk_tolerance", Type: "string", Description: "Risk tolerance level", Required: true, Enum: []string{"conservative", "moderate", "aggressive"}},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				stage, _ := args["company_stage"].(string)
				risk, _ := args["risk_tolerance"].(string)
				query := fmt.Sprintf("investment options for %s stage startup with %s risk tolerance", stage, risk)
				return ts.search(ctx, query, "options")
			},
		},
		{
			schema: tool.Schema{
				Name:        "search_market_trends",
				Description: "Research current market trends for an industry",
				Parameters: []tool.Parameter{
					{Name: "industry", Type: "string", Description: "Industry to research", Required: true},
					{Name: "region", Type: "string", Description: "Geographic region (default global)"},
				},
			},
			handler: func(ctx context.Context, args map[string]any) (map[string]any, error) {
				industry, _ := args["industry"].(string)
				region, _ := args["region"].(string)
				if region == "" {
					region = "global"
				}
				query := fmt.Sprintf("%s market trends in %s", industry, region)
				return ts.search(ctx, query, "trends")
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

// search runs the query when a provider is configured, otherwise degrades to
// an empty sequence. The resultKey names the slice in the tool output so
// each research tool keeps its documented shape.
func (ts *Toolset) search(ctx context.Context, query, resultKey string) (map[string]any, error) {
	out := map[string]any{
		"query":     query,
		"timestamp": ts.now().Format(time.RFC3339),
	}

	if ts.Provider == nil {
		logging.OrNoOp(ts.Logger).Debug("websearch.unconfigured", "query", query)
		out[resultKey] = []map[string]any{}
		out["source"] = "unconfigured"
		out["degraded"] = true
		return out, nil
	}

	maxResults := ts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	results, err := ts.Provider.Search(ctx, Query{Text: query, MaxResults: maxResults})
	if err != nil {
		return nil, err
	}

	hits := make([]map[string]any, 0, len(results))
	for _, r := range results {
		hits = append(hits, map[string]any{
			"title":   r.Title,
			"link":    r.Link,
			"snippet": r.Snippet,
			"source":  r.Source,
		})
	}
	out[resultKey] = hits
	out["source"] = "websearch"
	return out, nil
}
