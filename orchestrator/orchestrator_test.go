package orchestrator

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finsight/agent"
	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/gateway"
	"github.com/hupe1980/finsight/internal/testutil"
	"github.com/hupe1980/finsight/memory"
	"github.com/hupe1980/finsight/session"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func testInput() SubjectInput {
	return SubjectInput{
		SubjectID:      "acme",
		CompanyName:    "Acme",
		InitialCapital: 100000,
		Transactions:   testutil.BasicTransactions(testNow),
	}
}

// routeFunc answers a single agent's completions.
type routeFunc func(ctx context.Context, req gateway.Request) (*gateway.Completion, error)

// routingGateway dispatches on the advertised tool subset, which is disjoint
// across the three agent types. It makes concurrent runs deterministic where
// a globally indexed script would interleave.
type routingGateway struct {
	mu     sync.Mutex
	routes map[string]routeFunc
	seen   map[string]int
}

func newRoutingGateway(routes map[string]routeFunc) *routingGateway {
	return &routingGateway{routes: routes, seen: map[string]int{}}
}

func (g *routingGateway) Complete(ctx context.Context, req gateway.Request) (*gateway.Completion, error) {
	agentType := ""
	for _, s := range req.Tools {
		switch s.Name {
		case "calculate_balance":
			agentType = agent.TypeFinancialAnalyst
		case "calculate_runway":
			agentType = agent.TypeRunwayPredictor
		case "assess_financial_readiness":
			agentType = agent.TypeInvestmentAdvisor
		}
	}
	g.mu.Lock()
	g.seen[agentType]++
	fn := g.routes[agentType]
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &gateway.Completion{Text: "done"}, nil
}

func (g *routingGateway) Info() gateway.Info { return gateway.Info{Provider: "mock", Model: "routing"} }

func textRoute(text string) routeFunc {
	return func(context.Context, gateway.Request) (*gateway.Completion, error) {
		return &gateway.Completion{Text: text}, nil
	}
}

func TestRunFullSequential(t *testing.T) {
	gw := gateway.NewMockGateway(
		testutil.ToolCallCompletion("c1", "calculate_balance", map[string]any{}),
		testutil.TextCompletion("Spending analyzed."),
		testutil.ToolCallCompletion("c2", "calculate_runway", map[string]any{
			"current_balance": 97000.0, "monthly_burn_rate": 9700.0,
		}),
		testutil.TextCompletion("Runway is healthy."),
		testutil.ToolCallCompletion("c3", "assess_financial_readiness", map[string]any{
			"current_balance": 97000.0, "monthly_burn_rate": 9700.0,
		}),
		testutil.TextCompletion("Invest conservatively."),
	)
	mem := memory.NewInMemoryStore()
	o := New(gw, func(opts *Options) { opts.Memory = mem })

	res, err := o.RunFull(context.Background(), testInput(), Sequential)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.RunID, "run_"))
	assert.Equal(t, "acme", res.SubjectID)
	assert.Equal(t, Sequential, res.Workflow)
	assert.Equal(t, "success", res.Status)
	require.Len(t, res.Results, 3)
	for agentType, r := range res.Results {
		assert.Equal(t, core.StatusCompleted, r.Status, agentType)
	}

	assert.Equal(t, 3, res.Summary["agents_completed"])
	assert.Equal(t, 0, res.Summary["agents_failed"])
	assert.Equal(t, 97000.0, res.Summary["current_balance"])
	assert.Equal(t, 10.0, res.Summary["runway_months"])
	assert.Equal(t, "healthy", res.Summary["runway_status"])
	assert.Equal(t, "ready", res.Summary["investment_readiness"])
	// the runway agent never ran calculate_burn_rate in this script
	assert.NotContains(t, res.Summary, "burn_rate")

	// each agent's structured output feeds the next agent's opening turn
	reqs := gw.Requests()
	require.Len(t, reqs, 6)
	runwayOpening := reqs[2].Turns[0].Text
	assert.Contains(t, runwayOpening, "financial_analyst_analysis")
	advisorOpening := reqs[4].Turns[0].Text
	assert.Contains(t, advisorOpening, "runway_predictor_analysis")

	// one memory entry per agent
	assert.Equal(t, 3, mem.Len())
}

func TestRunFullSequentialDegradation(t *testing.T) {
	gw := gateway.NewMockGateway(
		testutil.ErrCompletion(&core.InvalidRequestError{Reason: "boom"}),
		testutil.TextCompletion("Runway looks fine."),
		testutil.TextCompletion("Invest carefully."),
	)
	o := New(gw)

	res, err := o.RunFull(context.Background(), testInput(), Sequential)
	require.NoError(t, err)

	assert.Equal(t, "partial", res.Status)
	assert.Equal(t, core.StatusFailed, res.Results[agent.TypeFinancialAnalyst].Status)
	assert.Equal(t, core.StatusCompleted, res.Results[agent.TypeRunwayPredictor].Status)
	assert.Equal(t, core.StatusCompleted, res.Results[agent.TypeInvestmentAdvisor].Status)
	assert.Equal(t, 2, res.Summary["agents_completed"])
	assert.Equal(t, 1, res.Summary["agents_failed"])

	// downstream agents still run and see the degradation flag
	reqs := gw.Requests()
	require.Len(t, reqs, 3)
	assert.Contains(t, reqs[1].Turns[0].Text, `"context_incomplete": true`)
	assert.Contains(t, reqs[1].Turns[0].Text, "failed_agents")
	assert.Contains(t, reqs[1].Turns[0].Text, agent.TypeFinancialAnalyst)
	assert.Contains(t, reqs[2].Turns[0].Text, `"context_incomplete": true`)
}

func TestSequentialMemoryEntriesStayFrozen(t *testing.T) {
	gw := gateway.NewMockGateway(
		testutil.ToolCallCompletion("c1", "calculate_balance", map[string]any{}),
		testutil.TextCompletion("Spending analyzed."),
		testutil.TextCompletion("Runway looks fine."),
		testutil.TextCompletion("Invest carefully."),
	)
	mem := memory.NewInMemoryStore()
	o := New(gw, func(opts *Options) { opts.Memory = mem })

	_, err := o.RunFull(context.Background(), testInput(), Sequential)
	require.NoError(t, err)

	// the analyst's entry was recorded before the pipeline merged its
	// analysis into the shared run context; that merge must not leak into
	// the already-recorded input snapshot
	cursor, err := mem.QueryRecent(context.Background(), memory.Query{
		SubjectID: "acme",
		AgentType: agent.TypeFinancialAnalyst,
	})
	require.NoError(t, err)
	entries, err := memory.Collect(cursor)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	recorded, ok := entries[0].Input["context"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, recorded, agent.TypeFinancialAnalyst+"_analysis")
	assert.NotContains(t, recorded, "context_incomplete")
}

func TestRunFullParallel(t *testing.T) {
	gw := newRoutingGateway(map[string]routeFunc{
		agent.TypeFinancialAnalyst:  textRoute("analysis done"),
		agent.TypeRunwayPredictor:   textRoute("runway done"),
		agent.TypeInvestmentAdvisor: textRoute("advice done"),
	})
	sessions := session.NewStore()
	o := New(gw, func(opts *Options) { opts.Sessions = sessions })

	res, err := o.RunFull(context.Background(), testInput(), Parallel)
	require.NoError(t, err)

	assert.Equal(t, "success", res.Status)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "analysis done", res.Results[agent.TypeFinancialAnalyst].Insights)
	assert.Equal(t, "runway done", res.Results[agent.TypeRunwayPredictor].Insights)
	assert.Equal(t, "advice done", res.Results[agent.TypeInvestmentAdvisor].Insights)

	// every per-agent session is closed after the join
	assert.Equal(t, 0, sessions.Stats().ActiveSessions)
}

func TestRunFullParallelDeadline(t *testing.T) {
	slow := func(ctx context.Context, _ gateway.Request) (*gateway.Completion, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return &gateway.Completion{Text: "too slow"}, nil
		}
	}
	gw := newRoutingGateway(map[string]routeFunc{
		agent.TypeFinancialAnalyst:  textRoute("analysis done"),
		agent.TypeRunwayPredictor:   slow,
		agent.TypeInvestmentAdvisor: textRoute("advice done"),
	})
	o := New(gw)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := o.RunFull(ctx, testInput(), Parallel)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second, "deadline bounds the whole run")

	assert.Equal(t, "partial", res.Status)
	assert.Equal(t, core.StatusFailed, res.Results[agent.TypeRunwayPredictor].Status)
	assert.Contains(t, res.Results[agent.TypeRunwayPredictor].Error, "context deadline exceeded")
	assert.Equal(t, core.StatusCompleted, res.Results[agent.TypeFinancialAnalyst].Status)
	assert.Equal(t, core.StatusCompleted, res.Results[agent.TypeInvestmentAdvisor].Status)
}

func TestRunFullUnknownWorkflow(t *testing.T) {
	o := New(gateway.NewMockGateway())
	_, err := o.RunFull(context.Background(), testInput(), Workflow("zigzag"))
	var invalid *core.InvalidRequestError
	require.ErrorAs(t, err, &invalid)
}

func TestRunFullDefaultsToSequential(t *testing.T) {
	gw := gateway.NewMockGateway(
		testutil.TextCompletion("a"),
		testutil.TextCompletion("b"),
		testutil.TextCompletion("c"),
	)
	o := New(gw)
	res, err := o.RunFull(context.Background(), testInput(), "")
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Len(t, res.Results, 3)
}

func TestRunSingle(t *testing.T) {
	gw := gateway.NewMockGateway(testutil.TextCompletion("runway verdict"))
	sessions := session.NewStore()
	o := New(gw, func(opts *Options) { opts.Sessions = sessions })

	res, err := o.RunSingle(context.Background(), agent.TypeRunwayPredictor, testInput())
	require.NoError(t, err)
	assert.Equal(t, agent.TypeRunwayPredictor, res.AgentType)
	assert.Equal(t, core.StatusCompleted, res.Status)
	assert.Equal(t, "runway verdict", res.Insights)
	assert.Equal(t, 0, sessions.Stats().ActiveSessions)

	t.Run("unknown agent type", func(t *testing.T) {
		_, err := o.RunSingle(context.Background(), "astrologer", testInput())
		var invalid *core.InvalidRequestError
		require.ErrorAs(t, err, &invalid)
	})
}

func TestHistoricalContextFlowsIntoPrompts(t *testing.T) {
	mem := memory.NewInMemoryStore()
	mem.Record(context.Background(), core.MemoryEntry{
		ID:        core.NewID(),
		SubjectID: "acme",
		AgentType: agent.TypeFinancialAnalyst,
		Status:    core.StatusCompleted,
		Insights:  "prior spending analysis",
		CreatedAt: time.Now().Add(-time.Hour),
	})

	gw := gateway.NewMockGateway(
		testutil.TextCompletion("a"),
		testutil.TextCompletion("b"),
		testutil.TextCompletion("c"),
	)
	o := New(gw, func(opts *Options) { opts.Memory = mem })

	_, err := o.RunFull(context.Background(), testInput(), Sequential)
	require.NoError(t, err)

	reqs := gw.Requests()
	require.NotEmpty(t, reqs)
	opening := reqs[0].Turns[0].Text
	assert.Contains(t, opening, `"has_previous_analyses": true`)
	assert.Contains(t, opening, "prior spending analysis")
}
