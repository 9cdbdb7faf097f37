// Package orchestrator coordinates the specialized agents. It wires the
// per-run tool registry, creates sessions, injects historical context from
// the memory store and runs the agents either in dependency order or fanned
// out concurrently, then merges their results into one OrchestrationResult.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/finsight/agent"
	"github.com/hupe1980/finsight/artifact"
	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/gateway"
	"github.com/hupe1980/finsight/logging"
	"github.com/hupe1980/finsight/memory"
	"github.com/hupe1980/finsight/metrics"
	"github.com/hupe1980/finsight/session"
	"github.com/hupe1980/finsight/tool"
	"github.com/hupe1980/finsight/tools/charts"
	"github.com/hupe1980/finsight/tools/finance"
	"github.com/hupe1980/finsight/tools/websearch"
)

// Workflow selects the agent execution order.
type Workflow string

const (
	// Sequential runs analyst -> runway predictor -> investment advisor,
	// feeding each agent's output into the next one's context.
	Sequential Workflow = "sequential"
	// Parallel fans all agents out concurrently against independent copies
	// of the input context. No agent observes another's output.
	Parallel Workflow = "parallel"
)

// SubjectInput is the per-run dataset the agents analyze.
type SubjectInput struct {
	SubjectID      string
	CompanyName    string
	InitialCapital float64
	Transactions   []finance.Transaction
}

// OrchestrationResult aggregates one run.
type OrchestrationResult struct {
	RunID     string                      `json:"run_id"`
	SubjectID string                      `json:"subject_id"`
	Workflow  Workflow                    `json:"workflow"`
	Results   map[string]core.AgentResult `json:"results"`
	Summary   map[string]any              `json:"summary"`
	Status    string                      `json:"status"` // success, partial, failed
	Elapsed   time.Duration               `json:"elapsed"`
	Timestamp time.Time                   `json:"timestamp"`
}

// Options configures an Orchestrator.
type Options struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics

	Sessions  *session.Store
	Memory    memory.Store
	Artifacts artifact.Store

	// Search may be nil; the research tools then degrade to empty results.
	Search           websearch.Provider
	SearchMaxResults int

	MaxTurns      int
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Orchestrator owns the process-wide collaborators. Per-run state (registry,
// sessions, agents) is created fresh on every call.
type Orchestrator struct {
	gateway gateway.Gateway
	opts    Options
	logger  logging.Logger
}

// New constructs an orchestrator around a gateway. Sessions and Memory
// default to in-process stores when not supplied.
func New(gw gateway.Gateway, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxTurns:      agent.DefaultMaxTurns,
		RetryAttempts: 3,
		RetryBackoff:  500 * time.Millisecond,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewStore()
	}
	if opts.Memory == nil {
		opts.Memory = memory.NewInMemoryStore()
	}
	return &Orchestrator{
		gateway: gw,
		opts:    opts,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// RunFull executes all agents for one subject. A caller-supplied deadline on
// ctx bounds the whole run; agents that do not finish in time are recorded
// as failed, never left dangling.
func (o *Orchestrator) RunFull(ctx context.Context, input SubjectInput, workflow Workflow) (*OrchestrationResult, error) {
	start := time.Now()
	runID := core.NewSessionID("run")

	agents, err := o.buildAgents(runID, input)
	if err != nil {
		return nil, err
	}

	histCtx := o.historicalContext(ctx, input.SubjectID)

	o.logger.Info("orchestration.start",
		"run_id", runID,
		"subject_id", input.SubjectID,
		"workflow", string(workflow),
		"transactions", len(input.Transactions),
	)

	var results map[string]core.AgentResult
	switch workflow {
	case Parallel:
		results = o.runParallel(ctx, agents, input, histCtx)
	case Sequential, "":
		results = o.runSequential(ctx, agents, input, histCtx)
	default:
		return nil, &core.InvalidRequestError{Reason: fmt.Sprintf("unknown workflow %q", workflow)}
	}

	res := &OrchestrationResult{
		RunID:     runID,
		SubjectID: input.SubjectID,
		Workflow:  workflow,
		Results:   results,
		Summary:   summarize(results),
		Status:    overallStatus(results),
		Elapsed:   time.Since(start),
		Timestamp: time.Now().UTC(),
	}

	o.logger.Info("orchestration.done",
		"run_id", runID,
		"status", res.Status,
		"elapsed_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

// RunSingle runs exactly one agent with the same session, context and memory
// wiring as a full run.
func (o *Orchestrator) RunSingle(ctx context.Context, agentType string, input SubjectInput) (core.AgentResult, error) {
	runID := core.NewSessionID("run")
	agents, err := o.buildAgents(runID, input)
	if err != nil {
		return core.AgentResult{}, err
	}

	var selected *boundAgent
	for i := range agents {
		if agents[i].agent.Type() == agentType {
			selected = &agents[i]
			break
		}
	}
	if selected == nil {
		return core.AgentResult{}, &core.InvalidRequestError{Reason: fmt.Sprintf("unknown agent type %q", agentType)}
	}

	histCtx := o.historicalContext(ctx, input.SubjectID)
	sessionID := o.opts.Sessions.Create(input.SubjectID, agentType, histCtx)
	defer o.opts.Sessions.Close(sessionID)

	return selected.agent.Execute(ctx, input.SubjectID, sessionID, selected.prompt, histCtx), nil
}

// boundAgent pairs an agent with its opening prompt for this run.
type boundAgent struct {
	agent  *agent.Agent
	prompt string
}

// buildAgents creates the per-run tool registry and the three agents bound
// to it. The registry is read-only after this returns.
func (o *Orchestrator) buildAgents(runID string, input SubjectInput) ([]boundAgent, error) {
	registry := tool.NewRegistry(func(ro *tool.RegistryOptions) { ro.Logger = o.opts.Logger })

	financeTools := &finance.Toolset{Transactions: input.Transactions, InitialCapital: input.InitialCapital}
	if err := financeTools.Register(registry); err != nil {
		return nil, err
	}
	chartTools := &charts.Toolset{
		Transactions:   input.Transactions,
		InitialCapital: input.InitialCapital,
		Artifacts:      o.opts.Artifacts,
		SessionID:      runID,
	}
	if err := chartTools.Register(registry); err != nil {
		return nil, err
	}
	searchTools := &websearch.Toolset{
		Provider:   o.opts.Search,
		MaxResults: o.opts.SearchMaxResults,
		Logger:     o.opts.Logger,
	}
	if err := searchTools.Register(registry); err != nil {
		return nil, err
	}

	agentOpts := func(ao *agent.Options) {
		ao.MaxTurns = o.opts.MaxTurns
		ao.RetryAttempts = o.opts.RetryAttempts
		ao.RetryBackoff = o.opts.RetryBackoff
		ao.Logger = o.opts.Logger
		ao.Metrics = o.opts.Metrics
		ao.Sessions = o.opts.Sessions
		ao.Memory = o.opts.Memory
	}

	analyst, err := agent.NewFinancialAnalyst(o.gateway, registry, agentOpts)
	if err != nil {
		return nil, err
	}
	runway, err := agent.NewRunwayPredictor(o.gateway, registry, agentOpts)
	if err != nil {
		return nil, err
	}
	advisor, err := agent.NewInvestmentAdvisor(o.gateway, registry, agentOpts)
	if err != nil {
		return nil, err
	}

	company := input.CompanyName
	if company == "" {
		company = "the company"
	}
	base := fmt.Sprintf("%s has an initial capital of %.2f and %d recorded transactions.",
		company, input.InitialCapital, len(input.Transactions))

	return []boundAgent{
		{analyst, "Analyze the spending patterns and financial position. " + base},
		{runway, fmt.Sprintf("Calculate the burn rate and runway for %s and assess the runway health. %s", company, base)},
		{advisor, fmt.Sprintf("Provide investment guidance for %s appropriate to its financial health. %s", company, base)},
	}, nil
}

// runSequential executes agents in dependency order through one shared
// session. Each completed agent's structured output is merged into the next
// agent's context; a failure flags the downstream context as incomplete
// instead of skipping anyone.
func (o *Orchestrator) runSequential(ctx context.Context, agents []boundAgent, input SubjectInput, histCtx map[string]any) map[string]core.AgentResult {
	sessionID := o.opts.Sessions.Create(input.SubjectID, "orchestration", histCtx)
	defer o.opts.Sessions.Close(sessionID)

	runContext := copyMap(histCtx)
	results := make(map[string]core.AgentResult, len(agents))

	for _, b := range agents {
		res := b.agent.Execute(ctx, input.SubjectID, sessionID, b.prompt, runContext)
		results[b.agent.Type()] = res

		if res.Status == core.StatusCompleted {
			if len(res.Analysis) > 0 {
				runContext[b.agent.Type()+"_analysis"] = res.Analysis
			}
		} else {
			runContext["context_incomplete"] = true
			failed, _ := runContext["failed_agents"].([]string)
			runContext["failed_agents"] = append(failed, b.agent.Type())
			o.logger.Warn("orchestration.step.degraded",
				"agent_type", b.agent.Type(),
				"status", string(res.Status),
			)
		}
		if err := o.opts.Sessions.MergeContext(sessionID, runContext); err != nil {
			o.logger.Warn("orchestration.session.merge_failed", "session_id", sessionID, "error", err.Error())
		}
	}
	return results
}

// runParallel fans the agents out with independent sessions and context
// copies and joins on all of them. One agent's failure never cancels the
// others.
func (o *Orchestrator) runParallel(ctx context.Context, agents []boundAgent, input SubjectInput, histCtx map[string]any) map[string]core.AgentResult {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[string]core.AgentResult, len(agents))
	)

	for _, b := range agents {
		wg.Add(1)
		go func(b boundAgent) {
			defer wg.Done()
			sessionID := o.opts.Sessions.Create(input.SubjectID, b.agent.Type(), histCtx)
			defer o.opts.Sessions.Close(sessionID)

			res := b.agent.Execute(ctx, input.SubjectID, sessionID, b.prompt, copyMap(histCtx))

			mu.Lock()
			results[b.agent.Type()] = res
			mu.Unlock()
		}(b)
	}
	wg.Wait()
	return results
}

// historicalContext builds the cross-run context from the memory store. A
// build failure degrades to an empty context; it never blocks the run.
func (o *Orchestrator) historicalContext(ctx context.Context, subjectID string) map[string]any {
	histCtx, err := memory.BuildContext(ctx, o.opts.Memory, subjectID)
	if err != nil {
		o.logger.Warn("orchestration.context.failed", "subject_id", subjectID, "error", err.Error())
		return map[string]any{"subject_id": subjectID, "has_previous_analyses": false}
	}
	return histCtx
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
