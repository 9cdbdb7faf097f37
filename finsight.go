// Package finsight provides a high-level façade over the multi-agent
// financial analysis core. Most applications interact with this package by:
//  1. Creating a FinSight via New() (configuration comes from the
//     environment, any collaborator can be overridden)
//  2. Calling RunFull for a complete sequential or parallel analysis, or
//     RunSingle for one agent
//  3. Calling Close on shutdown
//
// The façade wires the gateway, session store, memory store, artifact store
// and search provider into an orchestrator. All defaults are safe for local
// development; production deployments typically supply durable stores and a
// structured logger.
package finsight

import (
	"context"
	"fmt"

	"github.com/hupe1980/finsight/artifact"
	"github.com/hupe1980/finsight/config"
	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/gateway"
	anthropicgw "github.com/hupe1980/finsight/gateway/anthropic"
	openaigw "github.com/hupe1980/finsight/gateway/openai"
	"github.com/hupe1980/finsight/logging"
	"github.com/hupe1980/finsight/memory"
	"github.com/hupe1980/finsight/memory/sqlite"
	"github.com/hupe1980/finsight/metrics"
	"github.com/hupe1980/finsight/orchestrator"
	"github.com/hupe1980/finsight/session"
	"github.com/hupe1980/finsight/tools/websearch"

	"github.com/anthropics/anthropic-sdk-go"
)

// Options configures the FinSight instance. Any unset collaborator is built
// from the Settings.
type Options struct {
	Settings *config.Settings

	Logger  logging.Logger
	Metrics *metrics.Metrics

	Gateway   gateway.Gateway
	Sessions  *session.Store
	Memory    memory.Store
	Artifacts artifact.Store
	Search    websearch.Provider
}

// FinSight aggregates the orchestrator and the process-wide services behind
// it.
type FinSight struct {
	orch     *orchestrator.Orchestrator
	sessions *session.Store
	metrics  *metrics.Metrics
	logger   logging.Logger

	sqliteStore *sqlite.Store // owned only when built here
}

// New creates a FinSight instance. Configuration is loaded from the
// environment unless Settings is supplied; individual collaborators can be
// overridden through the options.
func New(optFns ...func(o *Options)) (*FinSight, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	settings := opts.Settings
	if settings == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		settings = loaded
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.New(logging.Config{Level: settings.LogLevel, Pretty: settings.LogPretty})
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	gw := opts.Gateway
	if gw == nil {
		built, err := buildGateway(settings)
		if err != nil {
			return nil, err
		}
		gw = built
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = session.NewStore(func(so *session.StoreOptions) {
			so.TTL = settings.SessionTTL
			so.Logger = logger
			so.Metrics = m
		})
		if err := sessions.StartSweeper(); err != nil {
			return nil, err
		}
	}

	f := &FinSight{sessions: sessions, metrics: m, logger: logger}

	mem := opts.Memory
	if mem == nil {
		store, err := sqlite.Open(settings.MemoryDBPath, func(so *sqlite.StoreOptions) {
			so.Logger = logger
			so.Metrics = m
		})
		if err != nil {
			return nil, err
		}
		f.sqliteStore = store
		mem = store
	}

	artifacts := opts.Artifacts
	if artifacts == nil {
		artifacts = artifact.NewInMemoryStore()
	}

	search := opts.Search
	if search == nil && settings.SearchConfigured() {
		search = websearch.NewHTTPProvider(settings.SearchAPIKey, func(po *websearch.HTTPProviderOptions) {
			po.Endpoint = settings.SearchEndpoint
		})
	}

	f.orch = orchestrator.New(gw, func(oo *orchestrator.Options) {
		oo.Logger = logger
		oo.Metrics = m
		oo.Sessions = sessions
		oo.Memory = mem
		oo.Artifacts = artifacts
		oo.Search = search
		oo.SearchMaxResults = settings.SearchMaxResults
		oo.MaxTurns = settings.MaxTurns
		oo.RetryAttempts = settings.RetryAttempts
		oo.RetryBackoff = settings.RetryBackoff
	})
	return f, nil
}

// buildGateway selects the vendor adapter from the configured provider.
func buildGateway(s *config.Settings) (gateway.Gateway, error) {
	switch s.Provider {
	case "anthropic":
		if s.AnthropicAPIKey == "" {
			return nil, &core.ConfigurationError{Component: "gateway", Reason: "ANTHROPIC_API_KEY is not set"}
		}
		return anthropicgw.New(func(o *anthropicgw.Options) {
			o.APIKey = s.AnthropicAPIKey
			if s.Model != "" {
				o.Model = anthropic.Model(s.Model)
			}
		}), nil
	case "openai":
		if s.OpenAIAPIKey == "" {
			return nil, &core.ConfigurationError{Component: "gateway", Reason: "OPENAI_API_KEY is not set"}
		}
		return openaigw.New(func(o *openaigw.Options) {
			o.APIKey = s.OpenAIAPIKey
			if s.Model != "" {
				o.Model = s.Model
			}
		}), nil
	default:
		return nil, &core.ConfigurationError{Component: "gateway", Reason: fmt.Sprintf("unknown provider %q", s.Provider)}
	}
}

// RunFull executes a full multi-agent analysis.
func (f *FinSight) RunFull(ctx context.Context, input orchestrator.SubjectInput, workflow orchestrator.Workflow) (*orchestrator.OrchestrationResult, error) {
	return f.orch.RunFull(ctx, input, workflow)
}

// RunSingle executes exactly one agent.
func (f *FinSight) RunSingle(ctx context.Context, agentType string, input orchestrator.SubjectInput) (core.AgentResult, error) {
	return f.orch.RunSingle(ctx, agentType, input)
}

// Metrics exposes the Prometheus registry handler source.
func (f *FinSight) Metrics() *metrics.Metrics { return f.metrics }

// Close releases owned resources: the session sweeper and, when this
// instance opened it, the memory database.
func (f *FinSight) Close() error {
	f.sessions.StopSweeper()
	if f.sqliteStore != nil {
		return f.sqliteStore.Close()
	}
	return nil
}
