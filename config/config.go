// Package config loads framework settings from the environment. An optional
// .env file is honored when present so local development matches deployed
// configuration.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/hupe1980/finsight/core"
)

// Settings holds the process-wide configuration. Search credentials are
// optional: their absence is a valid state in which the web research tool
// degrades to returning no live data.
type Settings struct {
	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`

	// LLM provider selection
	Provider        string `envconfig:"LLM_PROVIDER" default:"anthropic"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	Model           string `envconfig:"LLM_MODEL"`

	// Agent loop
	MaxTurns      int           `envconfig:"AGENT_MAX_TURNS" default:"4"`
	RetryAttempts int           `envconfig:"GATEWAY_RETRY_ATTEMPTS" default:"3"`
	RetryBackoff  time.Duration `envconfig:"GATEWAY_RETRY_BACKOFF" default:"500ms"`

	// Session store
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"1h"`

	// Memory store
	MemoryDBPath string `envconfig:"MEMORY_DB_PATH" default:"finsight.db"`

	// Web search (optional)
	SearchAPIKey     string `envconfig:"SEARCH_API_KEY"`
	SearchEndpoint   string `envconfig:"SEARCH_ENDPOINT" default:"https://api.tavily.com/search"`
	SearchMaxResults int    `envconfig:"SEARCH_MAX_RESULTS" default:"10"`
}

// Load reads settings from the environment, merging an optional .env file
// first. A missing .env file is not an error.
func Load() (*Settings, error) {
	_ = godotenv.Load()

	var s Settings
	if err := envconfig.Process("finsight", &s); err != nil {
		return nil, &core.ConfigurationError{Component: "config", Reason: err.Error()}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Settings) validate() error {
	switch s.Provider {
	case "anthropic", "openai":
	default:
		return &core.ConfigurationError{Component: "config", Reason: "LLM_PROVIDER must be anthropic or openai"}
	}
	if s.MaxTurns < 1 {
		return &core.ConfigurationError{Component: "config", Reason: "AGENT_MAX_TURNS must be at least 1"}
	}
	return nil
}

// SearchConfigured reports whether web search credentials are present.
func (s *Settings) SearchConfigured() bool { return s.SearchAPIKey != "" }
