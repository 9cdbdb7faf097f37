package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finsight/core"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "anthropic", s.Provider)
	assert.Equal(t, 4, s.MaxTurns)
	assert.Equal(t, 10, s.SearchMaxResults)
	assert.False(t, s.SearchConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("AGENT_MAX_TURNS", "6")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SEARCH_API_KEY", "tvly-test")

	s, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", s.Provider)
	assert.Equal(t, 6, s.MaxTurns)
	assert.Equal(t, "30m0s", s.SessionTTL.String())
	assert.True(t, s.SearchConfigured())
}

func TestLoadValidation(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		t.Setenv("LLM_PROVIDER", "mainframe")
		_, err := Load()
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "LLM_PROVIDER")
	})

	t.Run("zero turn budget", func(t *testing.T) {
		t.Setenv("AGENT_MAX_TURNS", "0")
		_, err := Load()
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "AGENT_MAX_TURNS")
	})
}
