package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/finsight/core"
	"github.com/hupe1980/finsight/tool"
)

func TestToolsetDegradesWithoutProvider(t *testing.T) {
	r := tool.NewRegistry()
	ts := &Toolset{Provider: nil}
	require.NoError(t, ts.Register(r))

	out, err := r.Execute(context.Background(), "search_investment_options", map[string]any{
		"company_stage":  "early",
		"risk_tolerance": "moderate",
	})
	require.NoError(t, err)

	assert.Empty(t, out["options"])
	assert.Equal(t, true, out["degraded"])
	assert.Equal(t, "unconfigured", out["source"])
}

type stubProvider struct {
	results []Result
	err     error
	queries []Query
}

func (s *stubProvider) Search(_ context.Context, q Query) ([]Result, error) {
	s.queries = append(s.queries, q)
	return s.results, s.err
}

func TestToolsetWithProvider(t *testing.T) {
	stub := &stubProvider{results: []Result{
		{Title: "Treasury Bills", Link: "https://example.com/tbills", Snippet: "Government-backed securities", Source: "websearch"},
	}}
	r := tool.NewRegistry()
	ts := &Toolset{Provider: stub, MaxResults: 5}
	require.NoError(t, ts.Register(r))

	out, err := r.Execute(context.Background(), "search_investment_options", map[string]any{
		"company_stage":  "growth",
		"risk_tolerance": "conservative",
	})
	require.NoError(t, err)

	hits := out["options"].([]map[string]any)
	require.Len(t, hits, 1)
	assert.Equal(t, "Treasury Bills", hits[0]["title"])

	require.Len(t, stub.queries, 1)
	assert.Equal(t, 5, stub.queries[0].MaxResults)
	assert.Contains(t, stub.queries[0].Text, "growth")

	t.Run("enum enforced on risk tolerance", func(t *testing.T) {
		_, err := r.Execute(context.Background(), "search_investment_options", map[string]any{
			"company_stage":  "growth",
			"risk_tolerance": "reckless",
		})
		assert.Error(t, err)
	})
}

func TestToolsetProviderErrorPropagates(t *testing.T) {
	stub := &stubProvider{err: &core.TransientServiceError{Service: "websearch", Err: assert.AnError}}
	r := tool.NewRegistry()
	ts := &Toolset{Provider: stub}
	require.NoError(t, ts.Register(r))

	_, err := r.Execute(context.Background(), "search_market_trends", map[string]any{"industry": "saas"})
	var execErr *core.ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.True(t, core.IsRetryable(err))
}

func TestHTTPProviderSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req.APIKey)
		assert.Equal(t, "startup runway benchmarks", req.Query)

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"title": "Runway basics", "url": "https://example.com/a", "content": "Maintain 12-18 months"},
			},
		})
	}))
	defer srv.Close()

	p := NewHTTPProvider("test-key", func(o *HTTPProviderOptions) { o.Endpoint = srv.URL })
	results, err := p.Search(context.Background(), Query{Text: "startup runway benchmarks", MaxResults: 3})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Runway basics", results[0].Title)
	assert.Equal(t, "https://example.com/a", results[0].Link)
}

func TestHTTPProviderErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		check     func(t *testing.T, err error)
		retryable bool
	}{
		{
			name:   "429 is quota exceeded",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, err error) {
				var quota *core.QuotaExceededError
				assert.ErrorAs(t, err, &quota)
			},
		},
		{
			name:      "500 is transient",
			status:    http.StatusInternalServerError,
			retryable: true,
			check: func(t *testing.T, err error) {
				var transient *core.TransientServiceError
				assert.ErrorAs(t, err, &transient)
			},
		},
		{
			name:   "400 is invalid request",
			status: http.StatusBadRequest,
			check: func(t *testing.T, err error) {
				var invalid *core.InvalidRequestError
				assert.ErrorAs(t, err, &invalid)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewHTTPProvider("k", func(o *HTTPProviderOptions) { o.Endpoint = srv.URL })
			_, err := p.Search(context.Background(), Query{Text: "q"})
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, tt.retryable, core.IsRetryable(err))
		})
	}
}
