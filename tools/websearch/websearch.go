// Package websearch provides the web research tool agents use to look up
// investment options and market context. Missing credentials are a valid
// state, not an error: the tool then returns an empty result set and agents
// fall back to baseline knowledge.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/finsight/core"
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Source  string `json:"source,omitempty"`
}

// Query describes one search request.
type Query struct {
	Text        string
	MaxResults  int
	RecencyDays int
	Domains     []string
}

// Provider performs the actual search. Implementations must respect ctx
// cancellation.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// HTTPProviderOptions configures an HTTPProvider.
type HTTPProviderOptions struct {
	Endpoint   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// HTTPProvider queries a Tavily-style JSON search API.
type HTTPProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

var _ Provider = (*HTTPProvider)(nil)

// NewHTTPProvider constructs a search provider for the given API key.
func NewHTTPProvider(apiKey string, optFns ...func(o *HTTPProviderOptions)) *HTTPProvider {
	opts := HTTPProviderOptions{
		Endpoint: "https://api.tavily.com/search",
		Timeout:  30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &HTTPProvider{apiKey: apiKey, endpoint: opts.Endpoint, client: client}
}

type searchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results,omitempty"`
	Days           int      `json:"days,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search executes the query against the remote API. Errors carry the shared
// taxonomy so the caller's retry policy applies uniformly.
func (p *HTTPProvider) Search(ctx context.Context, q Query) ([]Result, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:         p.apiKey,
		Query:          q.Text,
		MaxResults:     q.MaxResults,
		Days:           q.RecencyDays,
		IncludeDomains: q.Domains,
	})
	if err != nil {
		return nil, &core.InvalidRequestError{Reason: "search query does not encode", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &core.InvalidRequestError{Reason: "search request does not build", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &core.TransientServiceError{Service: "websearch", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &core.QuotaExceededError{Service: "websearch", Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return nil, &core.TransientServiceError{Service: "websearch", Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return nil, &core.InvalidRequestError{Reason: fmt.Sprintf("search rejected with status %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.TransientServiceError{Service: "websearch", Err: err}
	}
	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &core.TransientServiceError{Service: "websearch", Err: fmt.Errorf("decode response: %w", err)}
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, Result{
			Title:   r.Title,
			Link:    r.URL,
			Snippet: r.Content,
			Source:  "websearch",
		})
	}
	return results, nil
}
