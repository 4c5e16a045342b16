package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patchpilot/patchpilot/pkg/utils"
)

const (
	jinaSearchURL = "https://s.jina.ai/search"

	// maxResults bounds how many snippets feed the prompt.
	maxResults = 3
	// snippetLimit bounds each snippet so enrichment cannot crowd out the code.
	snippetLimit = 600
)

// SearchResult is a single result from the search provider.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Content     string `json:"content,omitempty"`
}

// Searcher fetches reference material for a query. Implementations return an
// empty string when nothing useful was found.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// JinaSearcher queries the Jina AI search API. Without an API key requests
// still go out unauthenticated, which the service rate limits aggressively.
type JinaSearcher struct {
	APIKey  string
	BaseURL string

	client *http.Client
}

// NewJinaSearcher reads JINA_API_KEY from the environment.
func NewJinaSearcher() *JinaSearcher {
	return &JinaSearcher{
		APIKey:  os.Getenv("JINA_API_KEY"),
		BaseURL: jinaSearchURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Search runs the query and formats the top results into one reference block.
func (s *JinaSearcher) Search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	q := req.URL.Query()
	q.Add("q", query)
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("search endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var searchResponse struct {
		Data []SearchResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResponse); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	return formatResults(searchResponse.Data), nil
}

// formatResults renders the top results as a numbered snippet list.
func formatResults(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	var b strings.Builder
	for i, r := range results {
		snippet := r.Content
		if snippet == "" {
			snippet = r.Description
		}
		snippet = utils.TruncateString(strings.TrimSpace(snippet), snippetLimit)

		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, r.Title, r.URL)
		if snippet != "" {
			fmt.Fprintf(&b, "   %s\n", snippet)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
