// Package arxiv searches the arXiv Atom API and offers a keyword heuristic
// companion tool for building queries.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

const (
	defaultEndpoint = "https://export.arxiv.org/api/query"
	defaultPageSize = 25
	maxPageSize     = 200
)

// Option configures the search tool.
type Option func(*searcher)

// WithEndpoint overrides the API endpoint, mainly for tests.
func WithEndpoint(url string) Option {
	return func(s *searcher) { s.endpoint = url }
}

// WithClient overrides the HTTP client.
func WithClient(client *resty.Client) Option {
	return func(s *searcher) { s.client = client }
}

type searcher struct {
	client   *resty.Client
	endpoint string
}

// NewSearch builds the search tool. Arguments: query (required), page_size,
// sort_by, sort_order.
func NewSearch(opts ...Option) ports.ToolFunc {
	s := &searcher{client: resty.New(), endpoint: defaultEndpoint}
	for _, opt := range opts {
		opt(s)
	}
	return s.call
}

func (s *searcher) call(ctx context.Context, args map[string]any) (*domain.Envelope, error) {
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("arxiv search requires a query argument")
	}
	pageSize := intArg(args, "page_size", defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	sortBy := stringArg(args, "sort_by", "relevance")
	sortOrder := stringArg(args, "sort_order", "descending")

	// Try the full phrase first, then fall back to coarser token queries
	// until one of them yields entries.
	var entries []entry
	var executed string
	for _, candidate := range buildQueries(query) {
		batch, err := s.fetch(ctx, candidate, pageSize, sortBy, sortOrder)
		if err != nil {
			return domain.ErrorEnvelope("arxiv_error", err), nil
		}
		if len(batch) > 0 {
			entries = batch
			executed = candidate
			break
		}
	}

	items := make([]any, 0, len(entries))
	var summary []string
	for _, e := range entries {
		items = append(items, e.toMap())
		summary = append(summary, fmt.Sprintf("%s (%s)", e.cleanTitle(), e.shortID()))
	}
	payload := map[string]any{
		"query":          query,
		"executed_query": executed,
		"items":          items,
		"count":          len(items),
	}
	return &domain.Envelope{
		Status:  200,
		Payload: payload,
		Text:    strings.Join(summary, "\n"),
		Items:   items,
	}, nil
}

func (s *searcher) fetch(ctx context.Context, searchQuery string, pageSize int, sortBy, sortOrder string) ([]entry, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_query": searchQuery,
			"start":        "0",
			"max_results":  fmt.Sprint(pageSize),
			"sortBy":       sortBy,
			"sortOrder":    sortOrder,
		}).
		Get(s.endpoint)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("arxiv api returned status %d", resp.StatusCode())
	}

	var parsed feed
	if err := xml.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("parsing arxiv feed: %w", err)
	}
	return parsed.Entries, nil
}

// buildQueries mirrors the search ladder: exact phrase, anchor token with an
// OR clause over the rest, then single tokens.
func buildQueries(query string) []string {
	normalized := strings.TrimSpace(query)
	tokens := tokenize(normalized)

	var candidates []string
	if normalized != "" {
		candidates = append(candidates, fmt.Sprintf("all:%q", escapePhrase(normalized)))
	}
	if len(tokens) > 0 {
		anchor := tokens[0]
		if len(tokens) > 1 {
			clauses := make([]string, 0, len(tokens)-1)
			for _, token := range tokens[1:] {
				clauses = append(clauses, "all:"+token)
			}
			candidates = append(candidates, fmt.Sprintf("all:%s AND (%s)", anchor, strings.Join(clauses, " OR ")))
		}
		candidates = append(candidates, "all:"+anchor)
	}

	seen := make(map[string]bool, len(candidates))
	unique := candidates[:0]
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			unique = append(unique, c)
		}
	}
	return unique
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}
