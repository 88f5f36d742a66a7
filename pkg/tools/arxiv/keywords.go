package arxiv

import (
	"context"
	"strings"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

var stopwords = map[string]bool{
	"the": true, "and": true, "with": true, "into": true, "using": true,
	"about": true, "this": true, "that": true, "for": true, "from": true,
	"when": true, "where": true, "which": true, "what": true, "your": true,
	"their": true, "there": true, "over": true, "under": true, "between": true,
}

const defaultKeywordLimit = 6

// NewKeywords builds the keyword fallback tool: it passes through
// model-provided keywords when present and otherwise derives them from the
// request text. Arguments: request (required), llm_keywords, limit.
func NewKeywords() ports.ToolFunc {
	return func(_ context.Context, args map[string]any) (*domain.Envelope, error) {
		request, _ := args["request"].(string)
		provided, _ := args["llm_keywords"].(string)
		limit := intArg(args, "limit", defaultKeywordLimit)

		chosen := strings.Join(strings.Fields(provided), " ")
		if chosen == "" {
			chosen = heuristicKeywords(request, limit)
		}
		return &domain.Envelope{
			Status:  200,
			Payload: map[string]any{"keywords": chosen},
			Text:    chosen,
		}, nil
	}
}

func heuristicKeywords(request string, limit int) string {
	var kept []string
	for _, token := range tokenize(request) {
		if stopwords[token] {
			continue
		}
		kept = append(kept, token)
		if len(kept) >= limit {
			break
		}
	}
	if len(kept) == 0 {
		return strings.TrimSpace(request)
	}
	return strings.Join(kept, ", ")
}
