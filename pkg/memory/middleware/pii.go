package middleware

import (
	"context"
	"regexp"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

const masked = "***"

type piiStore struct {
	next     ports.MemoryStore
	patterns []*regexp.Regexp
}

// NewPIIMask creates a middleware that replaces pattern matches in message
// content before it is persisted. The in-memory messages the engine works
// with are never touched.
func NewPIIMask(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.MemoryStore) ports.MemoryStore {
		return &piiStore{next: next, patterns: patterns}
	}
}

func (s *piiStore) Append(ctx context.Context, sessionID string, messages []domain.Message) error {
	cleaned := make([]domain.Message, len(messages))
	for i, msg := range messages {
		content := msg.Content
		for _, p := range s.patterns {
			content = p.ReplaceAllString(content, masked)
		}
		cleaned[i] = domain.Message{Role: msg.Role, Content: content}
	}
	return s.next.Append(ctx, sessionID, cleaned)
}

func (s *piiStore) Load(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return s.next.Load(ctx, sessionID)
}

func (s *piiStore) Clear(ctx context.Context, sessionID string) error {
	return s.next.Clear(ctx, sessionID)
}
