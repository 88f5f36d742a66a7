// Package redis persists session history in Redis lists, one list per
// session key.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/agentloom/loom/pkg/domain"
	"github.com/agentloom/loom/pkg/ports"
)

const defaultPrefix = "loom:session:"

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// Store implements ports.MemoryStore on a Redis client.
type Store struct {
	client *backend.Client
	prefix string
}

// NewFromClient wraps an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New connects using a DSN like redis://host:port/db.
func New(dsn string, opts ...Option) (*Store, error) {
	redisOpts, err := backend.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing redis dsn: %w", err)
	}
	return NewFromClient(backend.NewClient(redisOpts), opts...), nil
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

func (s *Store) Load(ctx context.Context, sessionID string) ([]domain.Message, error) {
	raw, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("loading session %q: %w", sessionID, err)
	}
	if len(raw) == 0 {
		return nil, ports.ErrSessionNotFound
	}
	messages := make([]domain.Message, 0, len(raw))
	for i, entry := range raw {
		var msg domain.Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, fmt.Errorf("decoding session %q entry %d: %w", sessionID, i, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *Store) Append(ctx context.Context, sessionID string, messages []domain.Message) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]any, 0, len(messages))
	for _, msg := range messages {
		encoded, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encoding message: %w", err)
		}
		values = append(values, encoded)
	}
	if err := s.client.RPush(ctx, s.key(sessionID), values...).Err(); err != nil {
		return fmt.Errorf("appending to session %q: %w", sessionID, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("clearing session %q: %w", sessionID, err)
	}
	return nil
}
