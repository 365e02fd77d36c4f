package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/tablepos/api/internal/session"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "posctl:session:"

// RedisStore keeps session state in Redis so a terminal can move between machines.
type RedisStore struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type RedisOption func(*RedisStore)

// WithTTL expires idle sessions. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore connects to addr.
func NewRedisStore(addr string, opts ...RedisOption) *RedisStore {
	return NewRedisStoreFromClient(backend.NewClient(&backend.Options{Addr: addr}), opts...)
}

func NewRedisStoreFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(terminal string) string {
	return s.prefix + terminal
}

func (s *RedisStore) Save(ctx context.Context, terminal string, state session.State) error {
	if err := checkTerminal(terminal); err != nil {
		return err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(terminal), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, terminal string) (session.State, error) {
	if err := checkTerminal(terminal); err != nil {
		return session.State{}, err
	}
	val, err := s.client.Get(ctx, s.key(terminal)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return session.State{}, ErrNotFound
		}
		return session.State{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state session.State
	if err := json.Unmarshal(val, &state); err != nil {
		return session.State{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Delete(ctx context.Context, terminal string) error {
	if err := checkTerminal(terminal); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(terminal)).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
