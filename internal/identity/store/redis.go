package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pointer/internal/identity"
	"pointer/pkg/platform/sentinel"
)

const sessionKeyPrefix = "pointer:session:"

// RedisSessionStore persists sessions as JSON with a sliding TTL so every
// instance behind the load balancer sees the same session for a browser.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (s *RedisSessionStore) Load(ctx context.Context, browserID string) (*identity.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+browserID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess identity.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, browserID string, session *identity.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+browserID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, browserID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+browserID).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
