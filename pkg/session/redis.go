package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tmsagent:session:"

// RedisStore persists TurnContext in Redis with a TTL, so conversation
// context survives process restarts and expires on its own when a user
// walks away.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store. A non-positive ttl
// defaults to one hour.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(sessionID string) string {
	return redisKeyPrefix + sessionID
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*TurnContext, error) {
	data, err := s.client.Get(ctx, redisKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	var turn TurnContext
	if err := json.Unmarshal(data, &turn); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &turn, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, turn *TurnContext) error {
	copied := *turn
	copied.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(&copied)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", turn.SessionID, err)
	}

	if err := s.client.Set(ctx, redisKey(turn.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session %s: %w", turn.SessionID, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// Ensure RedisStore implements Store at compile time.
var _ Store = (*RedisStore)(nil)
