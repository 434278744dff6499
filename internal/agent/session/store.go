// Package session persists per-conversation working memory in Redis under an
// idle TTL. Durable facts (messages, leads) live in the conversation log and
// lead sink; an expired session only costs the customer a fresh start.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coverline/engine/internal/agent/model"
	errx "github.com/coverline/engine/internal/core/error"
	logx "github.com/coverline/engine/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type RedisSessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionStore(rdb redis.Cmdable, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (s *RedisSessionStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (s *RedisSessionStore) Create(ctx context.Context, sessionID string) (*model.SessionState, error) {
	state := model.NewSessionState(sessionID)
	if err := s.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*model.SessionState, error) {
	key := s.sessionKey(sessionID)

	raw, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			// Expired or never created: a normal outcome, not a transport error.
			return nil, errx.SessionNotFound(sessionID)
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	var state model.SessionState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to unmarshal session state")
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

// Save serializes the state and resets the idle TTL.
func (s *RedisSessionStore) Save(ctx context.Context, state *model.SessionState) error {
	b, err := json.Marshal(state)
	if err != nil {
		logx.Error().Err(err).Str("session_id", state.SessionID).Msg("failed to marshal session state")
		return fmt.Errorf("marshal session state: %w", err)
	}

	key := s.sessionKey(state.SessionID)
	if err := s.rdb.Set(ctx, key, b, s.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	key := s.sessionKey(sessionID)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionStore = (*RedisSessionStore)(nil)
