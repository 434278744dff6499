package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/coverline/engine/internal/agent/model"
	logx "github.com/coverline/engine/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const defaultCacheDepth = 50

// CachedConversationLog keeps the recent tail of each conversation in a Redis
// list (`conversation:<id>:messages`) in front of the durable log, so context
// assembly does not hit the database on every turn. Writes go through to the
// durable log first; the cache is best-effort and every cache failure falls
// back to the durable path.
type CachedConversationLog struct {
	rdb     redis.Cmdable
	durable model.ConversationLog
	ttl     time.Duration
	depth   int
}

// NewCachedConversationLog wraps durable with a Redis recent-message cache.
// depth bounds how many trailing messages are cached per conversation; values
// below 1 use the default.
func NewCachedConversationLog(rdb redis.Cmdable, durable model.ConversationLog, ttl time.Duration, depth int) *CachedConversationLog {
	if depth < 1 {
		depth = defaultCacheDepth
	}
	return &CachedConversationLog{rdb: rdb, durable: durable, ttl: ttl, depth: depth}
}

func (l *CachedConversationLog) conversationKey(sessionID string) string {
	return fmt.Sprintf("conversation:%s:messages", sessionID)
}

func (l *CachedConversationLog) CreateConversation(ctx context.Context, sessionID string) error {
	return l.durable.CreateConversation(ctx, sessionID)
}

// AppendMessage writes durably first, then appends to the cached tail. The
// cache is only extended when the key already holds the warmed tail; pushing
// onto a missing key would create a partial list that History could mistake
// for the whole conversation.
func (l *CachedConversationLog) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	if err := l.durable.AppendMessage(ctx, sessionID, role, content); err != nil {
		return err
	}

	key := l.conversationKey(sessionID)
	exists, err := l.rdb.Exists(ctx, key).Result()
	if err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("message cache unavailable on append")
		return nil
	}
	if exists == 0 {
		return nil
	}

	msg := cacheMessage(role, content)
	b, err := json.Marshal(msg)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal cached message")
		return nil
	}

	if err := l.rdb.RPush(ctx, key, b).Err(); err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("failed to push message to cache")
		return nil
	}
	if err := l.rdb.LTrim(ctx, key, int64(-l.depth), -1).Err(); err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("failed to trim message cache")
	}
	l.touch(ctx, key)
	return nil
}

// History serves the trailing messages from the cache when possible, warming
// it from the durable log on a miss. Requests beyond the cached depth go to
// the durable log directly.
func (l *CachedConversationLog) History(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error) {
	if limit < 1 || limit > l.depth {
		return l.durable.History(ctx, sessionID, limit)
	}

	key := l.conversationKey(sessionID)
	rows, err := l.rdb.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("message cache unavailable on read")
		return l.durable.History(ctx, sessionID, limit)
	}
	if len(rows) > 0 {
		messages, err := decodeCachedMessages(rows)
		if err == nil {
			return messages, nil
		}
		logx.Warn().Err(err).Str("key", key).Msg("corrupt message cache entry, reading durable log")
		return l.durable.History(ctx, sessionID, limit)
	}

	return l.warm(ctx, sessionID, key, limit)
}

func (l *CachedConversationLog) UpdateConversation(ctx context.Context, sessionID string, stage model.ConversationStage, messageCount int) error {
	return l.durable.UpdateConversation(ctx, sessionID, stage, messageCount)
}

// warm repopulates the cache with the durable tail at full depth, so later
// reads with any limit up to depth see a consistent list.
func (l *CachedConversationLog) warm(ctx context.Context, sessionID, key string, limit int) ([]*schema.Message, error) {
	messages, err := l.durable.History(ctx, sessionID, l.depth)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return messages, nil
	}

	values := make([]interface{}, 0, len(messages))
	for _, msg := range messages {
		b, err := json.Marshal(msg)
		if err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal message for cache warm")
			return tail(messages, limit), nil
		}
		values = append(values, b)
	}

	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("failed to reset message cache")
		return tail(messages, limit), nil
	}
	if err := l.rdb.RPush(ctx, key, values...).Err(); err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("failed to warm message cache")
		return tail(messages, limit), nil
	}
	l.touch(ctx, key)

	return tail(messages, limit), nil
}

// touch extends the cache TTL, matching the idle-expiry behavior of the
// session store.
func (l *CachedConversationLog) touch(ctx context.Context, key string) {
	if l.ttl <= 0 {
		return
	}
	if err := l.rdb.Expire(ctx, key, l.ttl).Err(); err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("failed to set TTL on message cache")
	}
}

func cacheMessage(role, content string) *schema.Message {
	if role == "assistant" {
		return schema.AssistantMessage(content, nil)
	}
	return schema.UserMessage(content)
}

func decodeCachedMessages(rows []string) ([]*schema.Message, error) {
	messages := make([]*schema.Message, 0, len(rows))
	for i, row := range rows {
		var msg schema.Message
		if err := json.Unmarshal([]byte(row), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal cached message at index %d: %w", i, err)
		}
		messages = append(messages, &msg)
	}
	return messages, nil
}

func tail(messages []*schema.Message, limit int) []*schema.Message {
	if len(messages) > limit {
		return messages[len(messages)-limit:]
	}
	return messages
}

var _ model.ConversationLog = (*CachedConversationLog)(nil)
