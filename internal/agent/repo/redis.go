package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HeliosCommand/server/internal/agent/model"
	errx "github.com/HeliosCommand/server/internal/core/error"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) sessionKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:session", conversationID)
}

func (r *RedisSessionRepository) Load(ctx context.Context, conversationID string) (*model.Session, error) {
	if err := validateID(conversationID); err != nil {
		return nil, err
	}
	key := r.sessionKey(conversationID)

	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.NewSession(conversationID), nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}

	var doc sessionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to unmarshal session")
		return nil, fmt.Errorf("unmarshal session %s: %w", conversationID, err)
	}
	s, err := doc.toSession(conversationID)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s: %w", conversationID, err)
	}
	return s, nil
}

// Save overwrites the session document and refreshes its TTL.
func (r *RedisSessionRepository) Save(ctx context.Context, s *model.Session) error {
	if s == nil {
		return fmt.Errorf("invalid session")
	}
	if err := validateID(s.ConversationID); err != nil {
		return err
	}
	b, err := json.Marshal(toDocument(s))
	if err != nil {
		logx.Error().Err(err).Str("conversation_id", s.ConversationID).Msg("failed to marshal session")
		return fmt.Errorf("marshal session: %w", err)
	}
	key := r.sessionKey(s.ConversationID)

	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, conversationID string) error {
	key := r.sessionKey(conversationID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
