package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ereas/ereas-backend/internal/config"
	"github.com/ereas/ereas-backend/internal/model"
	"github.com/ereas/ereas-backend/internal/service"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionCache is the Redis hot path for the session lifecycle: warmed exam
// payloads and answer keys, per-session autosave mirrors, and the queue feeding
// the stats worker. Postgres stays the source of truth throughout.
type SessionCache struct {
	rdb *redis.Client
}

// NewSessionCache creates a new SessionCache.
func NewSessionCache(rdb *redis.Client) *SessionCache {
	return &SessionCache{rdb: rdb}
}

var _ service.SessionCache = (*SessionCache)(nil)

// WarmExam caches the student payload and the answer key hash atomically via
// pipeline, replacing any stale key.
func (c *SessionCache) WarmExam(ctx context.Context, payload *model.ExamPayload, answerKey map[uuid.UUID]string) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	keyFields := make(map[string]interface{}, len(answerKey))
	for id, option := range answerKey {
		keyFields[id.String()] = option
	}

	examID := payload.ExamID.String()
	pipe := c.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(examID), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.ExamAnswerKey(examID))
	if len(keyFields) > 0 {
		pipe.HSet(ctx, config.CacheKey.ExamAnswerKey(examID), keyFields)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm exam cache: %w", err)
	}
	return nil
}

// ExamPayload returns the cached paper, or ErrCacheMiss.
func (c *SessionCache) ExamPayload(ctx context.Context, examID uuid.UUID) (*model.ExamPayload, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Result()
	if errors.Is(err, redis.Nil) {
		return nil, service.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get exam payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("unmarshal exam payload: %w", err)
	}
	return &payload, nil
}

// AnswerKey returns the cached answer key, or ErrCacheMiss when the hash is
// absent or empty.
func (c *SessionCache) AnswerKey(ctx context.Context, examID uuid.UUID) (map[uuid.UUID]string, error) {
	fields, err := c.rdb.HGetAll(ctx, config.CacheKey.ExamAnswerKey(examID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(fields) == 0 {
		return nil, service.ErrCacheMiss
	}

	key := make(map[uuid.UUID]string, len(fields))
	for idStr, option := range fields {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return nil, fmt.Errorf("parse answer key field %q: %w", idStr, err)
		}
		key[id] = option
	}
	return key, nil
}

// CacheAnswer mirrors a saved answer into the session hash.
func (c *SessionCache) CacheAnswer(ctx context.Context, sessionID, questionID uuid.UUID, selectedOption string) error {
	return c.rdb.HSet(ctx, config.CacheKey.SessionAnswersKey(sessionID.String()), questionID.String(), selectedOption).Err()
}

// CachedAnswers returns the mirrored answers keyed by question id string. An
// absent hash is an empty map, not an error.
func (c *SessionCache) CachedAnswers(ctx context.Context, sessionID uuid.UUID) (map[string]string, error) {
	return c.rdb.HGetAll(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Result()
}

// ClearSession drops the per-session autosave mirror.
func (c *SessionCache) ClearSession(ctx context.Context, sessionID uuid.UUID) error {
	return c.rdb.Del(ctx, config.CacheKey.SessionAnswersKey(sessionID.String())).Err()
}

// EnqueueResult pushes the scored result onto the stats worker queue.
func (c *SessionCache) EnqueueResult(ctx context.Context, ev service.ResultEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal result event: %w", err)
	}
	return c.rdb.RPush(ctx, config.WorkerKey.PersistResultStatsQueue, data).Err()
}
