package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shoplane/identity-service/internal/domain"
)

const (
	sessionKeyPrefix   = "auth:session:"
	userSessionsPrefix = "auth:user_sessions:"
)

// RedisSessionStore keeps session records as JSON values with a TTL, plus a
// per-user sorted set scored by creation time. The sorted set is what makes
// oldest-first eviction at the concurrency cap a single range query.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a session store backed by Redis.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) Create(ctx context.Context, session domain.Session, ttl time.Duration, maxPerUser int) ([]string, error) {
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	indexKey := userSessionsPrefix + session.UserID.String()
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionKeyPrefix+session.SessionID, raw, ttl)
		p.ZAdd(ctx, indexKey, redis.Z{Score: float64(session.CreatedAt.UnixNano()), Member: session.SessionID})
		p.Expire(ctx, indexKey, ttl)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if maxPerUser <= 0 {
		return nil, nil
	}

	count, err := s.client.ZCard(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	if int(count) <= maxPerUser {
		return nil, nil
	}

	// FIFO: drop the lowest created-at scores beyond the cap.
	evicted, err := s.client.ZRange(ctx, indexKey, 0, count-int64(maxPerUser)-1).Result()
	if err != nil {
		return nil, err
	}
	if len(evicted) == 0 {
		return nil, nil
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range evicted {
			p.Del(ctx, sessionKeyPrefix+id)
			p.ZRem(ctx, indexKey, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out domain.Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRefreshID rewrites the session with the rotated refresh token id,
// preserving the remaining TTL.
func (s *RedisSessionStore) UpdateRefreshID(ctx context.Context, sessionID, refreshID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return redis.Nil
	}
	session.RefreshID = refreshID
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+sessionID, raw, redis.KeepTTL).Err()
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionKeyPrefix+sessionID)
		p.ZRem(ctx, userSessionsPrefix+session.UserID.String(), sessionID)
		return nil
	})
	return err
}

func (s *RedisSessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Session, error) {
	indexKey := userSessionsPrefix + userID.String()
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Session, 0, len(ids))
	for _, id := range ids {
		session, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if session == nil {
			// Value expired under the index entry; clean up lazily.
			_ = s.client.ZRem(ctx, indexKey, id).Err()
			continue
		}
		out = append(out, *session)
	}
	return out, nil
}

func (s *RedisSessionStore) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	indexKey := userSessionsPrefix + userID.String()
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.Del(ctx, sessionKeyPrefix+id)
		}
		p.Del(ctx, indexKey)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
