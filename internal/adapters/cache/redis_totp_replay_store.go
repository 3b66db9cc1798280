package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const usedCodeKeyPrefix = "auth:totp:used:"

// RedisUsedCodeStore records consumed TOTP codes with SET NX. The first
// verifier of a (user, step, code) tuple wins; every later attempt inside the
// TTL sees the marker and is rejected as a replay.
type RedisUsedCodeStore struct {
	client *redis.Client
}

func NewRedisUsedCodeStore(client *redis.Client) *RedisUsedCodeStore {
	return &RedisUsedCodeStore{client: client}
}

func (s *RedisUsedCodeStore) MarkUsed(ctx context.Context, userID uuid.UUID, codeHash string, timeStep int64, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("%s%s:%d:%s", usedCodeKeyPrefix, userID, timeStep, codeHash)
	return s.client.SetNX(ctx, key, 1, ttl).Result()
}
