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
	deviceTrustKeyPrefix = "auth:device_trust:"
	userDevicesPrefix    = "auth:user_devices:"
)

// RedisDeviceTrustStore persists device-trust records with the same layout as
// sessions: JSON value per record, per-user sorted set scored by creation
// time for oldest-first pruning at the cap.
type RedisDeviceTrustStore struct {
	client *redis.Client
}

func NewRedisDeviceTrustStore(client *redis.Client) *RedisDeviceTrustStore {
	return &RedisDeviceTrustStore{client: client}
}

func (s *RedisDeviceTrustStore) Put(ctx context.Context, trust domain.DeviceTrust, ttl time.Duration, maxPerUser int) ([]string, error) {
	raw, err := json.Marshal(trust)
	if err != nil {
		return nil, err
	}

	indexKey := userDevicesPrefix + trust.UserID.String()
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, deviceTrustKeyPrefix+trust.TrustID, raw, ttl)
		p.ZAdd(ctx, indexKey, redis.Z{Score: float64(trust.CreatedAt.UnixNano()), Member: trust.TrustID})
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

	pruned, err := s.client.ZRange(ctx, indexKey, 0, count-int64(maxPerUser)-1).Result()
	if err != nil {
		return nil, err
	}
	if len(pruned) == 0 {
		return nil, nil
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range pruned {
			p.Del(ctx, deviceTrustKeyPrefix+id)
			p.ZRem(ctx, indexKey, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pruned, nil
}

func (s *RedisDeviceTrustStore) Get(ctx context.Context, trustID string) (*domain.DeviceTrust, error) {
	raw, err := s.client.Get(ctx, deviceTrustKeyPrefix+trustID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out domain.DeviceTrust
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Touch records that a trusted device was seen again. TTL is not extended:
// trust expires a fixed interval after it was granted.
func (s *RedisDeviceTrustStore) Touch(ctx context.Context, trustID string, now time.Time) error {
	trust, err := s.Get(ctx, trustID)
	if err != nil {
		return err
	}
	if trust == nil {
		return nil
	}
	trust.LastUsedAt = now
	raw, err := json.Marshal(trust)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, deviceTrustKeyPrefix+trustID, raw, redis.KeepTTL).Err()
}

func (s *RedisDeviceTrustStore) Revoke(ctx context.Context, trustID string) error {
	trust, err := s.Get(ctx, trustID)
	if err != nil {
		return err
	}
	if trust == nil {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, deviceTrustKeyPrefix+trustID)
		p.ZRem(ctx, userDevicesPrefix+trust.UserID.String(), trustID)
		return nil
	})
	return err
}

func (s *RedisDeviceTrustStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.DeviceTrust, error) {
	indexKey := userDevicesPrefix + userID.String()
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.DeviceTrust, 0, len(ids))
	for _, id := range ids {
		trust, getErr := s.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if trust == nil {
			_ = s.client.ZRem(ctx, indexKey, id).Err()
			continue
		}
		out = append(out, *trust)
	}
	return out, nil
}
