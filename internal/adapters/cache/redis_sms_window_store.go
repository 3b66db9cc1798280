package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const smsWindowKeyPrefix = "auth:sms:sends:"

// RedisSMSSendWindow keeps a per-user sorted set of SMS send timestamps so
// the hourly resend cap survives challenge expiry and re-login.
type RedisSMSSendWindow struct {
	client *redis.Client
	// window bounds both the trim horizon and the key TTL.
	window time.Duration
}

func NewRedisSMSSendWindow(client *redis.Client, window time.Duration) *RedisSMSSendWindow {
	return &RedisSMSSendWindow{client: client, window: window}
}

func (s *RedisSMSSendWindow) RecordSend(ctx context.Context, userID uuid.UUID, at time.Time) error {
	key := smsWindowKeyPrefix + userID.String()
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixNano()), Member: strconv.FormatInt(at.UnixNano(), 10)})
		p.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(at.Add(-s.window).UnixNano(), 10))
		p.Expire(ctx, key, s.window)
		return nil
	})
	return err
}

func (s *RedisSMSSendWindow) CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	key := smsWindowKeyPrefix + userID.String()
	n, err := s.client.ZCount(ctx, key, "("+strconv.FormatInt(since.UnixNano(), 10), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
