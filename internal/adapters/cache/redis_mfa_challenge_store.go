package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shoplane/identity-service/internal/domain"
)

const mfaChallengeKeyPrefix = "auth:mfa:challenge:"

// ErrChallengeGone signals that the challenge key expired or was consumed
// between the caller's read and its write.
var ErrChallengeGone = fmt.Errorf("mfa challenge no longer exists: %w", domain.ErrNotFound)

// incrAttemptsScript bumps the attempt counter only while the challenge is
// alive. Existence check and increment run as one script so a challenge that
// expires mid-verification can never resurrect as a counter-only key.
var incrAttemptsScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
return redis.call("HINCRBY", KEYS[1], "attempts", 1)
`)

// RedisMFAChallengeStore keeps challenges as Redis hashes so the attempt
// counter can be incremented atomically without rewriting the whole record.
type RedisMFAChallengeStore struct {
	client *redis.Client
}

func NewRedisMFAChallengeStore(client *redis.Client) *RedisMFAChallengeStore {
	return &RedisMFAChallengeStore{client: client}
}

func (s *RedisMFAChallengeStore) Put(ctx context.Context, challenge domain.MFAChallenge, ttl time.Duration) error {
	fields := map[string]interface{}{
		"user_id":       challenge.UserID.String(),
		"method":        string(challenge.Method),
		"sms_code_hash": challenge.SMSCodeHash,
		"attempts":      challenge.Attempts,
		"max_attempts":  challenge.MaxAttempts,
		"created_at":    challenge.CreatedAt.UnixNano(),
		"expires_at":    challenge.ExpiresAt.UnixNano(),
	}
	if challenge.LastSentAt != nil {
		fields["last_sent_at"] = challenge.LastSentAt.UnixNano()
	}

	key := mfaChallengeKeyPrefix + challenge.ChallengeID
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key, fields)
		p.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *RedisMFAChallengeStore) Get(ctx context.Context, challengeID string) (*domain.MFAChallenge, error) {
	fields, err := s.client.HGetAll(ctx, mfaChallengeKeyPrefix+challengeID).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	userID, err := uuid.Parse(fields["user_id"])
	if err != nil {
		return nil, err
	}

	out := domain.MFAChallenge{
		ChallengeID: challengeID,
		UserID:      userID,
		Method:      domain.MFAMethod(fields["method"]),
		SMSCodeHash: fields["sms_code_hash"],
		Attempts:    parseIntField(fields["attempts"]),
		MaxAttempts: parseIntField(fields["max_attempts"]),
		CreatedAt:   parseNanoField(fields["created_at"]),
		ExpiresAt:   parseNanoField(fields["expires_at"]),
	}
	if raw, ok := fields["last_sent_at"]; ok && raw != "" {
		sentAt := parseNanoField(raw)
		out.LastSentAt = &sentAt
	}
	return &out, nil
}

// IncrementAttempts returns the counter value after the increment. It returns
// ErrChallengeGone when the challenge key no longer exists.
func (s *RedisMFAChallengeStore) IncrementAttempts(ctx context.Context, challengeID string) (int, error) {
	n, err := incrAttemptsScript.Run(ctx, s.client, []string{mfaChallengeKeyPrefix + challengeID}).Int64()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrChallengeGone
	}
	return int(n), nil
}

func (s *RedisMFAChallengeStore) RecordSMSSend(ctx context.Context, challengeID, codeHash string, sentAt time.Time) error {
	key := mfaChallengeKeyPrefix + challengeID
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrChallengeGone
	}
	return s.client.HSet(ctx, key, map[string]interface{}{
		"sms_code_hash": codeHash,
		"last_sent_at":  sentAt.UnixNano(),
	}).Err()
}

func (s *RedisMFAChallengeStore) Delete(ctx context.Context, challengeID string) error {
	return s.client.Del(ctx, mfaChallengeKeyPrefix+challengeID).Err()
}

func parseIntField(raw string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(raw))
	return n
}

func parseNanoField(raw string) time.Time {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
