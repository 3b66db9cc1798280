package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config tunes the per-key token buckets and the bucket cache bounds.
type Config struct {
	RequestsPerMinute int
	Burst             int
	MaxEntries        int
	IdleTTL           time.Duration
}

// DefaultConfig mirrors the production signin limits: 5 requests/minute per
// client, at most 10k tracked clients, idle buckets dropped after 10 minutes.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 5,
		Burst:             5,
		MaxEntries:        10_000,
		IdleTTL:           10 * time.Minute,
	}
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a token-bucket rate limiter keyed by client identity.
// Buckets for different keys are independent; the cache is bounded and
// idle-evicting so hostile key churn cannot grow memory without limit.
type Limiter struct {
	cfg   Config
	nowFn func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New constructs a limiter. The zero values of cfg fall back to defaults.
func New(cfg Config) *Limiter {
	defaults := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaults.MaxEntries
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaults.IdleTTL
	}
	return &Limiter{
		cfg:     cfg,
		nowFn:   func() time.Time { return time.Now() },
		buckets: map[string]*bucket{},
	}
}

// TryAcquire consumes one token for key if available. It never blocks.
func (l *Limiter) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.cfg.MaxEntries {
			l.evictLocked(now)
		}
		b = &bucket{
			limiter: rate.NewLimiter(rate.Limit(float64(l.cfg.RequestsPerMinute)/60.0), l.cfg.Burst),
		}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Reset drops the bucket for key, restoring a full budget.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// evictLocked removes idle buckets; if none are idle it drops the stalest
// entry so a new key can always be admitted.
func (l *Limiter) evictLocked(now time.Time) {
	var (
		stalestKey  string
		stalestSeen time.Time
	)
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) >= l.cfg.IdleTTL {
			delete(l.buckets, key)
			continue
		}
		if stalestKey == "" || b.lastSeen.Before(stalestSeen) {
			stalestKey = key
			stalestSeen = b.lastSeen
		}
	}
	if len(l.buckets) >= l.cfg.MaxEntries && stalestKey != "" {
		delete(l.buckets, stalestKey)
	}
}

// Len reports the tracked bucket count. Exposed for eviction tests.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
