package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		password  string
		wantError bool
	}{
		{name: "valid", password: "Correct-Horse7Battery", wantError: false},
		{name: "too short", password: "Ab1!short", wantError: true},
		{name: "no symbol", password: "LongEnoughPass123", wantError: true},
		{name: "no digit", password: "LongEnoughPass!!!", wantError: true},
		{name: "weak pattern", password: "MyPassword123!", wantError: true},
		{name: "sequence pattern", password: "Abcdef123456!!", wantError: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidatePassword(tc.password)
			if tc.wantError && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if tc.wantError && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !tc.wantError && err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
		})
	}
}

func TestUserIsLocked(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(10 * time.Minute)
	past := now.Add(-10 * time.Minute)

	cases := []struct {
		name string
		user User
		want bool
	}{
		{name: "active never locked", user: User{Status: StatusActive, LockedUntil: &future}, want: false},
		{name: "locked inside window", user: User{Status: StatusLocked, LockedUntil: &future}, want: true},
		{name: "locked window elapsed", user: User{Status: StatusLocked, LockedUntil: &past}, want: false},
		{name: "locked with no deadline", user: User{Status: StatusLocked}, want: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.user.IsLocked(now); got != tc.want {
				t.Fatalf("IsLocked = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDeviceTrustMatches(t *testing.T) {
	t.Parallel()

	trust := DeviceTrust{
		TrustID:         "dt_1",
		UserID:          uuid.New(),
		FingerprintHash: "abc",
		UserAgent:       "Mozilla/5.0",
		IPAddress:       "10.0.0.1",
	}

	if !trust.Matches("abc", "Mozilla/5.0") {
		t.Fatalf("expected match on fingerprint and user agent")
	}
	if trust.Matches("zzz", "Mozilla/5.0") {
		t.Fatalf("fingerprint mismatch must not match")
	}
	if trust.Matches("abc", "curl/8.0") {
		t.Fatalf("user agent mismatch must not match")
	}
}

func TestMFAChallengeAttemptBudget(t *testing.T) {
	t.Parallel()

	c := MFAChallenge{Attempts: 2, MaxAttempts: 3}
	if c.HasExceededMaxAttempts() {
		t.Fatalf("two of three attempts should not exceed the budget")
	}
	if got := c.RemainingAttempts(); got != 1 {
		t.Fatalf("RemainingAttempts = %d, want 1", got)
	}

	c.Attempts = 5
	if !c.HasExceededMaxAttempts() {
		t.Fatalf("five of three attempts should exceed the budget")
	}
	if got := c.RemainingAttempts(); got != 0 {
		t.Fatalf("RemainingAttempts = %d, want 0", got)
	}
}

func TestAccountLockedErrorRemainingSeconds(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := &AccountLockedError{LockedUntil: now.Add(90 * time.Second)}

	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("AccountLockedError must match ErrAccountLocked")
	}
	if got := err.RemainingSeconds(now); got != 90 {
		t.Fatalf("RemainingSeconds = %d, want 90", got)
	}
	if got := err.RemainingSeconds(now.Add(5 * time.Minute)); got != 0 {
		t.Fatalf("RemainingSeconds after expiry = %d, want 0", got)
	}
}
