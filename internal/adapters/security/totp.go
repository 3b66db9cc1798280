package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	totpDigits      = 6
	totpStep        = 30 * time.Second
	totpSkew        = 1
	totpSecretBytes = 20
)

// TOTPEngine implements RFC 6238: SHA-1 HMAC, 6-digit codes, 30-second steps,
// with a tolerance of one step either side to absorb client clock drift.
type TOTPEngine struct {
	nowFn func() time.Time
}

// NewTOTPEngine constructs the engine with wall-clock time.
func NewTOTPEngine() *TOTPEngine {
	return &TOTPEngine{nowFn: func() time.Time { return time.Now().UTC() }}
}

// GenerateSecret produces a 32-character base32 secret for enrollment.
func (e *TOTPEngine) GenerateSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// CurrentStep returns floor(unixEpochSeconds / 30).
func (e *TOTPEngine) CurrentStep(now time.Time) int64 {
	return now.Unix() / int64(totpStep.Seconds())
}

// VerifyCode checks a code against the current step and its neighbors and
// returns the step the code was generated for, so replay records key on the
// code's own step rather than the verification wall clock.
// Shape validation happens before any cryptographic work.
func (e *TOTPEngine) VerifyCode(secret, code string) (int64, bool) {
	code = strings.TrimSpace(code)
	if len(code) != totpDigits {
		return 0, false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	key, err := decodeSecret(secret)
	if err != nil {
		return 0, false
	}

	step := e.CurrentStep(e.nowFn())
	for offset := int64(-totpSkew); offset <= totpSkew; offset++ {
		if hotp(key, step+offset) == code {
			return step + offset, true
		}
	}
	return 0, false
}

// CodeAt computes the code for an explicit step. Used by enrollment QA and tests.
func (e *TOTPEngine) CodeAt(secret string, step int64) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotp(key, step), nil
}

// HashCode produces the sha256 hex digest recorded for replay prevention,
// so consumed codes are never stored raw.
func (e *TOTPEngine) HashCode(code string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(code)))
	return hex.EncodeToString(sum[:])
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(strings.TrimRight(normalized, "="))
}

// hotp is the RFC 4226 truncation over an RFC 6238 time counter.
func hotp(key []byte, counter int64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%06d", value%1000000)
}
