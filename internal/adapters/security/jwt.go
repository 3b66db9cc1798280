package security

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shoplane/identity-service/internal/domain"
	"github.com/shoplane/identity-service/internal/ports"
)

// TokenConfig tunes token issuance and key lifecycle.
type TokenConfig struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	KeyBits    int
}

type retainedKey struct {
	public      *rsa.PublicKey
	retainUntil time.Time
}

// KeyRing signs RS256 tokens with a single current key and retains prior
// public keys for verification. A retired key stays in the ring for
// max(accessTTL, refreshTTL) past rotation, long enough for the last token
// it signed to expire, then gets pruned on the next rotation.
type KeyRing struct {
	cfg   TokenConfig
	nowFn func() time.Time

	mu         sync.RWMutex
	currentKID string
	currentKey *rsa.PrivateKey
	retained   map[string]retainedKey
}

// NewKeyRing constructs a ring and generates the initial signing key.
func NewKeyRing(cfg TokenConfig) (*KeyRing, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.KeyBits <= 0 {
		cfg.KeyBits = 2048
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer is required")
	}

	ring := &KeyRing{
		cfg:      cfg,
		nowFn:    func() time.Time { return time.Now().UTC() },
		retained: map[string]retainedKey{},
	}
	if _, err := ring.RotateKey(ring.nowFn()); err != nil {
		return nil, err
	}
	return ring, nil
}

// RotateKey generates a fresh RSA pair and makes it the signing key in one
// swap under the lock; in-flight verifications keep resolving the old kid
// through the retained map. Returns the new key id.
func (k *KeyRing) RotateKey(now time.Time) (string, error) {
	private, err := rsa.GenerateKey(rand.Reader, k.cfg.KeyBits)
	if err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	kid := k.nextKIDLocked(now)
	if k.currentKey != nil {
		k.retained[k.currentKID] = retainedKey{
			public:      &k.currentKey.PublicKey,
			retainUntil: now.Add(k.verificationRetention()),
		}
	}
	for id, rk := range k.retained {
		if rk.retainUntil.Before(now) {
			delete(k.retained, id)
		}
	}

	k.currentKID = kid
	k.currentKey = private
	return kid, nil
}

func (k *KeyRing) verificationRetention() time.Duration {
	if k.cfg.RefreshTTL > k.cfg.AccessTTL {
		return k.cfg.RefreshTTL
	}
	return k.cfg.AccessTTL
}

// nextKIDLocked derives key-YYYY-MM ids, suffixing a sequence number when the
// same month already produced one.
func (k *KeyRing) nextKIDLocked(now time.Time) string {
	base := fmt.Sprintf("key-%04d-%02d", now.Year(), int(now.Month()))
	kid := base
	for n := 2; kid == k.currentKID || k.hasRetainedLocked(kid); n++ {
		kid = fmt.Sprintf("%s-%d", base, n)
	}
	return kid
}

func (k *KeyRing) hasRetainedLocked(kid string) bool {
	_, ok := k.retained[kid]
	return ok
}

type accessTokenClaims struct {
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	SessionID string   `json:"session_id"`
	jwt.RegisteredClaims
}

type refreshTokenClaims struct {
	SessionID   string `json:"session_id"`
	TokenFamily string `json:"token_family"`
	jwt.RegisteredClaims
}

// CreateTokens issues the access/refresh pair for an authenticated session.
func (k *KeyRing) CreateTokens(user domain.User, sessionID, tokenFamily string) (ports.TokenPair, error) {
	now := k.nowFn()
	refreshID := uuid.NewString()

	access := jwt.NewWithClaims(jwt.SigningMethodRS256, accessTokenClaims{
		Email:     user.Email,
		Roles:     user.Roles,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID.String(),
			Issuer:    k.cfg.Issuer,
			Audience:  jwt.ClaimStrings{k.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.cfg.AccessTTL)),
		},
	})

	refresh := jwt.NewWithClaims(jwt.SigningMethodRS256, refreshTokenClaims{
		SessionID:   sessionID,
		TokenFamily: tokenFamily,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UserID.String(),
			Issuer:    k.cfg.Issuer,
			ID:        refreshID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.cfg.RefreshTTL)),
		},
	})

	k.mu.RLock()
	kid := k.currentKID
	key := k.currentKey
	k.mu.RUnlock()

	access.Header["kid"] = kid
	refresh.Header["kid"] = kid

	accessRaw, err := access.SignedString(key)
	if err != nil {
		return ports.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshRaw, err := refresh.SignedString(key)
	if err != nil {
		return ports.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return ports.TokenPair{
		AccessToken:      accessRaw,
		RefreshToken:     refreshRaw,
		AccessExpiresIn:  int64(k.cfg.AccessTTL.Seconds()),
		RefreshExpiresIn: int64(k.cfg.RefreshTTL.Seconds()),
		RefreshID:        refreshID,
		TokenFamily:      tokenFamily,
	}, nil
}

func (k *KeyRing) publicKeyFor(token *jwt.Token) (any, error) {
	if token.Method.Alg() != jwt.SigningMethodRS256.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("token missing kid header")
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if kid == k.currentKID {
		return &k.currentKey.PublicKey, nil
	}
	if rk, ok := k.retained[kid]; ok && rk.retainUntil.After(k.nowFn()) {
		return rk.public, nil
	}
	return nil, fmt.Errorf("unknown signing key: %s", kid)
}

// ParseAccessToken validates signature, expiry, issuer, and audience.
// Any failure is one opaque error; callers treat it as "unauthenticated".
func (k *KeyRing) ParseAccessToken(raw string) (ports.AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &accessTokenClaims{}, k.publicKeyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(k.cfg.Issuer),
		jwt.WithAudience(k.cfg.Audience),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return ports.AccessClaims{}, err
	}
	claims, ok := parsed.Claims.(*accessTokenClaims)
	if !ok || !parsed.Valid {
		return ports.AccessClaims{}, errors.New("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.AccessClaims{}, fmt.Errorf("parse subject: %w", err)
	}
	kid, _ := parsed.Header["kid"].(string)

	return ports.AccessClaims{
		UserID:    userID,
		Email:     claims.Email,
		Roles:     claims.Roles,
		SessionID: claims.SessionID,
		IssuedAt:  claims.IssuedAt.Time.UTC(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
		KeyID:     kid,
	}, nil
}

// ParseRefreshToken validates signature, expiry, and issuer. Refresh tokens
// carry no audience; they are only ever presented back to this service.
func (k *KeyRing) ParseRefreshToken(raw string) (ports.RefreshClaims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &refreshTokenClaims{}, k.publicKeyFor,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(k.cfg.Issuer),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return ports.RefreshClaims{}, err
	}
	claims, ok := parsed.Claims.(*refreshTokenClaims)
	if !ok || !parsed.Valid {
		return ports.RefreshClaims{}, errors.New("invalid token claims")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.RefreshClaims{}, fmt.Errorf("parse subject: %w", err)
	}

	return ports.RefreshClaims{
		UserID:      userID,
		SessionID:   claims.SessionID,
		TokenFamily: claims.TokenFamily,
		RefreshID:   claims.ID,
		IssuedAt:    claims.IssuedAt.Time.UTC(),
		ExpiresAt:   claims.ExpiresAt.Time.UTC(),
	}, nil
}

// PublicJWKs exports the current and retained verification keys.
func (k *KeyRing) PublicJWKs() ([]map[string]any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	out := make([]map[string]any, 0, 1+len(k.retained))
	out = append(out, jwkFor(k.currentKID, &k.currentKey.PublicKey))
	now := k.nowFn()
	for kid, rk := range k.retained {
		if rk.retainUntil.After(now) {
			out = append(out, jwkFor(kid, rk.public))
		}
	}
	return out, nil
}

func jwkFor(kid string, pub *rsa.PublicKey) map[string]any {
	return map[string]any{
		"kid": kid,
		"kty": "RSA",
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}
