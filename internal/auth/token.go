package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTokenInvalid indicates a malformed or tampered token.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrTokenExpired indicates the token passed its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims is the payload carried inside a bearer token.
type Claims struct {
	UserID    string `json:"uid"`
	Username  string `json:"unm"`
	ExpiresAt int64  `json:"exp"`
}

// TokenManager issues and verifies HMAC-signed bearer tokens. The secret is
// injected at construction; the manager never reads process environment.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager returns a TokenManager using the provided secret key and
// token lifetime.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a signed token carrying the user identity.
func (m *TokenManager) Issue(userID uuid.UUID, username string) (string, error) {
	claims := Claims{
		UserID:    userID.String(),
		Username:  username,
		ExpiresAt: m.now().Add(m.ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("auth: marshal claims: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + m.sign(payload), nil
}

// Verify checks the signature and expiry and returns the embedded claims.
func (m *TokenManager) Verify(token string) (*Claims, error) {
	encoded, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, ErrTokenInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !hmac.Equal([]byte(m.sign(payload)), []byte(sig)) {
		return nil, ErrTokenInvalid
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	if m.now().Unix() >= claims.ExpiresAt {
		return nil, ErrTokenExpired
	}
	return &claims, nil
}

func (m *TokenManager) sign(payload []byte) string {
	mac := hmac.New(sha256.New, m.secret)
	_, _ = mac.Write(payload)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
