package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for any token that fails parsing or validation.
var ErrInvalidToken = errors.New("invalid token")

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost.
func NewHasher(cost int) *Hasher {
	return &Hasher{cost: cost}
}

// Hash generates a bcrypt digest of the password.
func (h *Hasher) Hash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// Verify compares a password with a bcrypt digest.
func (h *Hasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// Claims carried by access and refresh tokens.
type Claims struct {
	UserID int64  `json:"_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Sign issues an HS256 token for claims that expires after ttl.
func Sign(claims Claims, secret []byte, ttl time.Duration, now time.Time) (string, error) {
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token signed with secret and returns its claims.
func Parse(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenIssuer signs access and refresh tokens with separate secrets and lifetimes.
type TokenIssuer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenIssuer creates a TokenIssuer.
func NewTokenIssuer(accessSecret string, accessTTL time.Duration, refreshSecret string, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		accessTTL:     accessTTL,
		refreshSecret: []byte(refreshSecret),
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// AccessToken carries the user id and email.
func (t *TokenIssuer) AccessToken(userID int64, email string) (string, error) {
	return Sign(Claims{UserID: userID, Email: email}, t.accessSecret, t.accessTTL, t.now())
}

// RefreshToken carries only the user id.
func (t *TokenIssuer) RefreshToken(userID int64) (string, error) {
	return Sign(Claims{UserID: userID}, t.refreshSecret, t.refreshTTL, t.now())
}

// ParseAccessToken validates an access token.
func (t *TokenIssuer) ParseAccessToken(token string) (*Claims, error) {
	return Parse(token, t.accessSecret)
}

// ParseRefreshToken validates a refresh token.
func (t *TokenIssuer) ParseRefreshToken(token string) (*Claims, error) {
	return Parse(token, t.refreshSecret)
}

// AccessTTL is the access token lifetime.
func (t *TokenIssuer) AccessTTL() time.Duration { return t.accessTTL }

// RefreshTTL is the refresh token lifetime.
func (t *TokenIssuer) RefreshTTL() time.Duration { return t.refreshTTL }
