package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iradmi/vidstream-backend/internal/model"
)

// Scope selects which signing family a token belongs to. Access and
// refresh tokens are signed with independent secrets, so a token from one
// scope can never verify under the other and rotating one secret leaves
// the other family intact.
type Scope int

const (
	ScopeAccess Scope = iota
	ScopeRefresh
)

// AccessClaims are carried by short-lived access tokens and identify the
// user for individual requests.
type AccessClaims struct {
	jwt.RegisteredClaims
	UserID   uint64 `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// RefreshClaims are carried by long-lived refresh tokens. They hold the
// user id only; everything else is re-read from the database at refresh.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UserID uint64 `json:"uid"`
}

// Codec signs and verifies both token families with HS256. Secrets and
// TTLs are fixed at construction and read-only afterwards.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTTL exposes the configured access-token lifetime, used by the
// transport layer to set cookie expiry.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL exposes the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short-lived access token for u.
func (c *Codec) IssueAccess(u model.User) (string, error) {
	now := time.Now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
	})
	return t.SignedString(c.accessSecret)
}

// IssueRefresh signs a long-lived refresh token for u. The jti claim
// makes every issued token unique, so a rotated token never collides
// with its predecessor even within the same second.
func (c *Codec) IssueRefresh(u model.User) (string, error) {
	now := time.Now().UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: u.ID,
	})
	return t.SignedString(c.refreshSecret)
}

// VerifyAccess checks raw under the access scope and returns its claims.
// Failures are reported as ErrInvalidToken regardless of whether the
// token was expired, malformed or signed with the wrong key.
func (c *Codec) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(raw, claims, c.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks raw under the refresh scope and returns its claims.
func (c *Codec) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(raw, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Codec) verify(raw string, claims jwt.Claims, secret []byte) error {
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case err != nil, !t.Valid:
		return ErrTokenSignature
	}
	return nil
}
