package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/justlikeclockwork/clockwork/internal/common"
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims are the registered JWT claims plus the token type discriminator.
type Claims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"type"`
}

// TokenCodec signs and verifies HS256 tokens with a single secret.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

type CodecOption func(*TokenCodec)

// WithClock replaces time.Now for both signing and verification.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

func NewTokenCodec(secret []byte, opts ...CodecOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}

	c := &TokenCodec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	return c, nil
}

// Encode returns a token for subject expiring ttl from now, together with
// the expiry as written into the token (second precision).
func (c *TokenCodec) Encode(subject string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := c.now()
	exp := jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: exp,
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
		Type: typ,
	})

	s, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return s, exp.Time, nil
}

// Decode verifies token and returns its subject. The error wraps exactly
// one of common.ErrTokenMalformed, common.ErrTokenSignatureInvalid,
// common.ErrTokenExpired or common.ErrTokenTypeMismatch.
func (c *TokenCodec) Decode(token string, expected TokenType) (string, error) {
	claims := &Claims{}

	_, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return "", fmt.Errorf("%w: %v", common.ErrTokenSignatureInvalid, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return "", fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
		default:
			return "", fmt.Errorf("%w: %v", common.ErrTokenMalformed, err)
		}
	}

	if claims.Type != expected {
		return "", fmt.Errorf("%w: got %q, want %q", common.ErrTokenTypeMismatch, claims.Type, expected)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrTokenMalformed)
	}

	return claims.Subject, nil
}

// Kind names the failure wrapped by a Decode error for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, common.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, common.ErrTokenExpired):
		return "expired"
	case errors.Is(err, common.ErrTokenTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, common.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, common.ErrTokenMalformed):
		return "malformed"
	default:
		return "other"
	}
}
