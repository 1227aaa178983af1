package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL applies when configuration does not override it.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrMissingToken indicates the request carried no token at all.
	ErrMissingToken = errors.New("missing auth token")
	// ErrInvalidToken covers malformed tokens, bad signatures and unknown
	// signing methods.
	ErrInvalidToken = errors.New("invalid auth token")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("auth token expired")
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// TokenCodec issues and validates stateless HS256 session tokens. The
// signing secret is process-wide and read-only after startup; rotating it
// invalidates every outstanding token.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenCodec(secret []byte, ttl time.Duration) *TokenCodec {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenCodec{secret: secret, ttl: ttl}
}

// Issue signs a token binding username with issued-at and expiry claims.
func (c *TokenCodec) Issue(username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("username is required")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		Username: username,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry and returns the bound username.
// It does no storage lookup; the signature is the sole proof of prior
// authentication.
func (c *TokenCodec) Decode(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	claims := &sessionClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	if username == "" {
		return "", ErrInvalidToken
	}
	return username, nil
}
