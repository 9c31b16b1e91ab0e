// Package identity issues and resolves API keys. A key is an HS256 JWT
// whose uid claim names the owner; resolving it yields that owner id or
// imghost.ErrUnauthorized.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sagarc03/imghost"
)

// Claims carries the owner id alongside the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"uid"`
}

// Issuer signs and verifies API keys with one shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewIssuer creates an Issuer. A zero ttl issues keys that never expire,
// which is what development keys are.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 16 {
		return nil, errors.New("new issuer: token secret must be at least 16 bytes")
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "imghost",
		now:    time.Now,
	}, nil
}

// WithClock replaces the time source. Used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

// Issue returns a signed API key for ownerID.
func (i *Issuer) Issue(ownerID string) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("issue key: %w: owner id cannot be empty", imghost.ErrValidation)
	}

	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   i.issuer,
			Subject:  ownerID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		OwnerID: ownerID,
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("issue key: %w", err)
	}
	return signed, nil
}

// Resolve verifies key and returns the owner id it names. Every failure
// wraps imghost.ErrUnauthorized.
func (i *Issuer) Resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("resolve key: %w: missing api key", imghost.ErrUnauthorized)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(key, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return "", fmt.Errorf("resolve key: %w: %w", imghost.ErrUnauthorized, err)
	}

	if !token.Valid || claims.OwnerID == "" {
		return "", fmt.Errorf("resolve key: %w: invalid claims", imghost.ErrUnauthorized)
	}

	return claims.OwnerID, nil
}

// contextKey is an unexported type for context keys in this package.
type contextKey string

const ownerKey contextKey = "ownerID"

// WithOwner returns a copy of ctx carrying ownerID.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerFromContext returns the owner id stored by WithOwner.
func OwnerFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerKey).(string)
	return id, ok && id != ""
}
