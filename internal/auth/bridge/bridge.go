// Package bridge carries the verified Discord user id across the Google
// redirect in a signed, short-lived token held by the client.
package bridge

import (
	"context"
	"errors"
	"time"

	"role-gate/internal/auth"
	"role-gate/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Bridge mints and resolves identity carry tokens.
type Bridge struct {
	secret []byte
	ttl    time.Duration
	ledger session.Ledger
	now    func() time.Time
}

func New(secret []byte, ttl time.Duration, ledger session.Ledger) *Bridge {
	if ledger == nil {
		ledger = session.NopLedger{}
	}
	return &Bridge{
		secret: secret,
		ttl:    ttl,
		ledger: ledger,
		now:    time.Now,
	}
}

// Mint returns an HS256 token whose only application payload is the
// Discord user id (as sub).
func (b *Bridge) Mint(discordUserID string) (string, error) {
	if discordUserID == "" {
		return "", errors.New("bridge: empty discord user id")
	}

	now := b.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   discordUserID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(b.ttl)),
	})

	signed, err := token.SignedString(b.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// Resolve verifies signature and expiry and returns the embedded Discord
// user id. Each token resolves at most once when the ledger is persistent.
func (b *Bridge) Resolve(ctx context.Context, signed string) (string, error) {
	if signed == "" {
		return "", auth.NewError(auth.KindIdentityBridge, auth.ErrIdentityBridge.Message, errors.New("carry token absent"))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(signed, &claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil {
		return "", auth.NewError(auth.KindIdentityBridge, auth.ErrIdentityBridge.Message, err)
	}

	if claims.Subject == "" || claims.ID == "" {
		return "", auth.NewError(auth.KindIdentityBridge, auth.ErrIdentityBridge.Message, errors.New("carry token missing claims"))
	}

	remaining := claims.ExpiresAt.Sub(b.now())
	first, err := b.ledger.Consume(ctx, claims.ID, remaining)
	if err != nil {
		return "", auth.NewError(auth.KindInternal, auth.ErrInternal.Message, err)
	}
	if !first {
		return "", auth.NewError(auth.KindIdentityBridge, auth.ErrIdentityBridge.Message, errors.New("carry token already used"))
	}

	return claims.Subject, nil
}
