package session

import (
	"context"
	"time"
)

// Ledger records one-time token ids so a token can be redeemed at most once.
// It never stores identities, only opaque ids with a TTL.
type Ledger interface {
	// Consume marks id as used for ttl. It reports false when id was
	// already consumed.
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}

// NopLedger accepts every id. It is used when no Redis is configured,
// in which case carry tokens are bounded by expiry alone.
type NopLedger struct{}

func (NopLedger) Consume(context.Context, string, time.Duration) (bool, error) {
	return true, nil
}
