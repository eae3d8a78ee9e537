package ports

import (
	"context"
	"time"

	"github.com/layer-3/walletauth/core"
)

// SessionStore persists the single client-side session record.
// It does not enforce expiry.
type SessionStore interface {
	// Load returns core.ErrNotFound when no record is stored.
	Load(ctx context.Context) (*core.SessionRecord, error)
	Save(ctx context.Context, rec *core.SessionRecord) error
	Clear(ctx context.Context) error
}

// NonceStore keeps issued challenges until they are consumed or expire.
type NonceStore interface {
	Put(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error
	// Consume returns and deletes the challenge in one step.
	// It returns core.ErrNotFound for unknown or already used nonces.
	Consume(ctx context.Context, nonce string) (*core.Challenge, error)
}

// Store interface for token invalidation
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}
