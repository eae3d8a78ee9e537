package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// UserRepository stores backend accounts keyed by wallet.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*core.User, error)
	// GetByWallet returns core.ErrNotFound when no user owns the wallet.
	GetByWallet(ctx context.Context, kind core.ChainKind, address string) (*core.User, error)
	Create(ctx context.Context, u *core.User) error
}
