package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// Wallet is a connected (or not) blockchain identity.
type Wallet interface {
	Connected() bool
	Address() string
	// ChainID is the network identifier stored with the local session.
	ChainID() string
}

// MessageSigner is the optional signing capability of a wallet.
type MessageSigner interface {
	SignMessage(ctx context.Context, message []byte) (core.SignatureResult, error)
}

// Disconnector is the optional disconnect capability of a wallet.
type Disconnector interface {
	Disconnect(ctx context.Context) error
}
