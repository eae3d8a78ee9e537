package signer

import (
	"context"

	"github.com/layer-3/walletauth/ports"
)

// Wallet is a connectable wallet that can sign messages.
type Wallet interface {
	ports.Wallet
	ports.MessageSigner
	ports.Disconnector
	Connect(ctx context.Context) error
}

var (
	_ Wallet = (*EVMWallet)(nil)
	_ Wallet = (*SolanaWallet)(nil)
	_ Wallet = (*ExternalWallet)(nil)
)
