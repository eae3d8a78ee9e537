package signer

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"
	"sync"

	"github.com/mr-tron/base58"

	"github.com/layer-3/walletauth/core"
)

// SolanaWallet signs raw message bytes with a local ed25519 keypair.
type SolanaWallet struct {
	key     ed25519.PrivateKey
	address string
	chainID string

	mu        sync.RWMutex
	connected bool
}

// NewSolanaWallet creates a disconnected wallet from a base58 secret. Both the
// 64-byte keypair form used by Solana CLI tools and a bare 32-byte seed work.
func NewSolanaWallet(secretBase58, chainID string) (*SolanaWallet, error) {
	raw, err := base58.Decode(strings.TrimSpace(secretBase58))
	if err != nil {
		return nil, fmt.Errorf("base58 decode failed: %w", err)
	}
	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	default:
		return nil, fmt.Errorf("invalid solana secret length: got %d, want %d or %d",
			len(raw), ed25519.SeedSize, ed25519.PrivateKeySize)
	}
	return &SolanaWallet{
		key:     key,
		address: base58.Encode(key.Public().(ed25519.PublicKey)),
		chainID: chainID,
	}, nil
}

func (w *SolanaWallet) Connect(context.Context) error {
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	return nil
}

func (w *SolanaWallet) Disconnect(context.Context) error {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
	return nil
}

func (w *SolanaWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Address returns the base58 public key, or "" while disconnected.
func (w *SolanaWallet) Address() string {
	if !w.Connected() {
		return ""
	}
	return w.address
}

func (w *SolanaWallet) ChainID() string { return w.chainID }

// SignMessage returns a 64-byte ed25519 signature.
func (w *SolanaWallet) SignMessage(ctx context.Context, message []byte) (core.SignatureResult, error) {
	if err := ctx.Err(); err != nil {
		return core.SignatureResult{}, err
	}
	if !w.Connected() {
		return core.SignatureResult{}, core.ErrWalletNotConnected
	}
	return core.SignatureBytes(ed25519.Sign(w.key, message)), nil
}
