package signer

import (
	"context"
	"sync"

	"github.com/layer-3/walletauth/core"
)

// SignFunc is a wallet bridge's signMessage. Its result is passed through
// Canonicalize.
type SignFunc func(ctx context.Context, message []byte) (any, error)

// ExternalWallet adapts a wallet that lives outside this process, e.g. a
// browser extension reached through a bridge.
type ExternalWallet struct {
	sign       SignFunc
	disconnect func(ctx context.Context) error

	mu      sync.RWMutex
	address string
	chainID string
}

// NewExternalWallet wraps sign. The wallet counts as connected while it has
// an address. disconnect may be nil.
func NewExternalWallet(address, chainID string, sign SignFunc, disconnect func(ctx context.Context) error) *ExternalWallet {
	return &ExternalWallet{
		sign:       sign,
		disconnect: disconnect,
		address:    address,
		chainID:    chainID,
	}
}

// SetAccount records an account change reported by the bridge.
func (w *ExternalWallet) SetAccount(address, chainID string) {
	w.mu.Lock()
	w.address = address
	w.chainID = chainID
	w.mu.Unlock()
}

func (w *ExternalWallet) Connect(context.Context) error { return nil }

func (w *ExternalWallet) Disconnect(ctx context.Context) error {
	w.mu.Lock()
	w.address = ""
	w.mu.Unlock()
	if w.disconnect == nil {
		return nil
	}
	return w.disconnect(ctx)
}

func (w *ExternalWallet) Connected() bool { return w.Address() != "" }

func (w *ExternalWallet) Address() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.address
}

func (w *ExternalWallet) ChainID() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.chainID
}

// SignMessage calls the bridge. Bridge errors are returned untouched so the
// caller can tell a user rejection from a failure.
func (w *ExternalWallet) SignMessage(ctx context.Context, message []byte) (core.SignatureResult, error) {
	if w.sign == nil {
		return core.SignatureResult{}, core.ErrSigningUnsupported
	}
	out, err := w.sign(ctx, message)
	if err != nil {
		return core.SignatureResult{}, err
	}
	return Canonicalize(out)
}
