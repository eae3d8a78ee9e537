package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/walletauth/core"
)

// EVMWallet signs with a local secp256k1 key using personal_sign (EIP-191).
type EVMWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID string

	mu        sync.RWMutex
	connected bool
}

// NewEVMWallet creates a disconnected wallet from a hex-encoded private key.
func NewEVMWallet(privateKeyHex, chainID string) (*EVMWallet, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("could not parse ethereum private key: %w", err)
	}
	return &EVMWallet{
		key:     key,
		address: ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

func (w *EVMWallet) Connect(context.Context) error {
	w.mu.Lock()
	w.connected = true
	w.mu.Unlock()
	return nil
}

func (w *EVMWallet) Disconnect(context.Context) error {
	w.mu.Lock()
	w.connected = false
	w.mu.Unlock()
	return nil
}

func (w *EVMWallet) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Address returns the EIP-55 checksummed address, or "" while disconnected.
func (w *EVMWallet) Address() string {
	if !w.Connected() {
		return ""
	}
	return w.address.Hex()
}

func (w *EVMWallet) ChainID() string { return w.chainID }

// SignMessage returns a 65-byte signature with V in {27, 28}.
func (w *EVMWallet) SignMessage(ctx context.Context, message []byte) (core.SignatureResult, error) {
	if err := ctx.Err(); err != nil {
		return core.SignatureResult{}, err
	}
	if !w.Connected() {
		return core.SignatureResult{}, core.ErrWalletNotConnected
	}
	sig, err := ethcrypto.Sign(accounts.TextHash(message), w.key)
	if err != nil {
		return core.SignatureResult{}, fmt.Errorf("failed to sign message: %w", err)
	}
	// Adjust V from 0/1 to 27/28 for Ethereum compatibility.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return core.SignatureBytes(sig), nil
}
