package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"github.com/layer-3/walletauth/core"
)

var (
	ErrNoChains         = errors.New("no chains configured")
	ErrChainDisabled    = errors.New("chain kind disabled by features")
	ErrChainNotFound    = errors.New("chain not configured")
	ErrMissingProjectID = errors.New("project id is required")
)

// ChainConfig is one chain the application signs in with.
type ChainConfig struct {
	Kind    core.ChainKind
	ChainID string
}

// Features toggles provider behaviour.
type Features struct {
	// AutoConnect connects wallets as soon as they are built.
	AutoConnect bool
	AllowEVM    bool
	AllowSolana bool
}

// ProviderConfig is passed once to NewProvider at process start.
type ProviderConfig struct {
	ProjectID string
	Chains    []ChainConfig
	Features  Features
}

func (c ProviderConfig) allows(kind core.ChainKind) bool {
	switch kind {
	case core.ChainEVM:
		return c.Features.AllowEVM
	case core.ChainSolana:
		return c.Features.AllowSolana
	default:
		return false
	}
}

// Validate checks that every configured chain is known and enabled.
func (c ProviderConfig) Validate() error {
	if c.ProjectID == "" {
		return ErrMissingProjectID
	}
	if len(c.Chains) == 0 {
		return ErrNoChains
	}
	for _, ch := range c.Chains {
		if _, err := core.ParseChainKind(string(ch.Kind)); err != nil {
			return err
		}
		if !c.allows(ch.Kind) {
			return fmt.Errorf("%w: %s", ErrChainDisabled, ch.Kind)
		}
	}
	return nil
}

// Provider builds wallets for the configured chains.
type Provider struct {
	cfg ProviderConfig
}

// NewProvider validates cfg. Nothing else in this package holds global state.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wallet provider config: %w", err)
	}
	return &Provider{cfg: cfg}, nil
}

func (p *Provider) ProjectID() string { return p.cfg.ProjectID }

// Chain returns the configuration for kind.
func (p *Provider) Chain(kind core.ChainKind) (ChainConfig, error) {
	for _, ch := range p.cfg.Chains {
		if ch.Kind == kind {
			return ch, nil
		}
	}
	return ChainConfig{}, fmt.Errorf("%w: %s", ErrChainNotFound, kind)
}

// Wallet builds a local wallet for kind from secret: a hex private key for
// EVM, a base58 keypair or seed for Solana.
func (p *Provider) Wallet(ctx context.Context, kind core.ChainKind, secret string) (Wallet, error) {
	ch, err := p.Chain(kind)
	if err != nil {
		return nil, err
	}

	var w Wallet
	switch kind {
	case core.ChainEVM:
		w, err = NewEVMWallet(secret, ch.ChainID)
	case core.ChainSolana:
		w, err = NewSolanaWallet(secret, ch.ChainID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrChainNotFound, kind)
	}
	if err != nil {
		return nil, err
	}

	if p.cfg.Features.AutoConnect {
		if err := w.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect wallet: %w", err)
		}
	}
	return w, nil
}

// GenerateKey creates a new secret for kind in the format Provider.Wallet
// accepts, and returns it with the wallet address.
func GenerateKey(kind core.ChainKind) (secret, address string, err error) {
	switch kind {
	case core.ChainEVM:
		key, err := ethcrypto.GenerateKey()
		if err != nil {
			return "", "", fmt.Errorf("failed to generate ethereum key: %w", err)
		}
		return hex.EncodeToString(ethcrypto.FromECDSA(key)), ethcrypto.PubkeyToAddress(key.PublicKey).Hex(), nil
	case core.ChainSolana:
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return "", "", fmt.Errorf("failed to generate ed25519 key: %w", err)
		}
		return base58.Encode(priv), base58.Encode(pub), nil
	default:
		return "", "", fmt.Errorf("%w: %s", ErrChainNotFound, kind)
	}
}
