// Package verifier checks wallet signatures for every supported chain kind.
package verifier

import (
	"fmt"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

var _ ports.Verifier = (*Registry)(nil)

// ChainVerifier handles a single chain kind.
type ChainVerifier interface {
	ValidateAddress(address string) error
	NormalizeAddress(address string) (string, error)
	Verify(address string, message, signature []byte) error
}

// Registry dispatches on chain kind.
type Registry struct {
	verifiers map[core.ChainKind]ChainVerifier
}

// NewRegistry returns a registry with the EVM and Solana verifiers.
func NewRegistry() *Registry {
	return &Registry{verifiers: map[core.ChainKind]ChainVerifier{
		core.ChainEVM:    EVM{},
		core.ChainSolana: Solana{},
	}}
}

func (r *Registry) get(kind core.ChainKind) (ChainVerifier, error) {
	v, ok := r.verifiers[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported chain kind %q", kind)
	}
	return v, nil
}

func (r *Registry) ValidateAddress(kind core.ChainKind, address string) error {
	v, err := r.get(kind)
	if err != nil {
		return err
	}
	return v.ValidateAddress(address)
}

func (r *Registry) NormalizeAddress(kind core.ChainKind, address string) (string, error) {
	v, err := r.get(kind)
	if err != nil {
		return "", err
	}
	return v.NormalizeAddress(address)
}

func (r *Registry) Verify(kind core.ChainKind, address string, message, signature []byte) error {
	v, err := r.get(kind)
	if err != nil {
		return err
	}
	return v.Verify(address, message, signature)
}
