package verifier

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/layer-3/walletauth/core"
)

// Solana verifies ed25519 signatures over the raw message bytes.
type Solana struct{}

func (Solana) publicKey(address string) (ed25519.PublicKey, error) {
	decoded, err := base58.Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: base58 decode failed: %v", core.ErrInvalidAddress, err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: public key length %d", core.ErrInvalidAddress, len(decoded))
	}
	return ed25519.PublicKey(decoded), nil
}

func (v Solana) ValidateAddress(address string) error {
	_, err := v.publicKey(address)
	return err
}

// NormalizeAddress returns the address unchanged; base58 is case sensitive.
func (v Solana) NormalizeAddress(address string) (string, error) {
	if err := v.ValidateAddress(address); err != nil {
		return "", err
	}
	return address, nil
}

func (v Solana) Verify(address string, message, signature []byte) error {
	pub, err := v.publicKey(address)
	if err != nil {
		return err
	}
	if len(signature) != ed25519.SignatureSize {
		return fmt.Errorf("%w: length %d", core.ErrInvalidSignature, len(signature))
	}
	if !ed25519.Verify(pub, message, signature) {
		return core.ErrInvalidSignature
	}
	return nil
}
