package ports

import "github.com/layer-3/walletauth/core"

// Verifier checks wallet signatures for one or more chain kinds.
type Verifier interface {
	ValidateAddress(kind core.ChainKind, address string) error
	// NormalizeAddress returns the canonical spelling of a valid address.
	NormalizeAddress(kind core.ChainKind, address string) (string, error)
	Verify(kind core.ChainKind, address string, message, signature []byte) error
}
