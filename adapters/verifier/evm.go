package verifier

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/walletauth/core"
)

// EVM verifies personal_sign (EIP-191) signatures by public key recovery.
type EVM struct{}

func (EVM) ValidateAddress(address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("%w: %q is not a hex address", core.ErrInvalidAddress, address)
	}
	return nil
}

// NormalizeAddress returns the EIP-55 checksummed form.
func (v EVM) NormalizeAddress(address string) (string, error) {
	if err := v.ValidateAddress(address); err != nil {
		return "", err
	}
	return common.HexToAddress(address).Hex(), nil
}

func (v EVM) Verify(address string, message, signature []byte) error {
	if err := v.ValidateAddress(address); err != nil {
		return err
	}
	if len(signature) != 65 {
		return fmt.Errorf("%w: length %d", core.ErrInvalidSignature, len(signature))
	}
	sig := make([]byte, 65)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return fmt.Errorf("%w: recovery failed: %v", core.ErrInvalidSignature, err)
	}
	if ethcrypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return fmt.Errorf("%w: signer mismatch", core.ErrInvalidSignature)
	}
	return nil
}
