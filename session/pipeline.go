package session

import (
	"context"
	"errors"
	"regexp"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// rejectionPattern matches wallet errors caused by the user dismissing the
// signature prompt ("User rejected the request", "declined", "cancelled").
var rejectionPattern = regexp.MustCompile(`(?i)(reject|declin|cancel|denied)`)

// challenge is the output of the nonce step.
type challenge struct {
	address string
	nonce   string
	message string
}

// handshake runs preflight, requestNonce, sign, verify and confirmProfile in
// order and stops at the first failure. Every returned error is a *core.Error.
// It returns the verified address with its profile.
func (s *WalletAuthSession) handshake(ctx context.Context) (string, *core.Profile, error) {
	address, signer, err := s.preflight()
	if err != nil {
		return "", nil, err
	}
	ch, err := s.requestNonce(ctx, address)
	if err != nil {
		return "", nil, err
	}
	signature, err := s.sign(ctx, signer, ch.message)
	if err != nil {
		return "", nil, err
	}
	if err := s.verify(ctx, ch, signature); err != nil {
		return "", nil, err
	}
	profile, err := s.fetchProfile(ctx, address)
	if err != nil {
		return "", nil, err
	}
	return address, profile, nil
}

func (s *WalletAuthSession) preflight() (string, ports.MessageSigner, error) {
	address := s.wallet.Address()
	if !s.wallet.Connected() || address == "" {
		return "", nil, core.NewError(core.KindWalletNotConnected, "", nil)
	}
	signer, ok := s.wallet.(ports.MessageSigner)
	if !ok {
		return "", nil, core.NewError(core.KindSigningUnsupported, "", nil)
	}
	return address, signer, nil
}

func (s *WalletAuthSession) requestNonce(ctx context.Context, address string) (*challenge, error) {
	resp, err := s.backend.RequestNonce(ctx, core.NonceRequest{
		Address:   address,
		ChainKind: s.chainKind,
		Domain:    s.domain,
	})
	if err != nil {
		return nil, core.NewError(core.KindNonceGenerationFailed, "", err)
	}
	if resp == nil || resp.Message == "" {
		return nil, core.NewError(core.KindNonceGenerationFailed, "no challenge message returned", nil)
	}
	return &challenge{address: address, nonce: resp.Nonce, message: resp.Message}, nil
}

// sign returns the canonical base64 signature over the UTF-8 message.
func (s *WalletAuthSession) sign(ctx context.Context, signer ports.MessageSigner, message string) (string, error) {
	result, err := signer.SignMessage(ctx, []byte(message))
	if err != nil {
		return "", classifySignError(err)
	}
	encoded, err := result.Base64()
	if err != nil {
		return "", err
	}
	return encoded, nil
}

func (s *WalletAuthSession) verify(ctx context.Context, ch *challenge, signature string) error {
	resp, err := s.backend.Verify(ctx, core.VerifyRequest{
		Address:   ch.address,
		ChainKind: s.chainKind,
		Nonce:     ch.nonce,
		Domain:    s.domain,
		Signature: signature,
	})
	if err != nil {
		return core.NewError(core.KindSignatureVerificationFailed, "", err)
	}
	if resp == nil || !resp.Success {
		return core.NewError(core.KindSignatureVerificationFailed, resp.ErrorMessage(), nil)
	}
	return nil
}

func classifySignError(err error) error {
	if core.KindOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return core.NewError(core.KindSigningFailed, "", err)
	}
	if rejectionPattern.MatchString(err.Error()) {
		return core.NewError(core.KindUserRejectedSignature, "", err)
	}
	return core.NewError(core.KindSigningFailed, "", err)
}
