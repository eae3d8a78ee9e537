package ports

import (
	"context"

	"github.com/layer-3/walletauth/core"
)

// AuthBackend is the REST service that issues challenges and owns sessions.
type AuthBackend interface {
	// RequestNonce asks for a fresh single-use challenge.
	RequestNonce(ctx context.Context, req core.NonceRequest) (*core.NonceResponse, error)
	// Verify submits a signed challenge. A rejected signature is reported in
	// the response, not as an error.
	Verify(ctx context.Context, req core.VerifyRequest) (*core.VerifyResponse, error)
	// CurrentUser returns the profile bound to the backend session.
	// It returns core.ErrUnauthorized when there is no session.
	CurrentUser(ctx context.Context) (*core.Profile, error)
	// Logout ends the backend session.
	Logout(ctx context.Context) error
}
