// Package walletauth wires a wallet-backed sign-in session from client
// configuration. Nothing is initialized at import time; call Init once at
// process start.
package walletauth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/layer-3/walletauth/adapters/backend"
	"github.com/layer-3/walletauth/adapters/signer"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/pkg/log"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/session"
)

// Client is a wallet session together with the adapters it was built from.
type Client struct {
	*session.WalletAuthSession

	Backend *backend.HTTPBackend
	Store   ports.SessionStore
}

type options struct {
	logger      log.Logger
	httpClient  *http.Client
	store       ports.SessionStore
	sessionOpts []session.Option
}

// Option customizes Init.
type Option func(*options)

func WithLogger(lg log.Logger) Option {
	return func(o *options) { o.logger = lg }
}

// WithHTTPClient replaces the backend HTTP client. A cookie jar is added when
// the client has none.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithSessionStore replaces the file session store.
func WithSessionStore(st ports.SessionStore) Option {
	return func(o *options) { o.store = st }
}

// WithSessionOptions passes extra options to session.New, after the ones
// derived from the config.
func WithSessionOptions(opts ...session.Option) Option {
	return func(o *options) { o.sessionOpts = append(o.sessionOpts, opts...) }
}

// Init builds the backend client, the session store and the session.
func Init(cfg config.ClientConfig, wallet ports.Wallet, opts ...Option) (*Client, error) {
	o := &options{logger: log.NewNoopLogger()}
	for _, opt := range opts {
		opt(o)
	}

	kind, err := cfg.Chain()
	if err != nil {
		return nil, err
	}

	backendOpts := []backend.Option{backend.WithLogger(o.logger.WithName("backend"))}
	if o.httpClient != nil {
		backendOpts = append(backendOpts, backend.WithHTTPClient(o.httpClient))
	}
	be, err := backend.NewHTTPBackend(cfg.BackendURL, backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	st := o.store
	if st == nil {
		st = store.NewFileSessionStore(cfg.SessionPath())
	}

	sessionOpts := append([]session.Option{
		session.WithLogger(o.logger),
		session.WithDomain(cfg.Domain),
		session.WithChainKind(kind),
		session.WithSessionDuration(cfg.SessionDuration),
	}, o.sessionOpts...)

	return &Client{
		WalletAuthSession: session.New(be, wallet, st, sessionOpts...),
		Backend:           be,
		Store:             st,
	}, nil
}

// NewWallet builds a local signing wallet for the configured chain from a
// secret key.
func NewWallet(ctx context.Context, cfg config.ClientConfig, secret string) (signer.Wallet, error) {
	pc, err := cfg.Provider()
	if err != nil {
		return nil, err
	}
	provider, err := signer.NewProvider(pc)
	if err != nil {
		return nil, err
	}
	kind, err := cfg.Chain()
	if err != nil {
		return nil, err
	}
	return provider.Wallet(ctx, kind, secret)
}
