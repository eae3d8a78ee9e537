package session

import (
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/pkg/log"
)

// Option configures a WalletAuthSession.
type Option func(*WalletAuthSession)

// WithLogger sets the logger. The default discards everything.
func WithLogger(lg log.Logger) Option {
	return func(s *WalletAuthSession) {
		if lg != nil {
			s.logger = lg
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *WalletAuthSession) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDomain sets the site hostname sent with nonce and verify requests.
func WithDomain(domain string) Option {
	return func(s *WalletAuthSession) { s.domain = domain }
}

// WithChainKind sets the chain kind announced to the backend. Defaults to solana.
func WithChainKind(kind core.ChainKind) Option {
	return func(s *WalletAuthSession) { s.chainKind = kind }
}

// WithSessionDuration overrides how long a local session record is trusted.
func WithSessionDuration(d time.Duration) Option {
	return func(s *WalletAuthSession) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithOnChange registers an observer called with every new state.
// Observers run on the goroutine that caused the transition, outside the lock.
func WithOnChange(fn func(State)) Option {
	return func(s *WalletAuthSession) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}
