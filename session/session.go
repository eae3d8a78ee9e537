package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/pkg/log"
	"github.com/layer-3/walletauth/ports"
)

// WalletAuthSession drives wallet sign-in for one client.
// All methods are safe for concurrent use.
type WalletAuthSession struct {
	backend ports.AuthBackend
	wallet  ports.Wallet
	store   ports.SessionStore

	logger    log.Logger
	now       func() time.Time
	domain    string
	chainKind core.ChainKind
	maxAge    time.Duration
	observers []func(State)

	mu    sync.Mutex
	state State
	// connKey identifies the wallet connection the reconciled latch belongs to.
	connKey        string
	reconciled     bool
	checking       bool
	authenticating bool
	// generation is bumped by Disconnect so that results of calls started
	// before it are dropped.
	generation uint64
	// authRuns counts started Authenticate calls. A Reconcile yields to any
	// that began while it was checking.
	authRuns uint64

	// storeMu orders session store writes against Disconnect. Lock order is
	// storeMu before mu.
	storeMu sync.Mutex
}

// storeOp is the store write a reconcile asks for once it is known to be
// still current.
type storeOp int

const (
	storeKeep storeOp = iota
	storePersist
	storeClear
)

type reconcileResult struct {
	authenticated bool
	user          *core.Profile
	address       string
	op            storeOp
}

// New builds a session in the Idle state. Nothing is fetched until Reconcile.
func New(backend ports.AuthBackend, wallet ports.Wallet, store ports.SessionStore, opts ...Option) *WalletAuthSession {
	s := &WalletAuthSession{
		backend:   backend,
		wallet:    wallet,
		store:     store,
		logger:    log.NewNoopLogger(),
		now:       time.Now,
		chainKind: core.ChainSolana,
		maxAge:    core.SessionDuration,
		state:     State{Status: StatusIdle},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithName("walletauth-session")
	return s
}

// State returns the current snapshot.
func (s *WalletAuthSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsValidSession reports whether rec authorizes the currently connected wallet.
func (s *WalletAuthSession) IsValidSession(rec core.SessionRecord) bool {
	if !s.wallet.Connected() {
		return false
	}
	return rec.Validate(s.wallet.Address(), s.now(), s.maxAge) == nil
}

// Reconcile restores the session for the current wallet connection.
// It runs once per connection; later calls return the settled state until
// the wallet connects, disconnects or switches address.
func (s *WalletAuthSession) Reconcile(ctx context.Context) State {
	s.mu.Lock()
	key := s.connectionKey()
	if key != s.connKey {
		s.connKey = key
		s.reconciled = false
	}
	if s.reconciled || s.checking || s.authenticating {
		st := s.state
		s.mu.Unlock()
		return st
	}
	s.checking = true
	gen := s.generation
	runs := s.authRuns
	s.state.Status = StatusCheckingSession
	s.state.IsCheckingSession = true
	st := s.state
	s.mu.Unlock()
	s.notify(st)

	res := s.reconcile(ctx)

	if res.op != storeKeep {
		s.writeStore(func() bool { return gen == s.generation && runs == s.authRuns }, func() {
			if res.op == storePersist {
				s.persist(ctx, res.address)
			} else {
				s.clearStore(ctx)
			}
		})
	}

	s.mu.Lock()
	s.checking = false
	if gen != s.generation {
		st = s.state
		s.mu.Unlock()
		return st
	}
	s.reconciled = true
	s.state.IsCheckingSession = false
	if runs != s.authRuns {
		// An explicit Authenticate overtook us; it owns the outcome.
		st = s.state
		s.mu.Unlock()
		s.notify(st)
		return st
	}
	s.state.IsAuthenticated = res.authenticated
	s.state.User = res.user
	if res.authenticated {
		s.state.Status = StatusAuthenticated
	} else {
		s.state.Status = StatusUnauthenticated
	}
	st = s.state
	s.mu.Unlock()
	s.notify(st)
	return st
}

// reconcile decides the outcome without writing to the store; Reconcile
// applies res.op only if nothing overtook it.
func (s *WalletAuthSession) reconcile(ctx context.Context) reconcileResult {
	address := s.wallet.Address()
	if !s.wallet.Connected() || address == "" {
		return reconcileResult{op: storeClear}
	}
	lg := s.logger.WithKV("address", address)

	profile, err := s.fetchProfile(ctx, address)
	if err == nil {
		lg.Info("restored backend session")
		return reconcileResult{authenticated: true, user: profile, address: address, op: storePersist}
	}
	lg.Debug("no backend session", "err", err)

	rec, err := s.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			lg.Warn("failed to load local session", "err", err)
		}
		return reconcileResult{op: storeClear}
	}
	if err := rec.Validate(address, s.now(), s.maxAge); err != nil {
		lg.Info("discarding local session", "kind", core.KindOf(err), "err", err)
		return reconcileResult{op: storeClear}
	}

	profile, err = s.fetchProfile(ctx, address)
	if err == nil {
		return reconcileResult{authenticated: true, user: profile, address: address}
	}
	// The local record only gates the client UI. The backend still checks its
	// own cookie on every privileged call.
	lg.Warn("profile unavailable, trusting local session", "err", err)
	return reconcileResult{authenticated: true, address: address}
}

// Authenticate runs the sign-in handshake. At most one runs at a time; a
// concurrent call fails with core.ErrAuthInProgress and changes nothing.
// On failure the previous authentication state is left as it was.
func (s *WalletAuthSession) Authenticate(ctx context.Context) error {
	s.mu.Lock()
	if s.authenticating {
		s.mu.Unlock()
		return core.ErrAuthInProgress
	}
	s.authenticating = true
	s.authRuns++
	gen := s.generation
	s.state.Status = StatusAuthenticating
	s.state.IsAuthenticating = true
	s.state.AuthError = ""
	s.state.ErrorKind = ""
	st := s.state
	s.mu.Unlock()
	s.notify(st)

	address, profile, err := s.handshake(ctx)
	if err == nil {
		s.writeStore(func() bool { return gen == s.generation }, func() { s.persist(ctx, address) })
	}

	s.mu.Lock()
	s.authenticating = false
	s.state.IsAuthenticating = false
	switch {
	case gen != s.generation:
		// Disconnected meanwhile; keep the logged-out state.
		if err == nil {
			err = core.NewError(core.KindWalletNotConnected, "wallet disconnected during sign-in", nil)
		}
	case err != nil:
		s.state.AuthError = core.UserMessage(err)
		s.state.ErrorKind = core.KindOf(err)
	default:
		s.state.IsAuthenticated = true
		s.state.User = profile
		s.connKey = s.connectionKey()
		s.reconciled = true
	}
	if gen == s.generation {
		if s.state.IsAuthenticated {
			s.state.Status = StatusAuthenticated
		} else {
			s.state.Status = StatusUnauthenticated
		}
	}
	st = s.state
	s.mu.Unlock()
	s.notify(st)

	if err != nil {
		s.logger.Warn("authentication failed", "kind", core.KindOf(err), "err", err)
		return err
	}
	s.logger.Info("authenticated", "address", address, "user", profile.ID)
	return nil
}

// Disconnect logs out. The local session is cleared before any network
// call; backend logout and wallet disconnect failures are only logged.
func (s *WalletAuthSession) Disconnect(ctx context.Context) {
	s.storeMu.Lock()
	s.mu.Lock()
	s.generation++
	s.reconciled = false
	s.connKey = ""
	s.state = State{Status: StatusDisconnecting}
	st := s.state
	s.mu.Unlock()
	s.clearStore(ctx)
	s.storeMu.Unlock()
	s.notify(st)

	if err := s.backend.Logout(ctx); err != nil {
		s.logger.Warn("backend logout failed", "err", err)
	}
	if d, ok := s.wallet.(ports.Disconnector); ok {
		if err := d.Disconnect(ctx); err != nil {
			s.logger.Warn("wallet disconnect failed", "err", err)
		}
	}

	s.mu.Lock()
	if s.state.Status == StatusDisconnecting {
		s.state.Status = StatusUnauthenticated
	}
	st = s.state
	s.mu.Unlock()
	s.notify(st)
}

// ClearError dismisses the last authentication error.
func (s *WalletAuthSession) ClearError() {
	s.mu.Lock()
	if s.state.AuthError == "" && s.state.ErrorKind == "" {
		s.mu.Unlock()
		return
	}
	s.state.AuthError = ""
	s.state.ErrorKind = ""
	st := s.state
	s.mu.Unlock()
	s.notify(st)
}

// RefreshProfile fetches the profile again, typically after Reconcile fell
// back to the local session and left User unset.
func (s *WalletAuthSession) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	authenticated := s.state.IsAuthenticated
	gen := s.generation
	s.mu.Unlock()
	if !authenticated {
		return core.NewError(core.KindProfileFetchFailed, "not authenticated", core.ErrUnauthorized)
	}
	address := s.wallet.Address()
	if !s.wallet.Connected() || address == "" {
		return core.ErrWalletNotConnected
	}

	profile, err := s.fetchProfile(ctx, address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if gen != s.generation || !s.state.IsAuthenticated {
		s.mu.Unlock()
		return nil
	}
	s.state.User = profile
	st := s.state
	s.mu.Unlock()
	s.notify(st)
	return nil
}

// fetchProfile returns the backend profile only if it belongs to address.
func (s *WalletAuthSession) fetchProfile(ctx context.Context, address string) (*core.Profile, error) {
	profile, err := s.backend.CurrentUser(ctx)
	if err != nil {
		return nil, core.NewError(core.KindProfileFetchFailed, "", err)
	}
	if !profile.Matches(address) {
		return nil, core.NewError(core.KindProfileFetchFailed, "profile belongs to a different wallet", nil)
	}
	return profile, nil
}

func (s *WalletAuthSession) persist(ctx context.Context, address string) {
	rec := &core.SessionRecord{
		Address:       address,
		ChainID:       s.wallet.ChainID(),
		Authenticated: true,
		Timestamp:     s.now().UTC(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Warn("failed to persist session", "address", address, "err", err)
	}
}

// writeStore runs write if current, evaluated with mu held, reports true.
// Disconnect bumps the generation under storeMu, so a guarded write either
// lands before its clear or not at all.
func (s *WalletAuthSession) writeStore(current func() bool, write func()) {
	s.storeMu.Lock()
	defer s.storeMu.Unlock()

	s.mu.Lock()
	ok := current()
	s.mu.Unlock()
	if ok {
		write()
	}
}

func (s *WalletAuthSession) clearStore(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear local session", "err", err)
	}
}

// connectionKey must be called with mu held.
func (s *WalletAuthSession) connectionKey() string {
	return fmt.Sprintf("%t|%s", s.wallet.Connected(), s.wallet.Address())
}

func (s *WalletAuthSession) notify(st State) {
	for _, fn := range s.observers {
		fn(st)
	}
}
