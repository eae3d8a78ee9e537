package session

import (
	"context"
	"sync"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

var (
	_ ports.AuthBackend   = (*fakeBackend)(nil)
	_ ports.Wallet        = (*fakeWallet)(nil)
	_ ports.MessageSigner = (*fakeWallet)(nil)
	_ ports.Disconnector  = (*fakeWallet)(nil)
	_ ports.SessionStore  = (*fakeStore)(nil)
)

type fakeBackend struct {
	mu sync.Mutex

	nonceFn  func(core.NonceRequest) (*core.NonceResponse, error)
	verifyFn func(core.VerifyRequest) (*core.VerifyResponse, error)
	meFn     func() (*core.Profile, error)
	logoutFn func() error

	nonceCalls  int
	verifyCalls int
	meCalls     int
	logoutCalls int

	lastNonce  core.NonceRequest
	lastVerify core.VerifyRequest
}

func (b *fakeBackend) RequestNonce(_ context.Context, req core.NonceRequest) (*core.NonceResponse, error) {
	b.mu.Lock()
	b.nonceCalls++
	b.lastNonce = req
	fn := b.nonceFn
	b.mu.Unlock()
	if fn == nil {
		return &core.NonceResponse{Nonce: "n1", Message: "Sign this: n1"}, nil
	}
	return fn(req)
}

func (b *fakeBackend) Verify(_ context.Context, req core.VerifyRequest) (*core.VerifyResponse, error) {
	b.mu.Lock()
	b.verifyCalls++
	b.lastVerify = req
	fn := b.verifyFn
	b.mu.Unlock()
	if fn == nil {
		return &core.VerifyResponse{Success: true}, nil
	}
	return fn(req)
}

func (b *fakeBackend) CurrentUser(context.Context) (*core.Profile, error) {
	b.mu.Lock()
	b.meCalls++
	fn := b.meFn
	b.mu.Unlock()
	if fn == nil {
		return nil, core.ErrUnauthorized
	}
	return fn()
}

func (b *fakeBackend) Logout(context.Context) error {
	b.mu.Lock()
	b.logoutCalls++
	fn := b.logoutFn
	b.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn()
}

func (b *fakeBackend) calls() (nonce, verify, me int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonceCalls, b.verifyCalls, b.meCalls
}

type fakeWallet struct {
	mu            sync.Mutex
	connected     bool
	address       string
	chainID       string
	signFn        func([]byte) (core.SignatureResult, error)
	disconnectErr error

	signCalls       int
	disconnectCalls int
	lastMessage     []byte
}

func newFakeWallet(address string) *fakeWallet {
	return &fakeWallet{connected: true, address: address, chainID: "solana:mainnet"}
}

func (w *fakeWallet) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

func (w *fakeWallet) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}

func (w *fakeWallet) ChainID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID
}

func (w *fakeWallet) set(connected bool, address string) {
	w.mu.Lock()
	w.connected = connected
	w.address = address
	w.mu.Unlock()
}

func (w *fakeWallet) SignMessage(_ context.Context, msg []byte) (core.SignatureResult, error) {
	w.mu.Lock()
	w.signCalls++
	w.lastMessage = msg
	fn := w.signFn
	w.mu.Unlock()
	if fn == nil {
		return core.SignatureBytes([]byte{1, 2, 3}), nil
	}
	return fn(msg)
}

func (w *fakeWallet) Disconnect(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disconnectCalls++
	w.connected = false
	return w.disconnectErr
}

// readOnlyWallet is connected but cannot sign.
type readOnlyWallet struct {
	address string
}

func (w readOnlyWallet) Connected() bool { return true }
func (w readOnlyWallet) Address() string { return w.address }
func (w readOnlyWallet) ChainID() string { return "solana:mainnet" }

type fakeStore struct {
	mu       sync.Mutex
	rec      *core.SessionRecord
	loadErr  error
	saveErr  error
	clearErr error

	saves  int
	clears int
}

func (s *fakeStore) Load(context.Context) (*core.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.rec == nil {
		return nil, core.ErrNotFound
	}
	rec := *s.rec
	return &rec, nil
}

func (s *fakeStore) Save(_ context.Context, rec *core.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	cp := *rec
	s.rec = &cp
	return nil
}

func (s *fakeStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.rec = nil
	return s.clearErr
}

func (s *fakeStore) record() *core.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

func profileFor(address string) func() (*core.Profile, error) {
	return func() (*core.Profile, error) {
		return &core.Profile{
			ID:     "user-1",
			Handle: "solana-abcd",
			Wallet: core.WalletRef{Address: address, ChainKind: core.ChainSolana},
		}, nil
	}
}
