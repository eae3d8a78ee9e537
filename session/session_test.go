package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/core"
)

const testAddress = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(b *fakeBackend, w *fakeWallet, st *fakeStore, opts ...Option) *WalletAuthSession {
	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		WithDomain("app.example.com"),
	}, opts...)
	return New(b, w, st, opts...)
}

func validRecord(age time.Duration) *core.SessionRecord {
	return &core.SessionRecord{
		Address:       testAddress,
		ChainID:       "solana:mainnet",
		Authenticated: true,
		Timestamp:     testNow.Add(-age),
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(&fakeBackend{}, newFakeWallet(testAddress), &fakeStore{})

	assert.Equal(t, StatusIdle, s.State().Status)
	assert.Equal(t, core.ChainSolana, s.chainKind)
	assert.Equal(t, core.SessionDuration, s.maxAge)
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("wallet not connected clears local session", func(t *testing.T) {
		b := &fakeBackend{meFn: profileFor(testAddress)}
		w := newFakeWallet(testAddress)
		w.set(false, testAddress)
		st := &fakeStore{rec: validRecord(time.Hour)}

		state := newTestSession(b, w, st).Reconcile(ctx)

		assert.False(t, state.IsAuthenticated)
		assert.Equal(t, StatusUnauthenticated, state.Status)
		assert.Nil(t, st.record())
		_, _, me := b.calls()
		assert.Zero(t, me)
	})

	t.Run("connected without address", func(t *testing.T) {
		b := &fakeBackend{}
		st := &fakeStore{rec: validRecord(time.Hour)}

		state := newTestSession(b, newFakeWallet(""), st).Reconcile(ctx)

		assert.False(t, state.IsAuthenticated)
		assert.Nil(t, st.record())
	})

	t.Run("backend session with matching profile", func(t *testing.T) {
		b := &fakeBackend{meFn: profileFor(strings.ToLower(testAddress))}
		st := &fakeStore{}

		state := newTestSession(b, newFakeWallet(testAddress), st).Reconcile(ctx)

		assert.True(t, state.IsAuthenticated)
		assert.Equal(t, StatusAuthenticated, state.Status)
		require.NotNil(t, state.User)
		assert.Equal(t, "user-1", state.User.ID)

		rec := st.record()
		require.NotNil(t, rec)
		assert.Equal(t, testAddress, rec.Address)
		assert.Equal(t, "solana:mainnet", rec.ChainID)
		assert.True(t, rec.Authenticated)
		assert.Equal(t, testNow, rec.Timestamp)
	})

	t.Run("profile for another wallet and no local session", func(t *testing.T) {
		b := &fakeBackend{meFn: profileFor("SomeoneElse1111111111111111111111111111111")}
		st := &fakeStore{}

		state := newTestSession(b, newFakeWallet(testAddress), st).Reconcile(ctx)

		assert.False(t, state.IsAuthenticated)
		assert.Nil(t, state.User)
		assert.Zero(t, st.saves)
	})

	t.Run("valid local session and backend 401 trusts local record", func(t *testing.T) {
		b := &fakeBackend{}
		st := &fakeStore{rec: validRecord(10 * 24 * time.Hour)}

		state := newTestSession(b, newFakeWallet(testAddress), st).Reconcile(ctx)

		assert.True(t, state.IsAuthenticated)
		assert.Equal(t, StatusAuthenticated, state.Status)
		assert.Nil(t, state.User)
		assert.Empty(t, state.AuthError)
		_, _, me := b.calls()
		assert.Equal(t, 2, me)
		assert.NotNil(t, st.record())
	})

	t.Run("valid local session and backend recovers on second fetch", func(t *testing.T) {
		b := &fakeBackend{}
		calls := 0
		b.meFn = func() (*core.Profile, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("connection reset")
			}
			return profileFor(testAddress)()
		}
		st := &fakeStore{rec: validRecord(time.Hour)}

		state := newTestSession(b, newFakeWallet(testAddress), st).Reconcile(ctx)

		assert.True(t, state.IsAuthenticated)
		require.NotNil(t, state.User)
		assert.Equal(t, testAddress, state.User.Wallet.Address)
	})

	invalid := map[string]*core.SessionRecord{
		"expired": validRecord(30 * 24 * time.Hour),
		"other address": {
			Address: "Other111111111111111111111111111111111111111", Authenticated: true, Timestamp: testNow,
		},
		"not authenticated": {Address: testAddress, Timestamp: testNow},
		"missing timestamp": {Address: testAddress, Authenticated: true},
	}
	for name, rec := range invalid {
		t.Run("invalid local session "+name, func(t *testing.T) {
			b := &fakeBackend{}
			st := &fakeStore{rec: rec}

			state := newTestSession(b, newFakeWallet(testAddress), st).Reconcile(ctx)

			assert.False(t, state.IsAuthenticated)
			assert.Equal(t, StatusUnauthenticated, state.Status)
			assert.Nil(t, st.record())
			_, _, me := b.calls()
			assert.Equal(t, 1, me)
		})
	}

	t.Run("unreadable local session", func(t *testing.T) {
		st := &fakeStore{loadErr: errors.New("corrupt json")}

		state := newTestSession(&fakeBackend{}, newFakeWallet(testAddress), st).Reconcile(ctx)

		assert.False(t, state.IsAuthenticated)
		assert.Equal(t, 1, st.clears)
	})
}

func TestReconcile_OncePerConnection(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{meFn: profileFor(testAddress)}
	w := newFakeWallet(testAddress)
	s := newTestSession(b, w, &fakeStore{})

	s.Reconcile(ctx)
	s.Reconcile(ctx)
	_, _, me := b.calls()
	assert.Equal(t, 1, me)

	other := "Other111111111111111111111111111111111111111"
	w.set(true, other)
	state := s.Reconcile(ctx)
	_, _, me = b.calls()
	assert.Equal(t, 2, me)
	assert.False(t, state.IsAuthenticated, "profile belongs to the previous address")
}

func TestIsValidSession(t *testing.T) {
	s := newTestSession(&fakeBackend{}, newFakeWallet(testAddress), &fakeStore{})
	day := 24 * time.Hour

	tcs := []struct {
		name string
		rec  core.SessionRecord
		want bool
	}{
		{"fresh", *validRecord(0), true},
		{"30 days minus one second", *validRecord(30*day - time.Second), true},
		{"exactly 30 days", *validRecord(30 * day), false},
		{"older than 30 days", *validRecord(31 * day), false},
		{"different address", core.SessionRecord{Address: "abc", Authenticated: true, Timestamp: testNow}, false},
		{"address differs only in case", core.SessionRecord{Address: strings.ToLower(testAddress), Authenticated: true, Timestamp: testNow}, false},
		{"not authenticated", core.SessionRecord{Address: testAddress, Timestamp: testNow}, false},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.IsValidSession(tc.rec))
		})
	}

	t.Run("disconnected wallet", func(t *testing.T) {
		w := newFakeWallet(testAddress)
		w.set(false, testAddress)
		s := newTestSession(&fakeBackend{}, w, &fakeStore{})
		assert.False(t, s.IsValidSession(*validRecord(0)))
	})
}

func TestAuthenticate_Success(t *testing.T) {
	b := &fakeBackend{meFn: profileFor(testAddress)}
	w := newFakeWallet(testAddress)
	st := &fakeStore{}
	s := newTestSession(b, w, st)

	require.NoError(t, s.Authenticate(context.Background()))

	state := s.State()
	assert.True(t, state.IsAuthenticated)
	assert.False(t, state.IsAuthenticating)
	assert.Equal(t, StatusAuthenticated, state.Status)
	assert.Empty(t, state.AuthError)
	require.NotNil(t, state.User)

	assert.Equal(t, core.NonceRequest{
		Address:   testAddress,
		ChainKind: core.ChainSolana,
		Domain:    "app.example.com",
	}, b.lastNonce)
	assert.Equal(t, []byte("Sign this: n1"), w.lastMessage)
	assert.Equal(t, core.VerifyRequest{
		Address:   testAddress,
		ChainKind: core.ChainSolana,
		Nonce:     "n1",
		Domain:    "app.example.com",
		Signature: "AQID",
	}, b.lastVerify)

	rec := st.record()
	require.NotNil(t, rec)
	assert.Equal(t, testAddress, rec.Address)
	assert.True(t, rec.Authenticated)
}

func TestAuthenticate_ChainKindOption(t *testing.T) {
	b := &fakeBackend{meFn: profileFor(testAddress)}
	s := newTestSession(b, newFakeWallet(testAddress), &fakeStore{}, WithChainKind(core.ChainEVM))

	require.NoError(t, s.Authenticate(context.Background()))
	assert.Equal(t, core.ChainEVM, b.lastNonce.ChainKind)
	assert.Equal(t, core.ChainEVM, b.lastVerify.ChainKind)
}

func TestAuthenticate_VerifyRejected(t *testing.T) {
	b := &fakeBackend{
		meFn: profileFor(testAddress),
		verifyFn: func(core.VerifyRequest) (*core.VerifyResponse, error) {
			return &core.VerifyResponse{Error: &core.APIError{Message: "bad nonce"}}, nil
		},
	}
	st := &fakeStore{}
	s := newTestSession(b, newFakeWallet(testAddress), st)

	err := s.Authenticate(context.Background())
	require.ErrorIs(t, err, core.ErrSignatureVerificationFailed)

	state := s.State()
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Contains(t, state.AuthError, "bad nonce")
	assert.Equal(t, core.KindSignatureVerificationFailed, state.ErrorKind)
	assert.Zero(t, st.saves)
	_, _, me := b.calls()
	assert.Zero(t, me)
}

func TestAuthenticate_UserRejectedCanRetry(t *testing.T) {
	b := &fakeBackend{meFn: profileFor(testAddress)}
	w := newFakeWallet(testAddress)
	w.signFn = func([]byte) (core.SignatureResult, error) {
		return core.SignatureResult{}, errors.New("User rejected the request")
	}
	s := newTestSession(b, w, &fakeStore{})
	ctx := context.Background()

	err := s.Authenticate(ctx)
	require.ErrorIs(t, err, core.ErrUserRejectedSignature)
	state := s.State()
	assert.Equal(t, core.KindUserRejectedSignature, state.ErrorKind)
	assert.Contains(t, state.AuthError, "rejected")
	assert.False(t, state.IsAuthenticating)

	w.mu.Lock()
	w.signFn = nil
	w.mu.Unlock()

	require.NoError(t, s.Authenticate(ctx))
	assert.True(t, s.State().IsAuthenticated)
	assert.Empty(t, s.State().AuthError)
	nonce, verify, _ := b.calls()
	assert.Equal(t, 2, nonce)
	assert.Equal(t, 1, verify)
}

func TestAuthenticate_SignErrorMapping(t *testing.T) {
	tcs := []struct {
		err  error
		want core.Kind
	}{
		{errors.New("User rejected the request"), core.KindUserRejectedSignature},
		{errors.New("rejected"), core.KindUserRejectedSignature},
		{errors.New("Request declined by user"), core.KindUserRejectedSignature},
		{errors.New("signing cancelled"), core.KindUserRejectedSignature},
		{errors.New("user denied message signature"), core.KindUserRejectedSignature},
		{core.ErrUserRejectedSignature, core.KindUserRejectedSignature},
		{errors.New("ledger device locked"), core.KindSigningFailed},
		{context.Canceled, core.KindSigningFailed},
		{core.NewError(core.KindUnsupportedSignatureFormat, "", nil), core.KindUnsupportedSignatureFormat},
	}
	for _, tc := range tcs {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := newFakeWallet(testAddress)
			w.signFn = func([]byte) (core.SignatureResult, error) { return core.SignatureResult{}, tc.err }
			s := newTestSession(&fakeBackend{}, w, &fakeStore{})

			err := s.Authenticate(context.Background())
			assert.Equal(t, tc.want, core.KindOf(err))
			assert.Equal(t, tc.want, s.State().ErrorKind)
		})
	}
}

func TestAuthenticate_Failures(t *testing.T) {
	tcs := []struct {
		name     string
		backend  func() *fakeBackend
		wallet   func() *fakeWallet
		want     core.Kind
		wantCall [3]int
	}{
		{
			name:     "wallet not connected",
			backend:  func() *fakeBackend { return &fakeBackend{} },
			wallet:   func() *fakeWallet { w := newFakeWallet(testAddress); w.set(false, ""); return w },
			want:     core.KindWalletNotConnected,
			wantCall: [3]int{0, 0, 0},
		},
		{
			name: "nonce request failed",
			backend: func() *fakeBackend {
				return &fakeBackend{nonceFn: func(core.NonceRequest) (*core.NonceResponse, error) {
					return nil, errors.New("503 service unavailable")
				}}
			},
			wallet:   func() *fakeWallet { return newFakeWallet(testAddress) },
			want:     core.KindNonceGenerationFailed,
			wantCall: [3]int{1, 0, 0},
		},
		{
			name: "nonce without message",
			backend: func() *fakeBackend {
				return &fakeBackend{nonceFn: func(core.NonceRequest) (*core.NonceResponse, error) {
					return &core.NonceResponse{Nonce: "n1"}, nil
				}}
			},
			wallet:   func() *fakeWallet { return newFakeWallet(testAddress) },
			want:     core.KindNonceGenerationFailed,
			wantCall: [3]int{1, 0, 0},
		},
		{
			name:    "unsupported signature",
			backend: func() *fakeBackend { return &fakeBackend{} },
			wallet: func() *fakeWallet {
				w := newFakeWallet(testAddress)
				w.signFn = func([]byte) (core.SignatureResult, error) { return core.SignatureResult{}, nil }
				return w
			},
			want:     core.KindUnsupportedSignatureFormat,
			wantCall: [3]int{1, 0, 0},
		},
		{
			name: "verify transport error",
			backend: func() *fakeBackend {
				return &fakeBackend{verifyFn: func(core.VerifyRequest) (*core.VerifyResponse, error) {
					return nil, errors.New("dial tcp: connection refused")
				}}
			},
			wallet:   func() *fakeWallet { return newFakeWallet(testAddress) },
			want:     core.KindSignatureVerificationFailed,
			wantCall: [3]int{1, 1, 0},
		},
		{
			name:     "profile fetch failed",
			backend:  func() *fakeBackend { return &fakeBackend{} },
			wallet:   func() *fakeWallet { return newFakeWallet(testAddress) },
			want:     core.KindProfileFetchFailed,
			wantCall: [3]int{1, 1, 1},
		},
		{
			name:     "profile of another wallet",
			backend:  func() *fakeBackend { return &fakeBackend{meFn: profileFor("Other1111")} },
			wallet:   func() *fakeWallet { return newFakeWallet(testAddress) },
			want:     core.KindProfileFetchFailed,
			wantCall: [3]int{1, 1, 1},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			b := tc.backend()
			st := &fakeStore{}
			s := newTestSession(b, tc.wallet(), st)

			err := s.Authenticate(context.Background())
			require.Error(t, err)
			assert.Equal(t, tc.want, core.KindOf(err))

			state := s.State()
			assert.False(t, state.IsAuthenticated)
			assert.Equal(t, tc.want, state.ErrorKind)
			assert.Equal(t, core.UserMessage(err), state.AuthError)
			assert.Zero(t, st.saves)

			nonce, verify, me := b.calls()
			assert.Equal(t, tc.wantCall, [3]int{nonce, verify, me})
		})
	}
}

func TestAuthenticate_SigningUnsupported(t *testing.T) {
	b := &fakeBackend{}
	s := New(b, readOnlyWallet{address: testAddress}, &fakeStore{})

	err := s.Authenticate(context.Background())
	require.ErrorIs(t, err, core.ErrSigningUnsupported)
	nonce, _, _ := b.calls()
	assert.Zero(t, nonce)
}

func TestAuthenticate_FailedReauthKeepsSession(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{meFn: profileFor(testAddress)}
	w := newFakeWallet(testAddress)
	st := &fakeStore{}
	s := newTestSession(b, w, st)
	require.NoError(t, s.Authenticate(ctx))

	w.mu.Lock()
	w.signFn = func([]byte) (core.SignatureResult, error) { return core.SignatureResult{}, errors.New("cancelled") }
	w.mu.Unlock()

	require.Error(t, s.Authenticate(ctx))
	state := s.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, StatusAuthenticated, state.Status)
	assert.NotNil(t, state.User)
	assert.NotEmpty(t, state.AuthError)
	assert.NotNil(t, st.record())
}

func TestAuthenticate_SaveFailureStillAuthenticates(t *testing.T) {
	b := &fakeBackend{meFn: profileFor(testAddress)}
	st := &fakeStore{saveErr: errors.New("disk full")}
	s := newTestSession(b, newFakeWallet(testAddress), st)

	require.NoError(t, s.Authenticate(context.Background()))
	assert.True(t, s.State().IsAuthenticated)
	assert.Equal(t, 1, st.saves)
}

func TestAuthenticate_SingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	b := &fakeBackend{meFn: profileFor(testAddress)}
	b.nonceFn = func(core.NonceRequest) (*core.NonceResponse, error) {
		close(entered)
		<-release
		return &core.NonceResponse{Nonce: "n1", Message: "Sign this: n1"}, nil
	}
	s := newTestSession(b, newFakeWallet(testAddress), &fakeStore{})
	ctx := context.Background()

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = s.Authenticate(ctx)
	}()
	<-entered

	assert.True(t, s.State().IsAuthenticating)
	assert.Equal(t, StatusAuthenticating, s.State().Status)
	err := s.Authenticate(ctx)
	require.ErrorIs(t, err, core.ErrAuthInProgress)
	assert.Empty(t, s.State().AuthError, "rejected call must not touch state")

	close(release)
	wg.Wait()

	require.NoError(t, firstErr)
	nonce, verify, me := b.calls()
	assert.Equal(t, 1, nonce)
	assert.Equal(t, 1, verify)
	assert.Equal(t, 1, me)
	assert.True(t, s.State().IsAuthenticated)
}

func TestDisconnect(t *testing.T) {
	ctx := context.Background()
	b := &fakeBackend{meFn: profileFor(testAddress)}
	b.logoutFn = func() error { return errors.New("network down") }
	w := newFakeWallet(testAddress)
	w.disconnectErr = errors.New("wallet busy")
	st := &fakeStore{}
	s := newTestSession(b, w, st)
	require.NoError(t, s.Authenticate(ctx))
	require.NotNil(t, st.record())

	s.Disconnect(ctx)

	state := s.State()
	assert.False(t, state.IsAuthenticated)
	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Nil(t, state.User)
	assert.Empty(t, state.AuthError)
	assert.Nil(t, st.record())
	assert.Equal(t, 1, b.logoutCalls)
	assert.Equal(t, 1, w.disconnectCalls)
}

func TestDisconnect_ClearsBeforeNetwork(t *testing.T) {
	ctx := context.Background()
	st := &fakeStore{rec: validRecord(time.Hour)}
	b := &fakeBackend{}
	var clearedAtLogout bool
	b.logoutFn = func() error {
		clearedAtLogout = st.record() == nil
		return nil
	}
	s := newTestSession(b, newFakeWallet(testAddress), st)
	s.Reconcile(ctx)
	require.True(t, s.State().IsAuthenticated)

	var seen []State
	s.observers = append(s.observers, func(st State) { seen = append(seen, st) })
	s.Disconnect(ctx)

	assert.True(t, clearedAtLogout)
	require.Len(t, seen, 2)
	assert.Equal(t, StatusDisconnecting, seen[0].Status)
	assert.False(t, seen[0].IsAuthenticated)
	assert.Equal(t, StatusUnauthenticated, seen[1].Status)
}

func TestDisconnect_DropsInFlightAuthenticate(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	b := &fakeBackend{meFn: profileFor(testAddress)}
	b.verifyFn = func(core.VerifyRequest) (*core.VerifyResponse, error) {
		close(entered)
		<-release
		return &core.VerifyResponse{Success: true}, nil
	}
	st := &fakeStore{}
	s := newTestSession(b, newFakeWallet(testAddress), st)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Authenticate(ctx) }()
	<-entered
	s.Disconnect(ctx)
	close(release)

	err := <-done
	require.ErrorIs(t, err, core.ErrWalletNotConnected)
	assert.Nil(t, st.record())
	assert.False(t, s.State().IsAuthenticated)
	assert.Equal(t, StatusUnauthenticated, s.State().Status)
}

func TestClearError(t *testing.T) {
	w := newFakeWallet(testAddress)
	w.set(false, "")
	var changes int
	s := newTestSession(&fakeBackend{}, w, &fakeStore{}, WithOnChange(func(State) { changes++ }))

	require.Error(t, s.Authenticate(context.Background()))
	require.NotEmpty(t, s.State().AuthError)
	before := changes

	s.ClearError()
	assert.Empty(t, s.State().AuthError)
	assert.Empty(t, s.State().ErrorKind)
	assert.Equal(t, before+1, changes)

	s.ClearError()
	assert.Equal(t, before+1, changes, "no change, no notification")
}

func TestRefreshProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("fills user after optimistic reconcile", func(t *testing.T) {
		b := &fakeBackend{}
		s := newTestSession(b, newFakeWallet(testAddress), &fakeStore{rec: validRecord(time.Hour)})
		require.True(t, s.Reconcile(ctx).IsAuthenticated)
		require.Nil(t, s.State().User)

		b.mu.Lock()
		b.meFn = profileFor(testAddress)
		b.mu.Unlock()

		require.NoError(t, s.RefreshProfile(ctx))
		require.NotNil(t, s.State().User)
		assert.Equal(t, "user-1", s.State().User.ID)
	})

	t.Run("backend still down", func(t *testing.T) {
		s := newTestSession(&fakeBackend{}, newFakeWallet(testAddress), &fakeStore{rec: validRecord(time.Hour)})
		s.Reconcile(ctx)

		err := s.RefreshProfile(ctx)
		require.ErrorIs(t, err, core.ErrProfileFetchFailed)
		assert.True(t, s.State().IsAuthenticated)
	})

	t.Run("not authenticated", func(t *testing.T) {
		s := newTestSession(&fakeBackend{}, newFakeWallet(testAddress), &fakeStore{})
		err := s.RefreshProfile(ctx)
		require.ErrorIs(t, err, core.ErrProfileFetchFailed)
	})
}

func TestOnChange_ObservesTransitions(t *testing.T) {
	var statuses []Status
	b := &fakeBackend{meFn: profileFor(testAddress)}
	s := newTestSession(b, newFakeWallet(testAddress), &fakeStore{},
		WithOnChange(func(st State) { statuses = append(statuses, st.Status) }))

	s.Reconcile(context.Background())

	assert.Equal(t, []Status{StatusCheckingSession, StatusAuthenticated}, statuses)
}

func TestReconcile_DisconnectDuringCheckLeavesNoRecord(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	b := &fakeBackend{}
	b.meFn = func() (*core.Profile, error) {
		close(entered)
		<-release
		return profileFor(testAddress)()
	}
	st := &fakeStore{}
	s := newTestSession(b, newFakeWallet(testAddress), st)
	ctx := context.Background()

	done := make(chan State, 1)
	go func() { done <- s.Reconcile(ctx) }()
	<-entered

	s.Disconnect(ctx)
	close(release)
	<-done

	state := s.State()
	assert.False(t, state.IsAuthenticated)
	assert.False(t, state.IsCheckingSession)
	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.Nil(t, st.record(), "a check started before Disconnect must not persist")
	assert.Zero(t, st.saves)
}

func TestReconcile_DuringAuthenticateIsSkipped(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	b := &fakeBackend{meFn: profileFor(testAddress)}
	b.nonceFn = func(core.NonceRequest) (*core.NonceResponse, error) {
		close(entered)
		<-release
		return nil, errors.New("backend unavailable")
	}
	st := &fakeStore{rec: validRecord(time.Hour)}
	s := newTestSession(b, newFakeWallet(testAddress), st)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Authenticate(ctx) }()
	<-entered

	state := s.Reconcile(ctx)
	assert.Equal(t, StatusAuthenticating, state.Status)
	assert.False(t, state.IsCheckingSession)
	_, _, me := b.calls()
	assert.Zero(t, me)

	close(release)
	require.ErrorIs(t, <-done, core.ErrNonceGenerationFailed)

	state = s.State()
	assert.Equal(t, StatusUnauthenticated, state.Status)
	assert.False(t, state.IsCheckingSession)
	assert.False(t, state.IsAuthenticating)
	assert.NotNil(t, st.record())

	// The skipped check still runs once sign-in has settled.
	assert.True(t, s.Reconcile(ctx).IsAuthenticated)
}

func TestReconcile_OvertakenByAuthenticateKeepsItsRecord(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	b := &fakeBackend{}
	b.meFn = func() (*core.Profile, error) {
		blocked := false
		first.Do(func() { blocked = true })
		if blocked {
			close(entered)
			<-release
			return nil, core.ErrUnauthorized
		}
		return profileFor(testAddress)()
	}
	// An unreadable record makes the check ask for a clear.
	st := &fakeStore{loadErr: errors.New("corrupt record")}
	s := newTestSession(b, newFakeWallet(testAddress), st)
	ctx := context.Background()

	done := make(chan State, 1)
	go func() { done <- s.Reconcile(ctx) }()
	<-entered

	require.NoError(t, s.Authenticate(ctx))
	require.NotNil(t, st.record())

	close(release)
	<-done

	state := s.State()
	assert.True(t, state.IsAuthenticated)
	assert.Equal(t, StatusAuthenticated, state.Status)
	assert.False(t, state.IsCheckingSession)
	assert.NotNil(t, st.record(), "sign-in record must survive the overtaken check")
	assert.Zero(t, st.clears)
}
