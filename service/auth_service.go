package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/pkg/log"
	"github.com/layer-3/walletauth/ports"
)

const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultSessionTTL   = core.SessionDuration

	// minRevocationTTL covers clock skew between replicas for tokens that
	// are about to expire or already have.
	minRevocationTTL = time.Hour
)

// VerifyResult is what a successful Verify hands to the transport.
type VerifyResult struct {
	Token   string
	Session *core.Session
	User    *core.User
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	nonces    ports.NonceStore
	users     ports.UserRepository
	verifier  ports.Verifier
	eventPub  ports.EventPublisher

	logger         log.Logger
	now            func() time.Time
	challengeTTL   time.Duration
	sessionTTL     time.Duration
	allowedDomains []string
}

// Option configures an AuthService.
type Option func(*AuthService)

func WithLogger(lg log.Logger) Option {
	return func(s *AuthService) {
		if lg != nil {
			s.logger = lg
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

func WithChallengeTTL(d time.Duration) Option {
	return func(s *AuthService) {
		if d > 0 {
			s.challengeTTL = d
		}
	}
}

func WithSessionTTL(d time.Duration) Option {
	return func(s *AuthService) {
		if d > 0 {
			s.sessionTTL = d
		}
	}
}

// WithAllowedDomains restricts the domains challenges are issued for.
// With no domains every domain is accepted.
func WithAllowedDomains(domains ...string) Option {
	return func(s *AuthService) {
		for _, d := range domains {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				s.allowedDomains = append(s.allowedDomains, d)
			}
		}
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	nonces ports.NonceStore,
	userRepo ports.UserRepository,
	verifier ports.Verifier,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		store:        store,
		nonces:       nonces,
		users:        userRepo,
		verifier:     verifier,
		eventPub:     eventPub,
		logger:       log.NewNoopLogger(),
		now:          time.Now,
		challengeTTL: DefaultChallengeTTL,
		sessionTTL:   DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithName("auth-service")
	return s
}

// IssueNonce creates a single-use challenge for the wallet.
func (s *AuthService) IssueNonce(ctx context.Context, req core.NonceRequest) (*core.Challenge, error) {
	kind, address, err := s.identity(req.ChainKind, req.Address)
	if err != nil {
		return nil, err
	}
	domain, err := s.checkDomain(req.Domain)
	if err != nil {
		return nil, err
	}

	// Generate random nonce
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   address,
		ChainKind: kind,
		Domain:    domain,
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}
	challenge.Message = BuildMessage(challenge)

	if err := s.nonces.Put(ctx, challenge, s.challengeTTL); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	s.logger.Debug("issued challenge", "address", address, "chain", kind, "domain", domain)
	return challenge, nil
}

// Verify redeems a challenge with the wallet's signature and opens a session.
// The nonce is consumed even when verification fails.
func (s *AuthService) Verify(ctx context.Context, req core.VerifyRequest) (*VerifyResult, error) {
	kind, address, err := s.identity(req.ChainKind, req.Address)
	if err != nil {
		return nil, err
	}

	challenge, err := s.nonces.Consume(ctx, req.Nonce)
	if errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown or already used nonce", core.ErrInvalidChallenge)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	switch {
	case challenge.Address != address || challenge.ChainKind != kind:
		return nil, fmt.Errorf("%w: issued for a different wallet", core.ErrInvalidChallenge)
	case !strings.EqualFold(challenge.Domain, strings.TrimSpace(req.Domain)):
		return nil, fmt.Errorf("%w: issued for a different domain", core.ErrInvalidChallenge)
	case !s.now().Before(challenge.ExpiresAt):
		return nil, fmt.Errorf("%w: expired", core.ErrInvalidChallenge)
	}

	sig, err := core.SignatureEncoded(req.Signature).Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	if err := s.verifier.Verify(kind, address, []byte(challenge.Message), sig); err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}

	user, err := s.findOrCreateUser(ctx, kind, address)
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &core.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Address:   address,
		ChainKind: kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if err := s.eventPub.PublishLogin(ctx, session); err != nil {
		s.logger.Warn("failed to publish login event", "session", session.ID, "err", err)
	}

	s.logger.Info("wallet signed in", "address", address, "chain", kind, "user", user.ID, "session", session.ID)
	return &VerifyResult{Token: token, Session: session, User: user}, nil
}

// ValidateSession parses a session token and rejects expired or revoked ones.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}

	if !s.now().Before(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	invalidated, err := s.store.IsTokenInvalidated(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if invalidated {
		return nil, core.ErrTokenInvalidated
	}

	return session, nil
}

// CurrentUser returns the owner of session.
func (s *AuthService) CurrentUser(ctx context.Context, session *core.Session) (*core.User, error) {
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Address != session.Address || user.ChainKind != session.ChainKind {
		return nil, fmt.Errorf("%w: session wallet does not match user", core.ErrUnauthorized)
	}
	return user, nil
}

// Logout revokes the session behind token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.tokenizer.TokenToSession(token)
	if errors.Is(err, core.ErrTokenExpired) {
		// Nothing left to revoke.
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid session token: %w", err)
	}

	remaining := session.ExpiresAt.Sub(s.now())
	if remaining < minRevocationTTL {
		remaining = minRevocationTTL
	}

	if err := s.store.InvalidateToken(ctx, session.ID, remaining); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// The session is already revoked; a lost event only delays other replicas.
	if err := s.eventPub.PublishLogout(ctx, session); err != nil {
		s.logger.Warn("failed to publish logout event", "session", session.ID, "err", err)
	}

	s.logger.Info("wallet signed out", "address", session.Address, "session", session.ID)
	return nil
}

// identity validates the chain kind and returns the canonical address.
func (s *AuthService) identity(rawKind core.ChainKind, rawAddress string) (core.ChainKind, string, error) {
	kind, err := core.ParseChainKind(string(rawKind))
	if err != nil {
		return "", "", err
	}
	address, err := s.verifier.NormalizeAddress(kind, strings.TrimSpace(rawAddress))
	if err != nil {
		return "", "", err
	}
	return kind, address, nil
}

func (s *AuthService) checkDomain(domain string) (string, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return "", fmt.Errorf("%w: empty domain", core.ErrDomainNotAllowed)
	}
	if len(s.allowedDomains) > 0 && !slices.Contains(s.allowedDomains, domain) {
		return "", fmt.Errorf("%w: %s", core.ErrDomainNotAllowed, domain)
	}
	return domain, nil
}

func (s *AuthService) findOrCreateUser(ctx context.Context, kind core.ChainKind, address string) (*core.User, error) {
	user, err := s.users.GetByWallet(ctx, kind, address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	user = &core.User{
		ID:        uuid.New().String(),
		Handle:    handleFor(kind, address),
		Address:   address,
		ChainKind: kind,
		CreatedAt: s.now().UTC(),
	}
	err = s.users.Create(ctx, user)
	if errors.Is(err, core.ErrAlreadyExists) {
		// Lost a race with a concurrent first sign-in.
		return s.users.GetByWallet(ctx, kind, address)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("created user", "user", user.ID, "address", address, "chain", kind)
	return user, nil
}
