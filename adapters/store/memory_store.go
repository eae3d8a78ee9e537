package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

var (
	_ ports.Store      = (*MemoryStore)(nil)
	_ ports.NonceStore = (*MemoryNonceStore)(nil)
)

// MemoryStore is an in-memory implementation of the Store interface.
// Entries expire lazily on lookup and on the next invalidation.
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.RWMutex
	now               func() time.Time
}

// NewMemoryStore creates a new in-memory revocation store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

// InvalidateToken marks a session token as revoked for expiry.
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, until := range s.invalidatedTokens {
		if !now.Before(until) {
			delete(s.invalidatedTokens, id)
		}
	}

	expiryTime := now.Add(expiry)
	// Only extend, never shorten, an existing revocation.
	if storedExpiry, exists := s.invalidatedTokens[tokenID]; exists && storedExpiry.After(expiryTime) {
		return nil
	}
	s.invalidatedTokens[tokenID] = expiryTime
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}
	return s.now().Before(expiryTime), nil
}

type pendingChallenge struct {
	challenge core.Challenge
	expiresAt time.Time
}

// MemoryNonceStore keeps issued challenges in memory.
type MemoryNonceStore struct {
	mu         sync.Mutex
	challenges map[string]pendingChallenge
	now        func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{
		challenges: make(map[string]pendingChallenge),
		now:        time.Now,
	}
}

func (s *MemoryNonceStore) Put(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for nonce, p := range s.challenges {
		if !now.Before(p.expiresAt) {
			delete(s.challenges, nonce)
		}
	}
	s.challenges[challenge.Nonce] = pendingChallenge{challenge: *challenge, expiresAt: now.Add(ttl)}
	return nil
}

// Consume removes the challenge even when it has already expired.
func (s *MemoryNonceStore) Consume(ctx context.Context, nonce string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.challenges[nonce]
	if !ok {
		return nil, core.ErrNotFound
	}
	delete(s.challenges, nonce)
	if !s.now().Before(p.expiresAt) {
		return nil, core.ErrNotFound
	}
	ch := p.challenge
	return &ch, nil
}
