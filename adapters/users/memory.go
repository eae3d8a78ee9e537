// Package users stores Auth Backend accounts.
package users

import (
	"context"
	"fmt"
	"sync"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

// ErrUserExists is returned by Create when the ID or wallet is taken.
var ErrUserExists = fmt.Errorf("user %w", core.ErrAlreadyExists)

var _ ports.UserRepository = (*MemoryUserRepo)(nil)

type walletKey struct {
	kind    core.ChainKind
	address string
}

// MemoryUserRepo keeps users in process memory.
type MemoryUserRepo struct {
	mu       sync.RWMutex
	byID     map[string]*core.User
	byWallet map[walletKey]string
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:     make(map[string]*core.User),
		byWallet: make(map[walletKey]string),
	}
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepo) GetByWallet(_ context.Context, kind core.ChainKind, address string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byWallet[walletKey{kind, address}]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *MemoryUserRepo) Create(_ context.Context, u *core.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := walletKey{u.ChainKind, u.Address}
	if _, ok := r.byID[u.ID]; ok {
		return ErrUserExists
	}
	if _, ok := r.byWallet[key]; ok {
		return ErrUserExists
	}
	cp := *u
	r.byID[u.ID] = &cp
	r.byWallet[key] = u.ID
	return nil
}
