package users

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

func newGormRepo(t *testing.T) *GormUserRepo {
	t.Helper()
	db, err := ConnectDB(DatabaseConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormUserRepo(db)
}

func TestUserRepositories(t *testing.T) {
	repos := map[string]func(t *testing.T) ports.UserRepository{
		"memory": func(*testing.T) ports.UserRepository { return NewMemoryUserRepo() },
		"gorm":   func(t *testing.T) ports.UserRepository { return newGormRepo(t) },
	}
	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t)

			_, err := repo.GetByID(ctx, "missing")
			require.ErrorIs(t, err, core.ErrNotFound)
			_, err = repo.GetByWallet(ctx, core.ChainEVM, "0xabc")
			require.ErrorIs(t, err, core.ErrNotFound)

			u := &core.User{
				ID:        uuid.NewString(),
				Handle:    "evm-0xabc",
				Address:   "0xabc",
				ChainKind: core.ChainEVM,
				CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			}
			require.NoError(t, repo.Create(ctx, u))

			got, err := repo.GetByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, u.Handle, got.Handle)
			assert.Equal(t, u.Address, got.Address)
			assert.Equal(t, u.ChainKind, got.ChainKind)
			assert.True(t, u.CreatedAt.Equal(got.CreatedAt))

			got, err = repo.GetByWallet(ctx, core.ChainEVM, "0xabc")
			require.NoError(t, err)
			assert.Equal(t, u.ID, got.ID)

			_, err = repo.GetByWallet(ctx, core.ChainSolana, "0xabc")
			require.ErrorIs(t, err, core.ErrNotFound, "wallets are keyed by chain kind too")

			dup := *u
			dup.ID = uuid.NewString()
			require.ErrorIs(t, repo.Create(ctx, &dup), ErrUserExists)

			sameAddressOtherChain := dup
			sameAddressOtherChain.ChainKind = core.ChainSolana
			require.NoError(t, repo.Create(ctx, &sameAddressOtherChain))
		})
	}
}

func TestConnectDB_UnsupportedDriver(t *testing.T) {
	_, err := ConnectDB(DatabaseConfig{Driver: "mysql"})
	require.Error(t, err)

	_, err = ConnectDB(DatabaseConfig{Driver: "postgres"})
	require.Error(t, err)
}
