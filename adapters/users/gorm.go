package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
)

var _ ports.UserRepository = (*GormUserRepo)(nil)

// DatabaseConfig selects the SQL backend.
//
// For sqlite an empty DSN means a shared in-memory database.
type DatabaseConfig struct {
	Driver string `env:"WALLETAUTH_DB_DRIVER" env-default:"sqlite"`
	DSN    string `env:"WALLETAUTH_DB_DSN" env-default:""`
}

// ConnectDB opens the database and migrates the users table.
func ConnectDB(cnf DatabaseConfig) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch cnf.Driver {
	case "postgres":
		if cnf.DSN == "" {
			return nil, errors.New("postgres requires a DSN")
		}
		dial = postgres.Open(cnf.DSN)
	case "sqlite", "":
		dsn := cnf.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dial = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cnf.Driver)
	}

	db, err := gorm.Open(dial, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cnf.Driver, err)
	}
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate users: %w", err)
	}
	return db, nil
}

type userRow struct {
	ID        string         `gorm:"primaryKey;size:36"`
	Handle    string         `gorm:"size:64;not null"`
	Address   string         `gorm:"size:64;not null;uniqueIndex:idx_users_wallet"`
	ChainKind core.ChainKind `gorm:"size:16;not null;uniqueIndex:idx_users_wallet"`
	CreatedAt time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toUser() *core.User {
	return &core.User{
		ID:        r.ID,
		Handle:    r.Handle,
		Address:   r.Address,
		ChainKind: r.ChainKind,
		CreatedAt: r.CreatedAt,
	}
}

// GormUserRepo stores users through gorm.
type GormUserRepo struct {
	db *gorm.DB
}

// NewGormUserRepo expects a db prepared by ConnectDB.
func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) GetByID(ctx context.Context, id string) (*core.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, notFound(err)
	}
	return row.toUser(), nil
}

func (r *GormUserRepo) GetByWallet(ctx context.Context, kind core.ChainKind, address string) (*core.User, error) {
	var row userRow
	err := r.db.WithContext(ctx).
		Where("chain_kind = ? AND address = ?", kind, address).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return row.toUser(), nil
}

func (r *GormUserRepo) Create(ctx context.Context, u *core.User) error {
	row := userRow{
		ID:        u.ID,
		Handle:    u.Handle,
		Address:   u.Address,
		ChainKind: u.ChainKind,
		CreatedAt: u.CreatedAt,
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.ErrNotFound
	}
	return fmt.Errorf("failed to query users: %w", err)
}
