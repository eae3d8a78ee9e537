// Package config reads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/layer-3/walletauth/adapters/signer"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/users"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/pkg/log"
	httptransport "github.com/layer-3/walletauth/transport/http"
)

const (
	configDirPathEnv     = "WALLETAUTH_CONFIG_DIR_PATH"
	defaultConfigDirPath = "."
)

// ServerConfig configures the Auth Backend.
type ServerConfig struct {
	Addr           string        `env:"WALLETAUTH_ADDR" env-default:":9000"`
	RedisURL       string        `env:"REDIS_URL"`
	SigningKey     string        `env:"WALLETAUTH_SIGNING_KEY"` // hex SEC1 DER, generated when empty
	Issuer         string        `env:"WALLETAUTH_ISSUER" env-default:"walletauth"`
	ChallengeTTL   time.Duration `env:"WALLETAUTH_CHALLENGE_TTL" env-default:"5m"`
	SessionTTL     time.Duration `env:"WALLETAUTH_SESSION_TTL" env-default:"720h"`
	AllowedDomains []string      `env:"WALLETAUTH_ALLOWED_DOMAINS" env-separator:","`
	ShutdownGrace  time.Duration `env:"WALLETAUTH_SHUTDOWN_GRACE" env-default:"10s"`

	Database users.DatabaseConfig
	HTTP     httptransport.Config
	Log      log.Config
}

// ClientConfig configures a client embedding the wallet session.
type ClientConfig struct {
	BackendURL      string        `env:"WALLETAUTH_BACKEND_URL" env-default:"http://localhost:9000"`
	Domain          string        `env:"WALLETAUTH_DOMAIN" env-default:"localhost"`
	ChainKind       string        `env:"WALLETAUTH_CHAIN" env-default:"solana"`
	ChainID         string        `env:"WALLETAUTH_CHAIN_ID"`
	ProjectID       string        `env:"WALLETAUTH_PROJECT_ID" env-default:"default"`
	SessionFile     string        `env:"WALLETAUTH_SESSION_FILE"`
	SessionDuration time.Duration `env:"WALLETAUTH_SESSION_DURATION" env-default:"720h"`
	AutoConnect     bool          `env:"WALLETAUTH_AUTO_CONNECT" env-default:"true"`

	Log log.Config
}

// LoadServerConfig reads the server configuration.
func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := load(&cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// LoadClientConfig reads the client configuration.
func LoadClientConfig() (ClientConfig, error) {
	var cfg ClientConfig
	if err := load(&cfg); err != nil {
		return ClientConfig{}, err
	}
	if _, err := cfg.Chain(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func load(cfg any) error {
	dir := os.Getenv(configDirPathEnv)
	if dir == "" {
		dir = defaultConfigDirPath
	}
	// Values already in the environment win over the file.
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("failed to read env: %w", err)
	}
	return nil
}

// Chain parses the configured chain kind.
func (c ClientConfig) Chain() (core.ChainKind, error) {
	return core.ParseChainKind(c.ChainKind)
}

// Provider returns the wallet provider configuration for the configured chain.
func (c ClientConfig) Provider() (signer.ProviderConfig, error) {
	kind, err := c.Chain()
	if err != nil {
		return signer.ProviderConfig{}, err
	}
	chainID := c.ChainID
	if chainID == "" {
		chainID = defaultChainID(kind)
	}
	return signer.ProviderConfig{
		ProjectID: c.ProjectID,
		Chains:    []signer.ChainConfig{{Kind: kind, ChainID: chainID}},
		Features: signer.Features{
			AutoConnect: c.AutoConnect,
			AllowEVM:    kind == core.ChainEVM,
			AllowSolana: kind == core.ChainSolana,
		},
	}, nil
}

// SessionPath is where the local session record lives.
func (c ClientConfig) SessionPath() string {
	if c.SessionFile != "" {
		return c.SessionFile
	}
	return store.DefaultSessionPath(c.ProjectID)
}

func defaultChainID(kind core.ChainKind) string {
	if kind == core.ChainEVM {
		return "eip155:1"
	}
	return "solana:mainnet"
}
