package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/layer-3/walletauth"
	"github.com/layer-3/walletauth/adapters/signer"
	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/pkg/log"
)

var errMissingKey = errors.New("wallet key required: pass --key or set WALLETAUTH_KEY")

// keygenCmd prints a fresh key
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a wallet key",
	RunE:  runKeygen,
}

// loginCmd signs in, reusing a still valid local session
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with the wallet key",
	RunE:  runLogin,
}

// statusCmd reconciles and prints the session state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	RunE:  runStatus,
}

// logoutCmd ends the session
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the local session",
	RunE:  runLogout,
}

func runKeygen(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	kind, err := cfg.Chain()
	if err != nil {
		return err
	}
	secret, address, err := signer.GenerateKey(kind)
	if err != nil {
		return err
	}
	return printJSON(cmd, map[string]string{
		"chainKind": string(kind),
		"address":   address,
		"secret":    secret,
	})
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}

	if st := client.Reconcile(ctx); !st.IsAuthenticated {
		if err := client.Authenticate(ctx); err != nil {
			_ = printJSON(cmd, client.State())
			return fmt.Errorf("login failed: %s", core.UserMessage(err))
		}
	}
	return printJSON(cmd, client.State())
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	return printJSON(cmd, client.Reconcile(ctx))
}

func runLogout(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	client.Disconnect(ctx)
	return printJSON(cmd, client.State())
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (config.ClientConfig, error) {
	if chainFlag != "" {
		if err := os.Setenv("WALLETAUTH_CHAIN", chainFlag); err != nil {
			return config.ClientConfig{}, err
		}
	}
	cfg, err := config.LoadClientConfig()
	if err != nil {
		return config.ClientConfig{}, err
	}
	if backendFlag != "" {
		cfg.BackendURL = backendFlag
	}
	if domainFlag != "" {
		cfg.Domain = domainFlag
	}
	// The key is what makes the wallet usable, so always connect.
	cfg.AutoConnect = true
	return cfg, nil
}

func newClient(ctx context.Context) (*walletauth.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	secret := keyFlag
	if secret == "" {
		secret = os.Getenv("WALLETAUTH_KEY")
	}
	if secret == "" {
		return nil, errMissingKey
	}

	wallet, err := walletauth.NewWallet(ctx, cfg, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	logger := log.NewZapLogger(cfg.Log).WithName("walletauth")
	return walletauth.Init(cfg, wallet, walletauth.WithLogger(logger))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
