package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	chainFlag   string
	keyFlag     string
	backendFlag string
	domainFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "walletauth",
	Short: "Sign in to a wallet auth backend from the command line",
	Long: `Sign in to a wallet auth backend with a local key.

Available subcommands:
  keygen - Generate a key for the chosen chain
  login  - Sign the backend challenge and start a session
  status - Show the session state for the key
  logout - End the session and clear local state

Settings not given as flags are read from WALLETAUTH_* environment
variables and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&chainFlag, "chain", "", "chain kind: evm or solana")
	rootCmd.PersistentFlags().StringVar(&keyFlag, "key", "", "wallet secret (defaults to $WALLETAUTH_KEY)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "auth backend base URL")
	rootCmd.PersistentFlags().StringVar(&domainFlag, "domain", "", "domain announced in the sign-in message")

	rootCmd.AddCommand(keygenCmd, loginCmd, statusCmd, logoutCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
