package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/walletauth/core"
)

// BuildMessage renders the text the wallet signs for ch, in the style of
// Sign-In with Ethereum / Solana.
func BuildMessage(ch *core.Challenge) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s wants you to sign in with your %s account:\n", ch.Domain, ch.ChainKind.Title())
	fmt.Fprintf(&b, "%s\n\n", ch.Address)
	fmt.Fprintf(&b, "Sign in to %s.\n\n", ch.Domain)
	fmt.Fprintf(&b, "Chain: %s\n", ch.ChainKind)
	fmt.Fprintf(&b, "Nonce: %s\n", ch.Nonce)
	fmt.Fprintf(&b, "Issued At: %s\n", ch.IssuedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Expiration Time: %s", ch.ExpiresAt.UTC().Format(time.RFC3339))
	return b.String()
}

// handleFor derives a display handle such as "evm-f39f2266".
func handleFor(kind core.ChainKind, address string) string {
	a := address
	if kind == core.ChainEVM {
		a = strings.ToLower(strings.TrimPrefix(a, "0x"))
	}
	if len(a) > 8 {
		a = a[:4] + a[len(a)-4:]
	}
	return string(kind) + "-" + a
}
