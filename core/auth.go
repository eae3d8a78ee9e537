package core

import (
	"fmt"
	"strings"
	"time"
)

// ChainKind identifies the signing and address rules of a wallet.
type ChainKind string

const (
	ChainEVM    ChainKind = "evm"
	ChainSolana ChainKind = "solana"
)

// ParseChainKind validates a chain kind string.
func ParseChainKind(s string) (ChainKind, error) {
	switch k := ChainKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ChainEVM, ChainSolana:
		return k, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnsupportedChain, s)
	}
}

// Title returns the human readable chain name used in sign-in messages.
func (k ChainKind) Title() string {
	switch k {
	case ChainEVM:
		return "Ethereum"
	case ChainSolana:
		return "Solana"
	default:
		return string(k)
	}
}

// Challenge represents an authentication challenge
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Wallet address the challenge was issued for
	ChainKind ChainKind // Signing rules of the wallet
	Domain    string    // Site the user is signing in to
	Nonce     string    // Single-use random token
	Message   string    // Exact text the wallet signs
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Session represents an authenticated backend session
type Session struct {
	ID        string    // Unique session identifier, also the revocation key
	UserID    string    // Owner of the session
	Address   string    // Wallet address that signed the challenge
	ChainKind ChainKind // Chain kind of that wallet
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the session stops being accepted
}

// User is an account known to the Auth Backend.
type User struct {
	ID        string
	Handle    string
	Address   string
	ChainKind ChainKind
	CreatedAt time.Time
}

// Profile converts the user into its public representation.
func (u *User) Profile() *Profile {
	return &Profile{
		ID:     u.ID,
		Handle: u.Handle,
		Wallet: WalletRef{Address: u.Address, ChainKind: u.ChainKind},
	}
}

// WalletRef is the wallet part of a profile.
type WalletRef struct {
	Address   string    `json:"address"`
	ChainKind ChainKind `json:"chainKind"`
}

// Profile is what the current-user lookup returns.
type Profile struct {
	ID     string    `json:"id"`
	Handle string    `json:"handle"`
	Wallet WalletRef `json:"wallet"`
}

// Matches reports whether the profile belongs to address, ignoring case.
func (p *Profile) Matches(address string) bool {
	if p == nil || address == "" {
		return false
	}
	return strings.EqualFold(p.Wallet.Address, address)
}
