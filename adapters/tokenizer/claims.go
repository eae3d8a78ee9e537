package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims combines standard claims with session-specific ones.
// Subject is the wallet address and ID is the session ID.
type SessionClaims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	ChainKind string `json:"chain"`
}
