package ports

import "github.com/layer-3/walletauth/core"

// Tokenizer converts between backend sessions and bearer tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
