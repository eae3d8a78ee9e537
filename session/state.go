package session

import "github.com/layer-3/walletauth/core"

// Status is the state machine position of a WalletAuthSession.
type Status string

const (
	StatusIdle            Status = "idle"
	StatusCheckingSession Status = "checking_session"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
	StatusDisconnecting   Status = "disconnecting"
)

// State is an immutable snapshot of the observable flags.
type State struct {
	Status            Status        `json:"status"`
	IsAuthenticated   bool          `json:"isAuthenticated"`
	IsAuthenticating  bool          `json:"isAuthenticating"`
	IsCheckingSession bool          `json:"isCheckingSession"`
	AuthError         string        `json:"authError,omitempty"`
	ErrorKind         core.Kind     `json:"errorKind,omitempty"`
	User              *core.Profile `json:"user,omitempty"`
}
