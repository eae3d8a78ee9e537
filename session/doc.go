// Package session implements the client side of wallet sign-in.
//
// A WalletAuthSession owns the in-memory authentication state for one wallet
// connection. It restores a previous session on startup (Reconcile), runs
// the nonce/sign/verify handshake on request (Authenticate) and tears the
// session down (Disconnect). Consumers read State snapshots or register an
// observer with WithOnChange; they never mutate the state directly.
//
// The locally stored session only gates the client UI. Privileged actions
// are authorized by the Auth Backend on every call through its own session
// cookie, so trusting a local record while the backend is unreachable never
// grants backend access.
package session
