package core

import (
	"errors"
	"fmt"
)

// Backend sentinels.
var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidChallenge = errors.New("invalid challenge")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrDomainNotAllowed = errors.New("domain not allowed")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnsupportedChain = errors.New("unsupported chain kind")
	ErrAlreadyExists    = errors.New("already exists")
)

// Kind classifies a wallet authentication failure.
type Kind string

const (
	KindWalletNotConnected          Kind = "wallet_not_connected"
	KindSigningUnsupported          Kind = "signing_unsupported"
	KindNonceGenerationFailed       Kind = "nonce_generation_failed"
	KindUserRejectedSignature       Kind = "user_rejected_signature"
	KindSigningFailed               Kind = "signing_failed"
	KindUnsupportedSignatureFormat  Kind = "unsupported_signature_format"
	KindSignatureVerificationFailed Kind = "signature_verification_failed"
	KindProfileFetchFailed          Kind = "profile_fetch_failed"
	KindSessionExpired              Kind = "session_expired"
	KindSessionMismatch             Kind = "session_mismatch"
	KindAuthInProgress              Kind = "auth_in_progress"
)

// Error is a classified authentication failure. Two errors are equal under
// errors.Is when their kinds match, so the Err* values below work as sentinels.
type Error struct {
	Kind Kind
	Msg  string // detail, e.g. the backend's message
	Err  error  // underlying cause
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError builds a classified error.
func NewError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

var (
	ErrWalletNotConnected          = &Error{Kind: KindWalletNotConnected}
	ErrSigningUnsupported          = &Error{Kind: KindSigningUnsupported}
	ErrNonceGenerationFailed       = &Error{Kind: KindNonceGenerationFailed}
	ErrUserRejectedSignature       = &Error{Kind: KindUserRejectedSignature}
	ErrSigningFailed               = &Error{Kind: KindSigningFailed}
	ErrUnsupportedSignatureFormat  = &Error{Kind: KindUnsupportedSignatureFormat}
	ErrSignatureVerificationFailed = &Error{Kind: KindSignatureVerificationFailed}
	ErrProfileFetchFailed          = &Error{Kind: KindProfileFetchFailed}
	ErrSessionExpired              = &Error{Kind: KindSessionExpired}
	ErrSessionMismatch             = &Error{Kind: KindSessionMismatch}
	ErrAuthInProgress              = &Error{Kind: KindAuthInProgress}
)

// KindOf extracts the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

var userMessages = map[Kind]string{
	KindWalletNotConnected:          "Connect your wallet first",
	KindSigningUnsupported:          "This wallet does not support message signing",
	KindNonceGenerationFailed:       "Could not start sign-in, please try again",
	KindUserRejectedSignature:       "Signature request was rejected in the wallet",
	KindSigningFailed:               "The wallet failed to sign the message",
	KindUnsupportedSignatureFormat:  "The wallet returned a signature in an unsupported format",
	KindSignatureVerificationFailed: "Signature verification failed",
	KindProfileFetchFailed:          "Signed in, but your profile could not be loaded",
	KindSessionExpired:              "Your session has expired, please sign in again",
	KindSessionMismatch:             "Your session belongs to a different wallet",
	KindAuthInProgress:              "Sign-in is already in progress",
}

// UserMessage renders err for display. Backend detail is appended when present.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Authentication failed: " + err.Error()
	}
	msg, ok := userMessages[e.Kind]
	if !ok {
		msg = "Authentication failed"
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	return msg
}
