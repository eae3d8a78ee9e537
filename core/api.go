package core

// NonceRequest is the body of POST /auth/nonce.
type NonceRequest struct {
	Address   string    `json:"address" binding:"required"`
	ChainKind ChainKind `json:"chainKind" binding:"required"`
	Domain    string    `json:"domain" binding:"required"`
}

// NonceResponse is the success body of POST /auth/nonce.
type NonceResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

// VerifyRequest is the body of POST /auth/verify. Signature is base64.
type VerifyRequest struct {
	Address   string    `json:"address" binding:"required"`
	ChainKind ChainKind `json:"chainKind" binding:"required"`
	Nonce     string    `json:"nonce" binding:"required"`
	Domain    string    `json:"domain" binding:"required"`
	Signature string    `json:"signature" binding:"required"`
}

// APIError is the error envelope used by the Auth Backend.
type APIError struct {
	Message string `json:"message"`
}

// VerifyResponse is the body of POST /auth/verify in both outcomes.
type VerifyResponse struct {
	Success bool      `json:"success"`
	User    *Profile  `json:"user,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

// ErrorMessage returns the backend supplied failure message, if any.
func (r *VerifyResponse) ErrorMessage() string {
	if r == nil || r.Error == nil {
		return ""
	}
	return r.Error.Message
}
