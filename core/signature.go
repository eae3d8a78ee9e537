package core

import (
	"bytes"
	"encoding/base64"
	"strings"
)

type signatureTag uint8

const (
	sigNone signatureTag = iota
	sigBytes
	sigEncoded
)

// SignatureResult is what a wallet adapter hands to the core: either raw
// signature bytes or an already base64-encoded signature.
type SignatureResult struct {
	tag     signatureTag
	raw     []byte
	encoded string
}

// SignatureBytes wraps raw signature bytes. The slice is copied.
func SignatureBytes(b []byte) SignatureResult {
	return SignatureResult{tag: sigBytes, raw: bytes.Clone(b)}
}

// SignatureEncoded wraps a base64 signature.
func SignatureEncoded(s string) SignatureResult {
	return SignatureResult{tag: sigEncoded, encoded: s}
}

// IsZero reports whether the result carries no signature.
func (r SignatureResult) IsZero() bool { return r.tag == sigNone }

// Bytes returns the canonical signature bytes.
func (r SignatureResult) Bytes() ([]byte, error) {
	switch r.tag {
	case sigBytes:
		if len(r.raw) == 0 {
			return nil, NewError(KindUnsupportedSignatureFormat, "empty signature", nil)
		}
		return bytes.Clone(r.raw), nil
	case sigEncoded:
		b, err := decodeBase64(r.encoded)
		if err != nil {
			return nil, NewError(KindUnsupportedSignatureFormat, "signature is not valid base64", err)
		}
		if len(b) == 0 {
			return nil, NewError(KindUnsupportedSignatureFormat, "empty signature", nil)
		}
		return b, nil
	default:
		return nil, NewError(KindUnsupportedSignatureFormat, "no signature", nil)
	}
}

// Base64 returns the transport encoding: standard alphabet with padding.
func (r SignatureResult) Base64() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// decodeBase64 accepts standard or URL alphabets, padded or not. Padding,
// when present, must be exact and unused trailing bits must be zero.
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	url := strings.ContainsAny(s, "-_")
	padded := strings.HasSuffix(s, "=")

	var enc *base64.Encoding
	switch {
	case url && padded:
		enc = base64.URLEncoding
	case url:
		enc = base64.RawURLEncoding
	case padded:
		enc = base64.StdEncoding
	default:
		enc = base64.RawStdEncoding
	}
	return enc.Strict().DecodeString(s)
}
