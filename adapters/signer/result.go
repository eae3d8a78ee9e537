package signer

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/layer-3/walletauth/core"
)

// Canonicalize converts whatever a wallet bridge returned from signMessage
// into a SignatureResult. Accepted shapes:
//
//   - raw bytes: []byte, named byte slices, byte arrays
//   - a base64 string
//   - an object with a "signature" field: map[string]any or json.RawMessage,
//     where the field holds bytes, base64 or a JSON byte array
//   - a Node.js Buffer in JSON form: {"type":"Buffer","data":[...]}
//   - values exposing Bytes() []byte or SignatureBytes() []byte
//
// Anything else fails with core.ErrUnsupportedSignatureFormat.
func Canonicalize(v any) (core.SignatureResult, error) {
	res, err := canonicalize(v, 0)
	if err != nil {
		return core.SignatureResult{}, err
	}
	if _, err := res.Bytes(); err != nil {
		return core.SignatureResult{}, err
	}
	return res, nil
}

const maxNesting = 3

func canonicalize(v any, depth int) (core.SignatureResult, error) {
	if depth > maxNesting {
		return core.SignatureResult{}, unsupported("signature nested too deep")
	}
	switch s := v.(type) {
	case nil:
		return core.SignatureResult{}, unsupported("no signature")
	case core.SignatureResult:
		return s, nil
	case *core.SignatureResult:
		if s == nil {
			return core.SignatureResult{}, unsupported("no signature")
		}
		return *s, nil
	case []byte:
		return core.SignatureBytes(s), nil
	case string:
		return core.SignatureEncoded(s), nil
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(s, &decoded); err != nil {
			return core.SignatureResult{}, core.NewError(core.KindUnsupportedSignatureFormat, "malformed json", err)
		}
		return canonicalize(decoded, depth+1)
	case []any:
		b, err := byteArray(s)
		if err != nil {
			return core.SignatureResult{}, err
		}
		return core.SignatureBytes(b), nil
	case map[string]any:
		if field, ok := s["signature"]; ok {
			return canonicalize(field, depth+1)
		}
		if s["type"] == "Buffer" {
			return canonicalize(s["data"], depth+1)
		}
		return core.SignatureResult{}, unsupported("object has no signature field")
	case interface{ SignatureBytes() []byte }:
		return core.SignatureBytes(s.SignatureBytes()), nil
	case interface{ Bytes() []byte }:
		return core.SignatureBytes(s.Bytes()), nil
	}

	rv := reflect.ValueOf(v)
	switch {
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return core.SignatureBytes(rv.Bytes()), nil
	case rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8:
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return core.SignatureBytes(b), nil
	case rv.Kind() == reflect.Pointer && !rv.IsNil():
		return canonicalize(rv.Elem().Interface(), depth+1)
	}
	return core.SignatureResult{}, unsupported(fmt.Sprintf("unrecognized signature type %T", v))
}

// byteArray converts a decoded JSON array of numbers into bytes.
func byteArray(items []any) ([]byte, error) {
	out := make([]byte, len(items))
	for i, it := range items {
		n, ok := it.(float64)
		if !ok || n < 0 || n > 255 || n != float64(int(n)) {
			return nil, unsupported(fmt.Sprintf("element %d is not a byte", i))
		}
		out[i] = byte(n)
	}
	return out, nil
}

func unsupported(msg string) error {
	return core.NewError(core.KindUnsupportedSignatureFormat, msg, nil)
}
