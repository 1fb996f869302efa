package logstore

import "encoding/base64"

// b64Prefix marks a stored text field as base64-encoded UTF-8 bytes,
// avoiding quoting/encoding surprises in transport (spec.md §3).
const b64Prefix = "B64:"

// EncodeForStorage wraps s as "B64:" + base64(s) so it can round-trip
// through any storage driver regardless of embedded control characters or
// invalid UTF-8 sequences produced by upstream bodies.
func EncodeForStorage(s string) string {
	if s == "" {
		return s
	}
	return b64Prefix + base64.StdEncoding.EncodeToString([]byte(s))
}

// DecodeFromStorage reverses EncodeForStorage. It is the identity on any
// string lacking the "B64:" prefix, so rows written before encoding was
// introduced (or by a driver that stores a field verbatim) still read
// back correctly.
func DecodeFromStorage(s string) string {
	if len(s) < len(b64Prefix) || s[:len(b64Prefix)] != b64Prefix {
		return s
	}
	decoded, err := base64.StdEncoding.DecodeString(s[len(b64Prefix):])
	if err != nil {
		return s
	}
	return string(decoded)
}
