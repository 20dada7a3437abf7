package security

import "time"

// NewTestCodec returns a TokenCodec with a fixed secret and short TTLs.
// For unit tests only.
func NewTestCodec() *TokenCodec {
	return NewTokenCodec([]byte("test-secret-0123456789abcdef0123"), "test-issuer", 15*time.Minute)
}
