// Package revocation tracks revoked token identifiers until their natural expiry.
// It is the only shared mutable state crossed by concurrent connection
// authentications; implementations must be safe under concurrent
// Revoke/IsRevoked without external locking by callers.
package revocation

import (
	"context"
	"sync"
	"time"
)

// Store answers membership queries for revoked token IDs (jti).
type Store interface {
	// Revoke marks jti unusable until expiresAt. Idempotent: revoking an
	// already-revoked jti is a no-op. A record past expiresAt is logically
	// dead; revoking an already-expired token changes nothing observable
	// because decode independently rejects expired tokens.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	// IsRevoked reports whether jti has been revoked and is not yet past
	// its recorded expiry.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryStore is an in-process Store implementation backed by a map.
type MemoryStore struct {
	mu  sync.RWMutex
	m   map[string]time.Time // jti -> expiresAt
	now func() time.Time
}

// NewMemoryStore returns a new in-memory revocation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:   make(map[string]time.Time),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Revoke records jti as revoked until expiresAt. Expired entries encountered
// under the write lock are purged opportunistically.
func (s *MemoryStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[jti]; !ok {
		s.m[jti] = expiresAt
	}
	return nil
}

// PurgeExpired drops records past their expiry and returns how many were
// removed. Correctness does not depend on purging; expired tokens are already
// rejected at decode.
func (s *MemoryStore) PurgeExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, exp := range s.m {
		if now.After(exp) {
			delete(s.m, k)
			n++
		}
	}
	return n
}

// IsRevoked reports whether jti is revoked and its record has not expired.
func (s *MemoryStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	s.mu.RLock()
	exp, ok := s.m[jti]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if s.now().After(exp) {
		s.mu.Lock()
		delete(s.m, jti)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}
