package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by Redis, for deployments running more than one
// server process. Records self-expire via the key TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a revocation store using the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "revoked:"}
}

func (s *RedisStore) key(jti string) string {
	return s.prefix + jti
}

// Revoke marks jti revoked until expiresAt. A jti already past expiry is not
// recorded; decode rejects the token on its own.
func (s *RedisStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	// SET NX keeps the first record's TTL; revoking twice is a no-op.
	return s.client.SetNX(ctx, s.key(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti has an unexpired revocation record.
func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
