package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const minRevocationTTL = time.Second

type RedisRevocationStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisRevocationStore(client redis.UniversalClient, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "auth"
	}
	return &RedisRevocationStore{client: client, prefix: prefix, now: time.Now}
}

// Revoke keeps the entry only until the token itself expires.
func (s *RedisRevocationStore) Revoke(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl < minRevocationTTL {
		ttl = minRevocationTTL
	}
	ok, err := s.client.SetNX(ctx, s.key(jti), userID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrAlreadyRevoked
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) key(jti string) string {
	return s.prefix + ":revoked:" + jti
}
