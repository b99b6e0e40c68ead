package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGormRevocationStore(t *testing.T) {
	db := newRepositoryDBForTest(t)
	store := NewGormRevocationStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("fresh jti must not be revoked: revoked=%v err=%v", revoked, err)
	}
	if err := store.Revoke(ctx, "jti-1", "user-1", now.Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := store.Revoke(ctx, "jti-1", "user-1", now.Add(time.Hour)); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}
	revoked, err = store.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked: revoked=%v err=%v", revoked, err)
	}

	if err := store.Revoke(ctx, "jti-old", "user-1", now.Add(-time.Minute)); err != nil {
		t.Fatalf("revoke expired: %v", err)
	}
	purged, err := store.PurgeExpired(ctx, now)
	if err != nil || purged != 1 {
		t.Fatalf("purge: purged=%d err=%v", purged, err)
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatal("live revocation must survive purge")
	}
}

func TestRedisRevocationStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	store := NewRedisRevocationStore(client, "test")
	ctx := context.Background()

	if err := store.Revoke(ctx, "jti-1", "user-1", time.Now().Add(30*time.Second)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !mr.Exists("test:revoked:jti-1") {
		t.Fatal("expected prefixed revocation key")
	}
	if err := store.Revoke(ctx, "jti-1", "user-1", time.Now().Add(30*time.Second)); !errors.Is(err, ErrAlreadyRevoked) {
		t.Fatalf("expected ErrAlreadyRevoked, got %v", err)
	}
	revoked, err := store.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked: revoked=%v err=%v", revoked, err)
	}

	mr.FastForward(31 * time.Second)
	revoked, err = store.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("entry should expire with the token: revoked=%v err=%v", revoked, err)
	}
}

func TestRedisRevocationStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = client.Close() }()
	store := NewRedisRevocationStore(client, "")
	mr.Close()

	if _, err := store.IsRevoked(context.Background(), "jti-1"); err == nil {
		t.Fatal("expected error when redis is down")
	}
}
