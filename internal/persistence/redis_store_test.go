package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisStoreSetGetDelete(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	key := DocumentKey("u1")
	if err := store.Set(ctx, key, `{"document":{}}`); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != `{"document":{}}` {
		t.Fatalf("unexpected value %q", val)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStoreMissingKey(t *testing.T) {
	store := setupTestRedis(t)
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedisStoreLastWriteWins(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	key := TemplateKey("u1")
	for _, val := range []string{"classic", "modern", "compact"} {
		if err := store.Set(ctx, key, val); err != nil {
			t.Fatalf("set: %v", err)
		}
	}

	val, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "compact" {
		t.Fatalf("expected last write to win, got %q", val)
	}
}

func TestRedisStoreTakeRemovesKey(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	key := UploadKey("tok-1")
	if err := store.Set(ctx, key, "payload"); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, err := store.Take(ctx, key)
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if val != "payload" {
		t.Fatalf("expected staged payload, got %q", val)
	}
	if _, err := store.Take(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second take: got %v, want ErrNotFound", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after take: got %v, want ErrNotFound", err)
	}
}

func TestRedisStoreDeleteMissingKey(t *testing.T) {
	store := setupTestRedis(t)
	if err := store.Delete(context.Background(), "missing"); err != nil {
		t.Fatalf("delete of missing key should not error: %v", err)
	}
}
