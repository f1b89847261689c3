package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T, prefix string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(context.Background(), RedisConfig{
		Addr:      mr.Addr(),
		KeyPrefix: prefix,
	})
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore_SetGet(t *testing.T) {
	s, _ := newTestRedisStore(t, "")
	ctx := context.Background()

	in := NewEntry("estimate:1", []byte("payload"), time.Minute, "estimates", "region:west")
	if err := s.Set(ctx, in); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := s.Get(ctx, "estimate:1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if string(got.Value) != "payload" {
		t.Errorf("Value = %q, want %q", got.Value, "payload")
	}
	if len(got.Tags) != 2 {
		t.Errorf("Tags = %v, want 2 tags", got.Tags)
	}
	if got.TTL <= 0 || got.TTL > time.Minute {
		t.Errorf("TTL = %v, want remaining lifetime in (0, 1m]", got.TTL)
	}
}

func TestRedisStore_GetMiss(t *testing.T) {
	s, _ := newTestRedisStore(t, "")

	_, ok, err := s.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false")
	}
}

func TestRedisStore_ServerSideExpiry(t *testing.T) {
	s, mr := newTestRedisStore(t, "")
	ctx := context.Background()

	if err := s.Set(ctx, NewEntry("k", []byte("v"), time.Minute)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, ok, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true after server-side expiry, want false")
	}
}

func TestRedisStore_RemainingTTLShrinks(t *testing.T) {
	s, mr := newTestRedisStore(t, "")
	ctx := context.Background()

	if err := s.Set(ctx, NewEntry("k", []byte("v"), time.Minute)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	mr.FastForward(40 * time.Second)

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.TTL > 20*time.Second {
		t.Errorf("TTL = %v, want <= 20s after 40s elapsed", got.TTL)
	}
}

func TestRedisStore_SetAlreadyExpired(t *testing.T) {
	s, _ := newTestRedisStore(t, "")
	ctx := context.Background()

	e := NewEntry("k", []byte("v"), time.Minute)
	e.CreatedAt = time.Now().Add(-2 * time.Minute)

	// Writing an expired entry is a no-op, not an error.
	if err := s.Set(ctx, e); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("expired entry should not be stored")
	}
}

func TestRedisStore_Delete(t *testing.T) {
	s, _ := newTestRedisStore(t, "")
	ctx := context.Background()

	_ = s.Set(ctx, NewEntry("k", []byte("v"), time.Minute, "pricing"))
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "k"); ok {
		t.Error("Exists() = true after Delete, want false")
	}

	// The tag set must not keep pointing at the deleted key.
	if n, _ := s.DeleteTag(ctx, "pricing"); n != 0 {
		t.Errorf("DeleteTag() = %d, want 0 after Delete", n)
	}

	if err := s.Delete(ctx, "absent"); err != nil {
		t.Errorf("Delete(absent) error = %v, want nil", err)
	}
}

func TestRedisStore_DeleteTag(t *testing.T) {
	s, _ := newTestRedisStore(t, "")
	ctx := context.Background()

	_ = s.Set(ctx, NewEntry("a", []byte("1"), time.Minute, "pricing"))
	_ = s.Set(ctx, NewEntry("b", []byte("2"), time.Minute, "pricing", "estimates"))
	_ = s.Set(ctx, NewEntry("c", []byte("3"), time.Minute, "estimates"))

	n, err := s.DeleteTag(ctx, "pricing")
	if err != nil {
		t.Fatalf("DeleteTag() error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteTag() = %d, want 2", n)
	}
	if ok, _ := s.Exists(ctx, "a"); ok {
		t.Error("tagged entry a should be gone")
	}
	if ok, _ := s.Exists(ctx, "c"); !ok {
		t.Error("entry c with another tag should survive")
	}
}

func TestRedisStore_DeleteTag_Unknown(t *testing.T) {
	s, _ := newTestRedisStore(t, "")

	n, err := s.DeleteTag(context.Background(), "nosuch")
	if err != nil {
		t.Fatalf("DeleteTag() error = %v", err)
	}
	if n != 0 {
		t.Errorf("DeleteTag() = %d, want 0", n)
	}
}

func TestRedisStore_FlushWithPrefix(t *testing.T) {
	s, mr := newTestRedisStore(t, "tc:")
	ctx := context.Background()

	_ = s.Set(ctx, NewEntry("a", []byte("1"), time.Minute))
	_ = s.Set(ctx, NewEntry("b", []byte("2"), time.Minute))
	// A foreign key outside the cache's prefix must survive the flush.
	mr.Set("other-app", "data")

	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "a"); ok {
		t.Error("prefixed entry should be flushed")
	}
	if !mr.Exists("other-app") {
		t.Error("foreign key outside the prefix should survive")
	}
}

func TestRedisStore_FlushWholeDB(t *testing.T) {
	s, _ := newTestRedisStore(t, "")
	ctx := context.Background()

	_ = s.Set(ctx, NewEntry("a", []byte("1"), time.Minute))
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if ok, _ := s.Exists(ctx, "a"); ok {
		t.Error("entry should be flushed")
	}
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	s, mr := newTestRedisStore(t, "tc:")
	ctx := context.Background()

	_ = s.Set(ctx, NewEntry("k", []byte("v"), time.Minute))

	if !mr.Exists("tc:k") {
		t.Error("stored key should carry the configured prefix")
	}
	if got, ok, _ := s.Get(ctx, "k"); !ok || got.Key != "k" {
		t.Errorf("Get() = %+v, %v, want unprefixed key back", got, ok)
	}
}

func TestRedisStore_Ping(t *testing.T) {
	s, mr := newTestRedisStore(t, "")

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v, want nil", err)
	}

	mr.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() after server shutdown should fail")
	}
}

func TestNewRedisStore_PingFailure(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
	if err == nil {
		t.Error("NewRedisStore() with unreachable server should fail")
	}
}

func TestNewRedisStore_LazyConnect(t *testing.T) {
	s, err := NewRedisStore(context.Background(), RedisConfig{
		Addr:        "127.0.0.1:1",
		LazyConnect: true,
		DialTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRedisStore() with LazyConnect error = %v", err)
	}
	defer s.Close()

	if _, _, err := s.Get(context.Background(), "k"); err == nil {
		t.Error("first operation against unreachable server should fail")
	}
}
