package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInvalidateKey(t *testing.T) {
	l2 := newFakeStore()
	c := newTestCache(t, Config{L2: l2})
	ctx := context.Background()

	_ = c.Set(ctx, "k", []byte("v"), time.Minute)
	if err := c.InvalidateKey(ctx, "k"); err != nil {
		t.Fatalf("InvalidateKey() error = %v", err)
	}
	if l2.has("k") {
		t.Error("shared copy should be removed")
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestInvalidateTag_BothTiers(t *testing.T) {
	l2 := newFakeStore()
	c := newTestCache(t, Config{L2: l2})
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute, "pricing")
	_ = c.Set(ctx, "b", []byte("2"), time.Minute, "pricing", "region:west")
	_ = c.Set(ctx, "c", []byte("3"), time.Minute, "estimates")

	if err := c.InvalidateTag(ctx, "pricing"); err != nil {
		t.Fatalf("InvalidateTag() error = %v", err)
	}

	for _, key := range []string{"a", "b"} {
		if _, err := c.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound", key, err)
		}
		if l2.has(key) {
			t.Errorf("shared copy of %q should be removed", key)
		}
	}
	if _, err := c.Get(ctx, "c"); err != nil {
		t.Errorf("Get(c) error = %v, want entry with other tag to survive", err)
	}
}

func TestInvalidateTag_UnknownTag(t *testing.T) {
	c := newTestCache(t, Config{L2: newFakeStore()})

	if err := c.InvalidateTag(context.Background(), "nosuch"); err != nil {
		t.Errorf("InvalidateTag(unknown) error = %v, want nil no-op", err)
	}
}

func TestInvalidateTag_EmptyTag(t *testing.T) {
	c := newTestCache(t, Config{})

	if err := c.InvalidateTag(context.Background(), "  "); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("InvalidateTag(blank) error = %v, want ErrInvalidKey", err)
	}
}

func TestInvalidateTag_PartialFailure(t *testing.T) {
	l2 := newFakeStore()
	c := newTestCache(t, Config{L2: l2})
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute, "pricing")
	l2.fail(errors.New("connection refused"))

	// L1 is cleared and the failure is recorded, not surfaced.
	if err := c.InvalidateTag(ctx, "pricing"); err != nil {
		t.Fatalf("InvalidateTag() error = %v, want nil", err)
	}
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Error("local copy must be gone despite the shared-store failure")
	}
	if got := c.Stats().InvalidationPartials; got != 1 {
		t.Errorf("InvalidationPartials = %d, want 1", got)
	}
}

func TestInvalidateTag_Wildcard(t *testing.T) {
	l2 := newFakeStore()
	c := newTestCache(t, Config{L2: l2})
	ctx := context.Background()

	_ = c.Set(ctx, "tagged", []byte("1"), time.Minute, "pricing")
	_ = c.Set(ctx, "untagged", []byte("2"), time.Minute)

	if err := c.InvalidateTag(ctx, TagAll); err != nil {
		t.Fatalf("InvalidateTag(*) error = %v", err)
	}

	for _, key := range []string{"tagged", "untagged"} {
		if _, err := c.Get(ctx, key); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrNotFound after wildcard", key, err)
		}
	}
}

func TestInvalidateAll(t *testing.T) {
	l2 := newFakeStore()
	c := newTestCache(t, Config{L2: l2})
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	_ = c.Set(ctx, "b", []byte("2"), time.Minute)

	if err := c.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll() error = %v", err)
	}
	if l2.has("a") || l2.has("b") {
		t.Error("shared store should be flushed")
	}
	if snap := c.Stats(); snap.Memory.Used != 0 {
		t.Errorf("Memory.Used = %d, want 0 after full clear", snap.Memory.Used)
	}
}

func TestInvalidateAll_SharedFlushFailureSurfaces(t *testing.T) {
	l2 := newFakeStore()
	c := newTestCache(t, Config{L2: l2})
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), time.Minute)
	l2.fail(errors.New("connection refused"))

	if err := c.InvalidateAll(ctx); err == nil {
		t.Error("InvalidateAll() should surface an unconfirmed shared flush")
	}
	// The local tier is still cleared.
	if _, err := c.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Error("local tier must be cleared even when the shared flush fails")
	}
	if got := c.Stats().InvalidationPartials; got != 1 {
		t.Errorf("InvalidationPartials = %d, want 1", got)
	}
}
