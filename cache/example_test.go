package cache_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/tiercache/cache"
)

func ExampleNew() {
	c, err := cache.New(cache.Config{Name: "estimates"})
	if err != nil {
		panic(err)
	}
	defer c.Close()

	ctx := context.Background()

	// Store a value
	_ = c.Set(ctx, "estimate:42", []byte("total: 1280.50"), 5*time.Minute)

	// Retrieve the value
	value, err := c.Get(ctx, "estimate:42")
	if err == nil {
		fmt.Println("Value:", string(value))
	}
	// Output:
	// Value: total: 1280.50
}

func ExampleTieredCache_GetOrLoad() {
	c, _ := cache.New(cache.Config{Name: "pricing"})
	defer c.Close()

	ctx := context.Background()

	// The loader runs only on a full miss; concurrent callers for the same
	// key share one load.
	load := func(ctx context.Context, key string) ([]byte, error) {
		return []byte("computed"), nil
	}

	first, _ := c.GetOrLoad(ctx, "pricing:west", load, time.Minute, "pricing")
	second, _ := c.GetOrLoad(ctx, "pricing:west", load, time.Minute, "pricing")

	fmt.Println(string(first), string(second))
	// Output:
	// computed computed
}

func ExampleTieredCache_InvalidateTag() {
	c, _ := cache.New(cache.Config{Name: "pricing"})
	defer c.Close()

	ctx := context.Background()

	_ = c.Set(ctx, "pricing:west", []byte("1.10"), time.Hour, "pricing")
	_ = c.Set(ctx, "pricing:east", []byte("1.25"), time.Hour, "pricing")

	// A pricing change drops every entry derived from the old tables.
	_ = c.InvalidateTag(ctx, "pricing")

	_, err := c.Get(ctx, "pricing:west")
	fmt.Println(errors.Is(err, cache.ErrNotFound))
	// Output:
	// true
}

func ExampleDefaultKeyer() {
	keyer := cache.NewDefaultKeyer()

	// Equal inputs produce equal keys regardless of map ordering.
	key1, _ := keyer.Key("pricing", map[string]any{"region": "west", "tier": 2})
	key2, _ := keyer.Key("pricing", map[string]any{"tier": 2, "region": "west"})

	fmt.Println(key1 == key2)
	// Output:
	// true
}
