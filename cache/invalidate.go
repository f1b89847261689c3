package cache

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/tiercache/observe"
)

// TagAll is the wildcard tag. Invalidating it clears every entry.
const TagAll = "*"

// InvalidateKey removes a single key from every tier. It is Delete under
// its invalidation name: at-least-once, never failing on an unconfirmed
// shared-store removal.
func (c *TieredCache) InvalidateKey(ctx context.Context, key string) error {
	return c.Delete(ctx, key)
}

// InvalidateTag removes every entry carrying tag from both tiers. The
// sweeps run in parallel; the shared-store sweep is retried through the
// breaker. A failed L2 sweep is recorded as a partial invalidation and
// logged, not returned: entries it missed still expire via their own TTL.
//
// The wildcard tag "*" clears everything, including untagged entries.
func (c *TieredCache) InvalidateTag(ctx context.Context, tag string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if tag == TagAll {
		return c.InvalidateAll(ctx)
	}
	if strings.TrimSpace(tag) == "" {
		return ErrInvalidKey
	}

	ctx, end := c.rec.Begin(ctx, observe.OpInvalidateTag)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := c.l1.DeleteTag(gctx, tag)
		return err
	})

	var l2err error
	if c.l2 != nil {
		g.Go(func() error {
			l2err = c.sweep.Execute(gctx, func(ctx context.Context) error {
				_, err := c.l2.DeleteTag(ctx, tag)
				return err
			})
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		end(string(TierL1), "error", err)
		return err
	}
	if l2err != nil {
		c.notePartial(ctx, "tag sweep incomplete", tag, l2err)
	}

	end("", "ok", nil)
	return nil
}

// InvalidateAll clears both tiers. Unlike tag sweeps, a shared-store flush
// that cannot be confirmed is surfaced to the caller: a full clear is
// typically a correctness event and silent partial success would be worse
// than an error.
func (c *TieredCache) InvalidateAll(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	ctx, end := c.rec.Begin(ctx, observe.OpInvalidateAll)

	if err := c.l1.Flush(ctx); err != nil {
		end(string(TierL1), "error", err)
		return err
	}

	if c.l2 != nil {
		err := c.sweep.Execute(ctx, func(ctx context.Context) error {
			return c.l2.Flush(ctx)
		})
		if err != nil {
			c.notePartial(ctx, "shared store flush failed", TagAll, err)
			end(string(TierL2), "error", err)
			return err
		}
	}

	end("", "ok", nil)
	return nil
}

// notePartial records an invalidation that cleared L1 but could not be
// confirmed on L2.
func (c *TieredCache) notePartial(ctx context.Context, msg, tag string, err error) {
	c.stats.partial()
	c.log.Error(ctx, msg,
		observe.Field{Key: "tag", Value: tag},
		observe.Field{Key: "error", Value: err.Error()},
	)
}
