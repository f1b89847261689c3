package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultOpTimeout bounds every shared-store operation. Exceeding it is
// treated the same as a connection failure by the coordinator's breaker.
const DefaultOpTimeout = 500 * time.Millisecond

// RedisConfig configures the shared (L2) store client.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	// Password authenticates the connection. Empty means no auth.
	Password string

	// DB is the Redis database index.
	DB int

	// KeyPrefix namespaces all keys and tag sets, so multiple caches can
	// share one Redis instance.
	KeyPrefix string

	// OpTimeout bounds each operation. Default: DefaultOpTimeout.
	OpTimeout time.Duration

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration

	// MaxRetries, MinRetryBackoff and MaxRetryBackoff configure the
	// client's own transport retries.
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration

	// LazyConnect skips the initial ping; the first operation connects.
	LazyConnect bool

	// Client, when non-nil, is used instead of dialing. The caller owns
	// its lifecycle and Close becomes a no-op.
	Client *redis.Client
}

// RedisStore is the shared (L2) cache tier. Entries are Redis hashes with a
// "v" field for the payload and a "t" field for tags; expiry is native Redis
// TTL, so the store itself expires entries. Tags are mirrored into secondary
// "tag:<name>" sets used only for invalidation sweeps.
type RedisStore struct {
	client     *redis.Client
	prefix     string
	opTimeout  time.Duration
	ownsClient bool
}

// NewRedisStore creates an L2 adapter. Unless cfg.LazyConnect is set (or a
// caller-owned client is supplied), the server is pinged once so
// misconfiguration surfaces at construction rather than on the hot path.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = DefaultOpTimeout
	}

	s := &RedisStore{
		client:    cfg.Client,
		prefix:    cfg.KeyPrefix,
		opTimeout: cfg.OpTimeout,
	}

	if s.client == nil {
		if cfg.Addr == "" {
			return nil, errors.New("cache: redis addr is required")
		}
		s.client = redis.NewClient(&redis.Options{
			Addr:            cfg.Addr,
			Password:        cfg.Password,
			DB:              cfg.DB,
			DialTimeout:     cfg.DialTimeout,
			MaxRetries:      cfg.MaxRetries,
			MinRetryBackoff: cfg.MinRetryBackoff,
			MaxRetryBackoff: cfg.MaxRetryBackoff,
		})
		s.ownsClient = true

		if !cfg.LazyConnect {
			if err := s.Ping(ctx); err != nil {
				_ = s.client.Close()
				return nil, fmt.Errorf("cache: redis ping failed: %w", err)
			}
		}
	}

	return s, nil
}

// Get retrieves an entry. The returned TTL is the remaining lifetime
// reported by the server, so backfilled copies expire at the same moment.
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()

	pipe := s.client.Pipeline()
	valCmd := pipe.HGetAll(ctx, s.key(key))
	ttlCmd := pipe.PTTL(ctx, s.key(key))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, false, err
	}

	fields := valCmd.Val()
	if len(fields) == 0 {
		return Entry{}, false, nil
	}
	remaining := ttlCmd.Val()
	if remaining <= 0 {
		// Key vanished or has no expiry between the two commands.
		return Entry{}, false, nil
	}

	return Entry{
		Key:       key,
		Value:     []byte(fields["v"]),
		CreatedAt: time.Now(),
		TTL:       remaining,
		Tags:      decodeTags(fields["t"]),
	}, true, nil
}

// Set stores an entry and registers it in the tag sets within one pipeline,
// so the index never lags behind the entry.
func (s *RedisStore) Set(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	remaining := entry.Remaining()
	if remaining <= 0 {
		return nil
	}

	ctx, cancel := s.op(ctx)
	defer cancel()

	tags, err := encodeTags(entry.Tags)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(entry.Key), "v", entry.Value, "t", tags)
	pipe.PExpire(ctx, s.key(entry.Key), remaining)
	for _, tag := range entry.Tags {
		pipe.SAdd(ctx, s.tagKey(tag), entry.Key)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Delete removes an entry and unregisters it from its tag sets.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.op(ctx)
	defer cancel()

	tags, err := s.client.HGet(ctx, s.key(key), "t").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(key))
	for _, tag := range decodeTags(tags) {
		pipe.SRem(ctx, s.tagKey(tag), key)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// Exists reports whether the key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()

	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteTag removes every entry registered under tag and the tag set itself.
// Members whose entries already expired are pruned along the way.
func (s *RedisStore) DeleteTag(ctx context.Context, tag string) (int, error) {
	ctx, cancel := s.op(ctx)
	defer cancel()

	members, err := s.client.SMembers(ctx, s.tagKey(tag)).Result()
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	cmds := make([]*redis.IntCmd, len(members))
	for i, member := range members {
		cmds[i] = pipe.Del(ctx, s.key(member))
	}
	pipe.Del(ctx, s.tagKey(tag))
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	deleted := 0
	for _, cmd := range cmds {
		deleted += int(cmd.Val())
	}
	return deleted, nil
}

// Flush clears the store's keyspace. With a key prefix it scans and deletes
// only the cache's own keys; without one it flushes the whole database.
func (s *RedisStore) Flush(ctx context.Context) error {
	ctx, cancel := s.op(ctx)
	defer cancel()

	if s.prefix == "" {
		return s.client.FlushDB(ctx).Err()
	}

	iter := s.client.Scan(ctx, 0, s.prefix+"*", 0).Iterator()
	batch := make([]string, 0, 128)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Ping checks the server is reachable within the operation timeout.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := s.op(ctx)
	defer cancel()
	return s.client.Ping(ctx).Err()
}

// Name identifies the tier.
func (s *RedisStore) Name() string { return "l2" }

// Close releases the client if this store dialed it. A caller-owned client
// is left open.
func (s *RedisStore) Close() error {
	if !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) op(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *RedisStore) key(key string) string { return s.prefix + key }

func (s *RedisStore) tagKey(tag string) string { return s.prefix + "tag:" + tag }

func encodeTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("cache: failed to encode tags: %w", err)
	}
	return string(b), nil
}

func decodeTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err != nil {
		return nil
	}
	return tags
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
