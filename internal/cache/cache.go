// Package cache provides an advisory read-through cache for analytics
// responses. It is strictly optional: every failure path degrades to a miss
// or a no-op, and the service must behave identically with the cache
// disabled, only slower.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how stale a cached analytics response may get.
const DefaultTTL = 5 * time.Minute

// Stats reports redis keyspace effectiveness for the admin surface.
type Stats struct {
	Enabled bool    `json:"enabled"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Keys    int64   `json:"keys"`
}

// Store is the advisory cache handlers depend on. Implementations never
// return errors to callers on the read/write path; a broken cache is a miss.
type Store interface {
	// Get unmarshals the cached value into dest and reports whether it was present.
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Delete(ctx context.Context, key string)
	ClearPattern(ctx context.Context, pattern string) int64
	Stats(ctx context.Context) Stats
}

// Key derives a deterministic cache key from a prefix and the request
// arguments. Arguments are serialized to JSON so any comparable parameter
// struct works; the digest keeps keys short and safe for redis.
func Key(prefix string, args any) string {
	payload, err := json.Marshal(args)
	if err != nil {
		return prefix + ":unkeyed"
	}
	digest := md5.Sum(payload)
	return prefix + ":" + hex.EncodeToString(digest[:])[:12]
}

// RedisStore backs Store with a redis server.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewRedisStore connects to the redis server named by url. The connection is
// verified eagerly so a misconfigured URL surfaces at startup, not on the
// first request.
func NewRedisStore(url string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis unreachable: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, logger: logger, ttl: ttl}, nil
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string, dest any) bool {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("Cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		s.logger.Warn("Cache entry corrupt, dropping", slog.String("key", key))
		s.client.Del(ctx, key)
		return false
	}
	return true
}

// Set implements Store. A non-positive ttl falls back to the store default.
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Cache value not serializable", slog.String("key", key))
		return
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		s.logger.Warn("Cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context, key string) {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.Warn("Cache delete failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// ClearPattern removes every key matching the glob pattern and returns how
// many were dropped. KEYS is acceptable here: the keyspace is small and
// clearing happens on admin request or the background sweep, never per
// request.
func (s *RedisStore) ClearPattern(ctx context.Context, pattern string) int64 {
	keys, err := s.client.Keys(ctx, pattern).Result()
	if err != nil {
		s.logger.Warn("Cache pattern scan failed", slog.String("pattern", pattern), slog.String("error", err.Error()))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	dropped, err := s.client.Del(ctx, keys...).Result()
	if err != nil {
		s.logger.Warn("Cache pattern clear failed", slog.String("pattern", pattern), slog.String("error", err.Error()))
		return 0
	}
	return dropped
}

// Stats implements Store
func (s *RedisStore) Stats(ctx context.Context) Stats {
	stats := Stats{Enabled: true}

	if size, err := s.client.DBSize(ctx).Result(); err == nil {
		stats.Keys = size
	}

	info, err := s.client.Info(ctx, "stats").Result()
	if err != nil {
		s.logger.Warn("Cache stats unavailable", slog.String("error", err.Error()))
		return stats
	}
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "keyspace_hits:"); ok {
			fmt.Sscanf(v, "%d", &stats.Hits)
		}
		if v, ok := strings.CutPrefix(line, "keyspace_misses:"); ok {
			fmt.Sscanf(v, "%d", &stats.Misses)
		}
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = math.Round(float64(stats.Hits)/float64(total)*10000) / 100
	}
	return stats
}

// Close releases the underlying redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Disabled is the no-op Store used when caching is off or redis is absent.
type Disabled struct{}

// Get implements Store
func (Disabled) Get(context.Context, string, any) bool { return false }

// Set implements Store
func (Disabled) Set(context.Context, string, any, time.Duration) {}

// Delete implements Store
func (Disabled) Delete(context.Context, string) {}

// ClearPattern implements Store
func (Disabled) ClearPattern(context.Context, string) int64 { return 0 }

// Stats implements Store
func (Disabled) Stats(context.Context) Stats { return Stats{Enabled: false} }
