package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mythic3011/AED-Api/internal/metrics"
)

// QueryCache stores JSON-encoded query results keyed by a stable
// fingerprint of the query parameters. The cache is strictly an
// accelerator: any Redis failure degrades to computing the result
// directly, it never turns into a caller-visible error.
type QueryCache struct {
	client *redis.Client
	logger *slog.Logger
	m      *metrics.Metrics
}

func NewQueryCache(client *redis.Client, logger *slog.Logger, m *metrics.Metrics) *QueryCache {
	return &QueryCache{client: client, logger: logger, m: m}
}

// Fingerprint builds the cache key for op and its parameters. Keys are
// sorted and floats serialize via strconv.FormatFloat with the shortest
// round-trip form, so semantically identical queries always collide.
func Fingerprint(op string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(op)
	for _, k := range keys {
		sb.WriteByte(':')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(canonicalValue(params[k]))
	}
	return sb.String()
}

func canonicalValue(v any) string {
	switch val := v.(type) {
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// GetBytes returns the cached payload for key. A miss and a Redis
// failure look the same to the caller; the failure is logged and
// counted as a fallback.
func (c *QueryCache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if c.m != nil {
			c.m.CacheHits.Inc()
		}
		return raw, true
	case errors.Is(err, redis.Nil):
		if c.m != nil {
			c.m.CacheMisses.Inc()
		}
	default:
		c.logger.Warn("cache read failed, serving from storage",
			slog.String("key", key), slog.Any("error", err))
		if c.m != nil {
			c.m.CacheFallbacks.Inc()
		}
	}
	return nil, false
}

// SetBytes stores the payload for ttl. Failures are logged and
// swallowed, the entry just will not be there next time.
func (c *QueryCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache write failed",
			slog.String("key", key), slog.Any("error", err))
	}
}

// ByteCache is the read/write half of the cache, what GetOrCompute needs.
type ByteCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// GetOrCompute returns the cached value for key, or runs compute and
// caches its result for ttl. A corrupt entry counts as a miss and is
// overwritten by the fresh result.
func GetOrCompute[T any](ctx context.Context, c ByteCache, key string, ttl time.Duration, compute func(ctx context.Context) (T, error)) (T, error) {
	var result T

	if raw, ok := c.GetBytes(ctx, key); ok {
		if err := json.Unmarshal(raw, &result); err == nil {
			return result, nil
		}
	}

	result, err := compute(ctx)
	if err != nil {
		return result, err
	}

	if b, err := json.Marshal(result); err == nil {
		c.SetBytes(ctx, key, b, ttl)
	}
	return result, nil
}

// Invalidate removes every key starting with any of the prefixes.
// SCAN keeps the sweep incremental; a failure is logged and swallowed,
// entries then age out by TTL.
func (c *QueryCache) Invalidate(ctx context.Context, prefixes ...string) {
	for _, prefix := range prefixes {
		iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()

		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
			if len(keys) >= 100 {
				c.deleteKeys(ctx, prefix, keys)
				keys = keys[:0]
			}
		}
		if err := iter.Err(); err != nil {
			c.logger.Warn("cache invalidation scan failed",
				slog.String("prefix", prefix), slog.Any("error", err))
			continue
		}
		if len(keys) > 0 {
			c.deleteKeys(ctx, prefix, keys)
		}
	}
}

func (c *QueryCache) deleteKeys(ctx context.Context, prefix string, keys []string) {
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache invalidation delete failed",
			slog.String("prefix", prefix), slog.Any("error", err))
	}
}
