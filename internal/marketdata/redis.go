package marketdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/alphadesk/alphadesk/pkg/logger"
)

// RedisCache implements Cache on a shared Redis instance so multiple
// processes see the same market data window. Values are stored as JSON with
// Redis-native expiry; the source tag rides along for cache stats parity.
type RedisCache struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

type redisEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Source string          `json:"source"`
}

// NewRedisCache wraps an existing client. The prefix namespaces keys so the
// instance can be shared with other applications.
func NewRedisCache(client *redis.Client, prefix string, log *logger.Logger) *RedisCache {
	if prefix == "" {
		prefix = "marketdata"
	}
	if log == nil {
		log = logger.NewDefault("marketdata-redis")
	}
	return &RedisCache{client: client, prefix: prefix, log: log}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + ":" + key
}

// Set marshals the value and stores it with the given TTL. Marshal or network
// failures are logged and swallowed; the cache is an optimization, never a
// source of truth.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration, source string) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache marshal failed")
		return
	}
	payload, err := json.Marshal(redisEnvelope{Data: raw, Source: source})
	if err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache envelope marshal failed")
		return
	}
	if err := c.client.Set(ctx, c.key(key), payload, ttl).Err(); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

// Get unmarshals a live entry into dst. Any failure is treated as a miss.
func (c *RedisCache) Get(ctx context.Context, key string, dst interface{}) bool {
	payload, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("key", key).Warn("cache get failed")
		}
		return false
	}
	var env redisEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return false
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return false
	}
	return true
}
