package utils

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var (
	redisClient *redis.Client
	cacheCtx    = context.Background()
)

// InitRedis connects the cache client. The cache is best-effort: when Redis
// is unreachable the service keeps running with caching disabled.
func InitRedis() {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		logrus.WithError(err).Warn("invalid REDIS_URL, caching disabled")
		return
	}

	client := redis.NewClient(opts)
	if err := client.Ping(cacheCtx).Err(); err != nil {
		logrus.WithError(err).Warn("redis unreachable, caching disabled")
		return
	}

	redisClient = client
	logrus.Info("✅ Redis connected")
}

// SetCache stores data as JSON under key.
func SetCache(key string, data interface{}, expiration time.Duration) {
	if redisClient == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Error("cache set error")
		return
	}
	if err := redisClient.Set(cacheCtx, key, raw, expiration).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("cache set error")
	}
}

// GetCache unmarshals the cached value into dest and reports a hit.
func GetCache(key string, dest interface{}) bool {
	if redisClient == nil {
		return false
	}
	raw, err := redisClient.Get(cacheCtx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logrus.WithError(err).WithField("key", key).Error("cache get error")
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logrus.WithError(err).WithField("key", key).Error("cache decode error")
		return false
	}
	return true
}

// DeleteCache removes a single key.
func DeleteCache(key string) {
	if redisClient == nil {
		return
	}
	if err := redisClient.Del(cacheCtx, key).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("cache delete error")
	}
}

// DeleteCachePattern invalidates every key matching the pattern, e.g.
// "orders:*" after any order mutation.
func DeleteCachePattern(pattern string) {
	if redisClient == nil {
		return
	}
	iter := redisClient.Scan(cacheCtx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(cacheCtx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logrus.WithError(err).WithField("pattern", pattern).Error("cache scan error")
		return
	}
	if len(keys) > 0 {
		if err := redisClient.Del(cacheCtx, keys...).Err(); err != nil {
			logrus.WithError(err).WithField("pattern", pattern).Error("cache pattern delete error")
		}
	}
}
