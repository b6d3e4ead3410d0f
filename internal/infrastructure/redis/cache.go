package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
)

var cacheLookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "email_auth_cache_lookups_total",
		Help: "Identity cache lookups by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(cacheLookupsTotal)
}

// Cache implements ports.Cache on top of any redis.Cmdable.
type Cache struct {
	r      redis.Cmdable
	prefix string
}

// NewCache namespaces every key under prefix when it is not empty.
func NewCache(r redis.Cmdable, prefix string) *Cache {
	return &Cache{r: r, prefix: prefix}
}

func (c *Cache) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.key(key)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		cacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	case err != nil:
		cacheLookupsTotal.WithLabelValues("error").Inc()
		return nil, false, err
	}
	cacheLookupsTotal.WithLabelValues("hit").Inc()
	return val, true, nil
}

// Set stores value; a non-positive ttl keeps the key until it is deleted.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return c.r.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.r.Del(ctx, c.key(key)).Err()
}
