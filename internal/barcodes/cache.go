package barcodes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "barcodes:version"
	productsKey     = "barcodes:products"

	// loadTimeout bounds a shared load, which outlives any single caller.
	loadTimeout = 30 * time.Second
)

// Cache lookup outcomes.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Cache keeps the product list in Redis under a versioned key. Writes bump
// the version so the next read misses. Redis failures degrade to a direct
// load and are only logged.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	group   singleflight.Group
	lookups *prometheus.CounterVec
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Instrument registers the cache lookup counter.
func (c *Cache) Instrument(registerer prometheus.Registerer) error {
	if c == nil || registerer == nil {
		return nil
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "barcodes_product_cache_lookups_total",
		Help: "Product list cache lookups by result.",
	}, []string{"result"})
	if err := registerer.Register(lookups); err != nil {
		return err
	}
	c.lookups = lookups
	return nil
}

func (c *Cache) observe(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

func productListKey(ver int64) string {
	return productsKey + ":" + strconv.FormatInt(ver, 10)
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	return ver, err
}

// Products returns the cached product list or populates it using load.
// Only errors from load are returned.
func (c *Cache) Products(ctx context.Context, load func(context.Context) ([]Record, error)) ([]Record, error) {
	if !c.enabled() {
		return load(ctx)
	}

	ver, err := c.Version(ctx)
	if err != nil {
		c.observe(resultError)
		c.logger.Warn("product cache version", slog.Any("error", err))
		return load(ctx)
	}
	key := productListKey(ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []Record
		if err := json.Unmarshal(payload, &records); err == nil {
			c.observe(resultHit)
			return records, nil
		}
		c.logger.Warn("product cache decode", slog.String("key", key), slog.Any("error", err))
	case !errors.Is(err, redis.Nil):
		c.observe(resultError)
		c.logger.Warn("product cache read", slog.String("key", key), slog.Any("error", err))
		return load(ctx)
	}
	c.observe(resultMiss)

	// Callers stop waiting on their own context; the shared load is detached.
	ch := c.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		records, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.store(loadCtx, key, records)
		return records, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Record), nil
	}
}

func (c *Cache) store(ctx context.Context, key string, records []Record) {
	raw, err := json.Marshal(records)
	if err != nil {
		c.logger.Warn("product cache encode", slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("product cache write", slog.String("key", key), slog.Any("error", err))
	}
}

// Invalidate bumps the version so cached lists are no longer read. When the
// bump fails the list stored under the current version is dropped instead.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	err := c.client.Incr(ctx, cacheVersionKey).Err()
	if err == nil {
		return
	}
	c.logger.Warn("product cache invalidate", slog.Any("error", err))
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if err == nil {
		err = c.client.Del(ctx, productListKey(ver)).Err()
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Error("product cache may be stale", slog.Any("error", err))
	}
}
