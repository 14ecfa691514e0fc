// Package resultcache caches executed query results in process and,
// optionally, in a shared store.
package resultcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/mohammed-shakir/crsfinder/internal/cache"
	"github.com/mohammed-shakir/crsfinder/internal/cache/keys"
	"github.com/mohammed-shakir/crsfinder/internal/core/executor"
	"github.com/mohammed-shakir/crsfinder/internal/core/observability"
)

type Status string

const (
	StatusMiss   Status = "miss"
	StatusLocal  Status = "lru"
	StatusRemote Status = "redis"
	StatusShared Status = "shared"
)

type Config struct {
	Size      int
	TTL       time.Duration
	OpTimeout time.Duration
}

type Cache struct {
	logger    *slog.Logger
	local     *expirable.LRU[string, executor.Result]
	remote    cache.Interface
	ttl       time.Duration
	opTimeout time.Duration
	group     singleflight.Group
}

// New builds a cache. remote may be nil for a process-local cache.
func New(logger *slog.Logger, cfg Config, remote cache.Interface) *Cache {
	if cfg.Size <= 0 {
		cfg.Size = 1024
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		logger:    logger,
		local:     expirable.NewLRU[string, executor.Result](cfg.Size, nil, cfg.TTL),
		remote:    remote,
		ttl:       cfg.TTL,
		opTimeout: cfg.OpTimeout,
	}
}

// StoreOptions tune how a freshly computed result is stored.
type StoreOptions struct {
	// TTL overrides the shared tier TTL when positive.
	TTL time.Duration
	// LocalOnly skips the shared tier write.
	LocalOnly bool
}

// Do returns the cached result for key or computes it with fn. Concurrent
// callers with the same key share one computation. Remote failures degrade to
// computing the result.
func (c *Cache) Do(ctx context.Context, key string, fn func(context.Context) (executor.Result, error)) (executor.Result, Status, error) {
	return c.DoWith(ctx, key, StoreOptions{}, fn)
}

// DoWith is Do with per-call store options.
func (c *Cache) DoWith(ctx context.Context, key string, so StoreOptions, fn func(context.Context) (executor.Result, error)) (executor.Result, Status, error) {
	if res, ok := c.local.Get(key); ok {
		observability.IncCacheHit("lru")
		return res, StatusLocal, nil
	}
	observability.IncCacheMiss("lru")

	type outcome struct {
		res    executor.Result
		status Status
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		if res, ok := c.fetchRemote(ctx, key); ok {
			c.local.Add(key, res)
			return outcome{res, StatusRemote}, nil
		}
		res, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.local.Add(key, res)
		if !so.LocalOnly {
			ttl := c.ttl
			if so.TTL > 0 {
				ttl = so.TTL
			}
			c.storeRemote(ctx, key, res, ttl)
		}
		return outcome{res, StatusMiss}, nil
	})
	if err != nil {
		return executor.Result{}, StatusMiss, err
	}
	o := v.(outcome)
	if shared && o.status == StatusMiss {
		o.status = StatusShared
	}
	return o.res, o.status, nil
}

func (c *Cache) fetchRemote(ctx context.Context, key string) (executor.Result, bool) {
	if c.remote == nil {
		return executor.Result{}, false
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	raw, ok, err := c.remote.Get(opCtx, key)
	if err != nil {
		c.logger.Warn("result cache get failed", "key", key, "err", err)
		return executor.Result{}, false
	}
	if !ok {
		return executor.Result{}, false
	}
	var res executor.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		c.logger.Warn("result cache entry undecodable", "key", key, "err", err)
		return executor.Result{}, false
	}
	return res, true
}

func (c *Cache) storeRemote(ctx context.Context, key string, res executor.Result, ttl time.Duration) {
	if c.remote == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("result cache encode failed", "key", key, "err", err)
		return
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opTimeout)
	defer cancel()
	if err := c.remote.Set(opCtx, key, raw, ttl); err != nil {
		c.logger.Warn("result cache set failed", "key", key, "err", err)
	}
}

// Purge drops every local entry and every shared entry of this service.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	n := c.local.Len()
	c.local.Purge()
	if c.remote == nil {
		return n, nil
	}
	removed, err := c.remote.PurgePrefix(ctx, keys.Namespace+":")
	return n + removed, err
}

func (c *Cache) Len() int { return c.local.Len() }
