package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/crsfinder/internal/cache"
	"github.com/mohammed-shakir/crsfinder/internal/cache/redisstore"
	"github.com/mohammed-shakir/crsfinder/internal/cache/resultcache"
	"github.com/mohammed-shakir/crsfinder/internal/catalog"
	_ "github.com/mohammed-shakir/crsfinder/internal/catalog/pgstore"
	_ "github.com/mohammed-shakir/crsfinder/internal/catalog/sqlitedb"
	"github.com/mohammed-shakir/crsfinder/internal/core/config"
	"github.com/mohammed-shakir/crsfinder/internal/core/executor"
	"github.com/mohammed-shakir/crsfinder/internal/core/health"
	"github.com/mohammed-shakir/crsfinder/internal/core/observability"
	"github.com/mohammed-shakir/crsfinder/internal/core/router"
	"github.com/mohammed-shakir/crsfinder/internal/core/server"
	"github.com/mohammed-shakir/crsfinder/internal/hotness"
	"github.com/mohammed-shakir/crsfinder/internal/hotness/expdecay"
	"github.com/mohammed-shakir/crsfinder/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/crsfinder/internal/invalidation/kafkaconsumer"
	"github.com/mohammed-shakir/crsfinder/internal/logger"
	h3mapper "github.com/mohammed-shakir/crsfinder/internal/mapper/h3"
	"github.com/mohammed-shakir/crsfinder/internal/metrics"
	"github.com/mohammed-shakir/crsfinder/internal/queryevents"
	"github.com/mohammed-shakir/crsfinder/pkg/adaptive/simple"
	pkgkafka "github.com/mohammed-shakir/crsfinder/pkg/invalidation/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "crsfinder-server",
		Version:   Version,
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var mp *metrics.Provider
	if cfg.MetricsEnabled {
		mp = metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.MetricsAddr,
			Path:    cfg.MetricsPath,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		observability.Init(mp.Registerer(), true)
		go func() {
			if err := mp.Serve(ctx, appLog); err != nil {
				appLog.Error("metrics server exited", "err", err)
			}
		}()
	} else {
		observability.Init(nil, false)
	}
	observability.ExposeBuildInfo(Version)

	appLog.Info("starting crsfinder",
		"addr", cfg.Addr,
		"version", Version,
		"catalog_driver", cfg.CatalogDriver,
		"catalog", cfg.CatalogName)

	provider, err := catalog.Open(ctx, cfg, appLog)
	if err != nil {
		appLog.Error("catalog open failed", "err", err)
		return 1
	}
	cat := catalog.New(provider, appLog, catalog.WithIndex(cfg.CatalogIndex))
	snap, err := cat.Reload(ctx)
	if err != nil {
		appLog.Error("initial catalog load failed", "err", err)
		return 1
	}
	appLog.Info("catalog loaded", "version", snap.Version(), "rows", snap.Len(), "skipped", len(snap.Skipped()))

	exec := executor.New(appLog,
		executor.WithWorkers(cfg.QueryORWorkers),
		executor.WithMaxGeometries(cfg.QueryMaxGeometries))

	opts := []router.Option{router.WithTimeout(cfg.QueryTimeout)}
	checks := []health.Check{{
		Name: "catalog",
		Probe: func(context.Context) (bool, any) {
			s, err := cat.Current()
			if err != nil {
				return false, err.Error()
			}
			return true, map[string]any{"version": s.Version(), "rows": s.Len()}
		},
	}}

	var purger kafkaconsumer.Purger
	if cfg.CacheEnabled {
		var remote cache.Interface
		if cfg.RedisAddr != "" {
			rc, err := redisstore.New(ctx, cfg.RedisAddr)
			if err != nil {
				appLog.Warn("redis unavailable, caching in process only", "addr", cfg.RedisAddr, "err", err)
			} else {
				defer func() { _ = rc.Close() }()
				remote = rc
				checks = append(checks, health.Check{
					Name:     "redis",
					Optional: true,
					Probe: func(ctx context.Context) (bool, any) {
						if err := rc.Ping(ctx); err != nil {
							return false, err.Error()
						}
						return true, nil
					},
				})
			}
		}
		rcache := resultcache.New(appLog, resultcache.Config{
			Size:      cfg.CacheLRUSize,
			TTL:       cfg.CacheTTL,
			OpTimeout: cfg.CacheOpTimeout,
		}, remote)
		cat.OnSwap(func(old, cur *catalog.Snapshot) {
			if old == nil || old.Version() == cur.Version() {
				return
			}
			n, err := rcache.Purge(context.WithoutCancel(ctx))
			appLog.Info("result cache purged on catalog swap",
				"from", old.Version(), "to", cur.Version(), "entries", n, "err", err)
		})
		purger = rcache
		opts = append(opts, router.WithCache(rcache))
	}

	if cfg.HotspotsEnabled {
		tracker := expdecay.New(cfg.HotHalfLife)
		wrapped := metricswrap.New(tracker, metricswrap.Options{Threshold: 10 * cfg.HotThreshold, LogSample: 0.01, Logger: appLog})
		rec := hotness.NewRecorder(h3mapper.New(), wrapped, cfg.H3Res, appLog)
		go rec.Sweep(ctx, cfg.HotPruneEvery, cfg.HotPruneBelow)
		opts = append(opts, router.WithHotspots(rec))
		if cfg.CacheEnabled && cfg.CacheAdaptive {
			opts = append(opts, router.WithCachePolicy(simple.New(simple.Config{
				Threshold: cfg.HotThreshold,
				TTLWarm:   cfg.CacheTTL,
				TTLHot:    cfg.CacheTTLHot,
			})))
		}
	}

	if cfg.KafkaBrokers != "" && cfg.QueryEventTopic != "" {
		pub, err := queryevents.NewPublisher(pkgkafka.Split(cfg.KafkaBrokers), cfg.QueryEventTopic, 1024, appLog)
		if err != nil {
			appLog.Warn("query event publisher disabled", "err", err)
		} else {
			defer func() { _ = pub.Close() }()
			opts = append(opts, router.WithEvents(pub))
		}
	}

	if cfg.Reload.Enabled {
		if purger == nil {
			purger = noopPurger{}
		}
		consumer := kafkaconsumer.New(kafkaconsumer.FromConfig(cfg), appLog, cat, purger)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				appLog.Error("invalidation consumer stopped", "err", err)
			}
		}()
		checks = append(checks, health.Check{
			Name:     "kafka",
			Optional: true,
			Probe: func(context.Context) (bool, any) {
				ok, parts := consumer.Readiness()
				return ok, map[string]any{"partitions": parts}
			},
		})
	}

	// Without a dedicated metrics listener the API router serves /metrics.
	var metricsHandler http.Handler
	if mp != nil && cfg.MetricsAddr == "" {
		metricsHandler = mp.Handler()
	}
	api := router.New(appLog, cat, exec, opts...)
	h := server.NewRouter(cfg, appLog, api, metricsHandler, checks...)

	if err := server.Run(ctx, cfg, appLog, h); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

type noopPurger struct{}

func (noopPurger) Purge(context.Context) (int, error) { return 0, nil }
