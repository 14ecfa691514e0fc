package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.Addr != ":8090" || cfg.CatalogDriver != "sqlite" || !cfg.CatalogIndex {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.HotPruneBelow != 0.01 || cfg.HotPruneEvery != time.Minute {
		t.Fatalf("prune defaults: %v every %s", cfg.HotPruneBelow, cfg.HotPruneEvery)
	}
	if cfg.Reload.Brokers != cfg.KafkaBrokers || cfg.Reload.Topic != "crs-catalog" {
		t.Fatalf("reload defaults: %+v", cfg.Reload)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CATALOG_DRIVER", "Postgres")
	t.Setenv("CATALOG_INDEX", "scan")
	t.Setenv("H3_RES", "99")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("CACHE_ADAPTIVE", "yes")
	t.Setenv("HOT_THRESHOLD", "2.5")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("QUERY_OR_WORKERS", "not-a-number")

	cfg := FromEnv()
	if cfg.CatalogDriver != "postgres" || cfg.CatalogIndex {
		t.Fatalf("catalog: %q index=%v", cfg.CatalogDriver, cfg.CatalogIndex)
	}
	if cfg.H3Res != 15 {
		t.Fatalf("h3 res must clamp to 15, got %d", cfg.H3Res)
	}
	if cfg.CacheTTL != 90*time.Second || !cfg.CacheAdaptive || cfg.HotThreshold != 2.5 {
		t.Fatalf("cache: ttl=%s adaptive=%v threshold=%v", cfg.CacheTTL, cfg.CacheAdaptive, cfg.HotThreshold)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("cors=%q", cfg.CORSOrigins)
	}
	if cfg.QueryORWorkers != 4 {
		t.Fatalf("bad int must fall back to default, got %d", cfg.QueryORWorkers)
	}
}
