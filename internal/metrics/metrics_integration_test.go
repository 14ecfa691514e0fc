package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-shakir/crsfinder/internal/core/observability"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func Test_AppMetrics_CustomRegistry_Smoke(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Version: "test"}})
	observability.Init(p.Registerer(), true)
	observability.ExposeBuildInfo("test")

	start := time.Now()
	observability.ObserveQuery("point", "and", "ok", 4, 1, time.Since(start).Seconds())
	observability.ObserveQuery("bbox", "or", "error", 0, 0, 0)
	observability.ObserveCatalogReload("sqlite", nil, 120, 2, 0.05)
	observability.ObserveCatalogReload("sqlite", errors.New("boom"), 0, 0, 0)
	observability.ObserveCacheOp("mget", nil, 0.002)
	observability.IncCacheHit("lru")
	observability.IncCacheMiss("redis")
	observability.ObserveInvalidation("reload", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	mustContain := []string{
		`crs_query_duration_seconds_bucket`,
		`redis_operation_duration_seconds_count`,
		`crs_query_skipped_geometries_total `,
		`catalog_rows 120`,
		`catalog_skipped_rows 2`,
	}
	for _, s := range mustContain {
		if !strings.Contains(body, s) {
			t.Fatalf("expected metrics to contain %q;\n---\n%s", s, body)
		}
	}

	assertHasMetricLine(t, body, "crs_queries_total", `kind="point"`, `op="and"`, `outcome="ok"`)
	assertHasMetricLine(t, body, "crs_queries_total", `kind="bbox"`, `outcome="error"`)
	assertHasMetricLine(t, body, "catalog_reloads_total", `source="sqlite"`, `outcome="error"`)
	assertHasMetricLine(t, body, "result_cache_total", `tier="lru"`, `outcome="hit"`)
	assertHasMetricLine(t, body, "invalidation_events_total", `op="reload"`)
	assertHasMetricLine(t, body, "app_build_info", `version="test"`)
	assertHasMetricLine(t, body, "crsfinder_build_info", `version="test"`)
}
