package main

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
)

func TestMakePool_ParsesAsQueries(t *testing.T) {
	pool := makePool(64, 0.5, rand.New(rand.NewSource(7)))
	if len(pool) != 64 {
		t.Fatalf("pool=%d", len(pool))
	}
	var boxes int
	for _, w := range pool {
		kind, err := model.ParseGeomKind(w.Kind)
		if err != nil {
			t.Fatalf("kind %q: %v", w.Kind, err)
		}
		_, warns, err := geometry.ParseGeometries(kind, model.LatLon, geometry.Texts(w.Geom))
		if err != nil || len(warns) != 0 {
			t.Fatalf("%s %q: warns=%v err=%v", w.Kind, w.Geom, warns, err)
		}
		if kind == model.KindBBox {
			boxes++
		}
	}
	if boxes == 0 || boxes == len(pool) {
		t.Fatalf("bbox share not mixed: %d of %d", boxes, len(pool))
	}
}

func TestPercentile(t *testing.T) {
	v := []float64{1, 2, 3, 4, 5}
	if percentile(v, 50) != 3 || percentile(v, 0) != 1 || percentile(v, 100) != 5 || percentile(nil, 50) != 0 {
		t.Fatalf("percentile mismatch")
	}
	if got := percentile(v, 25); got != 2 {
		t.Fatalf("p25=%v", got)
	}
}

func TestRun_CountsCacheTiers(t *testing.T) {
	var n atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("geom") == "" {
			http.Error(w, "missing geom", http.StatusBadRequest)
			return
		}
		if n.Add(1)%2 == 0 {
			w.Header().Set("X-Cache", "lru")
		} else {
			w.Header().Set("X-Cache", "miss")
		}
		_, _ = w.Write([]byte("EPSG:4326\n"))
	}))
	defer srv.Close()

	cfg := Config{
		TargetURL:      srv.URL + "/query",
		Concurrency:    2,
		Duration:       150 * time.Millisecond,
		ZipfS:          1.3,
		ZipfV:          1,
		PoolSize:       16,
		RequestTimeout: time.Second,
		Seed:           1,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := run(context.Background(), cfg, log); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n.Load() == 0 {
		t.Fatalf("no requests reached the server")
	}
}

func TestAggregator_HitRatio(t *testing.T) {
	var sb strings.Builder
	a := newAggregator(&sb)
	a.add(sample{Status: 200, Cache: "miss", Latency: time.Millisecond})
	a.add(sample{Status: 200, Cache: "lru", Latency: time.Millisecond})
	a.add(sample{Status: 200, Cache: "redis", Latency: time.Millisecond})
	a.add(sample{Status: 500, ErrorMsg: "status=500"})
	s := a.summarize(time.Unix(0, 0), time.Unix(1, 0))
	if s.TotalRequests != 4 || s.ErrorCount != 1 || s.HitRatio < 0.66 || s.HitRatio > 0.67 {
		t.Fatalf("summary=%+v", s)
	}
	if lines := strings.Count(sb.String(), "\n"); lines != 5 {
		t.Fatalf("csv lines=%d", lines)
	}
}
