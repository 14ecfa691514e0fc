// Command loadgen drives /query with a skewed mix of point and bbox queries
// and reports latency percentiles and cache tier ratios.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/crsfinder/internal/logger"
)

type Config struct {
	TargetURL      string
	Concurrency    int
	Duration       time.Duration
	ZipfS          float64
	ZipfV          float64
	PoolSize       int
	BBoxShare      float64
	OutputPrefix   string
	RequestTimeout time.Duration
	Seed           int64
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.TargetURL, "target", "http://localhost:8090/query", "crsfinder /query URL")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.PoolSize, "pool", 256, "distinct queries in the pool")
	flag.Float64Var(&cfg.BBoxShare, "bbox-share", 0.25, "fraction of bbox queries in the pool")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/loadgen", "output file prefix, empty for none")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "per-request timeout")
	flag.Int64Var(&cfg.Seed, "seed", 0, "workload seed, 0 for time based")
	flag.Parse()
	return cfg
}

// hot query locations, lat/lon
var centers = [][2]float64{
	{34.2348, -83.8677},  // Athens, GA
	{21.3069, -157.8583}, // Honolulu
	{59.3293, 18.0686},   // Stockholm
	{-18.1416, 178.4419}, // Suva, next to the antimeridian
	{35.6762, 139.6503},  // Tokyo
}

// workItem is one query in the pool.
type workItem struct {
	Kind string
	Geom string
}

func (w workItem) values() url.Values {
	v := url.Values{}
	v.Set("type", w.Kind)
	v.Set("geom", w.Geom)
	v.Set("format", "srid")
	return v
}

// makePool builds count queries. A quarter sit near the hot centers, the rest
// are spread over the globe.
func makePool(count int, bboxShare float64, r *rand.Rand) []workItem {
	pool := make([]workItem, 0, count)
	hot := max(len(centers), count/4)
	for len(pool) < count {
		var lat, lon float64
		if len(pool) < hot {
			c := centers[len(pool)%len(centers)]
			lat, lon = c[0]+(r.Float64()-0.5)*0.2, c[1]+(r.Float64()-0.5)*0.2
		} else {
			lat, lon = -80+r.Float64()*160, -180+r.Float64()*360
		}
		lon = wrapLon(lon)
		if r.Float64() < bboxShare {
			h := 0.05 + r.Float64()*0.5
			s, n := math.Max(lat-h, -90), math.Min(lat+h, 90)
			w, e := wrapLon(lon-h), wrapLon(lon+h)
			pool = append(pool, workItem{Kind: "bbox", Geom: fmt.Sprintf("%.5f,%.5f,%.5f,%.5f", s, n, w, e)})
			continue
		}
		pool = append(pool, workItem{Kind: "point", Geom: fmt.Sprintf("%.5f,%.5f", lat, lon)})
	}
	return pool
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}

// sample is one request outcome.
type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	Cache     string
	ErrorMsg  string
	Index     int
}

type summary struct {
	StartTime     time.Time        `json:"start"`
	EndTime       time.Time        `json:"end"`
	DurationSec   float64          `json:"duration_sec"`
	TotalRequests int64            `json:"total"`
	SuccessCount  int64            `json:"success"`
	ErrorCount    int64            `json:"errors"`
	ThroughputRPS float64          `json:"throughput_rps"`
	P50Ms         float64          `json:"p50_ms"`
	P95Ms         float64          `json:"p95_ms"`
	P99Ms         float64          `json:"p99_ms"`
	CacheTiers    map[string]int64 `json:"cache_tiers"`
	HitRatio      float64          `json:"hit_ratio"`
	Concurrency   int              `json:"concurrency"`
	ZipfS         float64          `json:"zipf_s"`
	ZipfV         float64          `json:"zipf_v"`
	Pool          int              `json:"pool"`
	TargetURL     string           `json:"target"`
}

// aggregator folds samples into a summary and optionally mirrors them to CSV.
type aggregator struct {
	total, success, errors int64
	tiers                  map[string]int64
	latMs                  []float64
	csv                    *csv.Writer
}

func newAggregator(w io.Writer) *aggregator {
	a := &aggregator{tiers: map[string]int64{}}
	if w != nil {
		a.csv = csv.NewWriter(w)
		_ = a.csv.Write([]string{"timestamp", "latency_ms", "status", "cache", "error", "idx"})
	}
	return a
}

func (a *aggregator) add(s sample) {
	a.total++
	ms := float64(s.Latency.Microseconds()) / 1000.0
	if s.ErrorMsg == "" && s.Status >= 200 && s.Status < 300 {
		a.success++
		a.latMs = append(a.latMs, ms)
		a.tiers[s.Cache]++
	} else {
		a.errors++
	}
	if a.csv != nil {
		_ = a.csv.Write([]string{
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(ms, 'f', 3, 64),
			strconv.Itoa(s.Status),
			s.Cache,
			s.ErrorMsg,
			strconv.Itoa(s.Index),
		})
	}
}

func (a *aggregator) summarize(start, end time.Time) summary {
	if a.csv != nil {
		a.csv.Flush()
	}
	sort.Float64s(a.latMs)
	elapsed := end.Sub(start).Seconds()
	var hits int64
	for tier, n := range a.tiers {
		if tier != "" && tier != "miss" {
			hits += n
		}
	}
	s := summary{
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		DurationSec:   elapsed,
		TotalRequests: a.total,
		SuccessCount:  a.success,
		ErrorCount:    a.errors,
		P50Ms:         percentile(a.latMs, 50),
		P95Ms:         percentile(a.latMs, 95),
		P99Ms:         percentile(a.latMs, 99),
		CacheTiers:    a.tiers,
	}
	if elapsed > 0 {
		s.ThroughputRPS = float64(a.total) / elapsed
	}
	if a.success > 0 {
		s.HitRatio = float64(hits) / float64(a.success)
	}
	return s
}

func main() {
	cfg := loadConfig()
	zl := logger.Build(logger.Config{Level: "info", Console: true, Component: "loadgen"}, os.Stderr)
	log := logger.NewSlog(&zl)
	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("loadgen failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	target, err := url.Parse(cfg.TargetURL)
	if err != nil {
		return fmt.Errorf("target url: %w", err)
	}
	if cfg.PoolSize <= 0 || cfg.Concurrency <= 0 {
		return errors.New("pool and concurrency must be positive")
	}
	if cfg.ZipfS <= 1 || cfg.ZipfV < 1 {
		return errors.New("zipf-s must be > 1 and zipf-v >= 1")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	pool := makePool(cfg.PoolSize, cfg.BBoxShare, rand.New(rand.NewSource(seed)))

	var samplesOut io.Writer
	prefix := ""
	if cfg.OutputPrefix != "" {
		prefix = fmt.Sprintf("%s_%s", cfg.OutputPrefix, time.Now().UTC().Format("20060102_150405Z"))
		if err := os.MkdirAll(filepath.Dir(prefix), 0o750); err != nil {
			return fmt.Errorf("mkdir results: %w", err)
		}
		f, err := os.Create(filepath.Clean(prefix + "_samples.csv"))
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer func() { _ = f.Close() }()
		samplesOut = f
	}

	client := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        1024,
			MaxIdleConnsPerHost: 256,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	samples := make(chan sample, 4096)
	agg := newAggregator(samplesOut)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s := range samples {
			agg.add(s)
		}
	}()

	log.Info("loadgen start", "target", cfg.TargetURL, "duration", cfg.Duration,
		"concurrency", cfg.Concurrency, "pool", len(pool), "seed", seed)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	imax := uint64(len(pool) - 1)
	for id := range cfg.Concurrency {
		g.Go(func() error {
			zipf := rand.NewZipf(rand.New(rand.NewSource(seed+int64(id)+1)), cfg.ZipfS, cfg.ZipfV, imax)
			for gctx.Err() == nil {
				idx := int(zipf.Uint64())
				s := fire(gctx, client, *target, pool[idx])
				s.Index = idx
				select {
				case samples <- s:
				case <-gctx.Done():
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	close(samples)
	<-done

	sum := agg.summarize(start, time.Now())
	sum.Concurrency, sum.ZipfS, sum.ZipfV, sum.Pool, sum.TargetURL = cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, len(pool), cfg.TargetURL

	if prefix != "" {
		f, err := os.Create(filepath.Clean(prefix + "_summary.json"))
		if err != nil {
			return fmt.Errorf("open summary: %w", err)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		_ = enc.Encode(sum)
		_ = f.Close()
	}
	log.Info("loadgen done", "total", sum.TotalRequests, "errors", sum.ErrorCount,
		"rps", sum.ThroughputRPS, "p50_ms", sum.P50Ms, "p95_ms", sum.P95Ms, "p99_ms", sum.P99Ms,
		"hit_ratio", sum.HitRatio)
	return nil
}

func fire(ctx context.Context, client *http.Client, target url.URL, w workItem) sample {
	target.RawQuery = w.values().Encode()
	s := sample{Timestamp: time.Now()}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	resp, err := client.Do(req)
	s.Latency = time.Since(s.Timestamp)
	if err != nil {
		s.ErrorMsg = err.Error()
		return s
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	s.Status = resp.StatusCode
	s.Cache = strings.TrimSpace(resp.Header.Get("X-Cache"))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
	}
	return s
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	k := (p / 100.0) * float64(len(sorted)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	d := k - f
	return sorted[i]*(1-d) + sorted[i+1]*d
}
