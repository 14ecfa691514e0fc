package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type ReloadCfg struct {
	Enabled bool
	Topic   string
	Brokers string
	GroupID string
}

type Config struct {
	Addr        string
	LogLevel    string
	LogConsole  bool
	LogSampleN  int
	CORSOrigins []string

	CatalogName   string
	CatalogDriver string
	CatalogPath   string
	CatalogPGDSN  string
	CatalogPGTbl  string
	CatalogIndex  bool

	QueryORWorkers     int
	QueryTimeout       time.Duration
	QueryMaxGeometries int

	CacheEnabled   bool
	RedisAddr      string
	CacheTTL       time.Duration
	CacheLRUSize   int
	CacheOpTimeout time.Duration
	CacheAdaptive  bool
	CacheTTLHot    time.Duration

	H3Res           int
	HotHalfLife     time.Duration
	HotThreshold    float64
	HotspotsEnabled bool
	// Cells decayed below HotPruneBelow are dropped every HotPruneEvery.
	HotPruneBelow float64
	HotPruneEvery time.Duration

	KafkaBrokers    string
	QueryEventTopic string
	Reload          ReloadCfg

	MetricsEnabled bool
	MetricsAddr    string
	MetricsPath    string
}

func FromEnv() Config {
	res := getint("H3_RES", 5)
	if res < 0 {
		res = 0
	}
	if res > 15 {
		res = 15
	}
	brokers := getenv("KAFKA_BROKERS", "localhost:9092")

	return Config{
		Addr:        getenv("ADDR", ":8090"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		LogConsole:  getbool("LOG_CONSOLE", false),
		LogSampleN:  getint("LOG_SAMPLE_N", 0),
		CORSOrigins: splitCSV(getenv("CORS_ORIGINS", "*")),

		CatalogName:   getenv("CATALOG_NAME", "projpicker"),
		CatalogDriver: strings.ToLower(getenv("CATALOG_DRIVER", "sqlite")),
		CatalogPath:   getenv("CATALOG_PATH", "projpicker.db"),
		CatalogPGDSN:  getenv("CATALOG_PG_DSN", "postgres://localhost:5432/crsfinder"),
		CatalogPGTbl:  getenv("CATALOG_PG_TABLE", "crs_bbox"),
		CatalogIndex:  strings.ToLower(getenv("CATALOG_INDEX", "rtree")) == "rtree",

		QueryORWorkers:     getint("QUERY_OR_WORKERS", 4),
		QueryTimeout:       getduration("QUERY_TIMEOUT", 5*time.Second),
		QueryMaxGeometries: getint("QUERY_MAX_GEOMETRIES", 1000),

		CacheEnabled:   getbool("CACHE_ENABLED", true),
		RedisAddr:      getenv("REDIS_ADDR", ""),
		CacheTTL:       getduration("CACHE_TTL", 10*time.Minute),
		CacheLRUSize:   getint("CACHE_LRU_SIZE", 1024),
		CacheOpTimeout: getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
		CacheAdaptive:  getbool("CACHE_ADAPTIVE", false),
		CacheTTLHot:    getduration("CACHE_TTL_HOT", time.Hour),

		H3Res:           res,
		HotHalfLife:     getduration("HOT_HALF_LIFE", time.Minute),
		HotThreshold:    getfloat("HOT_THRESHOLD", 5),
		HotspotsEnabled: getbool("HOTSPOTS_ENABLED", true),
		HotPruneBelow:   getfloat("HOT_PRUNE_BELOW", 0.01),
		HotPruneEvery:   getduration("HOT_PRUNE_EVERY", time.Minute),

		KafkaBrokers:    brokers,
		QueryEventTopic: getenv("KAFKA_QUERY_TOPIC", ""),
		Reload: ReloadCfg{
			Enabled: getbool("RELOAD_ENABLED", false),
			Topic:   getenv("KAFKA_RELOAD_TOPIC", "crs-catalog"),
			Brokers: brokers,
			GroupID: getenv("KAFKA_GROUP_ID", "crsfinder-reload"),
		},

		MetricsEnabled: getbool("METRICS_ENABLED", false),
		MetricsAddr:    getenv("METRICS_ADDR", ":9090"),
		MetricsPath:    getenv("METRICS_PATH", "/metrics"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
