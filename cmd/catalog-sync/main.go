// Command catalog-sync copies a projpicker.db into Postgres and tells running
// crsfinder instances to reload.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/crsfinder/internal/catalog"
	"github.com/mohammed-shakir/crsfinder/internal/catalog/pgstore"
	"github.com/mohammed-shakir/crsfinder/internal/catalog/sqlitedb"
	"github.com/mohammed-shakir/crsfinder/internal/core/config"
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/invalidation"
	"github.com/mohammed-shakir/crsfinder/internal/logger"
	"github.com/mohammed-shakir/crsfinder/pkg/invalidation/kafka"
)

type store interface {
	EnsureSchema(ctx context.Context) error
	Replace(ctx context.Context, rows []model.CrsBBox) (int64, error)
}

type publisher interface {
	Publish(ctx context.Context, ev invalidation.Event) (invalidation.Event, error)
}

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")
	cfg := config.FromEnv()

	src := flag.String("db", cfg.CatalogPath, "source projpicker database")
	dsn := flag.String("dsn", cfg.CatalogPGDSN, "target Postgres DSN")
	table := flag.String("table", cfg.CatalogPGTbl, "target table")
	notify := flag.Bool("notify", true, "publish a reload event after the copy")
	flag.Parse()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "catalog-sync",
	}, os.Stdout)
	log := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	rows, err := sqlitedb.New(*src).Load(ctx)
	if err != nil {
		log.Error("load source catalog", "path", *src, "err", err)
		return 1
	}

	pg, err := pgstore.Connect(ctx, *dsn, *table)
	if err != nil {
		log.Error("connect postgres", "err", err)
		return 1
	}
	defer pg.Close()

	var pub publisher
	if *notify {
		p, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:  kafka.Split(cfg.Reload.Brokers),
			Topic:    cfg.Reload.Topic,
			ClientID: "catalog-sync",
			Timeout:  10 * time.Second,
		}, log)
		if err != nil {
			log.Error("kafka publisher", "err", err)
			return 1
		}
		defer func() { _ = p.Close() }()
		pub = p
	}

	ev, err := syncCatalog(ctx, log, rows, pg, pub, cfg.CatalogName)
	if err != nil {
		log.Error("catalog sync failed", "err", err)
		return 1
	}
	log.Info("catalog synced", "rows", len(rows), "version", ev.Version, "event_id", ev.ID)
	return 0
}

// syncCatalog replaces the store contents with rows and, when pub is set,
// publishes a reload event carrying the new catalog version.
func syncCatalog(ctx context.Context, log *slog.Logger, rows []model.CrsBBox, st store, pub publisher, name string) (invalidation.Event, error) {
	snap, err := catalog.NewSnapshot(rows)
	if err != nil {
		return invalidation.Event{}, fmt.Errorf("validate rows: %w", err)
	}
	if n := len(snap.Skipped()); n > 0 {
		log.Warn("source rows skipped", "count", n)
	}
	if err := st.EnsureSchema(ctx); err != nil {
		return invalidation.Event{}, err
	}
	n, err := st.Replace(ctx, snap.Rows())
	if err != nil {
		return invalidation.Event{}, err
	}
	log.Info("rows copied", "rows", n)

	ev := invalidation.Event{
		Op:      invalidation.OpReload,
		Catalog: name,
		Version: snap.Version(),
		Source:  "catalog-sync",
	}
	if pub == nil {
		return ev, nil
	}
	return pub.Publish(ctx, ev)
}
