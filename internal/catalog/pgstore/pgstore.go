// Package pgstore keeps the CRS catalog in a Postgres table.
package pgstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mohammed-shakir/crsfinder/internal/catalog"
	"github.com/mohammed-shakir/crsfinder/internal/core/config"
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

// Querier is the subset of *pgxpool.Pool the store uses.
type Querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var columns = []string{
	"proj_table", "crs_name",
	"crs_auth_name", "crs_code",
	"usage_auth_name", "usage_code",
	"extent_auth_name", "extent_code",
	"south_lat", "north_lat", "west_lon", "east_lon",
	"bottom", "top", "left", "right",
	"unit", "area_sqkm",
}

type Store struct {
	q     Querier
	table pgx.Identifier
	close func()
}

// New wraps an existing pool or transaction-capable querier.
func New(q Querier, table string) *Store {
	return &Store{q: q, table: identifier(table), close: func() {}}
}

// Connect opens a pool for dsn and pings it.
func Connect(ctx context.Context, dsn, table string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	s := New(pool, table)
	s.close = pool.Close
	return s, nil
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Close() { s.close() }

type pgRow struct {
	ProjTable      string   `db:"proj_table"`
	CrsName        *string  `db:"crs_name"`
	CrsAuthName    string   `db:"crs_auth_name"`
	CrsCode        string   `db:"crs_code"`
	UsageAuthName  string   `db:"usage_auth_name"`
	UsageCode      string   `db:"usage_code"`
	ExtentAuthName string   `db:"extent_auth_name"`
	ExtentCode     string   `db:"extent_code"`
	SouthLat       float64  `db:"south_lat"`
	NorthLat       float64  `db:"north_lat"`
	WestLon        float64  `db:"west_lon"`
	EastLon        float64  `db:"east_lon"`
	Bottom         *float64 `db:"bottom"`
	Top            *float64 `db:"top"`
	Left           *float64 `db:"left"`
	Right          *float64 `db:"right"`
	Unit           string   `db:"unit"`
	AreaSqkm       float64  `db:"area_sqkm"`
}

func (r pgRow) toModel() model.CrsBBox {
	out := model.CrsBBox{
		ProjTable:      r.ProjTable,
		CrsAuthName:    r.CrsAuthName,
		CrsCode:        r.CrsCode,
		UsageAuthName:  r.UsageAuthName,
		UsageCode:      r.UsageCode,
		ExtentAuthName: r.ExtentAuthName,
		ExtentCode:     r.ExtentCode,
		SouthLat:       r.SouthLat,
		NorthLat:       r.NorthLat,
		WestLon:        r.WestLon,
		EastLon:        r.EastLon,
		Bottom:         r.Bottom,
		Top:            r.Top,
		Left:           r.Left,
		Right:          r.Right,
		Unit:           r.Unit,
		AreaSqkm:       r.AreaSqkm,
	}
	if r.CrsName != nil {
		out.CrsName = *r.CrsName
	}
	return out
}

func (s *Store) Load(ctx context.Context) ([]model.CrsBBox, error) {
	rows, err := s.q.Query(ctx, selectSQL(s.table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table.Sanitize(), err)
	}
	got, err := pgx.CollectRows(rows, pgx.RowToStructByName[pgRow])
	if err != nil {
		return nil, fmt.Errorf("collect rows: %w", err)
	}
	out := make([]model.CrsBBox, len(got))
	for i, r := range got {
		out[i] = r.toModel()
	}
	return out, nil
}

// EnsureSchema creates the catalog table when it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, createSQL(s.table)); err != nil {
		return fmt.Errorf("create %s: %w", s.table.Sanitize(), err)
	}
	return nil
}

// Replace swaps the table contents for rows in one transaction.
func (s *Store) Replace(ctx context.Context, rows []model.CrsBBox) (int64, error) {
	tx, err := s.q.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "TRUNCATE "+s.table.Sanitize()); err != nil {
		return 0, fmt.Errorf("truncate: %w", err)
	}
	n, err := tx.CopyFrom(ctx, s.table, columns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return copyValues(rows[i]), nil
	}))
	if err != nil {
		return 0, fmt.Errorf("copy rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func copyValues(r model.CrsBBox) []any {
	var name *string
	if r.CrsName != "" {
		name = &r.CrsName
	}
	return []any{
		r.ProjTable, name,
		r.CrsAuthName, r.CrsCode,
		r.UsageAuthName, r.UsageCode,
		r.ExtentAuthName, r.ExtentCode,
		r.SouthLat, r.NorthLat, r.WestLon, r.EastLon,
		r.Bottom, r.Top, r.Left, r.Right,
		r.Unit, r.AreaSqkm,
	}
}

func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

func selectSQL(table pgx.Identifier) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return "SELECT " + strings.Join(quoted, ", ") + " FROM " + table.Sanitize() +
		" ORDER BY area_sqkm, proj_table, crs_auth_name, crs_code," +
		" usage_auth_name, usage_code, extent_auth_name, extent_code"
}

func createSQL(table pgx.Identifier) string {
	return `CREATE TABLE IF NOT EXISTS ` + table.Sanitize() + ` (
    proj_table TEXT NOT NULL CHECK (length(proj_table) >= 1),
    crs_name TEXT,
    crs_auth_name TEXT NOT NULL CHECK (length(crs_auth_name) >= 1),
    crs_code TEXT NOT NULL CHECK (length(crs_code) >= 1),
    usage_auth_name TEXT NOT NULL CHECK (length(usage_auth_name) >= 1),
    usage_code TEXT NOT NULL CHECK (length(usage_code) >= 1),
    extent_auth_name TEXT NOT NULL CHECK (length(extent_auth_name) >= 1),
    extent_code TEXT NOT NULL CHECK (length(extent_code) >= 1),
    south_lat DOUBLE PRECISION CHECK (south_lat BETWEEN -90 AND 90),
    north_lat DOUBLE PRECISION CHECK (north_lat BETWEEN -90 AND 90),
    west_lon DOUBLE PRECISION CHECK (west_lon BETWEEN -180 AND 180),
    east_lon DOUBLE PRECISION CHECK (east_lon BETWEEN -180 AND 180),
    bottom DOUBLE PRECISION,
    top DOUBLE PRECISION,
    "left" DOUBLE PRECISION,
    "right" DOUBLE PRECISION,
    unit TEXT NOT NULL CHECK (length(unit) >= 2),
    area_sqkm DOUBLE PRECISION CHECK (area_sqkm > 0),
    PRIMARY KEY (
        crs_auth_name, crs_code,
        usage_auth_name, usage_code,
        extent_auth_name, extent_code
    ),
    CHECK (south_lat <= north_lat)
)`
}

func init() {
	catalog.Register("postgres", func(ctx context.Context, cfg config.Config, logger *slog.Logger) (catalog.Provider, error) {
		s, err := Connect(ctx, cfg.CatalogPGDSN, cfg.CatalogPGTbl)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			logger.Info("postgres catalog connected", "table", s.table.Sanitize())
		}
		return s, nil
	})
}
