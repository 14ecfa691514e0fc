// Package sqlitedb reads and writes the projpicker.db catalog format.
package sqlitedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mohammed-shakir/crsfinder/internal/catalog"
	"github.com/mohammed-shakir/crsfinder/internal/core/config"
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

const driverName = "sqlite"

// Schema is the bbox table layout of projpicker.db.
const Schema = `CREATE TABLE bbox (
    proj_table TEXT NOT NULL CHECK (length(proj_table) >= 1),
    crs_name TEXT NOT NULL CHECK (length(crs_name) >= 1),
    crs_auth_name TEXT NOT NULL CHECK (length(crs_auth_name) >= 1),
    crs_code TEXT NOT NULL CHECK (length(crs_code) >= 1),
    usage_auth_name TEXT NOT NULL CHECK (length(usage_auth_name) >= 1),
    usage_code TEXT NOT NULL CHECK (length(usage_code) >= 1),
    extent_auth_name TEXT NOT NULL CHECK (length(extent_auth_name) >= 1),
    extent_code TEXT NOT NULL CHECK (length(extent_code) >= 1),
    south_lat FLOAT CHECK (south_lat BETWEEN -90 AND 90),
    north_lat FLOAT CHECK (north_lat BETWEEN -90 AND 90),
    west_lon FLOAT CHECK (west_lon BETWEEN -180 AND 180),
    east_lon FLOAT CHECK (east_lon BETWEEN -180 AND 180),
    bottom FLOAT,
    top FLOAT,
    left FLOAT,
    right FLOAT,
    unit TEXT NOT NULL CHECK (length(unit) >= 2),
    area_sqkm FLOAT CHECK (area_sqkm > 0),
    CONSTRAINT pk_bbox PRIMARY KEY (
        crs_auth_name, crs_code,
        usage_auth_name, usage_code,
        extent_auth_name, extent_code
    ),
    CONSTRAINT check_bbox_lat CHECK (south_lat <= north_lat)
)`

// Columns lists the bbox columns in table order.
var Columns = []string{
	"proj_table", "crs_name",
	"crs_auth_name", "crs_code",
	"usage_auth_name", "usage_code",
	"extent_auth_name", "extent_code",
	"south_lat", "north_lat", "west_lon", "east_lon",
	"bottom", "top", "left", "right",
	"unit", "area_sqkm",
}

// older databases lack these; they read back as NULL
var optionalColumns = map[string]bool{
	"crs_name": true, "bottom": true, "top": true, "left": true, "right": true,
}

// Store is a catalog.Provider over a projpicker.db file. Each Load opens its
// own read-only connection.
type Store struct {
	path string
}

func New(path string) *Store { return &Store{path: path} }

func (s *Store) Name() string { return "sqlite" }

func (s *Store) Load(ctx context.Context) ([]model.CrsBBox, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("catalog file: %w", err)
	}
	db, err := sql.Open(driverName, s.path+"?_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer func() { _ = db.Close() }()

	have, err := tableColumns(ctx, db)
	if err != nil {
		return nil, err
	}
	sel := make([]string, len(Columns))
	for i, c := range Columns {
		switch {
		case have[c]:
			sel[i] = quote(c)
		case optionalColumns[c]:
			sel[i] = "NULL"
		default:
			return nil, fmt.Errorf("bbox table in %s lacks column %s", s.path, c)
		}
	}
	q := "SELECT " + strings.Join(sel, ", ") + ` FROM bbox
ORDER BY area_sqkm, proj_table, crs_auth_name, crs_code,
         usage_auth_name, usage_code, extent_auth_name, extent_code`

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query bbox: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CrsBBox
	for rows.Next() {
		var (
			r                        model.CrsBBox
			name                     sql.NullString
			bottom, top, left, right sql.NullFloat64
		)
		if err := rows.Scan(
			&r.ProjTable, &name,
			&r.CrsAuthName, &r.CrsCode,
			&r.UsageAuthName, &r.UsageCode,
			&r.ExtentAuthName, &r.ExtentCode,
			&r.SouthLat, &r.NorthLat, &r.WestLon, &r.EastLon,
			&bottom, &top, &left, &right,
			&r.Unit, &r.AreaSqkm,
		); err != nil {
			return nil, fmt.Errorf("scan bbox row: %w", err)
		}
		r.CrsName = name.String
		r.Bottom, r.Top, r.Left, r.Right = nullable(bottom), nullable(top), nullable(left), nullable(right)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bbox rows: %w", err)
	}
	return out, nil
}

// Write creates a projpicker.db at path holding rows. An existing file is
// replaced only when overwrite is set.
func Write(ctx context.Context, path string, rows []model.CrsBBox, overwrite bool) error {
	if _, err := os.Stat(path); err == nil {
		if !overwrite {
			return fmt.Errorf("%s: file already exists", path)
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO bbox VALUES (?"+strings.Repeat(", ?", len(Columns)-1)+")")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		name := r.CrsName
		if name == "" {
			name = r.SRID()
		}
		if _, err := stmt.ExecContext(ctx,
			r.ProjTable, name,
			r.CrsAuthName, r.CrsCode,
			r.UsageAuthName, r.UsageCode,
			r.ExtentAuthName, r.ExtentCode,
			r.SouthLat, r.NorthLat, r.WestLon, r.EastLon,
			r.Bottom, r.Top, r.Left, r.Right,
			r.Unit, r.AreaSqkm,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.SRID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func tableColumns(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT name FROM pragma_table_info('bbox')")
	if err != nil {
		return nil, fmt.Errorf("inspect bbox table: %w", err)
	}
	defer func() { _ = rows.Close() }()
	have := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		have[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(have) == 0 {
		return nil, errors.New("no bbox table")
	}
	return have, nil
}

// left and right are SQL keywords
func quote(col string) string { return `"` + col + `"` }

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func init() {
	catalog.Register("sqlite", func(_ context.Context, cfg config.Config, _ *slog.Logger) (catalog.Provider, error) {
		return New(cfg.CatalogPath), nil
	})
}
