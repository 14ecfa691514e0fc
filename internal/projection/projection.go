package projection

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

// Columns are the output column names in order.
var Columns = []string{
	"proj_table", "crs_name",
	"crs_auth_name", "crs_code",
	"usage_auth_name", "usage_code",
	"extent_auth_name", "extent_code",
	"south_lat", "north_lat", "west_lon", "east_lon",
	"bottom", "top", "left", "right",
	"unit", "area_sqkm",
}

// Record is the flat output form of a catalog row.
type Record struct {
	ProjTable      string   `json:"proj_table"`
	CrsName        string   `json:"crs_name"`
	CrsAuthName    string   `json:"crs_auth_name"`
	CrsCode        string   `json:"crs_code"`
	UsageAuthName  string   `json:"usage_auth_name"`
	UsageCode      string   `json:"usage_code"`
	ExtentAuthName string   `json:"extent_auth_name"`
	ExtentCode     string   `json:"extent_code"`
	SouthLat       float64  `json:"south_lat"`
	NorthLat       float64  `json:"north_lat"`
	WestLon        float64  `json:"west_lon"`
	EastLon        float64  `json:"east_lon"`
	Bottom         *float64 `json:"bottom"`
	Top            *float64 `json:"top"`
	Left           *float64 `json:"left"`
	Right          *float64 `json:"right"`
	Unit           string   `json:"unit"`
	AreaSqkm       float64  `json:"area_sqkm"`
}

func Records(rows []model.CrsBBox) []Record {
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = Record(r)
	}
	return out
}

// SRIDs returns AUTH:CODE for each row, keeping order and repeats.
func SRIDs(rows []model.CrsBBox) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.SRID()
	}
	return out
}

func (r Record) fields() []string {
	return []string{
		r.ProjTable, r.CrsName,
		r.CrsAuthName, r.CrsCode,
		r.UsageAuthName, r.UsageCode,
		r.ExtentAuthName, r.ExtentCode,
		ftoa(r.SouthLat), ftoa(r.NorthLat), ftoa(r.WestLon), ftoa(r.EastLon),
		optf(r.Bottom), optf(r.Top), optf(r.Left), optf(r.Right),
		r.Unit, ftoa(r.AreaSqkm),
	}
}

type Options struct {
	Separator string
	Header    bool
}

// Write encodes rows to w in format f.
func Write(w io.Writer, f Format, rows []model.CrsBBox, opts Options) error {
	switch f {
	case FormatGeoJSON:
		return WriteGeoJSON(w, rows)
	case FormatCSV:
		return WriteCSV(w, rows, opts.Header)
	case FormatPlain:
		return WritePlain(w, rows, opts)
	case FormatSRID:
		return WriteSRIDs(w, rows)
	default:
		return WriteJSON(w, rows)
	}
}

// WriteJSON writes a JSON array of records. No rows encode as [].
func WriteJSON(w io.Writer, rows []model.CrsBBox) error {
	if err := json.NewEncoder(w).Encode(Records(rows)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteCSV writes RFC 4180 CSV. CRS names may contain commas and are quoted.
func WriteCSV(w io.Writer, rows []model.CrsBBox, header bool) error {
	cw := csv.NewWriter(w)
	if header && len(rows) > 0 {
		if err := cw.Write(Columns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	for _, r := range Records(rows) {
		if err := cw.Write(r.fields()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePlain joins columns with the separator, one row per line, without
// quoting. Nothing is written for no rows.
func WritePlain(w io.Writer, rows []model.CrsBBox, opts Options) error {
	sep := Separator(opts.Separator)
	var b strings.Builder
	if opts.Header && len(rows) > 0 {
		b.WriteString(strings.Join(Columns, sep))
		b.WriteByte('\n')
	}
	for _, r := range Records(rows) {
		b.WriteString(strings.Join(r.fields(), sep))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func WriteSRIDs(w io.Writer, rows []model.CrsBBox) error {
	var b strings.Builder
	for _, s := range SRIDs(rows) {
		b.WriteString(s)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteGeoJSON writes a FeatureCollection with one feature per row. Extents
// crossing the antimeridian become a MultiPolygon split at 180.
func WriteGeoJSON(w io.Writer, rows []model.CrsBBox) error {
	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		f := geojson.NewFeature(ExtentGeometry(r.Extent()))
		f.ID = r.SRID()
		f.Properties["srid"] = r.SRID()
		f.Properties["crs_name"] = r.CrsName
		f.Properties["proj_table"] = r.ProjTable
		f.Properties["usage"] = r.UsageAuthName + ":" + r.UsageCode
		f.Properties["extent"] = r.ExtentAuthName + ":" + r.ExtentCode
		f.Properties["unit"] = r.Unit
		f.Properties["area_sqkm"] = r.AreaSqkm
		fc.Append(f)
	}
	b, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal FeatureCollection: %w", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// ExtentGeometry returns an extent as a polygon, or as two polygons when it
// crosses the antimeridian. west == east is the full circle.
func ExtentGeometry(b model.BBox) orb.Geometry {
	ring := func(w, e float64) orb.Polygon {
		return orb.Bound{Min: orb.Point{w, b.South}, Max: orb.Point{e, b.North}}.ToPolygon()
	}
	switch {
	case b.West == b.East:
		return ring(-180, 180)
	case b.West > b.East:
		return orb.MultiPolygon{ring(b.West, 180), ring(-180, b.East)}
	default:
		return ring(b.West, b.East)
	}
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func optf(f *float64) string {
	if f == nil {
		return ""
	}
	return ftoa(*f)
}
