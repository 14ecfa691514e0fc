// Package model defines core domain types shared across the service.
package model

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
)

// ErrInvalidMode is returned for an unknown geometry type, combinator or
// coordinate system. It is a caller bug, never a data problem.
var ErrInvalidMode = errors.New("invalid query mode")

// CrsBBox is one catalog row: a CRS usage together with its extent.
type CrsBBox struct {
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

// RowKey identifies a catalog row.
type RowKey struct {
	ProjTable      string
	CrsAuthName    string
	CrsCode        string
	UsageAuthName  string
	UsageCode      string
	ExtentAuthName string
	ExtentCode     string
}

func (b CrsBBox) Key() RowKey {
	return RowKey{
		ProjTable:      b.ProjTable,
		CrsAuthName:    b.CrsAuthName,
		CrsCode:        b.CrsCode,
		UsageAuthName:  b.UsageAuthName,
		UsageCode:      b.UsageCode,
		ExtentAuthName: b.ExtentAuthName,
		ExtentCode:     b.ExtentCode,
	}
}

// SRID returns the AUTH:CODE identifier of the row's CRS.
func (b CrsBBox) SRID() string {
	return b.CrsAuthName + ":" + b.CrsCode
}

// Extent returns the geographic extent in decimal degrees.
func (b CrsBBox) Extent() BBox {
	return BBox{South: b.SouthLat, North: b.NorthLat, West: b.WestLon, East: b.EastLon}
}

// PlanarExtent returns the projected extent; ok is false when any bound is
// missing.
func (b CrsBBox) PlanarExtent() (orb.Bound, bool) {
	if b.Bottom == nil || b.Top == nil || b.Left == nil || b.Right == nil {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{*b.Left, *b.Bottom},
		Max: orb.Point{*b.Right, *b.Top},
	}, true
}

func (b CrsBBox) Validate() error {
	ids := []struct{ name, v string }{
		{"proj_table", b.ProjTable},
		{"crs_auth_name", b.CrsAuthName},
		{"crs_code", b.CrsCode},
		{"usage_auth_name", b.UsageAuthName},
		{"usage_code", b.UsageCode},
		{"extent_auth_name", b.ExtentAuthName},
		{"extent_code", b.ExtentCode},
	}
	for _, id := range ids {
		if strings.TrimSpace(id.v) == "" {
			return fmt.Errorf("%s must not be empty", id.name)
		}
	}
	if !inRange(b.SouthLat, -90, 90) || !inRange(b.NorthLat, -90, 90) {
		return fmt.Errorf("%s: latitude out of range", b.SRID())
	}
	if b.SouthLat > b.NorthLat {
		return fmt.Errorf("%s: south_lat %g greater than north_lat %g", b.SRID(), b.SouthLat, b.NorthLat)
	}
	if !inRange(b.WestLon, -180, 180) || !inRange(b.EastLon, -180, 180) {
		return fmt.Errorf("%s: longitude out of range", b.SRID())
	}
	if len(b.Unit) < 2 {
		return fmt.Errorf("%s: unit %q too short", b.SRID(), b.Unit)
	}
	if !(b.AreaSqkm > 0) {
		return fmt.Errorf("%s: area_sqkm must be positive", b.SRID())
	}
	return nil
}

// Compare orders rows by area and then by identity, smallest first.
func Compare(a, b CrsBBox) int {
	return cmp.Or(
		cmp.Compare(a.AreaSqkm, b.AreaSqkm),
		strings.Compare(a.ProjTable, b.ProjTable),
		strings.Compare(a.CrsAuthName, b.CrsAuthName),
		strings.Compare(a.CrsCode, b.CrsCode),
		strings.Compare(a.UsageAuthName, b.UsageAuthName),
		strings.Compare(a.UsageCode, b.UsageCode),
		strings.Compare(a.ExtentAuthName, b.ExtentAuthName),
		strings.Compare(a.ExtentCode, b.ExtentCode),
	)
}

// MatchUnit reports whether row is selected by a unit filter. An empty
// filter or "any" selects every row.
func MatchUnit(unit string, row CrsBBox) bool {
	return unit == "" || unit == UnitAny || row.Unit == unit
}

const UnitAny = "any"

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}
