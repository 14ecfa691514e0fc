// Package catalogtest provides a small catalog for tests.
package catalogtest

import (
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
)

const (
	GeorgiaWest  = "EPSG:2240"
	ConusAlbers  = "EPSG:5070"
	NAVD88       = "EPSG:5703"
	NAD83        = "EPSG:4269"
	WGS84        = "EPSG:4326"
	HawaiiZone3  = "EPSG:3759"
	PDCMercator  = "EPSG:3832"
	UTM17N       = "EPSG:32617"
	FijiStrip    = "EPSG:3460"
	AthensLat    = 34.2348
	AthensLon    = -83.8677
	HonoluluLat  = 21.3069
	HonoluluLon  = -157.8583
	ContinentalS = 24.41
	ContinentalN = 49.38
	ContinentalW = -124.79
	ContinentalE = -66.91
)

// Row builds a catalog row and fills its area from the extent.
func Row(table, srid, name string, s, n, w, e float64, unit string) model.CrsBBox {
	auth, code := split(srid)
	r := model.CrsBBox{
		ProjTable:      table,
		CrsName:        name,
		CrsAuthName:    auth,
		CrsCode:        code,
		UsageAuthName:  "EPSG",
		UsageCode:      "1" + code,
		ExtentAuthName: "EPSG",
		ExtentCode:     "2" + code,
		SouthLat:       s,
		NorthLat:       n,
		WestLon:        w,
		EastLon:        e,
		Unit:           unit,
	}
	if a, err := geometry.Area(r.Extent()); err == nil {
		r.AreaSqkm = a
	}
	return r
}

// WithPlanar sets the projected extent of r.
func WithPlanar(r model.CrsBBox, bottom, top, left, right float64) model.CrsBBox {
	r.Bottom, r.Top, r.Left, r.Right = &bottom, &top, &left, &right
	return r
}

// Rows returns the fixture catalog in no particular order.
func Rows() []model.CrsBBox {
	return []model.CrsBBox{
		Row("geodetic_crs", WGS84, "WGS 84", -90, 90, -180, 180, "degree"),
		Row("projected_crs", HawaiiZone3, "NAD83(HARN) / Hawaii zone 3 (ftUS)", 18.87, 22.29, -160.3, -154.74, "US survey foot"),
		Row("geodetic_crs", NAD83, "NAD83", 14.92, 86.46, 167.65, -40.73, "degree"),
		Row("projected_crs", ConusAlbers, "NAD83 / Conus Albers", ContinentalS, ContinentalN, ContinentalW, ContinentalE, "metre"),
		Row("vertical_crs", NAVD88, "NAVD88 height", ContinentalS, ContinentalN, ContinentalW, ContinentalE, "metre"),
		Row("projected_crs", GeorgiaWest, "NAD83 / Georgia West (ftUS)", 30.62, 35.01, -85.61, -82.99, "US survey foot"),
		Row("projected_crs", PDCMercator, "WGS 84 / PDC Mercator", -60, 66.67, 98.69, -68, "metre"),
		WithPlanar(
			Row("projected_crs", UTM17N, "WGS 84 / UTM zone 17N", 0, 84, -84, -78, "metre"),
			0, 9329005.18, 166021.44, 833978.56),
		Row("projected_crs", FijiStrip, "Fiji 1986 / Fiji Map Grid", 0, 20, 170, -170, "metre"),
	}
}

func split(srid string) (string, string) {
	for i := 0; i < len(srid); i++ {
		if srid[i] == ':' {
			return srid[:i], srid[i+1:]
		}
	}
	return srid, ""
}
