package geometry

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

// FromGeoJSON converts a GeoJSON Geometry, Feature or FeatureCollection into
// query geometries. Points and MultiPoints become points, LineStrings and
// polygon outer rings become polys, and a feature's bbox member becomes a
// bbox. GeoJSON positions are lon,lat; with coords xy they are taken as
// planar x,y.
func FromGeoJSON(raw []byte, coords model.CoordSys) ([]model.Geometry, error) {
	if coords == "" {
		coords = model.LatLon
	}
	var hdr struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &hdr); err != nil {
		return nil, fmt.Errorf("%w: geojson: %v", ErrParse, err)
	}

	switch hdr.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: geojson: %v", ErrParse, err)
		}
		var out []model.Geometry
		for _, f := range fc.Features {
			out = append(out, fromFeature(f, coords)...)
		}
		return out, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: geojson: %v", ErrParse, err)
		}
		return fromFeature(f, coords), nil
	default:
		g, err := geojson.UnmarshalGeometry(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: geojson: %v", ErrParse, err)
		}
		return fromOrb(g.Geometry(), coords), nil
	}
}

func fromFeature(f *geojson.Feature, coords model.CoordSys) []model.Geometry {
	if len(f.BBox) == 4 {
		return []model.Geometry{boundGeometry(f.BBox.Bound(), coords)}
	}
	if f.Geometry == nil {
		return nil
	}
	return fromOrb(f.Geometry, coords)
}

func fromOrb(g orb.Geometry, coords model.CoordSys) []model.Geometry {
	switch g := g.(type) {
	case orb.Point:
		return []model.Geometry{pointGeometry(g, coords)}
	case orb.MultiPoint:
		out := make([]model.Geometry, 0, len(g))
		for _, p := range g {
			out = append(out, pointGeometry(p, coords))
		}
		return out
	case orb.LineString:
		return []model.Geometry{polyGeometry(g, coords)}
	case orb.MultiLineString:
		out := make([]model.Geometry, 0, len(g))
		for _, ls := range g {
			out = append(out, polyGeometry(ls, coords))
		}
		return out
	case orb.Polygon:
		if len(g) == 0 {
			return nil
		}
		return []model.Geometry{polyGeometry(openRing(g[0]), coords)}
	case orb.MultiPolygon:
		out := make([]model.Geometry, 0, len(g))
		for _, p := range g {
			if len(p) > 0 {
				out = append(out, polyGeometry(openRing(p[0]), coords))
			}
		}
		return out
	case orb.Collection:
		var out []model.Geometry
		for _, c := range g {
			out = append(out, fromOrb(c, coords)...)
		}
		return out
	case orb.Bound:
		return []model.Geometry{boundGeometry(g, coords)}
	default:
		return nil
	}
}

func pointGeometry(p orb.Point, coords model.CoordSys) model.Geometry {
	g := model.Geometry{Kind: model.KindPoint, Coords: coords}
	if coords == model.XY {
		g.XY = p
	} else {
		g.Point = model.Point{Lat: p[1], Lon: p[0]}
	}
	return g
}

func polyGeometry(ps []orb.Point, coords model.CoordSys) model.Geometry {
	g := model.Geometry{Kind: model.KindPoly, Coords: coords}
	if coords == model.XY {
		g.XYPoly = append([]orb.Point(nil), ps...)
		return g
	}
	g.Poly = make([]model.Point, len(ps))
	for i, p := range ps {
		g.Poly[i] = model.Point{Lat: p[1], Lon: p[0]}
	}
	return g
}

// boundGeometry keeps west > east as written so an antimeridian bbox member
// stays one box.
func boundGeometry(b orb.Bound, coords model.CoordSys) model.Geometry {
	g := model.Geometry{Kind: model.KindBBox, Coords: coords}
	if coords == model.XY {
		g.XYBound = b
	} else {
		g.BBox = model.BBox{South: b.Min[1], North: b.Max[1], West: b.Min[0], East: b.Max[0]}
	}
	return g
}

func openRing(r orb.Ring) []orb.Point {
	if len(r) > 1 && r[0] == r[len(r)-1] {
		return r[:len(r)-1]
	}
	return r
}
