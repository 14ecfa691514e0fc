package geometry

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

// ReducePoly returns the bounding box of a polygon or polyline.
//
// Longitude is tracked against the previous vertex. While the sign does not
// change the box grows the ordinary way. A sign flip is taken to mean the
// path crossed the antimeridian, so the wrapped side of the box is extended
// instead. This is a heuristic: a path that crosses the prime meridian
// through 0 is not distinguished from one that crosses ±180.
func ReducePoly(poly []model.Point) (model.BBox, error) {
	if len(poly) == 0 {
		return model.BBox{}, fmt.Errorf("%w: empty polygon", ErrValidation)
	}
	first := poly[0]
	s, n := first.Lat, first.Lat
	w, e := first.Lon, first.Lon
	prev := first.Lon

	for _, p := range poly[1:] {
		lat, lon := p.Lat, p.Lon
		if lat < s {
			s = lat
		} else if lat > n {
			n = lat
		}

		if prev*lon >= 0 {
			if lon < w {
				w = lon
			} else if lon > e {
				e = lon
			}
		} else if lon < 0 && (e > 0 || lon > e) {
			e = lon
		} else if lon > 0 && (w < 0 || lon < w) {
			w = lon
		}
		prev = lon
	}
	return model.BBox{South: s, North: n, West: w, East: e}, nil
}

// ReduceXY returns the planar bound of a polygon. Planar coordinates do not
// wrap.
func ReduceXY(poly []orb.Point) (orb.Bound, error) {
	if len(poly) == 0 {
		return orb.Bound{}, fmt.Errorf("%w: empty polygon", ErrValidation)
	}
	return orb.MultiPoint(poly).Bound(), nil
}
