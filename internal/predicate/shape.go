package predicate

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
)

// Shape is a validated geometry ready for evaluation. Polygons are already
// reduced to their bounding box.
type Shape struct {
	coords  model.CoordSys
	isPoint bool

	point model.Point
	bbox  model.BBox

	xy      orb.Point
	xyBound orb.Bound
}

// Compile validates g and reduces polygons. Errors wrap geometry.ErrParse,
// geometry.ErrValidation or model.ErrInvalidMode.
func Compile(g model.Geometry) (Shape, error) {
	if err := geometry.Validate(g); err != nil {
		return Shape{}, err
	}
	s := Shape{coords: g.Coords}
	if s.coords == "" {
		s.coords = model.LatLon
	}

	switch {
	case s.coords == model.XY && g.Kind == model.KindPoint:
		s.isPoint, s.xy = true, g.XY
	case s.coords == model.XY && g.Kind == model.KindBBox:
		s.xyBound = g.XYBound
	case s.coords == model.XY:
		b, err := geometry.ReduceXY(g.XYPoly)
		if err != nil {
			return Shape{}, err
		}
		s.xyBound = b
	case g.Kind == model.KindPoint:
		s.isPoint, s.point = true, g.Point
	case g.Kind == model.KindBBox:
		s.bbox = g.BBox
	case g.Kind == model.KindPoly:
		b, err := geometry.ReducePoly(g.Poly)
		if err != nil {
			return Shape{}, err
		}
		s.bbox = b
	default:
		return Shape{}, fmt.Errorf("%w: geometry type %q", model.ErrInvalidMode, g.Kind)
	}
	return s, nil
}

func (s Shape) Coords() model.CoordSys { return s.coords }

// Contains reports whether row's extent contains the shape. Planar shapes
// never match rows without a planar extent.
func (s Shape) Contains(row model.CrsBBox) bool {
	if s.coords == model.XY {
		ext, ok := row.PlanarExtent()
		if !ok {
			return false
		}
		if s.isPoint {
			return PointInXY(s.xy, ext)
		}
		return BoundInXY(s.xyBound, ext)
	}
	if s.isPoint {
		return PointInBBox(s.point, row.Extent())
	}
	return BBoxInBBox(s.bbox, row.Extent())
}

// Anchor returns a lat/lon position that every matching extent must contain.
// For a point it is the point itself; for a box it is the south-west corner.
// Planar shapes have no anchor.
func (s Shape) Anchor() (model.Point, bool) {
	if s.coords == model.XY {
		return model.Point{}, false
	}
	if s.isPoint {
		return s.point, true
	}
	return model.Point{Lat: s.bbox.South, Lon: s.bbox.West}, true
}
