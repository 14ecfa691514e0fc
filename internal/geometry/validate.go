package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

func ValidatePoint(p model.Point) error {
	if !inRange(p.Lat, -90, 90) {
		return fmt.Errorf("%w: latitude %g outside [-90,90]", ErrParse, p.Lat)
	}
	if !inRange(p.Lon, -180, 180) {
		return fmt.Errorf("%w: longitude %g outside [-180,180]", ErrParse, p.Lon)
	}
	return nil
}

func ValidateBBox(b model.BBox) error {
	if !inRange(b.South, -90, 90) || !inRange(b.North, -90, 90) {
		return fmt.Errorf("%w: latitude outside [-90,90] in %s", ErrParse, b)
	}
	if !inRange(b.West, -180, 180) || !inRange(b.East, -180, 180) {
		return fmt.Errorf("%w: longitude outside [-180,180] in %s", ErrParse, b)
	}
	if b.South > b.North {
		return fmt.Errorf("%w: south %g greater than north %g", ErrValidation, b.South, b.North)
	}
	return nil
}

func validateXY(p orb.Point) error {
	if !finite(p[0]) || !finite(p[1]) {
		return fmt.Errorf("%w: non-finite coordinate", ErrParse)
	}
	return nil
}

func validateXYBound(b orb.Bound) error {
	if err := validateXY(b.Min); err != nil {
		return err
	}
	if err := validateXY(b.Max); err != nil {
		return err
	}
	if b.Min[1] > b.Max[1] {
		return fmt.Errorf("%w: bottom %g greater than top %g", ErrValidation, b.Min[1], b.Max[1])
	}
	return nil
}

// Validate checks a parsed geometry before it is evaluated. Polygons must
// have at least one vertex.
func Validate(g model.Geometry) error {
	switch g.Coords {
	case model.LatLon, "":
		switch g.Kind {
		case model.KindPoint:
			return ValidatePoint(g.Point)
		case model.KindBBox:
			return ValidateBBox(g.BBox)
		case model.KindPoly:
			if len(g.Poly) == 0 {
				return fmt.Errorf("%w: empty polygon", ErrValidation)
			}
			for _, p := range g.Poly {
				if err := ValidatePoint(p); err != nil {
					return err
				}
			}
			return nil
		}
	case model.XY:
		switch g.Kind {
		case model.KindPoint:
			return validateXY(g.XY)
		case model.KindBBox:
			return validateXYBound(g.XYBound)
		case model.KindPoly:
			if len(g.XYPoly) == 0 {
				return fmt.Errorf("%w: empty polygon", ErrValidation)
			}
			for _, p := range g.XYPoly {
				if err := validateXY(p); err != nil {
					return err
				}
			}
			return nil
		}
	default:
		return fmt.Errorf("%w: coordinate system %q", model.ErrInvalidMode, g.Coords)
	}
	return fmt.Errorf("%w: geometry type %q", model.ErrInvalidMode, g.Kind)
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
