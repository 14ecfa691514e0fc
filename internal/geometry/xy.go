package geometry

import (
	"fmt"
	"regexp"

	"github.com/paulmach/orb"
)

const xyPat = `([+-]?` + posFloatPat + `)` + coorSepPat + `([+-]?` + posFloatPat + `)`

var (
	xyRE     = regexp.MustCompile(`^` + xyPat + `$`)
	xyBBoxRE = regexp.MustCompile(`^` + xyPat + coorSepPat + xyPat + `$`)
)

// ParseXY parses planar "x,y" text or a two-value numeric token.
func ParseXY(t Token) (orb.Point, error) {
	var p orb.Point
	switch {
	case t.Values != nil:
		if len(t.Values) != 2 {
			return orb.Point{}, fmt.Errorf("%w: point needs 2 values, got %d", ErrParse, len(t.Values))
		}
		p = orb.Point{t.Values[0], t.Values[1]}
	case t.Nested != nil:
		return orb.Point{}, fmt.Errorf("%w: nested list is not a point", ErrParse)
	default:
		m := xyRE.FindStringSubmatch(t.Text)
		if m == nil {
			return orb.Point{}, fmt.Errorf("%w: %q", ErrParse, t.Text)
		}
		p = orb.Point{atof(m[1]), atof(m[2])}
	}
	if err := validateXY(p); err != nil {
		return orb.Point{}, err
	}
	return p, nil
}

// ParseXYBBox parses planar "bottom,top,left,right" text or a four-value
// numeric token.
func ParseXYBBox(t Token) (orb.Bound, error) {
	var b, tp, l, r float64
	switch {
	case t.Values != nil:
		if len(t.Values) != 4 {
			return orb.Bound{}, fmt.Errorf("%w: bbox needs 4 values, got %d", ErrParse, len(t.Values))
		}
		b, tp, l, r = t.Values[0], t.Values[1], t.Values[2], t.Values[3]
	case t.Nested != nil:
		return orb.Bound{}, fmt.Errorf("%w: nested list is not a bbox", ErrParse)
	default:
		m := xyBBoxRE.FindStringSubmatch(t.Text)
		if m == nil {
			return orb.Bound{}, fmt.Errorf("%w: %q", ErrParse, t.Text)
		}
		b, tp, l, r = atof(m[1]), atof(m[2]), atof(m[3]), atof(m[4])
	}
	bound := orb.Bound{Min: orb.Point{l, b}, Max: orb.Point{r, tp}}
	if err := validateXYBound(bound); err != nil {
		return orb.Bound{}, err
	}
	return bound, nil
}
