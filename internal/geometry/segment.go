package geometry

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

// ParsePolys splits a poly-mode token stream into polygons. Every token that
// fails to parse ends the current polygon; a nested token list is a polygon
// of its own. Errors for non-blank separators are returned alongside.
func ParsePolys(tokens []Token) ([][]model.Point, []error) {
	return segment(tokens, ParsePoint)
}

// ParseXYPolys is ParsePolys for planar coordinates.
func ParseXYPolys(tokens []Token) ([][]orb.Point, []error) {
	return segment(tokens, ParseXY)
}

func segment[P any](tokens []Token, parse func(Token) (P, error)) ([][]P, []error) {
	var (
		polys [][]P
		cur   []P
		errs  []error
	)
	flush := func() {
		if len(cur) > 0 {
			polys = append(polys, cur)
			cur = nil
		}
	}
	for _, t := range tokens {
		if t.Nested != nil {
			flush()
			var nested []P
			for _, nt := range t.Nested {
				p, err := parse(nt)
				if err != nil {
					if !nt.blank() {
						errs = append(errs, err)
					}
					continue
				}
				nested = append(nested, p)
			}
			if len(nested) > 0 {
				polys = append(polys, nested)
			}
			continue
		}
		p, err := parse(t)
		if err != nil {
			flush()
			if !t.blank() {
				errs = append(errs, err)
			}
			continue
		}
		cur = append(cur, p)
	}
	flush()
	return polys, errs
}

// ParseGeometries parses tokens as geometries of one kind in one coordinate
// system. Unparsable tokens are dropped and reported as warnings; only an
// unknown kind or coordinate system is an error.
func ParseGeometries(kind model.GeomKind, coords model.CoordSys, tokens []Token) ([]model.Geometry, []string, error) {
	if coords == "" {
		coords = model.LatLon
	}
	if coords != model.LatLon && coords != model.XY {
		return nil, nil, fmt.Errorf("%w: coordinate system %q", model.ErrInvalidMode, coords)
	}

	var (
		out   []model.Geometry
		warns []string
	)
	warn := func(t Token, err error) {
		warns = append(warns, fmt.Sprintf("skipping %s %q: %v", kind, t.String(), err))
	}

	switch kind {
	case model.KindPoint:
		for _, t := range tokens {
			g := model.Geometry{Kind: kind, Coords: coords}
			var err error
			if coords == model.XY {
				g.XY, err = ParseXY(t)
			} else {
				g.Point, err = ParsePoint(t)
			}
			if err != nil {
				warn(t, err)
				continue
			}
			out = append(out, g)
		}
	case model.KindBBox:
		for _, t := range tokens {
			g := model.Geometry{Kind: kind, Coords: coords}
			var err error
			if coords == model.XY {
				g.XYBound, err = ParseXYBBox(t)
			} else {
				g.BBox, err = ParseBBox(t)
			}
			if err != nil {
				warn(t, err)
				continue
			}
			out = append(out, g)
		}
	case model.KindPoly:
		var errs []error
		if coords == model.XY {
			var polys [][]orb.Point
			polys, errs = ParseXYPolys(tokens)
			for _, p := range polys {
				out = append(out, model.Geometry{Kind: kind, Coords: coords, XYPoly: p})
			}
		} else {
			var polys [][]model.Point
			polys, errs = ParsePolys(tokens)
			for _, p := range polys {
				out = append(out, model.Geometry{Kind: kind, Coords: coords, Poly: p})
			}
		}
		for _, err := range errs {
			warns = append(warns, fmt.Sprintf("poly separator: %v", err))
		}
	default:
		return nil, nil, fmt.Errorf("%w: geometry type %q", model.ErrInvalidMode, kind)
	}
	return out, warns, nil
}
