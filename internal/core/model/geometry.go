package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

type GeomKind string

const (
	KindPoint GeomKind = "point"
	KindPoly  GeomKind = "poly"
	KindBBox  GeomKind = "bbox"
)

func ParseGeomKind(s string) (GeomKind, error) {
	switch k := GeomKind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPoint, KindPoly, KindBBox:
		return k, nil
	case "":
		return KindPoint, nil
	default:
		return "", fmt.Errorf("%w: geometry type %q", ErrInvalidMode, s)
	}
}

// Op combines per-geometry results.
type Op string

const (
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpXor Op = "xor"
)

func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToLower(strings.TrimSpace(s))); op {
	case OpAnd, OpOr, OpXor:
		return op, nil
	case "":
		return OpAnd, nil
	default:
		return "", fmt.Errorf("%w: combinator %q", ErrInvalidMode, s)
	}
}

type CoordSys string

const (
	LatLon CoordSys = "latlon"
	XY     CoordSys = "xy"
)

func ParseCoordSys(s string) (CoordSys, error) {
	switch c := CoordSys(strings.ToLower(strings.TrimSpace(s))); c {
	case LatLon, XY:
		return c, nil
	case "":
		return LatLon, nil
	default:
		return "", fmt.Errorf("%w: coordinate system %q", ErrInvalidMode, s)
	}
}

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BBox is a south/north/west/east rectangle in decimal degrees. West greater
// than east means the box crosses the antimeridian.
type BBox struct {
	South float64 `json:"south"`
	North float64 `json:"north"`
	West  float64 `json:"west"`
	East  float64 `json:"east"`
}

func (b BBox) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", ftoa(b.South), ftoa(b.North), ftoa(b.West), ftoa(b.East))
}

// Geometry is a parsed query geometry. Which fields are meaningful depends on
// Kind and Coords: lat/lon geometries use Point, Poly and BBox while planar
// ones use XY, XYPoly and XYBound.
type Geometry struct {
	Kind   GeomKind
	Coords CoordSys

	Point Point
	Poly  []Point
	BBox  BBox

	XY      orb.Point
	XYPoly  []orb.Point
	XYBound orb.Bound
}

// String renders the geometry in the canonical text form accepted by the
// parser. Polygons render their vertices separated by semicolons.
func (g Geometry) String() string {
	var b strings.Builder
	b.WriteString(string(g.Coords))
	b.WriteByte(' ')
	b.WriteString(string(g.Kind))
	b.WriteByte(' ')
	switch {
	case g.Coords == XY && g.Kind == KindPoint:
		b.WriteString(ftoa(g.XY[0]) + "," + ftoa(g.XY[1]))
	case g.Coords == XY && g.Kind == KindBBox:
		bb := g.XYBound
		b.WriteString(ftoa(bb.Min[1]) + "," + ftoa(bb.Max[1]) + "," + ftoa(bb.Min[0]) + "," + ftoa(bb.Max[0]))
	case g.Coords == XY:
		for i, p := range g.XYPoly {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(ftoa(p[0]) + "," + ftoa(p[1]))
		}
	case g.Kind == KindPoint:
		b.WriteString(ftoa(g.Point.Lat) + "," + ftoa(g.Point.Lon))
	case g.Kind == KindBBox:
		b.WriteString(g.BBox.String())
	default:
		for i, p := range g.Poly {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(ftoa(p.Lat) + "," + ftoa(p.Lon))
		}
	}
	return b.String()
}

// Query is a fully parsed multi-geometry query.
type Query struct {
	Kind       GeomKind
	Op         Op
	Coords     CoordSys
	Unit       string
	Geometries []Geometry
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
