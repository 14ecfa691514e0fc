package h3mapper

import (
	"errors"
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/mapper"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

func (m *Mapper) CellForPoint(p model.Point, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

// CellForGeometry anchors a point at itself, a bbox at its center and a
// polygon at the mean of its vertices.
func (m *Mapper) CellForGeometry(g model.Geometry, res int) (string, bool, error) {
	if g.Coords == model.XY {
		return "", false, nil
	}
	var p model.Point
	switch g.Kind {
	case model.KindBBox:
		p = center(g.BBox)
	case model.KindPoly:
		if len(g.Poly) == 0 {
			return "", false, nil
		}
		p = meanVertex(g.Poly)
	default:
		p = g.Point
	}
	cell, err := m.CellForPoint(p, res)
	if err != nil {
		return "", false, err
	}
	return cell, true, nil
}

// CellsForBBox returns the sorted cells whose centers fall inside bb. Boxes
// crossing the antimeridian are filled in two halves. A box smaller than a
// cell yields the cell of its center.
func (m *Mapper) CellsForBBox(bb model.BBox, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if bb.South > bb.North {
		return nil, fmt.Errorf("bbox south %g greater than north %g", bb.South, bb.North)
	}
	seen := make(map[string]struct{})
	var out []string
	for _, span := range lonSpans(bb.West, bb.East) {
		outer := h3.GeoLoop{
			{Lat: bb.South, Lng: span[0]},
			{Lat: bb.South, Lng: span[1]},
			{Lat: bb.North, Lng: span[1]},
			{Lat: bb.North, Lng: span[0]},
		}
		cells, err := polyfillOne(outer, nil, res)
		if err != nil {
			return nil, err
		}
		for _, c := range cells {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out = append(out, c)
			}
		}
	}
	if len(out) == 0 {
		c, err := m.CellForPoint(center(bb), res)
		if err != nil {
			return nil, err
		}
		return []string{c}, nil
	}
	sort.Strings(out)
	return out, nil
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// lonSpans splits [west, east] into eastward spans no wider than 180 degrees
// so every loop edge is the short arc H3 expects.
func lonSpans(west, east float64) [][2]float64 {
	var raw [][2]float64
	if west > east {
		raw = [][2]float64{{west, 180}, {-180, east}}
	} else {
		raw = [][2]float64{{west, east}}
	}
	out := make([][2]float64, 0, 4)
	for _, s := range raw {
		if s[1]-s[0] <= 0 {
			continue
		}
		if s[1]-s[0] > 180 {
			mid := (s[0] + s[1]) / 2
			out = append(out, [2]float64{s[0], mid}, [2]float64{mid, s[1]})
			continue
		}
		out = append(out, s)
	}
	return out
}

func center(bb model.BBox) model.Point {
	lat := (bb.South + bb.North) / 2
	if bb.West <= bb.East {
		return model.Point{Lat: lat, Lon: (bb.West + bb.East) / 2}
	}
	lon := (bb.West + bb.East + 360) / 2
	if lon > 180 {
		lon -= 360
	}
	return model.Point{Lat: lat, Lon: lon}
}

func meanVertex(ps []model.Point) model.Point {
	var lat, lon float64
	for _, p := range ps {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(ps))
	return model.Point{Lat: lat / n, Lon: lon / n}
}

// polyfillOne computes unique cells and returns them sorted for determinism.
func polyfillOne(outer h3.GeoLoop, holes []h3.GeoLoop, res int) ([]string, error) {
	if len(outer) < 3 {
		return nil, errors.New("outer ring has < 3 vertices")
	}
	poly := h3.GeoPolygon{
		GeoLoop: outer,
		Holes:   holes,
	}

	indexes, err := h3.PolygonToCells(poly, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make([]string, 0, len(indexes))
	seen := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		s := idx.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
