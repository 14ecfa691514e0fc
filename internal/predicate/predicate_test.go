package predicate

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
)

func box(s, n, w, e float64) model.BBox { return model.BBox{South: s, North: n, West: w, East: e} }

func TestPointInBBox(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		b        model.BBox
		want     bool
	}{
		{"inside ordinary", 10, 10, box(0, 20, 0, 20), true},
		{"on edges", 0, 20, box(0, 20, 0, 20), true},
		{"west of ordinary", 10, -1, box(0, 20, 0, 20), false},
		{"north of box", 21, 10, box(0, 20, 0, 20), false},
		{"south of box", -0.5, 10, box(0, 20, 0, 20), false},
		{"full circle west==east", 10, -123, box(0, 20, 45, 45), true},
		{"full circle explicit", 10, 179.9, box(0, 20, -180, 180), true},
		{"antimeridian east side", 10, 175, box(0, 20, 170, -170), true},
		{"antimeridian west side", 10, -175, box(0, 20, 170, -170), true},
		{"antimeridian excludes zero", 10, 0, box(0, 20, 170, -170), false},
		{"antimeridian edge 180", 10, 180, box(0, 20, 170, -170), true},
		{"antimeridian edge -180", 10, -180, box(0, 20, 170, -170), true},
		{"antimeridian gap", 10, 169, box(0, 20, 170, -170), false},
	}
	for _, c := range cases {
		if got := PointInBBox(model.Point{Lat: c.lat, Lon: c.lon}, c.b); got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

func TestBBoxInBBox(t *testing.T) {
	cases := []struct {
		name         string
		inner, outer model.BBox
		want         bool
	}{
		{"inside ordinary", box(1, 2, 1, 2), box(0, 10, 0, 10), true},
		{"equal boxes", box(0, 10, 0, 10), box(0, 10, 0, 10), true},
		{"sticks out north", box(1, 11, 1, 2), box(0, 10, 0, 10), false},
		{"sticks out east", box(1, 2, 1, 11), box(0, 10, 0, 10), false},
		{"inner crossing vs ordinary outer", box(1, 2, 9, 1), box(0, 10, 0, 10), false},
		{"full circle outer", box(1, 2, 9, 1), box(0, 10, 30, 30), true},
		{"explicit full circle outer", box(1, 2, 170, -170), box(0, 10, -180, 180), true},
		{"low segment", box(1, 2, -179, -175), box(0, 10, 170, -170), true},
		{"high segment", box(1, 2, 171, 179), box(0, 10, 170, -170), true},
		{"straddles compatibly", box(1, 2, 175, -175), box(0, 10, 170, -170), true},
		{"straddles too far", box(1, 2, 165, -175), box(0, 10, 170, -170), false},
		{"spans the gap", box(1, 2, -175, 175), box(0, 10, 170, -170), false},
		{"degenerate inner in ordinary outer", box(1, 2, 5, 5), box(0, 10, 0, 10), false},
		{"degenerate inner in crossing outer", box(1, 2, 175, 175), box(0, 10, 170, -170), false},
		{"degenerate inner in full circle", box(1, 2, 5, 5), box(0, 10, -180, 180), true},
	}
	for _, c := range cases {
		if got := BBoxInBBox(c.inner, c.outer); got != c.want {
			t.Fatalf("%s: got %v want %v", c.name, got, c.want)
		}
	}
}

// west==east is a full circle for points but a failing degenerate interval
// for inner boxes. Both readings are relied on.
func TestFullCircleAsymmetry(t *testing.T) {
	outer := box(0, 10, 0, 10)
	if !PointInBBox(model.Point{Lat: 5, Lon: 5}, outer) {
		t.Fatalf("point must be inside")
	}
	if BBoxInBBox(box(5, 5, 5, 5), outer) {
		t.Fatalf("degenerate inner bbox must not be contained")
	}
	if !PointInBBox(model.Point{Lat: 5, Lon: 100}, box(0, 10, 5, 5)) {
		t.Fatalf("west==east outer must accept any longitude")
	}
}

func TestPlanar(t *testing.T) {
	ext := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 50}}
	if !PointInXY(orb.Point{100, 50}, ext) {
		t.Fatalf("edge point must be inside")
	}
	if PointInXY(orb.Point{101, 10}, ext) {
		t.Fatalf("point east of bound must be outside")
	}
	if !BoundInXY(orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{20, 20}}, ext) {
		t.Fatalf("inner bound must be inside")
	}
	if BoundInXY(orb.Bound{Min: orb.Point{10, 10}, Max: orb.Point{200, 20}}, ext) {
		t.Fatalf("wide bound must be outside")
	}
}

func f(v float64) *float64 { return &v }

func TestShape_Contains(t *testing.T) {
	row := model.CrsBBox{
		SouthLat: 0, NorthLat: 20, WestLon: 170, EastLon: -170,
		Bottom: f(0), Top: f(1000), Left: f(-500), Right: f(500),
	}
	poly := model.Geometry{Kind: model.KindPoly, Poly: []model.Point{{Lat: 5, Lon: 175}, {Lat: 6, Lon: -175}}}
	s, err := Compile(poly)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !s.Contains(row) {
		t.Fatalf("polygon straddling the antimeridian must be contained")
	}
	if a, ok := s.Anchor(); !ok || a != (model.Point{Lat: 5, Lon: 175}) {
		t.Fatalf("anchor=%+v ok=%v", a, ok)
	}

	xy, err := Compile(model.Geometry{Kind: model.KindPoint, Coords: model.XY, XY: orb.Point{0, 500}})
	if err != nil {
		t.Fatalf("compile xy: %v", err)
	}
	if !xy.Contains(row) {
		t.Fatalf("xy point must be inside the planar extent")
	}
	if xy.Contains(model.CrsBBox{SouthLat: -90, NorthLat: 90, WestLon: -180, EastLon: 180}) {
		t.Fatalf("rows without a planar extent never match xy shapes")
	}
	if _, ok := xy.Anchor(); ok {
		t.Fatalf("xy shapes have no anchor")
	}

	_, err = Compile(model.Geometry{Kind: model.KindBBox, BBox: box(10, 0, 0, 1)})
	if !errors.Is(err, geometry.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	_, err = Compile(model.Geometry{Kind: "circle"})
	if !errors.Is(err, model.ErrInvalidMode) {
		t.Fatalf("want ErrInvalidMode, got %v", err)
	}
}
