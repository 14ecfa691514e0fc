package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

func pts(ll ...float64) []model.Point {
	out := make([]model.Point, 0, len(ll)/2)
	for i := 0; i+1 < len(ll); i += 2 {
		out = append(out, model.Point{Lat: ll[i], Lon: ll[i+1]})
	}
	return out
}

func TestReducePoly(t *testing.T) {
	cases := []struct {
		name string
		poly []model.Point
		want model.BBox
	}{
		{"single point", pts(10, 20), model.BBox{South: 10, North: 10, West: 20, East: 20}},
		{"ordinary", pts(10, 20, 30, 40, 20, 10), model.BBox{South: 10, North: 30, West: 10, East: 40}},
		{"east to west across 180", pts(10, 170, 20, -170), model.BBox{South: 10, North: 20, West: 170, East: -170}},
		{"west to east across 180", pts(0, -170, 0, 170), model.BBox{South: 0, North: 0, West: 170, East: -170}},
		// the third vertex is compared with -170, not 170, so it widens the
		// west edge and the box covers almost the whole globe
		{"extends after crossing", pts(10, 170, 10, -170, 10, -160), model.BBox{South: 10, North: 10, West: -160, East: -170}},
		{"flip back inside the wrapped box", pts(0, 170, 0, -170, 0, 175), model.BBox{South: 0, North: 0, West: 170, East: -170}},
		{"zero longitude is sign neutral", pts(0, 0, 0, -10), model.BBox{South: 0, North: 0, West: -10, East: 0}},
	}
	for _, c := range cases {
		got, err := ReducePoly(c.poly)
		if err != nil {
			t.Fatalf("%s: unexpected err: %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("%s: got %+v want %+v", c.name, got, c.want)
		}
	}
}

// A path that crosses the prime meridian through small longitudes is read as
// an antimeridian crossing. Consumers rely on this, so it is pinned here.
func TestReducePoly_PrimeMeridianHeuristic(t *testing.T) {
	got, err := ReducePoly(pts(0, 5, 0, -5))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := model.BBox{South: 0, North: 0, West: 5, East: -5}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestReducePoly_Empty(t *testing.T) {
	if _, err := ReducePoly(nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestReduceXY(t *testing.T) {
	b, err := ReduceXY([]orb.Point{{10, 0}, {-5, 7}, {3, -2}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if b.Min != (orb.Point{-5, -2}) || b.Max != (orb.Point{10, 7}) {
		t.Fatalf("got %+v", b)
	}
}

func TestArea(t *testing.T) {
	globe, err := Area(model.BBox{South: -90, North: 90, West: -180, East: 180})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// 510.07 million km²
	if globe < 505e6 || globe > 515e6 {
		t.Fatalf("globe area=%g", globe)
	}

	full, _ := Area(model.BBox{South: -90, North: 90, West: 30, East: 30})
	if math.Abs(full-globe) > 1e-6 {
		t.Fatalf("west==east must be full circle: %g vs %g", full, globe)
	}

	wrapped, _ := Area(model.BBox{South: 0, North: 10, West: 170, East: -170})
	plain, _ := Area(model.BBox{South: 0, North: 10, West: 0, East: 20})
	if math.Abs(wrapped-plain) > 1e-6 {
		t.Fatalf("wrapped=%g plain=%g", wrapped, plain)
	}

	small, _ := Area(model.BBox{South: 0, North: 1, West: 0, East: 1})
	if small < 12000 || small > 12700 {
		t.Fatalf("1x1 degree at equator area=%g", small)
	}

	if _, err := Area(model.BBox{South: 10, North: 0}); !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}
