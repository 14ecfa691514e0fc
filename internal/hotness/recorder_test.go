package hotness_test

import (
	"context"
	"testing"
	"time"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/hotness"
	"github.com/mohammed-shakir/crsfinder/internal/hotness/expdecay"
	h3mapper "github.com/mohammed-shakir/crsfinder/internal/mapper/h3"
)

func pointQuery(pts ...model.Point) model.Query {
	q := model.Query{Kind: model.KindPoint, Op: model.OpOr, Coords: model.LatLon}
	for _, p := range pts {
		q.Geometries = append(q.Geometries, model.Geometry{Kind: model.KindPoint, Coords: model.LatLon, Point: p})
	}
	return q
}

func TestRecorder_RanksRepeatedLocations(t *testing.T) {
	m := h3mapper.New()
	r := hotness.NewRecorder(m, expdecay.New(time.Hour), 5, nil)

	athens := model.Point{Lat: 34.2348, Lon: -83.8677}
	honolulu := model.Point{Lat: 21.3069, Lon: -157.8583}
	r.Record(pointQuery(athens, honolulu))
	r.Record(pointQuery(athens))
	r.Record(model.Query{Geometries: []model.Geometry{{Kind: model.KindPoint, Coords: model.XY}}})

	top := r.Top(10)
	if len(top) != 2 {
		t.Fatalf("top=%v", top)
	}
	want, _ := m.CellForPoint(athens, 5)
	if top[0].Cell != want || top[0].Score < 1.9 {
		t.Fatalf("hottest=%+v want cell %s", top[0], want)
	}
}

func TestRecorder_ResetByBBoxAndAll(t *testing.T) {
	m := h3mapper.New()
	r := hotness.NewRecorder(m, expdecay.New(time.Hour), 5, nil)
	athens := model.Point{Lat: 34.2348, Lon: -83.8677}
	honolulu := model.Point{Lat: 21.3069, Lon: -157.8583}
	r.Record(pointQuery(athens, honolulu))

	n, err := r.Reset(&model.BBox{South: 33, North: 35.5, West: -85, East: -82.5})
	if err != nil || n == 0 {
		t.Fatalf("Reset bbox: n=%d err=%v", n, err)
	}
	top := r.Top(10)
	hnl, _ := m.CellForPoint(honolulu, 5)
	if len(top) != 1 || top[0].Cell != hnl {
		t.Fatalf("after bbox reset top=%v", top)
	}

	if n, err := r.Reset(nil); err != nil || n != -1 {
		t.Fatalf("Reset all: n=%d err=%v", n, err)
	}
	if len(r.Top(10)) != 0 {
		t.Fatalf("tracker not empty after reset all")
	}
}

func TestRecorder_TopAtRollsUpToParents(t *testing.T) {
	m := h3mapper.New()
	r := hotness.NewRecorder(m, expdecay.New(time.Hour), 7, nil)

	a := model.Point{Lat: 34.2348, Lon: -83.8677}
	ca, _ := m.CellForPoint(a, 7)
	pa, _ := m.ToParent(ca, 3)

	// a nearby point in another res-7 cell under the same res-3 parent
	var b model.Point
	found := false
	for i := 1; i <= 40 && !found; i++ {
		for _, d := range [][2]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
			c := model.Point{Lat: a.Lat + d[0]*0.01*float64(i), Lon: a.Lon + d[1]*0.01*float64(i)}
			cc, _ := m.CellForPoint(c, 7)
			pc, _ := m.ToParent(cc, 3)
			if cc != ca && pc == pa {
				b, found = c, true
				break
			}
		}
	}
	if !found {
		t.Fatalf("no neighbour under parent %s", pa)
	}
	r.Record(pointQuery(a))
	r.Record(pointQuery(b))

	top, err := r.TopAt(5, 3)
	if err != nil {
		t.Fatalf("TopAt: %v", err)
	}
	if len(top) != 1 || top[0].Cell != pa || top[0].Score < 1.9 {
		t.Fatalf("top=%+v want %s", top, pa)
	}
	if _, err := r.TopAt(5, 9); err == nil {
		t.Fatalf("finer resolution must fail")
	}
	if r.Score(ca) < 0.9 {
		t.Fatalf("score=%v", r.Score(ca))
	}
}

func TestRecorder_SweepPrunesColdCells(t *testing.T) {
	r := hotness.NewRecorder(h3mapper.New(), expdecay.New(time.Hour), 5, nil)
	athens := model.Point{Lat: 34.2348, Lon: -83.8677}
	r.Record(pointQuery(athens, athens))
	r.Record(pointQuery(model.Point{Lat: 21.3069, Lon: -157.8583}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Sweep(ctx, 5*time.Millisecond, 1.5)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(r.Top(10)) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("cold cell never pruned: %v", r.Top(10))
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Sweep did not stop on cancel")
	}
}
