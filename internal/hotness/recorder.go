package hotness

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/mapper"
)

type Tracker interface {
	Interface
	Ranker
}

// Recorder maps query geometries to H3 cells at a fixed resolution and
// feeds them to a tracker.
type Recorder struct {
	mapper  mapper.Interface
	tracker Tracker
	res     int
	logger  *slog.Logger
}

func NewRecorder(m mapper.Interface, t Tracker, res int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{mapper: m, tracker: t, res: res, logger: logger}
}

func (r *Recorder) Res() int { return r.res }

// Cells returns the anchor cell of every geographic geometry of q in input
// order. Planar geometries have no location and are left out.
func (r *Recorder) Cells(q model.Query) []string {
	out := make([]string, 0, len(q.Geometries))
	for _, g := range q.Geometries {
		cell, ok, err := r.mapper.CellForGeometry(g, r.res)
		if err != nil {
			r.logger.Debug("hotspot mapping failed", "geometry", g.String(), "err", err)
			continue
		}
		if ok {
			out = append(out, cell)
		}
	}
	return out
}

// Record counts every cell of q once per geometry.
func (r *Recorder) Record(q model.Query) []string {
	cells := r.Cells(q)
	for _, c := range cells {
		r.tracker.Inc(c)
	}
	return cells
}

func (r *Recorder) Top(n int) []Entry { return r.tracker.Top(n) }

func (r *Recorder) Score(cell string) float64 { return r.tracker.Score(cell) }

// TopAt is Top with scores summed into parent cells at the coarser res.
func (r *Recorder) TopAt(n, res int) ([]Entry, error) {
	if res == r.res {
		return r.Top(n), nil
	}
	if res < 0 || res > r.res {
		return nil, fmt.Errorf("hotspot resolution %d outside 0..%d", res, r.res)
	}
	if n <= 0 {
		return nil, nil
	}
	sums := map[string]float64{}
	for _, e := range r.tracker.Top(math.MaxInt32) {
		p, err := r.mapper.ToParent(e.Cell, res)
		if err != nil {
			return nil, err
		}
		sums[p] += e.Score
	}
	out := make([]Entry, 0, len(sums))
	for c, s := range sums {
		out = append(out, Entry{Cell: c, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Cell < out[j].Cell
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Reset forgets the cells covering bb, or every cell when bb is nil. It
// returns the number of cells reset, -1 meaning all.
func (r *Recorder) Reset(bb *model.BBox) (int, error) {
	if bb == nil {
		r.tracker.ResetAll()
		return -1, nil
	}
	cells, err := r.mapper.CellsForBBox(*bb, r.res)
	if err != nil {
		return 0, err
	}
	r.tracker.Reset(cells...)
	return len(cells), nil
}

// Prune drops cells scoring below the floor. Trackers that cannot prune
// report zero.
func (r *Recorder) Prune(below float64) int {
	if p, ok := r.tracker.(Pruner); ok {
		return p.Prune(below)
	}
	return 0
}

// Sweep prunes every interval until ctx is done.
func (r *Recorder) Sweep(ctx context.Context, every time.Duration, below float64) {
	if every <= 0 || below <= 0 {
		return
	}
	tk := time.NewTicker(every)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
			if n := r.Prune(below); n > 0 {
				r.logger.Debug("pruned cold hotspot cells", "removed", n, "below", below)
			}
		}
	}
}
