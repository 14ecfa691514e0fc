package catalog

import (
	"fmt"
	"slices"

	"github.com/dhconnelly/rtreego"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

// pad for zero-width rectangles and the query box around a point
const indexEps = 1e-9

type indexEntry struct {
	rect rtreego.Rect
	pos  int
}

func (e *indexEntry) Bounds() rtreego.Rect { return e.rect }

// rtreeIndex maps lon/lat rectangles to row positions. Extents that cross the
// antimeridian are stored as two rectangles and full-circle extents span
// [-180,180], so a point lookup returns a superset of the rows whose extent
// contains it.
type rtreeIndex struct {
	tree *rtreego.Rtree
}

func buildIndex(rows []model.CrsBBox) (*rtreeIndex, error) {
	var objs []rtreego.Spatial
	for pos, r := range rows {
		rects, err := extentRects(r.Extent())
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", r.SRID(), err)
		}
		for _, rect := range rects {
			objs = append(objs, &indexEntry{rect: rect, pos: pos})
		}
	}
	return &rtreeIndex{tree: rtreego.NewTree(2, 25, 50, objs...)}, nil
}

func extentRects(b model.BBox) ([]rtreego.Rect, error) {
	type span struct{ w, e float64 }
	var spans []span
	switch {
	case b.West == b.East, b.West == -180 && b.East == 180:
		spans = []span{{-180, 180}}
	case b.West < b.East:
		spans = []span{{b.West, b.East}}
	default:
		spans = []span{{b.West, 180}, {-180, b.East}}
	}

	out := make([]rtreego.Rect, 0, len(spans))
	for _, sp := range spans {
		rect, err := rtreego.NewRect(
			rtreego.Point{sp.w, b.South},
			[]float64{max(sp.e-sp.w, indexEps), max(b.North-b.South, indexEps)},
		)
		if err != nil {
			return nil, err
		}
		out = append(out, rect)
	}
	return out, nil
}

// around returns ascending, unique row positions whose indexed extent touches
// p.
func (ix *rtreeIndex) around(p model.Point) []int {
	q, err := rtreego.NewRect(
		rtreego.Point{p.Lon - indexEps, p.Lat - indexEps},
		[]float64{2 * indexEps, 2 * indexEps},
	)
	if err != nil {
		return nil
	}
	hits := ix.tree.SearchIntersect(q)
	out := make([]int, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.(*indexEntry).pos)
	}
	slices.Sort(out)
	return slices.Compact(out)
}
