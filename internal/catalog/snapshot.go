package catalog

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
	"github.com/mohammed-shakir/crsfinder/internal/predicate"
)

type snapshotConfig struct {
	index  bool
	source string
	now    func() time.Time
}

type SnapshotOption func(*snapshotConfig)

// WithIndex builds an R-tree over the geographic extents so lat/lon lookups
// only test candidate rows.
func WithIndex(on bool) SnapshotOption {
	return func(c *snapshotConfig) { c.index = on }
}

func WithSource(name string) SnapshotOption {
	return func(c *snapshotConfig) { c.source = name }
}

// Snapshot is an immutable, canonically ordered set of catalog rows.
type Snapshot struct {
	rows     []model.CrsBBox
	index    *rtreeIndex
	version  string
	source   string
	loadedAt time.Time
	skipped  []error
}

// NewSnapshot validates and sorts rows. Rows without an area get one computed
// from their extent; rows that stay invalid are dropped and reported by
// Skipped. Duplicate keys keep the first occurrence.
func NewSnapshot(rows []model.CrsBBox, opts ...SnapshotOption) (*Snapshot, error) {
	cfg := snapshotConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}

	s := &Snapshot{source: cfg.source, loadedAt: cfg.now()}
	seen := make(map[model.RowKey]struct{}, len(rows))
	kept := make([]model.CrsBBox, 0, len(rows))
	for i, r := range rows {
		if r.AreaSqkm == 0 {
			if a, err := geometry.Area(r.Extent()); err == nil {
				r.AreaSqkm = a
			}
		}
		if err := r.Validate(); err != nil {
			s.skipped = append(s.skipped, fmt.Errorf("row %d: %w", i, err))
			continue
		}
		k := r.Key()
		if _, dup := seen[k]; dup {
			s.skipped = append(s.skipped, fmt.Errorf("row %d: duplicate %s", i, r.SRID()))
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	slices.SortStableFunc(kept, model.Compare)
	s.rows = kept
	s.version = versionOf(kept)

	if cfg.index {
		ix, err := buildIndex(kept)
		if err != nil {
			return nil, err
		}
		s.index = ix
	}
	return s, nil
}

func (s *Snapshot) Len() int              { return len(s.rows) }
func (s *Snapshot) Version() string       { return s.version }
func (s *Snapshot) Source() string        { return s.source }
func (s *Snapshot) LoadedAt() time.Time   { return s.loadedAt }
func (s *Snapshot) Indexed() bool         { return s.index != nil }
func (s *Snapshot) Skipped() []error      { return s.skipped }
func (s *Snapshot) Rows() []model.CrsBBox { return slices.Clone(s.rows) }

// All returns every row selected by unit in canonical order.
func (s *Snapshot) All(unit string) []model.CrsBBox {
	out := make([]model.CrsBBox, 0, len(s.rows))
	for _, r := range s.rows {
		if model.MatchUnit(unit, r) {
			out = append(out, r)
		}
	}
	return out
}

// Filter returns the rows whose extent contains shape, in canonical order.
func (s *Snapshot) Filter(shape predicate.Shape, unit string) []model.CrsBBox {
	var out []model.CrsBBox
	for _, i := range s.Candidates(shape) {
		r := s.rows[i]
		if model.MatchUnit(unit, r) && shape.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

// Candidates returns ascending row positions that may contain shape. Without
// an index, or for planar shapes, that is every row.
func (s *Snapshot) Candidates(shape predicate.Shape) []int {
	if s.index != nil {
		if anchor, ok := shape.Anchor(); ok {
			return s.index.around(anchor)
		}
	}
	out := make([]int, len(s.rows))
	for i := range out {
		out[i] = i
	}
	return out
}

func versionOf(rows []model.CrsBBox) string {
	h := xxhash.New()
	var buf [8]byte
	num := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = h.Write(buf[:])
	}
	opt := func(f *float64) {
		if f == nil {
			_, _ = h.WriteString("-")
			return
		}
		num(*f)
	}
	for _, r := range rows {
		for _, v := range []string{r.ProjTable, r.CrsName, r.CrsAuthName, r.CrsCode,
			r.UsageAuthName, r.UsageCode, r.ExtentAuthName, r.ExtentCode, r.Unit} {
			_, _ = h.WriteString(v)
			_, _ = h.WriteString("\x00")
		}
		num(r.SouthLat)
		num(r.NorthLat)
		num(r.WestLon)
		num(r.EastLon)
		opt(r.Bottom)
		opt(r.Top)
		opt(r.Left)
		opt(r.Right)
		num(r.AreaSqkm)
	}
	return strconv.Itoa(len(rows)) + "-" + fmt.Sprintf("%016x", h.Sum64())
}
