// Package executor runs containment queries against a catalog snapshot and
// combines the per-geometry results.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/predicate"
)

var ErrTooManyGeometries = errors.New("too many geometries")

// Source is the read side of a catalog snapshot.
type Source interface {
	Filter(shape predicate.Shape, unit string) []model.CrsBBox
	All(unit string) []model.CrsBBox
}

type Interface interface {
	Execute(ctx context.Context, src Source, q model.Query) (Result, error)
	ExecuteMixed(ctx context.Context, src Source, words []string) (Result, error)
}

// Result holds matched rows plus the warnings for geometries that were
// skipped along the way.
type Result struct {
	Rows     []model.CrsBBox `json:"rows"`
	Warnings []string        `json:"warnings,omitempty"`
}

type Executor struct {
	logger   *slog.Logger
	workers  int
	maxGeoms int
	startNow func() time.Time // for tests
}

type Option func(*Executor)

// WithWorkers bounds the number of OR sub-queries evaluated concurrently.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxGeometries rejects queries carrying more than n geometries. Zero
// disables the limit.
func WithMaxGeometries(n int) Option {
	return func(e *Executor) { e.maxGeoms = n }
}

func New(logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Executor{logger: logger, workers: 1, startNow: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Execute evaluates q against src. An unknown kind, combinator or coordinate
// system is an error; geometries that fail validation are skipped with a
// warning.
func (e *Executor) Execute(ctx context.Context, src Source, q model.Query) (Result, error) {
	kind, err := model.ParseGeomKind(string(q.Kind))
	if err != nil {
		return Result{}, err
	}
	op, err := model.ParseOp(string(q.Op))
	if err != nil {
		return Result{}, err
	}
	coords, err := model.ParseCoordSys(string(q.Coords))
	if err != nil {
		return Result{}, err
	}
	if e.maxGeoms > 0 && len(q.Geometries) > e.maxGeoms {
		return Result{}, fmt.Errorf("%w: %d > %d", ErrTooManyGeometries, len(q.Geometries), e.maxGeoms)
	}

	start := e.startNow()
	var res Result
	shapes := make([]predicate.Shape, 0, len(q.Geometries))
	for _, g := range q.Geometries {
		if g.Kind == "" {
			g.Kind = kind
		}
		if g.Coords == "" {
			g.Coords = coords
		}
		sh, err := predicate.Compile(g)
		if err != nil {
			if errors.Is(err, model.ErrInvalidMode) {
				return Result{}, err
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("skipping %s: %v", g, err))
			e.logger.Warn("geometry skipped", "geometry", g.String(), "err", err)
			continue
		}
		shapes = append(shapes, sh)
	}

	switch op {
	case model.OpAnd:
		res.Rows, err = e.and(ctx, src, shapes, q.Unit)
	case model.OpOr:
		res.Rows, err = e.or(ctx, src, shapes, q.Unit)
	case model.OpXor:
		res.Rows, err = e.xor(ctx, src, shapes, q.Unit)
	}
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("query executed",
		"kind", kind,
		"op", op,
		"coords", coords,
		"unit", q.Unit,
		"geometries", len(q.Geometries),
		"rows", len(res.Rows),
		"duration", time.Since(start).String())
	return res, nil
}

// All returns every row selected by unit in canonical order.
func (e *Executor) All(src Source, unit string) Result {
	return Result{Rows: src.All(unit)}
}

// and seeds from the first shape and narrows the working set with each
// following one. The chain is sequential.
func (e *Executor) and(ctx context.Context, src Source, shapes []predicate.Shape, unit string) ([]model.CrsBBox, error) {
	var cur []model.CrsBBox
	for i, sh := range shapes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i == 0 {
			cur = src.Filter(sh, unit)
			continue
		}
		if len(cur) == 0 {
			break
		}
		cur = narrow(cur, sh)
	}
	return cur, nil
}

// or concatenates per-shape results in input order without dedupe.
func (e *Executor) or(ctx context.Context, src Source, shapes []predicate.Shape, unit string) ([]model.CrsBBox, error) {
	parts := make([][]model.CrsBBox, len(shapes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, sh := range shapes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[i] = src.Filter(sh, unit)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []model.CrsBBox
	for _, p := range parts {
		out = append(out, p...)
	}
	return out, nil
}

func (e *Executor) xor(ctx context.Context, src Source, shapes []predicate.Shape, unit string) ([]model.CrsBBox, error) {
	var cur []model.CrsBBox
	for _, sh := range shapes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur = Xor(cur, src.Filter(sh, unit))
	}
	return SortDedupe(cur), nil
}

func narrow(rows []model.CrsBBox, sh predicate.Shape) []model.CrsBBox {
	out := rows[:0:0]
	for _, r := range rows {
		if sh.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}
