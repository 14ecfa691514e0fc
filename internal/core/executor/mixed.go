package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
	"github.com/mohammed-shakir/crsfinder/internal/predicate"
)

// ErrMixedQuery marks a mixed query whose operators do not line up with its
// operands.
var ErrMixedQuery = errors.New("invalid mixed query")

const opPostfix = "postfix"

type itemKind int

const (
	itemGeom itemKind = iota
	itemNone
	itemAll
	itemOp
)

type item struct {
	kind  itemKind
	op    string
	unit  string
	shape predicate.Shape
}

// ExecuteMixed evaluates a word list that mixes geometries with keywords.
//
// An optional first word picks the combinator: and (default), or, xor or
// postfix. point, poly and bbox switch the geometry type; latlon and xy switch
// the coordinate system; unit=U sets the unit filter for what follows; none
// and all stand for the empty and the full row set. In postfix queries the
// words and, or, xor and not pop their operands from a stack, which must end
// with exactly one entry.
func (e *Executor) ExecuteMixed(ctx context.Context, src Source, words []string) (Result, error) {
	words = compact(words)
	if len(words) == 0 {
		return Result{}, nil
	}
	op := string(model.OpAnd)
	switch words[0] {
	case string(model.OpAnd), string(model.OpOr), string(model.OpXor), opPostfix:
		op = words[0]
		words = words[1:]
	}

	items, warns, err := e.parseMixed(op, words)
	if err != nil {
		return Result{}, err
	}

	var rows []model.CrsBBox
	if op == opPostfix {
		rows, err = e.evalPostfix(ctx, src, items)
	} else {
		rows, err = e.evalSequential(ctx, src, model.Op(op), items)
	}
	if err != nil {
		return Result{}, err
	}
	e.logger.Debug("mixed query executed", "op", op, "items", len(items), "rows", len(rows))
	return Result{Rows: rows, Warnings: warns}, nil
}

func isKeyword(w string) bool {
	switch w {
	case "and", "or", "xor", "not",
		"none", "all",
		"point", "poly", "bbox",
		"latlon", "xy":
		return true
	}
	return strings.HasPrefix(w, "unit=")
}

func (e *Executor) parseMixed(op string, words []string) ([]item, []string, error) {
	var (
		items    []item
		warns    []string
		kind     = model.KindPoint
		coords   = model.LatLon
		unit     = model.UnitAny
		stack    int
		operands int
	)
	for i := 0; i < len(words); {
		w := words[i]
		switch {
		case w == "and" || w == "or" || w == "xor" || w == "not":
			if op != opPostfix {
				return nil, nil, fmt.Errorf("%w: %s outside a postfix query", ErrMixedQuery, w)
			}
			switch {
			case w == "not" && stack >= 1:
			case w != "not" && stack >= 2:
				stack--
			default:
				return nil, nil, fmt.Errorf("%w: not enough operands for %s", ErrMixedQuery, w)
			}
			items = append(items, item{kind: itemOp, op: w, unit: unit})
		case w == "point" || w == "poly" || w == "bbox":
			kind = model.GeomKind(w)
		case w == "latlon" || w == "xy":
			coords = model.CoordSys(w)
		case strings.HasPrefix(w, "unit="):
			unit = strings.TrimPrefix(w, "unit=")
		case w == "none":
			items = append(items, item{kind: itemNone, unit: unit})
			stack++
		case w == "all":
			items = append(items, item{kind: itemAll, unit: unit})
			stack++
		default:
			j := i
			for j < len(words) && !isKeyword(words[j]) {
				j++
			}
			geoms, w2, err := geometry.ParseGeometries(kind, coords, geometry.Texts(words[i:j]...))
			if err != nil {
				return nil, nil, err
			}
			warns = append(warns, w2...)
			for _, g := range geoms {
				sh, err := predicate.Compile(g)
				if err != nil {
					warns = append(warns, fmt.Sprintf("skipping %s: %v", g, err))
					continue
				}
				items = append(items, item{kind: itemGeom, unit: unit, shape: sh})
				stack++
				operands++
			}
			i = j
			continue
		}
		i++
	}
	if e.maxGeoms > 0 && operands > e.maxGeoms {
		return nil, nil, fmt.Errorf("%w: %d > %d", ErrTooManyGeometries, operands, e.maxGeoms)
	}
	if op == opPostfix && stack != 1 {
		return nil, nil, fmt.Errorf("%w: postfix stack ends with %d entries", ErrMixedQuery, stack)
	}
	return items, warns, nil
}

// evalSequential folds operands left to right. The first operand seeds the
// result; in an and query each later geometry narrows it, while or and xor
// queries merge fresh per-geometry results.
func (e *Executor) evalSequential(ctx context.Context, src Source, op model.Op, items []item) ([]model.CrsBBox, error) {
	var (
		out    []model.CrsBBox
		first  = true
		resort bool
	)
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if op != model.OpAnd || first {
			got := operand(src, it)
			first = false
			if len(got) == 0 {
				continue
			}
			if len(out) > 0 {
				resort = true
				if op == model.OpXor {
					out = Xor(out, got)
					continue
				}
			}
			out = append(out, got...)
			continue
		}
		switch it.kind {
		case itemNone:
			out = nil
		case itemAll:
			// all resets the running set the way none clears it
			out = src.All(it.unit)
		case itemGeom:
			out = filterUnit(narrow(out, it.shape), it.unit)
		}
	}
	if resort {
		out = SortDedupe(out)
	}
	return out, nil
}

func (e *Executor) evalPostfix(ctx context.Context, src Source, items []item) ([]model.CrsBBox, error) {
	var (
		stack  [][]model.CrsBBox
		resort bool
	)
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if it.kind != itemOp {
			stack = append(stack, operand(src, it))
			continue
		}
		n := len(stack)
		switch it.op {
		case "not":
			stack[n-1] = Not(stack[n-1], src.All(it.unit))
		case "and":
			stack = append(stack[:n-2], And(stack[n-2], stack[n-1]))
		case "or":
			stack = append(stack[:n-2], Or(stack[n-2], stack[n-1]))
		case "xor":
			stack = append(stack[:n-2], Xor(stack[n-2], stack[n-1]))
		}
		if it.op != "and" {
			resort = true
		}
	}
	out := stack[0]
	if resort {
		out = SortDedupe(out)
	}
	return out, nil
}

func operand(src Source, it item) []model.CrsBBox {
	switch it.kind {
	case itemAll:
		return src.All(it.unit)
	case itemGeom:
		return src.Filter(it.shape, it.unit)
	}
	return nil
}

func filterUnit(rows []model.CrsBBox, unit string) []model.CrsBBox {
	out := rows[:0:0]
	for _, r := range rows {
		if model.MatchUnit(unit, r) {
			out = append(out, r)
		}
	}
	return out
}

func compact(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}
