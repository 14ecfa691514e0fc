package executor

import (
	"slices"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

func keys(rows []model.CrsBBox) map[model.RowKey]struct{} {
	m := make(map[model.RowKey]struct{}, len(rows))
	for _, r := range rows {
		m[r.Key()] = struct{}{}
	}
	return m
}

// And keeps the rows of a that are also in b, in a's order.
func And(a, b []model.CrsBBox) []model.CrsBBox {
	in := keys(b)
	var out []model.CrsBBox
	for _, r := range a {
		if _, ok := in[r.Key()]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Or appends the rows of b missing from a.
func Or(a, b []model.CrsBBox) []model.CrsBBox {
	in := keys(a)
	out := slices.Clone(a)
	for _, r := range b {
		if _, ok := in[r.Key()]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Xor returns the rows found in exactly one of a and b.
func Xor(a, b []model.CrsBBox) []model.CrsBBox {
	inA, inB := keys(a), keys(b)
	var out []model.CrsBBox
	for _, r := range a {
		if _, ok := inB[r.Key()]; !ok {
			out = append(out, r)
		}
	}
	for _, r := range b {
		if _, ok := inA[r.Key()]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// Not returns the rows of universe missing from a.
func Not(a, universe []model.CrsBBox) []model.CrsBBox {
	in := keys(a)
	var out []model.CrsBBox
	for _, r := range universe {
		if _, ok := in[r.Key()]; !ok {
			out = append(out, r)
		}
	}
	return out
}

// SortDedupe drops repeated rows and restores canonical order.
func SortDedupe(rows []model.CrsBBox) []model.CrsBBox {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, model.Compare)
	return slices.CompactFunc(out, func(a, b model.CrsBBox) bool { return a.Key() == b.Key() })
}
