package predicate

import "github.com/paulmach/orb"

// PointInXY reports whether the planar bound contains p, edges included.
func PointInXY(p orb.Point, b orb.Bound) bool {
	return b.Contains(p)
}

// BoundInXY reports whether outer contains every edge of inner. Planar
// extents never wrap.
func BoundInXY(inner, outer orb.Bound) bool {
	return outer.Contains(inner.Min) && outer.Contains(inner.Max)
}
