// Package predicate implements the containment tests evaluated against
// catalog extents.
package predicate

import "github.com/mohammed-shakir/crsfinder/internal/core/model"

// PointInBBox reports whether box contains p. A box whose west equals its
// east, or that spans -180 to 180, covers every longitude. A box with west
// greater than east crosses the antimeridian.
func PointInBBox(p model.Point, box model.BBox) bool {
	lat, lon := p.Lat, p.Lon
	s, n, w, e := box.South, box.North, box.West, box.East

	if lat < s || lat > n {
		return false
	}
	switch {
	case w == e:
		return true
	case w == -180 && e == 180:
		return true
	case w < e:
		return w <= lon && lon <= e
	default:
		return (-180 <= lon && lon <= e) || (w <= lon && lon <= 180)
	}
}

// BBoxInBBox reports whether outer fully contains inner.
//
// Unlike PointInBBox, an inner box with west equal to east is not read as a
// full circle. It only fits inside a full-circle outer box.
func BBoxInBBox(inner, outer model.BBox) bool {
	s, n, w, e := inner.South, inner.North, inner.West, inner.East
	b, t, l, r := outer.South, outer.North, outer.West, outer.East

	if s < b || s > t || n < b || n > t {
		return false
	}
	switch {
	case l == r:
		return true
	case l == -180 && r == 180:
		return true
	case l < r:
		return w < e && l <= w && w <= r && l <= e && e <= r
	default:
		switch {
		case w < e:
			low := -180 <= w && w <= r && -180 <= e && e <= r
			high := l <= w && w <= 180 && l <= e && e <= 180
			return low || high
		case w > e:
			return -180 <= e && e <= r && l <= w && w <= 180
		default:
			return false
		}
	}
}
