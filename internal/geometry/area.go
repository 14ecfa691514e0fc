package geometry

import (
	"fmt"
	"math"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

// Earth radii in km.
const (
	equatorialRadius = 6378.1370
	polarRadius      = 6356.7523
)

// Area returns the surface area in square kilometres of the ellipsoidal
// segment bounded by b. The segment is summed in one-degree latitude strips.
// West greater than east wraps across the antimeridian; west equal to east
// spans the full circle.
func Area(b model.BBox) (float64, error) {
	if !inRange(b.South, -90, 90) {
		return 0, fmt.Errorf("%w: south %g outside [-90,90]", ErrParse, b.South)
	}
	if !inRange(b.North, -90, 90) {
		return 0, fmt.Errorf("%w: north %g outside [-90,90]", ErrParse, b.North)
	}
	if b.South > b.North {
		return 0, fmt.Errorf("%w: south %g greater than north %g", ErrValidation, b.South, b.North)
	}

	var dlon float64
	switch {
	case b.West == b.East || (b.West == -180 && b.East == 180):
		dlon = 360
	case b.West < b.East:
		dlon = b.East - b.West
	default:
		dlon = 360 - b.West + b.East
	}
	dlon *= math.Pi / 180

	nlats := int(math.Ceil(b.North-b.South)) + 1
	lats := make([]float64, 0, nlats)
	for i := range nlats - 1 {
		lats = append(lats, b.South+float64(i))
	}
	lats = append(lats, b.North)

	var area float64
	for i := 0; i+1 < len(lats); i++ {
		bot, top := lats[i], lats[i+1]
		width := horizRadiusAtLat((bot+top)/2) * dlon
		xb, yb := xyAtLat(bot)
		xt, yt := xyAtLat(top)
		area += width * math.Hypot(xt-xb, yt-yb)
	}
	return area, nil
}

// xyAtLat returns the point at lat on the meridian ellipse, x from the axis
// and y toward the north pole.
func xyAtLat(lat float64) (float64, float64) {
	theta := lat / 180 * math.Pi
	theta2 := math.Atan2(equatorialRadius*math.Tan(theta), polarRadius)
	return equatorialRadius * math.Cos(theta2), polarRadius * math.Sin(theta2)
}

func horizRadiusAtLat(lat float64) float64 {
	x, _ := xyAtLat(lat)
	return x
}
