// Package geometry turns raw coordinate input into validated query
// geometries and reduces polygons to bounding boxes.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

var (
	// ErrParse marks malformed coordinate text or an out-of-range value.
	ErrParse = errors.New("unparsable geometry")
	// ErrValidation marks a geometry that parsed but is structurally
	// invalid, such as a bbox whose south is greater than its north.
	ErrValidation = errors.New("invalid geometry")
)

const (
	posFloatPat = `(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)`
	coorSepPat  = `[ \t]*[, \t][ \t]*`

	// (-1.2)°
	ddPat = `([+-]?` + posFloatPat + `)[°od]?`
	// (1)°(2.3)' or (1)°(2)'(3.4)"
	dmsPat = `([0-9]+)(?:[°od](?:[ \t]*(?:(` + posFloatPat + `)['′m]|([0-9]+)['′m]` +
		`(?:[ \t]*(` + posFloatPat + `)(?:["″s]|''))?))?)?`
	coorPat = ddPat + `|([+-])?` + dmsPat + `|(?:(` + posFloatPat + `)[°od]?|` + dmsPat + `)[ \t]*`

	latPat = `(?:` + coorPat + `([SN])?)`
	lonPat = `(?:` + coorPat + `([WE])?)`

	// submatch groups per coordinate
	coorGroups = 12
)

var (
	latLonRE = regexp.MustCompile(`^` + latPat + coorSepPat + lonPat + `$`)
	bboxRE   = regexp.MustCompile(`^` + latPat + coorSepPat + latPat + coorSepPat + lonPat + coorSepPat + lonPat + `$`)
)

// ParsePoint parses "lat,lon" text or a two-value numeric token.
func ParsePoint(t Token) (model.Point, error) {
	var lat, lon float64
	switch {
	case t.Values != nil:
		if len(t.Values) != 2 {
			return model.Point{}, fmt.Errorf("%w: point needs 2 values, got %d", ErrParse, len(t.Values))
		}
		lat, lon = t.Values[0], t.Values[1]
	case t.Nested != nil:
		return model.Point{}, fmt.Errorf("%w: nested list is not a point", ErrParse)
	default:
		m := latLonRE.FindStringSubmatch(t.Text)
		if m == nil {
			return model.Point{}, fmt.Errorf("%w: %q", ErrParse, t.Text)
		}
		lat = parseCoor(m, 0, true)
		lon = parseCoor(m, 1, false)
	}
	p := model.Point{Lat: lat, Lon: lon}
	if err := ValidatePoint(p); err != nil {
		return model.Point{}, err
	}
	return p, nil
}

// ParseBBox parses "south,north,west,east" text or a four-value numeric
// token.
func ParseBBox(t Token) (model.BBox, error) {
	var b model.BBox
	switch {
	case t.Values != nil:
		if len(t.Values) != 4 {
			return model.BBox{}, fmt.Errorf("%w: bbox needs 4 values, got %d", ErrParse, len(t.Values))
		}
		b = model.BBox{South: t.Values[0], North: t.Values[1], West: t.Values[2], East: t.Values[3]}
	case t.Nested != nil:
		return model.BBox{}, fmt.Errorf("%w: nested list is not a bbox", ErrParse)
	default:
		m := bboxRE.FindStringSubmatch(t.Text)
		if m == nil {
			return model.BBox{}, fmt.Errorf("%w: %q", ErrParse, t.Text)
		}
		b = model.BBox{
			South: parseCoor(m, 0, true),
			North: parseCoor(m, 1, true),
			West:  parseCoor(m, 2, false),
			East:  parseCoor(m, 3, false),
		}
	}
	if err := ValidateBBox(b); err != nil {
		return model.BBox{}, err
	}
	return b, nil
}

// parseCoor reads the ith coordinate of a latLonRE or bboxRE match. Groups
// per coordinate:
//
//	1:          (-1.2)°
//	2,3,4:      (-)(1)°(2.3)'
//	2,3,5,6:    (-)(1)°(2)'(3.4)"
//	7,12:       (1.2)°(S)
//	8,9,12:     (1)°(2.3)'(S)
//	8,10,11,12: (1)°(2)'(3.4)"(S)
func parseCoor(m []string, ith int, lat bool) float64 {
	g := m[ith*coorGroups:]
	var x float64
	switch {
	case g[1] != "":
		x = atof(g[1])
	case g[4] != "":
		x = atof(g[3]) + atof(g[4])/60
	case g[5] != "":
		x = atof(g[3]) + atof(g[5])/60 + atof(g[6])/3600
	case g[7] != "":
		x = atof(g[7])
	case g[9] != "":
		x = atof(g[8]) + atof(g[9])/60
	case g[10] != "":
		x = atof(g[8]) + atof(g[10])/60 + atof(g[11])/3600
	case g[3] != "":
		x = atof(g[3])
	case g[8] != "":
		x = atof(g[8])
	}
	hemi := g[12]
	if g[2] == "-" || (lat && hemi == "S") || (!lat && hemi == "W") {
		x = -x
	}
	return x
}

// the regexps only admit valid float syntax
func atof(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}
