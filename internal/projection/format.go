// Package projection turns matched catalog rows into output records and
// encodes them.
package projection

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

type Format int

const (
	FormatJSON Format = iota
	FormatGeoJSON
	FormatCSV
	FormatPlain
	FormatSRID
)

func (f Format) String() string {
	switch f {
	case FormatGeoJSON:
		return "geojson"
	case FormatCSV:
		return "csv"
	case FormatPlain:
		return "plain"
	case FormatSRID:
		return "srid"
	default:
		return "json"
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatGeoJSON:
		return "application/geo+json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatPlain, FormatSRID:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// ParseFormat maps a format name to a Format. The empty name is JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "geojson":
		return FormatGeoJSON, nil
	case "csv":
		return FormatCSV, nil
	case "plain", "text":
		return FormatPlain, nil
	case "srid", "srids":
		return FormatSRID, nil
	default:
		return 0, fmt.Errorf("%w: output format %q", model.ErrInvalidMode, s)
	}
}

type NegotiationInput struct {
	AcceptHeader  string
	OutputFormat  string
	DefaultFormat Format
}

// NegotiateFormat picks the output format. An explicit format wins over the
// Accept header; the highest-q supported media type wins over the default.
func NegotiateFormat(in NegotiationInput) (Format, error) {
	if strings.TrimSpace(in.OutputFormat) != "" {
		return ParseFormat(in.OutputFormat)
	}

	bestQ := -1.0
	best := in.DefaultFormat
	for part := range strings.SplitSeq(strings.ToLower(in.AcceptHeader), ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		mt, params, _ := strings.Cut(token, ";")
		mt = strings.TrimSpace(mt)
		q := 1.0
		for p := range strings.SplitSeq(params, ";") {
			if after, ok := strings.CutPrefix(strings.TrimSpace(p), "q="); ok {
				if v, err := strconv.ParseFloat(after, 64); err == nil {
					q = v
				}
			}
		}
		var cand Format
		switch mt {
		case "*/*":
			cand = in.DefaultFormat
		case "application/json":
			cand = FormatJSON
		case "application/geo+json":
			cand = FormatGeoJSON
		case "text/csv":
			cand = FormatCSV
		case "text/plain":
			cand = FormatPlain
		default:
			continue
		}
		if q > bestQ {
			bestQ, best = q, cand
		}
	}
	return best, nil
}

var separators = map[string]string{
	"pipe":    "|",
	"comma":   ",",
	"space":   " ",
	"tab":     "\t",
	"newline": "\n",
}

// Separator resolves a separator name (pipe, comma, space, tab, newline).
// Other values are used literally; empty means pipe.
func Separator(name string) string {
	if name == "" {
		return "|"
	}
	if s, ok := separators[name]; ok {
		return s
	}
	return name
}
