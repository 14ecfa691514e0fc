// Package keys builds cache keys for query results.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

const Namespace = "crs"

// Prefix returns the key prefix shared by every result cached against one
// catalog version.
func Prefix(version string) string {
	return Namespace + ":v=" + sanitizeForKey(strings.TrimSpace(version)) + ":"
}

// Key returns the cache key for q evaluated against the catalog version.
// Geometries are keyed by their canonical text, so "34.2,-83.8" and
// "34.20, -83.80" share one entry.
func Key(version string, q model.Query) string {
	parts := make([]string, len(q.Geometries))
	for i, g := range q.Geometries {
		parts[i] = g.String()
	}
	unit := q.Unit
	if unit == "" {
		unit = model.UnitAny
	}
	return key(version, fmt.Sprintf("%s:%s:%s", orDefault(string(q.Kind), "point"),
		orDefault(string(q.Op), "and"), orDefault(string(q.Coords), "latlon")),
		unit, strings.Join(parts, "|"))
}

// MixedKey keys a mixed query by its normalized word list.
func MixedKey(version string, words []string) string {
	return key(version, "mixed", "", collapseASCIIWhitespace(strings.Join(words, " ")))
}

// AllKey keys a match-all listing.
func AllKey(version, unit string) string {
	if unit == "" {
		unit = model.UnitAny
	}
	return key(version, "all", unit, "")
}

func key(version, mode, unit, body string) string {
	sum := xxhash.Sum64String(mode + "\x00" + unit + "\x00" + body)
	k := Prefix(version) + mode
	if unit != "" {
		unitSafe := sanitizeForKey(unit)
		const maxUnitLen = 48
		if len(unitSafe) > maxUnitLen {
			unitSafe = unitSafe[:maxUnitLen]
		}
		k += ":unit=" + unitSafe
	}
	return fmt.Sprintf("%s:f=%016x", k, sum)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// Any other rune (including non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
