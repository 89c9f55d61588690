// Package keys builds the Redis keys of the coordinate store.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const coordPrefix = "coord:v1"

// Coordinate returns the store key of a city geocoded with a country
// qualifier. The readable part is sanitized and truncated; the hash of the
// normalized query keeps distinct spellings apart.
func Coordinate(country, city string) string {
	norm := normalize(country) + "|" + normalize(city)
	sum := xxhash.Sum64String(norm)

	safeCountry := sanitize(normalize(country))
	safeCity := sanitize(normalize(city))
	const maxPartLen = 64
	if len(safeCity) > maxPartLen {
		safeCity = safeCity[:maxPartLen]
	}
	if len(safeCountry) > maxPartLen {
		safeCountry = safeCountry[:maxPartLen]
	}
	return fmt.Sprintf("%s:%s:%s:h=%016x", coordPrefix, safeCountry, safeCity, sum)
}

// lowercases and collapses whitespace runs to a single space
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// any other rune (including non-ASCII) becomes '-'
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

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
