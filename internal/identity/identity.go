// Package identity derives stable identifiers for records that have not yet
// been written to the remote store.
package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LocalPrefix marks an id synthesized locally.
const LocalPrefix = "self-"

const untitled = "untitled"

var nonWordRe = regexp.MustCompile(`[^a-z0-9_]+`)

// DeriveID builds the local id for a record from its title, company and
// location. The same inputs always produce the same id.
func DeriveID(title, company, location string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{title, company, location} {
		if s := Slug(p); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return LocalPrefix + untitled
	}
	return LocalPrefix + strings.Join(parts, "--")
}

// Slug lowercases s, folds compatibility and diacritic variants, and
// collapses every run of non-word characters into a single hyphen.
func Slug(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = nonWordRe.ReplaceAllString(folded, "-")
	return strings.Trim(folded, "-")
}

// IsLocal reports whether id was synthesized by DeriveID.
func IsLocal(id string) bool {
	return strings.HasPrefix(id, LocalPrefix)
}
