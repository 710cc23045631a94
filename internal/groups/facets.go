// Package groups handles experiment group names. A group name is an opaque
// string to the store, but by convention names of the form "k=v;k=v" carry
// facets (dataset=..., model=...) that exports and listings break out into
// columns.
package groups

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	facetSeparator = ";"
	kvSeparator    = "="
)

// Normalize returns the canonical (NFC) form of a group name, so names typed
// on different platforms compare equal.
func Normalize(name string) string {
	return norm.NFC.String(name)
}

// IsFaceted reports whether a group name carries key=value facets.
func IsFaceted(name string) bool {
	return strings.Contains(name, kvSeparator)
}

// ParseFacets splits "k=v;k=v" into a map. Items without "=" are skipped and
// later duplicates win. The boolean is false when no facet was found.
func ParseFacets(name string) (map[string]string, bool) {
	facets := make(map[string]string)
	for _, item := range strings.Split(Normalize(name), facetSeparator) {
		k, v, ok := strings.Cut(item, kvSeparator)
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		facets[k] = strings.TrimSpace(v)
	}
	return facets, len(facets) > 0
}

// FormatFacets renders facets as "k=v;k=v" with keys sorted.
func FormatFacets(facets map[string]string) string {
	keys := make([]string, 0, len(facets))
	for k := range facets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+kvSeparator+facets[k])
	}
	return Normalize(strings.Join(parts, facetSeparator))
}

// PrimaryFacets picks the facets of an experiment from its group names: the
// last faceted group in recording order wins.
func PrimaryFacets(names []string) map[string]string {
	var primary map[string]string
	for _, name := range names {
		if !IsFaceted(name) {
			continue
		}
		if facets, ok := ParseFacets(name); ok {
			primary = facets
		}
	}
	if primary == nil {
		return map[string]string{}
	}
	return primary
}
