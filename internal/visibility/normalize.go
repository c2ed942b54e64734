package visibility

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a resource name for cross-backend comparison.
//
// Entity names come back in whatever Unicode form the backend stored them in
// (the graph has been observed returning decomposed forms for names the
// ingestion path stored precomposed). NFC normalization plus whitespace
// trimming makes the comparison stable.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// SameName reports whether two resource names refer to the same resource
// after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
