// Package nrql builds NRQL query text from typed parts.
//
// Probes describe their query as a Query value instead of concatenating
// strings; compilation keeps quoting and clause ordering in one place.
// NRQL has no server-side parameterization, so string values are escaped
// here before interpolation.
package nrql

import (
	"fmt"
	"strings"
)

// Query is a typed NRQL SELECT statement.
type Query struct {
	// Select lists the projection expressions, e.g. "count(*)".
	Select []string

	// From is the event type to query, e.g. "AwsMskBrokerSample".
	From string

	// Where holds predicate fragments joined with AND.
	Where []string

	// Facet lists optional FACET attributes.
	Facet []string

	// Since bounds the query window, e.g. "30 minutes ago".
	Since string

	// Limit caps the result rows. Zero means backend default.
	Limit int
}

// Compile renders the query to NRQL text.
// Clause order follows the NRQL grammar: SELECT, FROM, WHERE, FACET,
// SINCE, LIMIT.
func (q Query) Compile() (string, error) {
	if len(q.Select) == 0 {
		return "", fmt.Errorf("nrql: query has no SELECT expressions")
	}
	if q.From == "" {
		return "", fmt.Errorf("nrql: query has no FROM event type")
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Select, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.From)

	if len(q.Where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.Where, " AND "))
	}
	if len(q.Facet) > 0 {
		b.WriteString(" FACET ")
		b.WriteString(strings.Join(q.Facet, ", "))
	}
	if q.Since != "" {
		b.WriteString(" SINCE ")
		b.WriteString(q.Since)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.Limit)
	}

	return b.String(), nil
}

// MustCompile renders the query and panics on a malformed definition.
// For statically-defined probe queries whose shape is fixed at startup.
func (q Query) MustCompile() string {
	s, err := q.Compile()
	if err != nil {
		panic(err)
	}
	return s
}

// Eq returns a "field = 'value'" predicate with the value escaped.
func Eq(field, value string) string {
	return fmt.Sprintf("%s = %s", field, Quote(value))
}

// Like returns a "field LIKE 'pattern'" predicate with the pattern escaped.
func Like(field, pattern string) string {
	return fmt.Sprintf("%s LIKE %s", field, Quote(pattern))
}

// Quote renders a string literal for NRQL, escaping embedded quotes and
// backslashes. Values are never interpolated unescaped.
func Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
