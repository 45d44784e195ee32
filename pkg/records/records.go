// Package records defines the loosely typed row representation shared by the
// parsers and transformers. Keys are column names; values are nil, string, or
// a typed value produced by coercion (decimal.Decimal, int64, time.Time).
package records

// Record is a single row keyed by column name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Columns returns the keys of r in no particular order.
func (r Record) Columns() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}
