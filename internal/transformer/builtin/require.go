package builtin

import "salesetl/pkg/records"

// Require rejects any record missing a value for one of Fields.
type Require struct {
	Fields []string
}

// Check returns a *FieldError for the first required field that is absent,
// nil, or an NA token.
func (r Require) Check(rec records.Record) error {
	for _, f := range r.Fields {
		v, ok := rec[f]
		if !ok || IsMissing(v) {
			return &FieldError{Field: f, Reason: ReasonMissing, Value: v}
		}
	}
	return nil
}
