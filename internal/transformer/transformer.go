// Package transformer turns raw flat-file records into typed warehouse rows.
package transformer

import "salesetl/pkg/records"

// Transformer is one whole-batch cleaning step.
type Transformer interface {
	Apply(in []records.Record) []records.Record
}

// Chain applies its steps in order, feeding each the previous output.
type Chain []Transformer

func (c Chain) Apply(in []records.Record) []records.Record {
	for _, t := range c {
		in = t.Apply(in)
	}
	return in
}
