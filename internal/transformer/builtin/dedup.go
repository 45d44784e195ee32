package builtin

import (
	"fmt"
	"strings"

	"salesetl/pkg/records"
)

// DeDup collapses records that share a business key. Policy selects the
// winner among duplicates:
//
//   - "keep-first": keep the earliest occurrence (default)
//   - "keep-last":  keep the latest occurrence
//
// Output keeps the input order of the winners. Records missing a key field
// pass through untouched. OnDrop, when set, sees each removed record with its
// index in the input.
type DeDup struct {
	Keys   []string
	Policy string
	OnDrop func(i int, r records.Record)
}

// Policies accepted by DeDup.
const (
	KeepFirst = "keep-first"
	KeepLast  = "keep-last"
)

func (d DeDup) Apply(in []records.Record) []records.Record {
	if len(in) == 0 || len(d.Keys) == 0 {
		return in
	}
	keepLast := strings.EqualFold(strings.TrimSpace(d.Policy), KeepLast)

	winner := make(map[string]int, len(in))
	for i, r := range in {
		key, ok := d.keyOf(r)
		if !ok {
			continue
		}
		if _, exists := winner[key]; !exists || keepLast {
			winner[key] = i
		}
	}

	out := make([]records.Record, 0, len(winner))
	for i, r := range in {
		key, ok := d.keyOf(r)
		if !ok || winner[key] == i {
			out = append(out, r)
			continue
		}
		if d.OnDrop != nil {
			d.OnDrop(i, r)
		}
	}
	return out
}

func (d DeDup) keyOf(r records.Record) (string, bool) {
	var b strings.Builder
	for i, k := range d.Keys {
		v, ok := r[k]
		if !ok || v == nil {
			return "", false
		}
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch t := v.(type) {
		case string:
			b.WriteString(t)
		default:
			b.WriteString(fmt.Sprint(t))
		}
	}
	return b.String(), true
}
