package builtin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"

	"salesetl/pkg/records"
)

// Distinct removes rows that are exactly equal to an earlier row (same
// columns, same values). Rows are bucketed by an xxh3 hash of their canonical
// encoding and compared in full inside a bucket, so a hash collision never
// drops a distinct row. The zero value is ready to use.
type Distinct struct {
	buckets map[uint64][]string
}

// First records r and reports whether it is the first row with its exact
// contents.
func (d *Distinct) First(r records.Record) bool {
	if d.buckets == nil {
		d.buckets = make(map[uint64][]string)
	}
	enc := encodeRow(r)
	h := xxh3.HashString(enc)
	for _, prev := range d.buckets[h] {
		if prev == enc {
			return false
		}
	}
	d.buckets[h] = append(d.buckets[h], enc)
	return true
}

// encodeRow renders r deterministically: sorted keys, unit/record separators,
// nil as NUL.
func encodeRow(r records.Record) string {
	keys := r.Columns()
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('\x1f')
		switch v := r[k].(type) {
		case nil:
			b.WriteByte('\x00')
		case string:
			b.WriteString(v)
		default:
			fmt.Fprint(&b, v)
		}
		b.WriteByte('\x1e')
	}
	return b.String()
}
