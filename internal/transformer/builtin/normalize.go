package builtin

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"salesetl/pkg/records"
)

// Normalize trims string values, folds NBSP into a regular space and turns
// blank cells and the usual spreadsheet NA tokens into nil.
type Normalize struct{}

// naTokens are the cell values treated as missing, matching what common
// dataframe readers consider NA by default.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether v counts as an absent value.
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		_, na := naTokens[strings.TrimSpace(t)]
		return na
	}
	return false
}

func (Normalize) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			s, ok := v.(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
			if _, na := naTokens[s]; na {
				r[k] = nil
				continue
			}
			r[k] = s
		}
	}
	return in
}

// NormalizeColumns rewrites record keys into canonical column names.
// HeaderMap aliases (source header → canonical name) are applied after the
// header has been normalized, so aliases may be written in either form.
type NormalizeColumns struct {
	HeaderMap map[string]string
}

func (n NormalizeColumns) Apply(in []records.Record) []records.Record {
	aliases := make(map[string]string, len(n.HeaderMap))
	for from, to := range n.HeaderMap {
		aliases[ColumnName(from)] = ColumnName(to)
	}
	cache := map[string]string{}
	for i, r := range in {
		out := make(records.Record, len(r))
		for k, v := range r {
			name, ok := cache[k]
			if !ok {
				name = ColumnName(k)
				if a, ok := aliases[name]; ok {
					name = a
				}
				cache[k] = name
			}
			// First occurrence wins when two headers normalize to the same name.
			if _, dup := out[name]; dup {
				continue
			}
			out[name] = v
		}
		in[i] = out
	}
	return in
}

// ColumnName converts header text into a lowercase identifier:
//  1. trim and lowercase
//  2. strip accents (NFD → remove Mn → NFC)
//  3. runs of whitespace, '-', '.' and '_' collapse into a single '_'
//
// Other characters are kept as-is.
func ColumnName(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\uFEFF")))

	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, err := transform.String(t, s)
	if err == nil {
		s = folded
	}

	var b strings.Builder
	sep := false
	for _, r := range s {
		if unicode.IsSpace(r) || r == '-' || r == '.' || r == '_' {
			if !sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = true
			continue
		}
		sep = false
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), "_")
}

// Stringify renders every non-nil, non-string value as text so later steps
// only ever see strings. Spreadsheet readers may hand back numbers.
type Stringify struct{}

func (Stringify) Apply(in []records.Record) []records.Record {
	for _, r := range in {
		for k, v := range r {
			switch v.(type) {
			case nil, string:
			default:
				r[k] = Text(v)
			}
		}
	}
	return in
}
