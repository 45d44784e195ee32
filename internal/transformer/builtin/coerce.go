package builtin

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"salesetl/pkg/records"
)

// Reason classifies why a field (and so its row) was rejected.
type Reason string

const (
	ReasonMissing      Reason = "missing_required"
	ReasonInvalidMoney Reason = "invalid_price"
	ReasonNegative     Reason = "negative_price"
	ReasonNotWhole     Reason = "invalid_quantity"
	ReasonInvalidDate  Reason = "invalid_date"
	ReasonDuplicateRow Reason = "duplicate_row"
	ReasonDuplicateKey Reason = "duplicate_key"
)

// FieldError reports a single field that failed a check.
type FieldError struct {
	Field  string
	Reason Reason
	Value  any
	Err    error
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v): %v", e.Field, e.Reason, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Field, e.Reason, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

var (
	errEmpty      = errors.New("empty value")
	errNotWhole   = errors.New("not a whole number")
	errNoLayout   = errors.New("no date layout matched")
	errNegative   = errors.New("negative amount")
	errMalformed  = errors.New("malformed number")
	errOutOfRange = errors.New("whole number out of range")
)

// DateLayouts are tried in order by ParseDate. Slash and dash forms with a
// leading month come before any day-first form.
var DateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"20060102",
}

// ParseMoney parses currency-formatted text into a decimal. Currency symbols
// (any Unicode Sc rune), thousands separators and whitespace are removed;
// a leading '-' or surrounding parentheses make the value negative.
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errEmpty
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Sc, r), r == ',', unicode.IsSpace(r), r == ' ':
			continue
		case r == '-' && b.Len() == 0:
			neg = !neg
		case (r >= '0' && r <= '9') || r == '.':
			b.WriteRune(r)
		default:
			return decimal.Zero, fmt.Errorf("%w: %q", errMalformed, s)
		}
	}
	if b.Len() == 0 {
		return decimal.Zero, fmt.Errorf("%w: %q", errMalformed, s)
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, err
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// ParseWholeNumber parses an integer quantity. Integral decimals such as
// "3.0" are accepted; "3.5" is not. The result must fit the 32-bit INTEGER
// column every backend declares for quantity.
func ParseWholeNumber(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, errEmpty
	}
	n, err := strconv.ParseInt(s, 10, 64)
	switch {
	case err == nil:
	case errors.Is(err, strconv.ErrRange):
		return 0, fmt.Errorf("%w: %q", errOutOfRange, s)
	default:
		d, derr := decimal.NewFromString(s)
		if derr != nil {
			return 0, derr
		}
		if !d.IsInteger() {
			return 0, fmt.Errorf("%w: %q", errNotWhole, s)
		}
		if !d.BigInt().IsInt64() {
			return 0, fmt.Errorf("%w: %q", errOutOfRange, s)
		}
		n = d.IntPart()
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %q", errOutOfRange, s)
	}
	return n, nil
}

// ParseDate parses s as a calendar date using the first matching layout and
// returns midnight UTC of that date. Out-of-range dates such as 2024-13-40
// never match.
func ParseDate(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errEmpty
	}
	if len(layouts) == 0 {
		layouts = DateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errNoLayout, s)
}

// Text renders an identifier value as text. Floats that hold an integer
// print without a fraction so 1001.0 and "1001" name the same key.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case decimal.Decimal:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Coerce converts string fields into typed values in place. Types maps a
// column to one of "text", "money", "money+" (non-negative money), "int" or
// "date". Columns that are absent or nil are left alone; Require runs first.
type Coerce struct {
	Types   map[string]string
	Layouts []string
}

// Row coerces a single record and returns a *FieldError for the first field
// that cannot be converted.
func (c Coerce) Row(r records.Record) error {
	fields := make([]string, 0, len(c.Types))
	for f := range c.Types {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, field := range fields {
		typ := c.Types[field]
		v, ok := r[field]
		if !ok || v == nil {
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			if typ == "text" {
				r[field] = Text(v)
			}
			continue
		}
		switch typ {
		case "text":
			// already text
		case "money", "money+":
			d, err := ParseMoney(s)
			if err != nil {
				return &FieldError{Field: field, Reason: ReasonInvalidMoney, Value: s, Err: err}
			}
			if typ == "money+" && d.IsNegative() {
				return &FieldError{Field: field, Reason: ReasonNegative, Value: s, Err: errNegative}
			}
			r[field] = d
		case "int":
			n, err := ParseWholeNumber(s)
			if err != nil {
				return &FieldError{Field: field, Reason: ReasonNotWhole, Value: s, Err: err}
			}
			r[field] = n
		case "date":
			t, err := ParseDate(s, c.Layouts)
			if err != nil {
				return &FieldError{Field: field, Reason: ReasonInvalidDate, Value: s, Err: err}
			}
			r[field] = t
		}
	}
	return nil
}
