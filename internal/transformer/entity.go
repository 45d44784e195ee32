package transformer

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"salesetl/internal/schema"
	"salesetl/internal/transformer/builtin"
	"salesetl/pkg/records"
)

// Reason is the drop reason attached to a rejected row.
type Reason = builtin.Reason

// RowValidationError describes one input row that was dropped. It never
// aborts a transform; it is counted in Result.Reasons.
type RowValidationError struct {
	Entity schema.Entity
	Row    int // 1-based position in the raw input
	Field  string
	Reason Reason
	Value  any
	Err    error
}

func (e *RowValidationError) Error() string {
	msg := fmt.Sprintf("%s row %d: %s", e.Entity, e.Row, e.Reason)
	if e.Field != "" {
		msg += fmt.Sprintf(" field=%s value=%v", e.Field, e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RowValidationError) Unwrap() error { return e.Err }

// Outcome is the validation result for one row: either a typed Record or
// the reason it was rejected.
type Outcome struct {
	Record records.Record
	Err    *RowValidationError
}

func (o Outcome) OK() bool { return o.Err == nil }

// Result is the cleaned output of one entity together with its drop
// accounting. Read == Kept + Dropped.
type Result struct {
	Entity  schema.Entity
	Columns []string
	Rows    []records.Record

	Read    int
	Kept    int
	Dropped int
	Reasons map[Reason]int
	// Samples holds the first few rejections, ordered by input row.
	Samples []RowValidationError
}

type options struct {
	headerMap   map[string]string
	layouts     []string
	sampleLimit int
	dedupPolicy string
}

// Option tunes Transform.
type Option func(*options)

// WithHeaderMap adds source header aliases applied during column
// normalization (for example {"Cust No": "customer_id"}).
func WithHeaderMap(m map[string]string) Option {
	return func(o *options) { o.headerMap = m }
}

// WithDateLayouts replaces the default date layouts.
func WithDateLayouts(layouts []string) Option {
	return func(o *options) { o.layouts = layouts }
}

// WithSampleLimit caps Result.Samples. Zero disables sampling.
func WithSampleLimit(n int) Option {
	return func(o *options) { o.sampleLimit = n }
}

// WithDedupPolicy picks which row survives when rows share a primary key:
// builtin.KeepFirst (default) or builtin.KeepLast.
func WithDedupPolicy(policy string) Option {
	return func(o *options) { o.dedupPolicy = policy }
}

// DefaultSampleLimit is the number of rejections kept in Result.Samples.
const DefaultSampleLimit = 20

type rule struct {
	required []string
	types    map[string]string
	derive   func(records.Record) error
}

var rules = map[schema.Entity]rule{
	schema.Customer: {
		required: []string{"customer_id", "customer_name"},
		types: map[string]string{
			"customer_id": "text", "customer_name": "text", "gender": "text", "region": "text",
		},
	},
	schema.Product: {
		required: []string{"product_id", "product_name", "price"},
		types: map[string]string{
			"product_id": "text", "product_name": "text", "category": "text", "price": "money+",
		},
	},
	schema.Sales: {
		required: []string{"order_id", "product_id", "customer_id", "price", "quantity", "date"},
		types: map[string]string{
			"order_id": "text", "product_id": "text", "customer_id": "text",
			"price": "money+", "quantity": "int", "date": "date",
		},
		derive: func(r records.Record) error {
			price, ok := r["price"].(decimal.Decimal)
			if !ok {
				return &builtin.FieldError{Field: "price", Reason: builtin.ReasonInvalidMoney, Value: r["price"]}
			}
			qty, ok := r["quantity"].(int64)
			if !ok {
				return &builtin.FieldError{Field: "quantity", Reason: builtin.ReasonNotWhole, Value: r["quantity"]}
			}
			r["total_sales"] = price.Mul(decimal.NewFromInt(qty))
			return nil
		},
	},
}

var errUnknownEntity = errors.New("unknown entity")

// Transform cleans raw records for entity e. It does not modify raw.
//
// Steps: column names are normalized, missing-value tokens become nil, exact
// duplicate rows are removed, each row is validated and coerced into its
// typed form, and finally rows repeating a primary key are dropped according
// to the dedup policy.
// Output rows carry exactly the columns of the entity's table.
func Transform(raw []records.Record, e schema.Entity, opts ...Option) (Result, error) {
	o := options{sampleLimit: DefaultSampleLimit}
	for _, opt := range opts {
		opt(&o)
	}
	ru, ok := rules[e]
	table, found := schema.Warehouse().TableFor(e)
	if !ok || !found {
		return Result{}, fmt.Errorf("transform: %w %q", errUnknownEntity, e)
	}

	res := Result{
		Entity:  e,
		Columns: table.ColumnNames(),
		Read:    len(raw),
		Reasons: map[Reason]int{},
	}
	reject := func(ve *RowValidationError) {
		res.Reasons[ve.Reason]++
		if len(res.Samples) < o.sampleLimit {
			res.Samples = append(res.Samples, *ve)
		}
	}

	rows := make([]records.Record, len(raw))
	copy(rows, raw)
	rows = Chain{
		builtin.NormalizeColumns{HeaderMap: o.headerMap},
		builtin.Normalize{},
		builtin.Stringify{},
	}.Apply(rows)

	var distinct builtin.Distinct
	valid := make([]records.Record, 0, len(rows))
	pos := make([]int, 0, len(rows))
	for i, r := range rows {
		if !distinct.First(r) {
			reject(&RowValidationError{Entity: e, Row: i + 1, Reason: builtin.ReasonDuplicateRow})
			continue
		}
		out := validateRow(r, e, ru, o.layouts)
		if !out.OK() {
			out.Err.Row = i + 1
			reject(out.Err)
			continue
		}
		valid = append(valid, project(out.Record, res.Columns))
		pos = append(pos, i+1)
	}

	// Rows that only share the key with another row are not exact
	// duplicates; the policy picks the survivor.
	dedup := builtin.DeDup{
		Keys:   []string{table.PrimaryKey},
		Policy: o.dedupPolicy,
		OnDrop: func(i int, r records.Record) {
			reject(&RowValidationError{
				Entity: e, Row: pos[i], Field: table.PrimaryKey, Reason: builtin.ReasonDuplicateKey, Value: r[table.PrimaryKey],
			})
		},
	}
	res.Rows = dedup.Apply(valid)
	sortSamples(res.Samples)
	res.Kept = len(res.Rows)
	res.Dropped = res.Read - res.Kept
	return res, nil
}

// Validate checks and coerces a single row, which must already have
// normalized column names.
func Validate(r records.Record, e schema.Entity, layouts []string) Outcome {
	ru, ok := rules[e]
	if !ok {
		return Outcome{Err: &RowValidationError{Entity: e, Err: fmt.Errorf("%w %q", errUnknownEntity, e)}}
	}
	rows := builtin.Stringify{}.Apply([]records.Record{r.Clone()})
	return validateRow(rows[0], e, ru, layouts)
}

func validateRow(r records.Record, e schema.Entity, ru rule, layouts []string) Outcome {
	if err := (builtin.Require{Fields: ru.required}).Check(r); err != nil {
		return Outcome{Err: rowError(e, err)}
	}
	if err := (builtin.Coerce{Types: ru.types, Layouts: layouts}).Row(r); err != nil {
		return Outcome{Err: rowError(e, err)}
	}
	if ru.derive != nil {
		if err := ru.derive(r); err != nil {
			return Outcome{Err: rowError(e, err)}
		}
	}
	return Outcome{Record: r}
}

func rowError(e schema.Entity, err error) *RowValidationError {
	ve := &RowValidationError{Entity: e, Err: err}
	var fe *builtin.FieldError
	if errors.As(err, &fe) {
		ve.Field, ve.Reason, ve.Value, ve.Err = fe.Field, fe.Reason, fe.Value, fe.Err
	}
	return ve
}

// sortSamples restores input order after key rejections, which are only
// known once every row has been validated.
func sortSamples(s []RowValidationError) {
	slices.SortStableFunc(s, func(a, b RowValidationError) int { return cmp.Compare(a.Row, b.Row) })
}

func project(r records.Record, cols []string) records.Record {
	out := make(records.Record, len(cols))
	for _, c := range cols {
		out[c] = r[c]
	}
	return out
}
