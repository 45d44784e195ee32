package warehouse

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"salesetl/internal/metrics"
	"salesetl/internal/schema"
	"salesetl/internal/storage"
)

type summary struct {
	name       string
	selectList string
	from       string
}

func summaries(d storage.Dialect) []summary {
	month := d.MonthStart("date")
	return []summary{
		{
			name:       schema.MonthlySalesSummary,
			selectList: month + " AS month, SUM(total_sales) AS total_monthly_sales",
			from:       schema.SalesFact + "\nGROUP BY " + month + "\nORDER BY month",
		},
		{
			name:       schema.CustomerDemographicsSummary,
			selectList: "region, gender, COUNT(*) AS customer_count",
			from:       schema.CustomerDim + "\nGROUP BY region, gender\nORDER BY region, gender",
		},
	}
}

// ViewStatements returns the DDL that drops and rebuilds both summaries for
// dialect d.
func ViewStatements(d storage.Dialect) []string {
	defs := summaries(d)
	stmts := make([]string, 0, 2*len(defs))
	for _, s := range defs {
		stmts = append(stmts, d.DropSummary(s.name))
	}
	for _, s := range defs {
		stmts = append(stmts, d.CreateSummary(s.name, s.selectList, s.from))
	}
	return stmts
}

// BuildViews drops and rebuilds the summaries from the current table
// contents. The result is a snapshot; later loads are not reflected until
// the next BuildViews.
func (w *Warehouse) BuildViews(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { metrics.RecordStep(w.job, "build_views", err, time.Since(start)) }()

	if err := w.execAll(ctx, ViewStatements(w.repo.Dialect())); err != nil {
		return err
	}
	log.Printf("warehouse: views rebuilt dialect=%s", w.repo.Dialect().Name())
	return nil
}

// MonthlySales is one row of monthly_sales_summary.
type MonthlySales struct {
	Month string // YYYY-MM
	Total decimal.Decimal
}

// CustomerSegment is one row of customer_demographics_summary. NULL region
// or gender read as "".
type CustomerSegment struct {
	Region string
	Gender string
	Count  int64
}

// MonthlySales reads monthly_sales_summary in ascending month order.
func (w *Warehouse) MonthlySales(ctx context.Context) ([]MonthlySales, error) {
	rows, err := w.repo.Query(ctx, fmt.Sprintf(
		"SELECT month, total_monthly_sales FROM %s ORDER BY month", schema.MonthlySalesSummary))
	if err != nil {
		return nil, readError("read "+schema.MonthlySalesSummary, err)
	}
	out := make([]MonthlySales, 0, len(rows))
	for _, r := range rows {
		month, err := monthOf(r[0])
		if err != nil {
			return nil, err
		}
		total, err := decimalOf(r[1])
		if err != nil {
			return nil, err
		}
		out = append(out, MonthlySales{Month: month, Total: total})
	}
	return out, nil
}

// Demographics reads customer_demographics_summary ordered by region then
// gender.
func (w *Warehouse) Demographics(ctx context.Context) ([]CustomerSegment, error) {
	rows, err := w.repo.Query(ctx, fmt.Sprintf(
		"SELECT region, gender, customer_count FROM %s ORDER BY region, gender", schema.CustomerDemographicsSummary))
	if err != nil {
		return nil, readError("read "+schema.CustomerDemographicsSummary, err)
	}
	out := make([]CustomerSegment, 0, len(rows))
	for _, r := range rows {
		n, err := intOf(r[2])
		if err != nil {
			return nil, err
		}
		out = append(out, CustomerSegment{Region: textOf(r[0]), Gender: textOf(r[1]), Count: n})
	}
	return out, nil
}

// Count returns the number of rows in the table of entity e.
func (w *Warehouse) Count(ctx context.Context, e schema.Entity) (int64, error) {
	table, ok := w.star.TableFor(e)
	if !ok {
		return 0, fmt.Errorf("count: unknown entity %q", e)
	}
	rows, err := w.repo.Query(ctx, "SELECT COUNT(*) FROM "+table.Name)
	if err != nil {
		return 0, readError("count "+table.Name, err)
	}
	if len(rows) != 1 || len(rows[0]) != 1 {
		return 0, fmt.Errorf("count %s: unexpected result shape", table.Name)
	}
	return intOf(rows[0][0])
}

// Drivers return summary values in different Go types; the helpers below
// normalize them.

func monthOf(v any) (string, error) {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01"), nil
	case string:
		return monthFromText(t)
	case []byte:
		return monthFromText(string(t))
	}
	return "", fmt.Errorf("month: unsupported value %T", v)
}

func monthFromText(s string) (string, error) {
	if len(s) < 7 {
		return "", fmt.Errorf("month: unexpected value %q", s)
	}
	if _, err := time.Parse("2006-01", s[:7]); err != nil {
		return "", fmt.Errorf("month: %w", err)
	}
	return s[:7], nil
}

func decimalOf(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return t, nil
	case pgtype.Numeric:
		if !t.Valid || t.Int == nil {
			return decimal.Zero, nil
		}
		return decimal.NewFromBigInt(t.Int, t.Exp), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case string:
		return decimal.NewFromString(t)
	case []byte:
		return decimal.NewFromString(string(t))
	}
	return decimal.Zero, fmt.Errorf("decimal: unsupported value %T", v)
}

func intOf(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int32:
		return int64(t), nil
	case int:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	}
	return 0, fmt.Errorf("integer: unsupported value %T", v)
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	}
	return fmt.Sprint(v)
}
