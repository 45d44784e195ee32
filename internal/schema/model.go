// Package schema describes the warehouse star schema: the three entity tables
// (two dimensions and one fact), their keys and indexes, and the derived
// summary views. It carries no SQL; dialects render it.
package schema

import "fmt"

// Entity names one of the warehouse entities fed by a flat file.
type Entity string

const (
	Customer Entity = "customer"
	Product  Entity = "product"
	Sales    Entity = "sales"
)

// LoadOrder is the order in which entities are transformed and loaded.
// Dimensions come before the fact table so foreign keys resolve.
var LoadOrder = []Entity{Customer, Product, Sales}

// ParseEntity maps a selector such as "customer" or "sales_fact" to an Entity.
func ParseEntity(s string) (Entity, error) {
	switch s {
	case "customer", "customers", "customer_dim":
		return Customer, nil
	case "product", "products", "product_dim":
		return Product, nil
	case "sales", "sale", "sales_fact", "orders":
		return Sales, nil
	}
	return "", fmt.Errorf("unknown entity %q", s)
}

// Type is a logical column type mapped to SQL by each dialect.
type Type string

const (
	Text    Type = "text"
	Key     Type = "key" // text identifier used in PK/FK/index positions
	Integer Type = "integer"
	Decimal Type = "decimal"
	Date    Type = "date"
)

// Column is a single table column.
type Column struct {
	Name     string
	Type     Type
	Required bool
}

// ForeignKey references another table's primary key.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Index is a secondary index over one or more columns.
type Index struct {
	Name    string
	Table   string
	Columns []string
}

// Table is one warehouse table.
type Table struct {
	Name        string
	Entity      Entity
	Columns     []Column
	PrimaryKey  string
	ForeignKeys []ForeignKey
}

// ColumnNames returns the table's columns in declaration order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// RequiredColumns returns the names of the columns a row must carry.
func (t Table) RequiredColumns() []string {
	var out []string
	for _, c := range t.Columns {
		if c.Required {
			out = append(out, c.Name)
		}
	}
	return out
}

// View is a derived summary rebuilt after every load.
type View struct {
	Name string
	// Columns lists the output columns in order.
	Columns []string
}

// Star is the complete warehouse definition.
type Star struct {
	Tables  []Table
	Indexes []Index
	Views   []View
}

// Table names.
const (
	CustomerDim = "customer_dim"
	ProductDim  = "product_dim"
	SalesFact   = "sales_fact"

	MonthlySalesSummary         = "monthly_sales_summary"
	CustomerDemographicsSummary = "customer_demographics_summary"
)

// Warehouse returns the star schema loaded by the pipeline.
func Warehouse() Star {
	return Star{
		Tables: []Table{
			{
				Name:       CustomerDim,
				Entity:     Customer,
				PrimaryKey: "customer_id",
				Columns: []Column{
					{Name: "customer_id", Type: Key, Required: true},
					{Name: "customer_name", Type: Text, Required: true},
					{Name: "gender", Type: Key},
					{Name: "region", Type: Key},
				},
			},
			{
				Name:       ProductDim,
				Entity:     Product,
				PrimaryKey: "product_id",
				Columns: []Column{
					{Name: "product_id", Type: Key, Required: true},
					{Name: "product_name", Type: Text, Required: true},
					{Name: "category", Type: Text},
					{Name: "price", Type: Decimal, Required: true},
				},
			},
			{
				Name:       SalesFact,
				Entity:     Sales,
				PrimaryKey: "order_id",
				Columns: []Column{
					{Name: "order_id", Type: Key, Required: true},
					{Name: "product_id", Type: Key, Required: true},
					{Name: "customer_id", Type: Key, Required: true},
					{Name: "quantity", Type: Integer, Required: true},
					{Name: "price", Type: Decimal, Required: true},
					{Name: "total_sales", Type: Decimal, Required: true},
					{Name: "date", Type: Date, Required: true},
				},
				ForeignKeys: []ForeignKey{
					{Column: "product_id", RefTable: ProductDim, RefColumn: "product_id"},
					{Column: "customer_id", RefTable: CustomerDim, RefColumn: "customer_id"},
				},
			},
		},
		Indexes: []Index{
			{Name: "idx_sales_fact_date", Table: SalesFact, Columns: []string{"date"}},
			{Name: "idx_sales_fact_product_id", Table: SalesFact, Columns: []string{"product_id"}},
			{Name: "idx_sales_fact_customer_id", Table: SalesFact, Columns: []string{"customer_id"}},
			{Name: "idx_customer_region_gender", Table: CustomerDim, Columns: []string{"region", "gender"}},
		},
		Views: []View{
			{Name: MonthlySalesSummary, Columns: []string{"month", "total_monthly_sales"}},
			{Name: CustomerDemographicsSummary, Columns: []string{"region", "gender", "customer_count"}},
		},
	}
}

// TableFor returns the table that stores entity e.
func (s Star) TableFor(e Entity) (Table, bool) {
	for _, t := range s.Tables {
		if t.Entity == e {
			return t, true
		}
	}
	return Table{}, false
}

// DropOrder returns the tables with dependents first (fact before dimensions).
func (s Star) DropOrder() []Table {
	out := make([]Table, 0, len(s.Tables))
	for i := len(s.Tables) - 1; i >= 0; i-- {
		out = append(out, s.Tables[i])
	}
	return out
}
