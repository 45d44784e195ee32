package ddl

import (
	"strings"
	"testing"

	"salesetl/internal/schema"
)

// TestBuildCreateTableSQL covers validation errors and the rendered shape of
// keys and references.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "missing SQLType",
		},
		{
			name: "foreign key on unknown column",
			def: TableDef{
				FQN:         "t",
				Columns:     []ColumnDef{{Name: "id", SQLType: "INT"}},
				ForeignKeys: []ForeignKeyDef{{Column: "other_id", RefTable: "o", RefColumn: "id"}},
			},
			errContains: "unknown column other_id",
		},
		{
			name: "primary key and nullable column",
			def: TableDef{
				FQN: "t",
				Columns: []ColumnDef{
					{Name: "id", SQLType: "TEXT", PrimaryKey: true},
					{Name: "name", SQLType: "TEXT", Nullable: true},
				},
			},
			wantSQL: "CREATE TABLE t (\n  id TEXT NOT NULL,\n  name TEXT,\n  PRIMARY KEY (id)\n);",
		},
		{
			name: "default expression is trimmed",
			def: TableDef{
				FQN:     "t",
				Columns: []ColumnDef{{Name: "n", SQLType: "INT", Default: "  0 "}},
			},
			wantSQL: "CREATE TABLE t (\n  n INT NOT NULL DEFAULT 0\n);",
		},
		{
			name: "foreign keys follow the primary key",
			def: TableDef{
				FQN: "f",
				Columns: []ColumnDef{
					{Name: "id", SQLType: "TEXT", PrimaryKey: true},
					{Name: "d_id", SQLType: "TEXT"},
				},
				ForeignKeys: []ForeignKeyDef{{Column: "d_id", RefTable: "d", RefColumn: "id"}},
			},
			wantSQL: "CREATE TABLE f (\n  id TEXT NOT NULL,\n  d_id TEXT NOT NULL,\n  PRIMARY KEY (id),\n  FOREIGN KEY (d_id) REFERENCES d(id)\n);",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.def)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("BuildCreateTableSQL() error = %v, want substring %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", got, tt.wantSQL)
			}
		})
	}
}

func TestFromTable_SalesFact(t *testing.T) {
	t.Parallel()

	sales, _ := schema.Warehouse().TableFor(schema.Sales)
	td := FromTable(sales, func(schema.Type) string { return "TEXT" })

	got, err := BuildCreateTableSQL(td)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	for _, want := range []string{
		"order_id TEXT NOT NULL",
		"PRIMARY KEY (order_id)",
		"FOREIGN KEY (product_id) REFERENCES product_dim(product_id)",
		"FOREIGN KEY (customer_id) REFERENCES customer_dim(customer_id)",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in:\n%s", want, got)
		}
	}
}

func TestFromTable_OptionalColumnsNullable(t *testing.T) {
	t.Parallel()

	cust, _ := schema.Warehouse().TableFor(schema.Customer)
	td := FromTable(cust, func(schema.Type) string { return "TEXT" })
	for _, c := range td.Columns {
		switch c.Name {
		case "gender", "region":
			if !c.Nullable {
				t.Fatalf("%s should be nullable", c.Name)
			}
		case "customer_id", "customer_name":
			if c.Nullable {
				t.Fatalf("%s should be NOT NULL", c.Name)
			}
		}
	}
}

func TestBuildCreateIndexSQL(t *testing.T) {
	t.Parallel()

	got, err := BuildCreateIndexSQL(IndexDef{Name: "idx_customer_region_gender", Table: "customer_dim", Columns: []string{"region", "gender"}})
	if err != nil {
		t.Fatalf("BuildCreateIndexSQL: %v", err)
	}
	if want := "CREATE INDEX idx_customer_region_gender ON customer_dim(region, gender);"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if _, err := BuildCreateIndexSQL(IndexDef{Name: "i", Table: "t"}); err == nil {
		t.Fatal("expected error for index without columns")
	}
}
