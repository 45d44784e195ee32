package extract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"salesetl/internal/config"
	"salesetl/internal/parser/csv"
	"salesetl/internal/schema"
)

const (
	customersCSV = "Customer ID,Customer Name,Gender,Region\nC1,Alice,F,West\nC2,Bob,M,East\n"
	productsCSV  = "Product ID,Product Name,Category,Price\nP1,Widget,Tools,$100.00\n"
	salesCSV     = "Order ID,Product ID,Customer ID,Quantity,Price,Date\nO1,P1,C1,1,$100.00,2024-01-05\n"
)

func writeInputs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{
		"customers.csv": customersCSV,
		"products.csv":  productsCSV,
		"sales.csv":     salesCSV,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func pipeline(dir string) config.Pipeline {
	p := config.Pipeline{
		Job: "test",
		Inputs: config.Inputs{
			Customer: config.Input{Source: config.Source{Kind: "file", File: config.SourceFile{Path: filepath.Join(dir, "customers.csv")}}},
			Product:  config.Input{Source: config.Source{Kind: "file", File: config.SourceFile{Path: filepath.Join(dir, "products.csv")}}},
			Sales:    config.Input{Source: config.Source{Kind: "file", File: config.SourceFile{Path: filepath.Join(dir, "sales.csv")}}},
		},
		Storage: config.Storage{Kind: "sqlite"},
	}
	p.ApplyDefaults()
	return p
}

func TestFromConfig_ExtractsEveryEntity(t *testing.T) {
	x, err := FromConfig(context.Background(), pipeline(writeInputs(t)))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	want := map[schema.Entity]int{schema.Customer: 2, schema.Product: 1, schema.Sales: 1}
	for e, n := range want {
		recs, err := x.Extract(context.Background(), e)
		if err != nil {
			t.Fatalf("Extract(%s): %v", e, err)
		}
		if len(recs) != n {
			t.Fatalf("Extract(%s) rows = %d, want %d", e, len(recs), n)
		}
	}
}

func TestExtract_MissingFile(t *testing.T) {
	dir := writeInputs(t)
	if err := os.Remove(filepath.Join(dir, "sales.csv")); err != nil {
		t.Fatal(err)
	}
	x, err := FromConfig(context.Background(), pipeline(dir))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, err := x.Extract(context.Background(), schema.Sales); err == nil {
		t.Fatalf("expected error for missing sales file")
	}
	if err := x.Prefetch(context.Background()); err == nil {
		t.Fatalf("expected Prefetch to fail")
	}
}

type countingSource struct {
	name  string
	body  string
	opens atomic.Int32
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Open(context.Context) (io.ReadCloser, error) {
	s.opens.Add(1)
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestPrefetch_ServesFromMemoryOnce(t *testing.T) {
	srcs := map[schema.Entity]*countingSource{
		schema.Customer: {name: "c", body: customersCSV},
		schema.Product:  {name: "p", body: productsCSV},
		schema.Sales:    {name: "s", body: salesCSV},
	}
	bindings := map[schema.Entity]Binding{}
	for e, s := range srcs {
		bindings[e] = Binding{Source: s, Parser: csv.NewParser(csv.Options{})}
	}
	x, err := New(bindings)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := x.Prefetch(context.Background()); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	for _, e := range schema.LoadOrder {
		if _, err := x.Extract(context.Background(), e); err != nil {
			t.Fatalf("Extract(%s): %v", e, err)
		}
		if got := srcs[e].opens.Load(); got != 1 {
			t.Fatalf("%s opened %d times after prefetch, want 1", e, got)
		}
	}
	// The cache is released after the first read.
	if _, err := x.Extract(context.Background(), schema.Sales); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := srcs[schema.Sales].opens.Load(); got != 2 {
		t.Fatalf("sales opened %d times, want 2", got)
	}
}

func TestNew_RequiresAllEntities(t *testing.T) {
	_, err := New(map[schema.Entity]Binding{
		schema.Customer: {Source: &countingSource{}, Parser: csv.NewParser(csv.Options{})},
	})
	if err == nil {
		t.Fatalf("expected error for unbound entities")
	}
}

func TestProbe(t *testing.T) {
	x, err := FromConfig(context.Background(), pipeline(writeInputs(t)))
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	samples, err := x.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if len(samples) != 3 || samples[0].Entity != schema.Customer {
		t.Fatalf("samples = %+v", samples)
	}
	got := strings.Join(samples[0].Headers, ",")
	if got != "Customer ID,Customer Name,Gender,Region" {
		t.Fatalf("customer headers = %q", got)
	}
	if samples[2].Rows != 1 {
		t.Fatalf("sales rows = %d", samples[2].Rows)
	}
}

func TestNewSource_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, productsCSV)
	}))
	defer srv.Close()

	src, err := NewSource(context.Background(), config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: srv.URL + "/products.csv"}})
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	recs, _, err := csv.NewParser(csv.Options{}).Parse(rc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(recs) != 1 || recs[0]["Product ID"] != "P1" {
		t.Fatalf("records = %#v", recs)
	}
}

func TestNewSource_Errors(t *testing.T) {
	cases := []config.Source{
		{Kind: "file"},
		{Kind: "http"},
		{Kind: "ftp"},
	}
	for _, c := range cases {
		if _, err := NewSource(context.Background(), c); err == nil {
			t.Fatalf("NewSource(%+v): expected error", c)
		}
	}
}

func TestNewParser(t *testing.T) {
	if _, err := NewParser(config.Parser{Kind: "xlsx"}); err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	p, err := NewParser(config.Parser{Kind: "csv", Options: config.Options{"comma": ";"}})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	recs, _, err := p.Parse(strings.NewReader("a;b\n1;2\n"))
	if err != nil || recs[0]["b"] != "2" {
		t.Fatalf("csv with ';' = %#v, %v", recs, err)
	}
	if _, err := NewParser(config.Parser{Kind: "json"}); err == nil {
		t.Fatalf("expected error for json parser")
	}
}
