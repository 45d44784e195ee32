// Package config defines the JSON pipeline file of the sales warehouse ETL.
//
// A pipeline names one input per entity (where the file comes from and how to
// parse it), the transform settings shared by all entities, the destination
// warehouse and the run policy. Example (trimmed):
//
//	{
//	  "job": "ecommerce_sales",
//	  "inputs": {
//	    "dir": "./data",
//	    "customer": { "source": { "kind": "file", "file": { "path": "customer_details.csv" } } },
//	    "sales":    { "source": { "kind": "http", "http": { "url": "https://host/sales.csv" } } }
//	  },
//	  "storage": { "kind": "postgres", "db": { "dsn": "" } },
//	  "runtime": { "batch_size": 5000, "retries": 1, "retry_delay": "5m" }
//	}
//
// Entity inputs left out fall back to the file names of the public Kaggle
// dataset the pipeline was built for.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"salesetl/internal/schema"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job names the pipeline in logs and metrics.
	Job string `json:"job" validate:"required"`

	Inputs    Inputs          `json:"inputs"`
	Transform TransformConfig `json:"transform"`
	Storage   Storage         `json:"storage"`
	Runtime   RuntimeConfig   `json:"runtime"`
	Schedule  Schedule        `json:"schedule"`
}

// Inputs binds each entity to its raw file.
type Inputs struct {
	// Dir is joined with relative file source paths.
	Dir string `json:"dir"`

	Customer Input `json:"customer"`
	Product  Input `json:"product"`
	Sales    Input `json:"sales"`
}

// For returns the input of entity e.
func (in Inputs) For(e schema.Entity) (Input, bool) {
	switch e {
	case schema.Customer:
		return in.Customer, true
	case schema.Product:
		return in.Product, true
	case schema.Sales:
		return in.Sales, true
	}
	return Input{}, false
}

func (in *Inputs) ref(e schema.Entity) *Input {
	switch e {
	case schema.Customer:
		return &in.Customer
	case schema.Product:
		return &in.Product
	case schema.Sales:
		return &in.Sales
	}
	return nil
}

// Input is one entity's raw file.
type Input struct {
	Source Source `json:"source"`
	Parser Parser `json:"parser"`
}

// Source identifies where a file is read from.
type Source struct {
	// Kind is one of "file", "http", "s3".
	Kind string `json:"kind" validate:"required,oneof=file http s3"`

	File SourceFile `json:"file"`
	HTTP SourceHTTP `json:"http"`
	S3   SourceS3   `json:"s3"`
}

// SourceFile is a local path.
type SourceFile struct {
	Path string `json:"path"`
}

// SourceHTTP is a URL fetched with the retrying HTTP client.
type SourceHTTP struct {
	URL                string   `json:"url" validate:"omitempty,url"`
	Timeout            Duration `json:"timeout"`
	MaxRetries         int      `json:"max_retries" validate:"gte=0"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify"`
}

// SourceS3 is an object in an S3 (or S3-compatible) bucket.
type SourceS3 struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Region string `json:"region"`
	// Endpoint overrides the AWS endpoint, e.g. for MinIO.
	Endpoint     string `json:"endpoint" validate:"omitempty,url"`
	UsePathStyle bool   `json:"use_path_style"`
}

// Parser selects how a file is turned into records.
type Parser struct {
	// Kind is "csv" or "xlsx". Empty means "guess from the file name".
	Kind string `json:"kind" validate:"omitempty,oneof=csv xlsx"`

	// Options is interpreted by the parser. csv: comma (string),
	// trim_space (bool). xlsx: sheet (string), header_row (int).
	Options Options `json:"options"`
}

// TransformConfig tunes the entity transformer for every entity.
type TransformConfig struct {
	// HeaderMap maps source headers to warehouse column names,
	// e.g. {"Cust No": "customer_id"}.
	HeaderMap   map[string]string `json:"header_map"`
	DateLayouts []string          `json:"date_layouts"`
	// SampleLimit caps the rejected rows kept for reporting.
	SampleLimit *int `json:"sample_limit" validate:"omitempty,gte=0"`
	// DedupPolicy picks the surviving row among rows sharing a primary
	// key. Empty means keep-first.
	DedupPolicy string `json:"dedup_policy" validate:"omitempty,oneof=keep-first keep-last"`
}

// Storage selects the warehouse backend.
type Storage struct {
	// Kind is one of the registered storage backends.
	Kind string   `json:"kind" validate:"required,oneof=postgres mysql mssql sqlite"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the warehouse connection.
type DBConfig struct {
	// DSN is the backend connection string. When empty it is built from the
	// DB_* environment variables (see DBEnv).
	DSN      string `json:"dsn"`
	MaxConns int    `json:"max_conns" validate:"gte=0"`
}

// RuntimeConfig controls batching and the run-level retry policy.
type RuntimeConfig struct {
	BatchSize int `json:"batch_size" validate:"gte=0"`
	// Retries is the number of whole-run retries after a failed run.
	Retries    *int     `json:"retries" validate:"omitempty,gte=0"`
	RetryDelay Duration `json:"retry_delay"`
}

// Schedule configures `etl schedule`.
type Schedule struct {
	// Cron is a five-field cron expression.
	Cron string `json:"cron"`
	// Listen is the status server address. Empty disables the server.
	Listen string `json:"listen"`
}

// Defaults.
const (
	DefaultBatchSize  = 5000
	DefaultRetries    = 1
	DefaultRetryDelay = 5 * time.Minute
	DefaultCron       = "0 0 * * *"
)

// DefaultFiles are the entity file names of the e-commerce sales dataset.
var DefaultFiles = map[schema.Entity]string{
	schema.Customer: "customer_details.csv",
	schema.Product:  "product_details.csv",
	schema.Sales:    "E-commerece sales data 2024.csv",
}

// Duration is a time.Duration written as a Go duration string ("5m") in
// JSON. Plain numbers are read as seconds.
type Duration struct{ time.Duration }

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		d.Duration = 0
	case float64:
		d.Duration = time.Duration(t * float64(time.Second))
	case string:
		if t == "" {
			d.Duration = 0
			return nil
		}
		p, err := time.ParseDuration(t)
		if err != nil {
			return fmt.Errorf("duration %q: %w", t, err)
		}
		d.Duration = p
	default:
		return fmt.Errorf("duration: unsupported JSON value %s", string(b))
	}
	return nil
}

// Load reads and decodes the pipeline file at path and applies defaults.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var p Pipeline
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config %s: %w", path, err)
	}
	p.ApplyDefaults()
	return p, nil
}

// ApplyDefaults fills unset fields in place.
func (p *Pipeline) ApplyDefaults() {
	for _, e := range schema.LoadOrder {
		in := p.Inputs.ref(e)
		if in.Source.Kind == "" {
			in.Source.Kind = "file"
		}
		if in.Source.Kind == "file" && in.Source.File.Path == "" {
			in.Source.File.Path = DefaultFiles[e]
		}
		if in.Source.Kind == "file" && p.Inputs.Dir != "" && !filepath.IsAbs(in.Source.File.Path) {
			in.Source.File.Path = filepath.Join(p.Inputs.Dir, in.Source.File.Path)
		}
		if in.Parser.Kind == "" {
			in.Parser.Kind = guessParser(in.Source)
		}
		if in.Parser.Options == nil {
			in.Parser.Options = Options{}
		}
	}
	if p.Runtime.BatchSize == 0 {
		p.Runtime.BatchSize = DefaultBatchSize
	}
	if p.Runtime.Retries == nil {
		n := DefaultRetries
		p.Runtime.Retries = &n
	}
	if p.Runtime.RetryDelay.Duration == 0 {
		p.Runtime.RetryDelay.Duration = DefaultRetryDelay
	}
	if p.Schedule.Cron == "" {
		p.Schedule.Cron = DefaultCron
	}
}

// guessParser picks a parser kind from the file name of s.
func guessParser(s Source) string {
	var name string
	switch s.Kind {
	case "file":
		name = s.File.Path
	case "http":
		name = s.HTTP.URL
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
	case "s3":
		name = s.S3.Key
	}
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return "xlsx"
	}
	return "csv"
}
