package config

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestOptions_DefaultsAndCoercion(t *testing.T) {
	t.Parallel()

	o := Options{
		"s": "hello",
		"b": true,
		"i": float64(42), // encoding/json decodes numbers as float64
		"r": ";",
		"u": "ž",
	}

	if got := o.String("s", "def"); got != "hello" {
		t.Fatalf("String(s) = %q, want hello", got)
	}
	if got := o.String("missing", "def"); got != "def" {
		t.Fatalf("String(missing) = %q, want def", got)
	}
	if got := o.Bool("b", false); !got {
		t.Fatalf("Bool(b) = %v, want true", got)
	}
	if got := o.Int("i", 0); got != 42 {
		t.Fatalf("Int(i) = %d, want 42", got)
	}
	if got := o.Int("s", 7); got != 7 {
		t.Fatalf("Int(s) = %d, want default 7 for a string value", got)
	}
	if got := o.Rune("r", ','); got != ';' {
		t.Fatalf("Rune(r) = %q, want ';'", got)
	}
	if got := o.Rune("u", 'x'); got != 'ž' {
		t.Fatalf("Rune(u) = %q, want ž", got)
	}
	if got := o.Rune("missing", ','); got != ',' {
		t.Fatalf("Rune(missing) = %q, want ','", got)
	}
}

func TestOptions_StringMap_StringSlice(t *testing.T) {
	t.Parallel()

	o := Options{
		"m":  map[string]any{"Cust No": "customer_id", "X": 1},
		"s1": []any{"2006-01-02", 3},
		"s2": []string{"01/02/2006"},
	}

	if got := o.StringMap("m"); !reflect.DeepEqual(got, map[string]string{"Cust No": "customer_id"}) {
		t.Fatalf("StringMap(m) = %#v", got)
	}
	if got := o.StringMap("missing"); got == nil || len(got) != 0 {
		t.Fatalf("StringMap(missing) = %#v, want empty map", got)
	}
	if got := o.StringSlice("s1"); !reflect.DeepEqual(got, []string{"2006-01-02"}) {
		t.Fatalf("StringSlice(s1) = %#v", got)
	}
	if got := o.StringSlice("s2"); !reflect.DeepEqual(got, []string{"01/02/2006"}) {
		t.Fatalf("StringSlice(s2) = %#v", got)
	}
	if got := o.StringSlice("missing"); got != nil {
		t.Fatalf("StringSlice(missing) = %#v, want nil", got)
	}
}

func TestOptions_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	type wrapper struct {
		Opts Options `json:"options"`
	}

	var w wrapper
	if err := json.Unmarshal([]byte(`{"options": null}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Opts == nil || len(w.Opts) != 0 {
		t.Fatalf("null options = %#v, want non-nil empty map", w.Opts)
	}

	if err := json.Unmarshal([]byte(`{"options": {"comma": ";", "header_row": 2}}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.Opts.Rune("comma", ',') != ';' || w.Opts.Int("header_row", 1) != 2 {
		t.Fatalf("decoded options = %#v", w.Opts)
	}
}
