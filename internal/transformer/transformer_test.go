package transformer

import (
	"reflect"
	"testing"

	"salesetl/internal/transformer/builtin"
	"salesetl/pkg/records"
)

type tagTransformer struct {
	key string
	val any
}

func (t tagTransformer) Apply(in []records.Record) []records.Record {
	for i := range in {
		in[i][t.key] = t.val
	}
	return in
}

/*
TestChainApply_Order verifies that each step receives the previous step's
output, left to right.
*/
func TestChainApply_Order(t *testing.T) {
	in := []records.Record{{"Region": " West "}}
	c := Chain{
		builtin.NormalizeColumns{},
		builtin.Normalize{},
		tagTransformer{key: "region", val: "overwritten"},
	}
	out := c.Apply(in)

	want := records.Record{"region": "overwritten"}
	if !reflect.DeepEqual(out[0], want) {
		t.Fatalf("got %#v, want %#v", out[0], want)
	}
}

func TestChainApply_FilterThenTag(t *testing.T) {
	in := []records.Record{
		{"customer_id": "C1"},
		{"customer_id": nil},
		{"customer_id": "C3"},
	}
	c := Chain{
		builtin.Require{Fields: []string{"customer_id"}},
		tagTransformer{key: "seen", val: true},
	}
	out := c.Apply(in)
	if len(out) != 2 {
		t.Fatalf("len(out)=%d; want 2", len(out))
	}
	for _, r := range out {
		if r["seen"] != true || r["customer_id"] == nil {
			t.Fatalf("unexpected survivor %#v", r)
		}
	}
}

func TestChainApply_NilAndEmpty(t *testing.T) {
	in := []records.Record{{"id": 1}}
	var cNil Chain
	if out := cNil.Apply(in); len(out) != 1 || &out[0] != &in[0] {
		t.Fatalf("nil chain should return the input slice")
	}
	if out := (Chain{tagTransformer{"a", 1}}).Apply(nil); out != nil {
		t.Fatalf("Apply(nil) => %#v; want nil", out)
	}
}
