package agent

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseHint(t *testing.T) {
	tests := []struct {
		raw  string
		want Hint
	}{
		{"int", Hint{Kind: HintInt}},
		{"float", Hint{Kind: HintFloat}},
		{"float2", Hint{Kind: HintFloat}},
		{"list[str]", Hint{Kind: HintList, Inner: &Hint{Kind: HintString}}},
		{"list[{product:str, revenue:float}]", Hint{Kind: HintList, Inner: &Hint{
			Kind: HintObject,
			Fields: []HintField{
				{Name: "product", Type: "str"},
				{Name: "revenue", Type: "float"},
			},
		}}},
		{"{customer:str, margin:float}", Hint{
			Kind: HintObject,
			Fields: []HintField{
				{Name: "customer", Type: "str"},
				{Name: "margin", Type: "float"},
			},
		}},
		{"str", Hint{Kind: HintString}},
		{"", Hint{Kind: HintString}},
		{"something-weird", Hint{Kind: HintString}},
		{"  int  ", Hint{Kind: HintInt}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseHint(tt.raw)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("ParseHint(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestParseHint_NeverPanics(t *testing.T) {
	for _, raw := range []string{"list[", "list", "{broken", "{}", "{a}", "list[]"} {
		assert.NotPanics(t, func() { ParseHint(raw) }, raw)
	}
}
