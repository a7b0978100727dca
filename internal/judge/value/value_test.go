package value

import (
	"encoding/json"
	"testing"
)

func TestParseDistinguishesIntAndFloat(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		kind Kind
	}{
		{name: "int", raw: `42`, kind: KindInt},
		{name: "negative int", raw: `-7`, kind: KindInt},
		{name: "float", raw: `1.5`, kind: KindFloat},
		{name: "exponent", raw: `1e3`, kind: KindFloat},
		{name: "bool", raw: `true`, kind: KindBool},
		{name: "string", raw: `"hi"`, kind: KindString},
		{name: "null", raw: `null`, kind: KindNull},
		{name: "list", raw: `[1,"a",[true]]`, kind: KindList},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Parse([]byte(tc.raw))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if v.Kind() != tc.kind {
				t.Fatalf("expected kind %s, got %s", tc.kind, v.Kind())
			}
		})
	}
}

func TestParseRejectsObjects(t *testing.T) {
	if _, err := Parse([]byte(`{"a":1}`)); err == nil {
		t.Fatalf("expected object to be rejected")
	}
}

func TestDepth(t *testing.T) {
	v := List(Int(1), List(Int(2), List(Int(3))))
	if got := v.Depth(); got != 3 {
		t.Fatalf("expected depth 3, got %d", got)
	}
	if got := Int(1).Depth(); got != 0 {
		t.Fatalf("expected scalar depth 0, got %d", got)
	}
	if got := List().Depth(); got != 1 {
		t.Fatalf("expected empty list depth 1, got %d", got)
	}
}

func TestJSONRoundTripKeepsShape(t *testing.T) {
	var tc struct {
		Input Value `json:"input"`
	}
	if err := json.Unmarshal([]byte(`{"input":[[2,7,11,15],9]}`), &tc); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got := tc.Input.String(); got != `[[2,7,11,15],9]` {
		t.Fatalf("unexpected encoding: %s", got)
	}
	if tc.Input.Items()[1].Kind() != KindInt {
		t.Fatalf("expected integer element")
	}
}

func TestFormatFloatKeepsFraction(t *testing.T) {
	cases := map[float64]string{
		2:       "2.0",
		0.1:     "0.1",
		-3.25:   "-3.25",
		0.00001: "0.00001",
	}
	for in, want := range cases {
		if got := FormatFloat(in); got != want {
			t.Fatalf("FormatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestFromNativeConvertsInterpreterValues(t *testing.T) {
	v, err := FromNative([]interface{}{int64(1), 2.5, "x", nil, []interface{}{true}})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if got := v.String(); got != `[1,2.5,"x",null,[true]]` {
		t.Fatalf("unexpected value: %s", got)
	}
	if _, err := FromNative(map[string]interface{}{"a": 1}); err == nil {
		t.Fatalf("expected map to be rejected")
	}
}
