package model

import (
	"encoding/json"
	"testing"

	"codejudge/internal/judge/compare"
	"codejudge/internal/judge/value"
	appErr "codejudge/pkg/errors"
)

func TestSubmissionDecodeAndNormalize(t *testing.T) {
	raw := `{"code":"def f(x): return x","language":" Python ","testCases":[{"input":[1,2],"expectedOutput":3,"callStyle":"SPREAD"},{"input":1,"expectedOutput":1}]}`
	var sub Submission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if err := sub.Normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if sub.Language != "python" {
		t.Fatalf("expected normalized language, got %q", sub.Language)
	}
	if sub.TestCases[0].Style() != CallSpread || sub.TestCases[1].Style() != CallAuto {
		t.Fatalf("unexpected call styles: %+v", sub.TestCases)
	}
	if sub.TestCases[1].Mode() != compare.Unordered {
		t.Fatalf("expected unordered default")
	}
}

func TestNormalizeRejectsUnknownOptions(t *testing.T) {
	sub := Submission{TestCases: []TestCase{{CallStyle: "sideways"}}}
	if err := sub.Normalize(); !appErr.Is(err, appErr.ValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
	sub = Submission{TestCases: []TestCase{{Compare: "fuzzy"}}}
	if err := sub.Normalize(); !appErr.Is(err, appErr.ValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNormalizeLeavesCallerCasesAlone(t *testing.T) {
	cases := []TestCase{{Input: value.Int(1), CallStyle: "SINGLE", Compare: "Ordered"}}
	sub := Submission{Language: "js", TestCases: cases}
	if err := sub.Normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if sub.TestCases[0].CallStyle != CallSingle || sub.TestCases[0].Compare != compare.Ordered {
		t.Fatalf("expected normalized copy, got %+v", sub.TestCases[0])
	}
	if cases[0].CallStyle != "SINGLE" || cases[0].Compare != "Ordered" {
		t.Fatalf("caller's test cases were rewritten: %+v", cases[0])
	}

	var empty Submission
	if err := empty.Normalize(); err != nil || empty.TestCases != nil {
		t.Fatalf("expected nil cases to stay nil, got %v %v", empty.TestCases, err)
	}
}

func TestSpread(t *testing.T) {
	list := value.List(value.Int(1), value.Int(2))
	cases := []struct {
		name   string
		style  CallStyle
		input  value.Value
		params int
		want   bool
	}{
		{name: "auto multi param", style: CallAuto, input: list, params: 2, want: true},
		{name: "auto single param", style: CallAuto, input: list, params: 1, want: false},
		{name: "auto scalar", style: CallAuto, input: value.Int(1), params: 2, want: false},
		{name: "forced spread", style: CallSpread, input: list, params: 1, want: true},
		{name: "forced single", style: CallSingle, input: list, params: 3, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Spread(tc.style, tc.input, tc.params); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
