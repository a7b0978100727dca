package model

import (
	"strings"

	"codejudge/internal/judge/compare"
	"codejudge/internal/judge/value"
	appErr "codejudge/pkg/errors"
)

// CallStyle selects how a test case input is bound to entry point parameters.
type CallStyle string

const (
	// CallAuto spreads a sequence input when the entry point takes more than one parameter.
	CallAuto CallStyle = "auto"
	// CallSpread always spreads a sequence input across parameters.
	CallSpread CallStyle = "spread"
	// CallSingle always passes the input as one argument.
	CallSingle CallStyle = "single"
)

// TestCase is one input/expected-output pair.
type TestCase struct {
	Input          value.Value  `json:"input"`
	ExpectedOutput value.Value  `json:"expectedOutput"`
	CallStyle      CallStyle    `json:"callStyle,omitempty"`
	Compare        compare.Mode `json:"compare,omitempty"`
}

// Style returns the effective calling convention.
func (tc TestCase) Style() CallStyle {
	if tc.CallStyle == "" {
		return CallAuto
	}
	return tc.CallStyle
}

// Mode returns the effective comparison mode.
func (tc TestCase) Mode() compare.Mode {
	if tc.Compare == "" {
		return compare.Unordered
	}
	return tc.Compare
}

// Submission is the unit of work handed to the judge.
type Submission struct {
	ID         string     `json:"submissionId,omitempty"`
	SourceCode string     `json:"code"`
	Language   string     `json:"language"`
	TestCases  []TestCase `json:"testCases"`
}

// Normalize canonicalizes optional fields and rejects unknown options. The
// test cases are copied first so a caller's backing array is left untouched.
func (s *Submission) Normalize() error {
	s.Language = strings.ToLower(strings.TrimSpace(s.Language))
	s.TestCases = append([]TestCase(nil), s.TestCases...)
	for i := range s.TestCases {
		tc := &s.TestCases[i]
		switch CallStyle(strings.ToLower(string(tc.CallStyle))) {
		case "", CallAuto:
			tc.CallStyle = CallAuto
		case CallSpread:
			tc.CallStyle = CallSpread
		case CallSingle:
			tc.CallStyle = CallSingle
		default:
			return appErr.ValidationError("testCases.callStyle", "must be auto, spread or single")
		}
		mode, ok := compare.ParseMode(string(tc.Compare))
		if !ok {
			return appErr.ValidationError("testCases.compare", "must be unordered or ordered")
		}
		tc.Compare = mode
	}
	return nil
}

// Spread decides whether the input should be spread across parameters for
// an entry point declaring paramCount parameters.
func Spread(style CallStyle, input value.Value, paramCount int) bool {
	if !input.IsList() {
		return false
	}
	switch style {
	case CallSpread:
		return true
	case CallSingle:
		return false
	default:
		return paramCount > 1
	}
}
