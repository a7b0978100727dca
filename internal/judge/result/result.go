// Package result defines execution results, their aggregation and the
// overall classification of a judged submission.
package result

import "codejudge/internal/judge/value"

// Status is the overall classification of a submission.
type Status string

const (
	StatusAccepted            Status = "Accepted"
	StatusWrongAnswer         Status = "WrongAnswer"
	StatusCompilationError    Status = "CompilationError"
	StatusTimeLimitExceeded   Status = "TimeLimitExceeded"
	StatusMemoryLimitExceeded Status = "MemoryLimitExceeded"
	StatusRuntimeError        Status = "RuntimeError"
)

// FailureKind identifies why a whole run produced no per-case results.
type FailureKind string

const (
	FailureNoEntryPoint FailureKind = "NoEntryPointFound"
	FailureCompile      FailureKind = "CompileOrSyntaxError"
	FailureTimeout      FailureKind = "TimeoutExceeded"
	FailureMemory       FailureKind = "MemoryExceeded"
	FailureRuntime      FailureKind = "RuntimeError"
	FailureOutputParse  FailureKind = "OutputParseError"
)

// ExecutionResult is the outcome of one test case.
type ExecutionResult struct {
	Passed          bool         `json:"passed"`
	Output          *value.Value `json:"output,omitempty"`
	Error           string       `json:"error,omitempty"`
	ExecutionTimeMs *float64     `json:"executionTimeMs,omitempty"`
}

// Failure describes a whole-run failure.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
}

// AggregateResult summarizes all test cases of one submission.
// Results keeps test case order and always has TotalTests entries.
type AggregateResult struct {
	TotalTests  int               `json:"totalTests"`
	TestsPassed int               `json:"testsPassed"`
	Results     []ExecutionResult `json:"results"`
	Failure     *Failure          `json:"failure,omitempty"`
}

// Aggregate counts passing results.
func Aggregate(results []ExecutionResult) AggregateResult {
	if results == nil {
		results = []ExecutionResult{}
	}
	passed := 0
	for _, r := range results {
		if r.Passed {
			passed++
		}
	}
	return AggregateResult{
		TotalTests:  len(results),
		TestsPassed: passed,
		Results:     results,
	}
}

// WholeRunFailure synthesizes one failing placeholder per test case, each
// carrying the same diagnostic.
func WholeRunFailure(total int, kind FailureKind, message string) AggregateResult {
	results := make([]ExecutionResult, total)
	for i := range results {
		results[i] = ExecutionResult{Passed: false, Error: message}
	}
	return AggregateResult{
		TotalTests:  total,
		TestsPassed: 0,
		Results:     results,
		Failure:     &Failure{Kind: kind, Message: message},
	}
}

// Classify derives the overall status. Whole-run failures map to their own
// status; otherwise a submission is Accepted only when every case passed.
func Classify(agg AggregateResult) Status {
	if agg.Failure != nil {
		switch agg.Failure.Kind {
		case FailureCompile, FailureNoEntryPoint:
			return StatusCompilationError
		case FailureTimeout:
			return StatusTimeLimitExceeded
		case FailureMemory:
			return StatusMemoryLimitExceeded
		default:
			return StatusRuntimeError
		}
	}
	if agg.TotalTests > 0 && agg.TestsPassed == agg.TotalTests {
		return StatusAccepted
	}
	return StatusWrongAnswer
}

// Millis converts a duration in milliseconds to the optional wire field.
func Millis(ms float64) *float64 {
	return &ms
}

// Output wraps a value for the optional wire field.
func Output(v value.Value) *value.Value {
	return &v
}

// Report is the wire form of a judged submission.
type Report struct {
	AggregateResult
	Status Status `json:"status"`
}

// NewReport attaches the overall status to an aggregate.
func NewReport(agg AggregateResult) Report {
	return Report{AggregateResult: agg, Status: Classify(agg)}
}
