package result

import (
	"bytes"
	"encoding/json"
	"math"

	"codejudge/internal/judge/value"
	appErr "codejudge/pkg/errors"
)

// harnessRecord is one element of the JSON array a harness writes to stdout.
type harnessRecord struct {
	Passed        bool            `json:"passed"`
	Output        json.RawMessage `json:"output"`
	Error         *string         `json:"error"`
	ExecutionTime *float64        `json:"executionTime"`
}

// ParseHarnessOutput decodes harness stdout into per-case results. The
// document must be a single JSON array with exactly total records.
func ParseHarnessOutput(stdout []byte, total int) ([]ExecutionResult, error) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return nil, appErr.New(appErr.OutputParseFailed).WithMessage("harness produced no output")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var records []harnessRecord
	if err := dec.Decode(&records); err != nil {
		return nil, appErr.Wrapf(err, appErr.OutputParseFailed, "decode harness output: %v", err)
	}
	if dec.More() {
		return nil, appErr.New(appErr.OutputParseFailed).WithMessage("unexpected data after harness output")
	}
	if len(records) != total {
		return nil, appErr.Newf(appErr.OutputParseFailed, "harness reported %d results for %d test cases", len(records), total)
	}

	results := make([]ExecutionResult, len(records))
	for i, rec := range records {
		res := ExecutionResult{Passed: rec.Passed}
		if rec.Error != nil {
			res.Error = *rec.Error
		}
		if rec.ExecutionTime != nil && !math.IsNaN(*rec.ExecutionTime) && *rec.ExecutionTime >= 0 {
			res.ExecutionTimeMs = Millis(*rec.ExecutionTime)
		}
		if out, ok := decodeOutput(rec.Output); ok {
			res.Output = Output(out)
		}
		results[i] = res
	}
	return results, nil
}

// decodeOutput converts a raw output field. Shapes outside the value model
// (objects) are kept as their JSON text.
func decodeOutput(raw json.RawMessage) (value.Value, bool) {
	if len(raw) == 0 {
		return value.Value{}, false
	}
	v, err := value.Parse(raw)
	if err != nil {
		return value.String(string(raw)), true
	}
	return v, true
}
