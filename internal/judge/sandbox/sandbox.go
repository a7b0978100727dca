// Package sandbox runs generated harness programs as isolated child
// processes with a hard wall-clock budget.
package sandbox

import (
	"context"
	"time"

	"codejudge/internal/judge/sandbox/profile"
)

// Request describes one harness run. HostDir holds Language.SourceFile and is
// owned by the caller's Workspace scope.
type Request struct {
	SubmissionID string
	Language     profile.LanguageSpec
	HostDir      string
	Budget       time.Duration
}

// Output is the raw outcome of a run.
type Output struct {
	Stdout    []byte
	Stderr    []byte
	ExitCode  int
	TimedOut  bool
	OOMKilled bool
	Truncated bool
	Duration  time.Duration
	MemoryKB  int64
}

// Sandbox runs a harness with no network access, restricted filesystem
// writes and bounded resources. Run returns an error only when the sandbox
// itself failed; program failures are reported through Output.
type Sandbox interface {
	Name() string
	Run(ctx context.Context, req Request) (Output, error)
}

func budgetOf(req Request) time.Duration {
	if req.Budget > 0 {
		return req.Budget
	}
	return req.Language.Budget()
}
