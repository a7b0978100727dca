// Package engine runs commands under the sandbox-init helper inside fresh
// namespaces and a per-run cgroup.
package engine

import (
	"context"

	"codejudge/internal/judge/sandbox/spec"
)

// HelperFailureExitCode is returned by sandbox-init when it cannot set up
// the sandbox before exec.
const HelperFailureExitCode = 125

// RunResult captures raw sandbox execution data.
type RunResult struct {
	ExitCode   int
	TimeMs     int64
	WallTimeMs int64
	MemoryKB   int64
	Stdout     []byte
	Stderr     []byte
	TimedOut   bool
	OomKilled  bool
	// Truncated reports stdout exceeded StdoutStderrMaxBytes.
	Truncated  bool
}

// Engine executes a RunSpec inside an isolated sandbox.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) (RunResult, error)
}
