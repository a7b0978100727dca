//go:build !linux

package engine

import (
	"context"

	"codejudge/internal/judge/sandbox/spec"
	appErr "codejudge/pkg/errors"
)

type stubEngine struct{}

func NewEngine(cfg Config, resolver ProfileResolver) (Engine, error) {
	return &stubEngine{}, nil
}

func (s *stubEngine) Run(ctx context.Context, runSpec spec.RunSpec) (RunResult, error) {
	return RunResult{}, appErr.New(appErr.SandboxUnavailable).WithMessage("sandbox engine is only supported on linux")
}
