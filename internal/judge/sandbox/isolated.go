package sandbox

import (
	"context"
	"time"

	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/spec"
)

const containerWorkDir = "/work"

// EngineSandbox runs harnesses through the namespaced engine: no network,
// per-run cgroup, rlimits, seccomp and, when the language has a rootfs, a
// read-only root with the workspace as the only writable bind mount.
type EngineSandbox struct {
	eng engine.Engine
}

// NewEngineSandbox wraps an engine.
func NewEngineSandbox(eng engine.Engine) *EngineSandbox {
	return &EngineSandbox{eng: eng}
}

func (s *EngineSandbox) Name() string { return "isolated" }

func (s *EngineSandbox) Run(ctx context.Context, req Request) (Output, error) {
	lang := req.Language
	workDir := req.HostDir
	var mounts []spec.MountSpec
	if lang.RootFS != "" {
		workDir = containerWorkDir
		mounts = []spec.MountSpec{{Source: req.HostDir, Target: containerWorkDir}}
	}
	args, err := lang.BuildCommand(workDir)
	if err != nil {
		return Output{}, err
	}

	limits := lang.EffectiveLimits()
	limits.WallTimeMs = budgetOf(req).Milliseconds()

	runSpec := spec.RunSpec{
		SubmissionID: req.SubmissionID,
		RunID:        "harness",
		WorkDir:      workDir,
		Cmd:          args,
		Env: append([]string{
			"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
			"HOME=" + workDir,
			"TMPDIR=" + workDir,
			"LANG=C.UTF-8",
		}, lang.Env...),
		BindMounts: mounts,
		Profile:    lang.ID,
		Limits:     limits,
	}

	res, err := s.eng.Run(ctx, runSpec)
	if err != nil {
		return Output{}, err
	}
	return Output{
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		ExitCode:  res.ExitCode,
		TimedOut:  res.TimedOut,
		OOMKilled: res.OomKilled,
		Truncated: res.Truncated,
		Duration:  time.Duration(res.WallTimeMs) * time.Millisecond,
		MemoryKB:  res.MemoryKB,
	}, nil
}
