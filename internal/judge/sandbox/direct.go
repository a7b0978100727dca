package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"sync/atomic"
	"time"

	"codejudge/internal/judge/sandbox/engine"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

const (
	defaultOutputMaxBytes int64 = 1024 * 1024
	memoryPollInterval          = 20 * time.Millisecond
)

// ProcessSandbox runs the harness as a plain child process in its own
// process group. It enforces the wall-clock budget and a resident memory
// ceiling but provides no filesystem or network isolation, so it is meant
// for development hosts only.
type ProcessSandbox struct {
	outputMaxBytes int64
	pollInterval   time.Duration
}

// NewProcessSandbox creates a direct sandbox.
func NewProcessSandbox(outputMaxBytes int64) *ProcessSandbox {
	if outputMaxBytes <= 0 {
		outputMaxBytes = defaultOutputMaxBytes
	}
	return &ProcessSandbox{outputMaxBytes: outputMaxBytes, pollInterval: memoryPollInterval}
}

func (s *ProcessSandbox) Name() string { return "direct" }

func (s *ProcessSandbox) Run(ctx context.Context, req Request) (Output, error) {
	args, err := req.Language.BuildCommand(req.HostDir)
	if err != nil {
		return Output{}, err
	}
	limits := req.Language.EffectiveLimits()
	budget := budgetOf(req)

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = req.HostDir
	cmd.Env = append([]string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"HOME=" + req.HostDir,
		"TMPDIR=" + req.HostDir,
		"LANG=C.UTF-8",
	}, req.Language.Env...)
	cmd.SysProcAttr = processGroupAttr()

	stdout := engine.NewLimitedBuffer(s.outputMaxBytes)
	stderr := engine.NewLimitedBuffer(s.outputMaxBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Output{}, appErr.Wrapf(err, appErr.SandboxUnavailable, "start %s: %v", args[0], err)
	}

	var timedOut, oomKilled atomic.Bool
	var peakKB atomic.Int64
	done := make(chan struct{})
	go s.watch(ctx, cmd.Process.Pid, budget, limits.MemoryMB, done, &timedOut, &oomKilled, &peakKB)

	waitErr := cmd.Wait()
	close(done)

	out := Output{
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		ExitCode:  exitCode(waitErr, cmd),
		TimedOut:  timedOut.Load(),
		OOMKilled: oomKilled.Load(),
		Truncated: stdout.Truncated(),
		Duration:  time.Since(start),
		MemoryKB:  peakKB.Load(),
	}
	if err := ctx.Err(); err != nil && !out.TimedOut {
		return out, err
	}
	return out, nil
}

// watch kills the process group on budget expiry, cancellation or when the
// resident set exceeds memoryMB.
func (s *ProcessSandbox) watch(ctx context.Context, pid int, budget time.Duration, memoryMB int64, done <-chan struct{},
	timedOut, oomKilled *atomic.Bool, peakKB *atomic.Int64) {
	timer := time.NewTimer(budget)
	defer timer.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		logger.Debug(ctx, "memory monitor unavailable", zap.Int("pid", pid), zap.Error(err))
	}
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			killGroup(pid)
			return
		case <-timer.C:
			timedOut.Store(true)
			killGroup(pid)
			return
		case <-ticker.C:
			if proc == nil {
				continue
			}
			mem, err := proc.MemoryInfo()
			if err != nil {
				continue
			}
			kb := int64(mem.RSS / 1024)
			if kb > peakKB.Load() {
				peakKB.Store(kb)
			}
			if memoryMB > 0 && kb > memoryMB*1024 {
				oomKilled.Store(true)
				killGroup(pid)
				return
			}
		}
	}
}

func exitCode(err error, cmd *exec.Cmd) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}
