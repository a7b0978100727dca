//go:build linux

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"codejudge/internal/judge/sandbox/security"
	"codejudge/internal/judge/sandbox/spec"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultStdoutStderrMaxBytes int64 = 1024 * 1024
)

type linuxEngine struct {
	cfg      Config
	resolver ProfileResolver
}

// NewEngine creates a Linux sandbox engine.
func NewEngine(cfg Config, resolver ProfileResolver) (Engine, error) {
	if resolver == nil {
		return nil, fmt.Errorf("profile resolver is required")
	}
	if cfg.StdoutStderrMaxBytes <= 0 {
		cfg.StdoutStderrMaxBytes = defaultStdoutStderrMaxBytes
	}
	if cfg.HelperPath == "" {
		cfg.HelperPath = "sandbox-init"
	}
	return &linuxEngine{
		cfg:      cfg,
		resolver: resolver,
	}, nil
}

func (e *linuxEngine) Run(ctx context.Context, runSpec spec.RunSpec) (RunResult, error) {
	if err := validateRunSpec(runSpec); err != nil {
		return RunResult{}, err
	}

	isoProfile, err := e.resolver.Resolve(runSpec.Profile)
	if err != nil {
		return RunResult{}, fmt.Errorf("resolve profile: %w", err)
	}
	if e.cfg.SeccompDir != "" && isoProfile.SeccompProfile != "" && !filepath.IsAbs(isoProfile.SeccompProfile) {
		isoProfile.SeccompProfile = filepath.Join(e.cfg.SeccompDir, isoProfile.SeccompProfile)
	}

	cgroupPath := ""
	cgroupCleanup := func() {}
	if e.cfg.EnableCgroup {
		cgroupPath, cgroupCleanup, err = createRunCgroup(e.cfg.CgroupRoot, runSpec.SubmissionID, runSpec.RunID)
		if err != nil {
			return RunResult{}, fmt.Errorf("create cgroup: %w", err)
		}
		if err := applyCgroupLimits(cgroupPath, runSpec.Limits); err != nil {
			cgroupCleanup()
			return RunResult{}, fmt.Errorf("apply cgroup limits: %w", err)
		}
	}
	defer cgroupCleanup()

	initReq := initRequest{
		RunSpec:       runSpec,
		Isolation:     isoProfile,
		EnableSeccomp: e.cfg.EnableSeccomp,
		EnableNs:      e.cfg.EnableNamespaces,
	}

	stdinPipe := jsonToPipe(initReq)
	defer stdinPipe.Close()

	cmd := exec.Command(e.cfg.HelperPath)
	cmd.SysProcAttr = buildSysProcAttr(isoProfile, e.cfg.EnableNamespaces)
	cmd.Stdin = stdinPipe
	cmd.Env = []string{}

	stdout := NewLimitedBuffer(e.cfg.StdoutStderrMaxBytes)
	stderr := NewLimitedBuffer(e.cfg.StdoutStderrMaxBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return RunResult{}, appErr.Wrapf(err, appErr.SandboxUnavailable, "start sandbox helper: %v", err)
	}

	if e.cfg.EnableCgroup {
		if err := addProcessToCgroup(cgroupPath, cmd.Process.Pid); err != nil {
			logger.Warn(ctx, "add process to cgroup failed", zap.String("cgroup", cgroupPath), zap.Error(err))
		}
	}

	var timedOut atomic.Bool
	done := make(chan struct{})
	go func() {
		wallLimit := durationFromMs(runSpec.Limits.WallTimeMs)
		var wallTimer <-chan time.Time
		if wallLimit > 0 {
			timer := time.NewTimer(wallLimit)
			defer timer.Stop()
			wallTimer = timer.C
		}
		select {
		case <-ctx.Done():
			e.kill(cmd.Process.Pid, cgroupPath)
		case <-wallTimer:
			timedOut.Store(true)
			e.kill(cmd.Process.Pid, cgroupPath)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	runResult := RunResult{
		ExitCode:   exitCodeFromErr(waitErr, cmd.ProcessState),
		TimeMs:     cpuTimeMs(cmd.ProcessState),
		WallTimeMs: time.Since(start).Milliseconds(),
		MemoryKB:   memoryPeakKB(cgroupPath, cmd.ProcessState),
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
		TimedOut:   timedOut.Load(),
		OomKilled:  wasOomKilled(cgroupPath),
		Truncated:  stdout.Truncated(),
	}

	if err := ctx.Err(); err != nil && !runResult.TimedOut {
		return runResult, err
	}

	if runResult.ExitCode == HelperFailureExitCode && strings.HasPrefix(string(runResult.Stderr), "sandbox-init:") {
		logger.Error(ctx, "sandbox helper failed", zap.ByteString("stderr", runResult.Stderr))
		return runResult, appErr.Newf(appErr.SandboxUnavailable, "%s", strings.TrimSpace(string(runResult.Stderr)))
	}

	return runResult, nil
}

func (e *linuxEngine) kill(pid int, cgroupPath string) {
	if cgroupPath != "" {
		_ = killCgroup(cgroupPath)
	}
	if pid > 0 {
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func cpuTimeMs(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	return (state.UserTime() + state.SystemTime()).Milliseconds()
}

func durationFromMs(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func validateRunSpec(runSpec spec.RunSpec) error {
	if runSpec.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if runSpec.RunID == "" {
		return appErr.ValidationError("run_id", "required")
	}
	if runSpec.WorkDir == "" {
		return appErr.ValidationError("work_dir", "required")
	}
	if len(runSpec.Cmd) == 0 {
		return appErr.ValidationError("cmd", "required")
	}
	if runSpec.Profile == "" {
		return appErr.ValidationError("profile", "required")
	}
	return nil
}

func jsonToPipe(req initRequest) io.ReadCloser {
	reader, writer := io.Pipe()
	go func() {
		enc := json.NewEncoder(writer)
		err := enc.Encode(req)
		_ = writer.CloseWithError(err)
	}()
	return reader
}

func buildSysProcAttr(profile security.IsolationProfile, enableNamespaces bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
	if !enableNamespaces {
		return attr
	}

	cloneFlags := uintptr(syscall.CLONE_NEWNS | syscall.CLONE_NEWPID | syscall.CLONE_NEWUTS | syscall.CLONE_NEWIPC)
	if profile.DisableNetwork {
		cloneFlags |= syscall.CLONE_NEWNET
	}
	cloneFlags |= syscall.CLONE_NEWUSER

	attr.Cloneflags = cloneFlags
	attr.GidMappingsEnableSetgroups = false
	attr.UidMappings = []syscall.SysProcIDMap{{
		ContainerID: 0,
		HostID:      os.Getuid(),
		Size:        1,
	}}
	attr.GidMappings = []syscall.SysProcIDMap{{
		ContainerID: 0,
		HostID:      os.Getgid(),
		Size:        1,
	}}
	return attr
}
