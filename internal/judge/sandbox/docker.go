package sandbox

import (
	"context"
	"time"

	"codejudge/internal/judge/sandbox/engine"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"go.uber.org/zap"
)

// cleanupTimeout bounds container removal after the request context ends.
const cleanupTimeout = 10 * time.Second

// DockerSandbox runs each harness in a throwaway container: no network,
// read-only root and workspace, tmpfs /tmp, cgroup limits, no capabilities.
type DockerSandbox struct {
	cli            *client.Client
	outputMaxBytes int64
}

// NewDockerSandbox connects to the daemon from the environment and pings it.
func NewDockerSandbox(ctx context.Context, host string, outputMaxBytes int64) (*DockerSandbox, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.SandboxUnavailable, "create docker client: %v", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, appErr.Wrapf(err, appErr.SandboxUnavailable, "ping docker daemon: %v", err)
	}
	if outputMaxBytes <= 0 {
		outputMaxBytes = defaultOutputMaxBytes
	}
	return &DockerSandbox{cli: cli, outputMaxBytes: outputMaxBytes}, nil
}

func (s *DockerSandbox) Name() string { return "docker" }

// Close releases the daemon connection.
func (s *DockerSandbox) Close() error {
	return s.cli.Close()
}

func (s *DockerSandbox) Run(ctx context.Context, req Request) (Output, error) {
	cfg, hostCfg, err := containerConfigs(req)
	if err != nil {
		return Output{}, err
	}
	budget := budgetOf(req)

	created, err := s.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, "")
	if err != nil {
		return Output{}, appErr.Wrapf(err, appErr.SandboxUnavailable, "create container: %v", err)
	}
	defer func() {
		rmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if err := s.cli.ContainerRemove(rmCtx, created.ID, container.RemoveOptions{Force: true}); err != nil {
			logger.Warn(ctx, "remove container failed", zap.String("container", created.ID), zap.Error(err))
		}
	}()

	statusCh, errCh := s.cli.ContainerWait(ctx, created.ID, container.WaitConditionNextExit)
	start := time.Now()
	if err := s.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return Output{}, appErr.Wrapf(err, appErr.SandboxUnavailable, "start container: %v", err)
	}

	out := Output{ExitCode: -1}
	timer := time.NewTimer(budget)
	defer timer.Stop()
	select {
	case status := <-statusCh:
		out.ExitCode = int(status.StatusCode)
	case err := <-errCh:
		if ctx.Err() != nil {
			return Output{}, ctx.Err()
		}
		return Output{}, appErr.Wrapf(err, appErr.SandboxUnavailable, "wait container: %v", err)
	case <-timer.C:
		out.TimedOut = true
		killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		_ = s.cli.ContainerKill(killCtx, created.ID, "KILL")
		cancel()
	case <-ctx.Done():
		return Output{}, ctx.Err()
	}
	out.Duration = time.Since(start)

	if info, err := s.cli.ContainerInspect(ctx, created.ID); err == nil && info.State != nil {
		out.OOMKilled = info.State.OOMKilled
	}

	logs, err := s.cli.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return Output{}, appErr.Wrapf(err, appErr.SandboxUnavailable, "read container logs: %v", err)
	}
	defer logs.Close()
	stdout := engine.NewLimitedBuffer(s.outputMaxBytes)
	stderr := engine.NewLimitedBuffer(s.outputMaxBytes)
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		logger.Warn(ctx, "demultiplex container logs failed", zap.Error(err))
	}
	out.Stdout = stdout.Bytes()
	out.Stderr = stderr.Bytes()
	out.Truncated = stdout.Truncated()
	return out, nil
}

// containerConfigs builds the container definition for req.
func containerConfigs(req Request) (*container.Config, *container.HostConfig, error) {
	lang := req.Language
	if lang.Image == "" {
		return nil, nil, appErr.Newf(appErr.SandboxUnavailable, "no container image configured for %s", lang.ID)
	}
	args, err := lang.BuildCommand(containerWorkDir)
	if err != nil {
		return nil, nil, err
	}
	limits := lang.EffectiveLimits()
	pids := limits.PIDs

	cfg := &container.Config{
		Image:           lang.Image,
		Cmd:             args,
		Env:             append([]string{"HOME=/tmp", "TMPDIR=/tmp", "LANG=C.UTF-8"}, lang.Env...),
		WorkingDir:      containerWorkDir,
		User:            "65534:65534",
		NetworkDisabled: true,
		Labels:          map[string]string{"codejudge.submission": req.SubmissionID, "codejudge.language": lang.ID},
	}
	hostCfg := &container.HostConfig{
		NetworkMode:    "none",
		Binds:          []string{req.HostDir + ":" + containerWorkDir + ":ro"},
		ReadonlyRootfs: true,
		Tmpfs:          map[string]string{"/tmp": "rw,noexec,nosuid,size=64m"},
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Resources: container.Resources{
			Memory:     limits.MemoryMB * 1024 * 1024,
			MemorySwap: limits.MemoryMB * 1024 * 1024,
			NanoCPUs:   1_000_000_000,
			PidsLimit:  &pids,
		},
	}
	return cfg, hostCfg, nil
}
