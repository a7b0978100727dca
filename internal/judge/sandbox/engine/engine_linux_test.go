//go:build linux

package engine

import (
	"context"
	"os/exec"
	"strings"
	"syscall"
	"testing"

	"codejudge/internal/judge/sandbox/security"
	"codejudge/internal/judge/sandbox/spec"
	appErr "codejudge/pkg/errors"
)

type staticResolver struct {
	profile security.IsolationProfile
}

func (r staticResolver) Resolve(string) (security.IsolationProfile, error) {
	return r.profile, nil
}

func TestNewEngineRequiresResolver(t *testing.T) {
	if _, err := NewEngine(Config{}, nil); err == nil {
		t.Fatalf("expected error without resolver")
	}
}

func TestRunValidatesSpec(t *testing.T) {
	eng, err := NewEngine(Config{}, staticResolver{})
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	_, err = eng.Run(context.Background(), spec.RunSpec{SubmissionID: "s1"})
	if !appErr.Is(err, appErr.ValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildSysProcAttr(t *testing.T) {
	attr := buildSysProcAttr(security.IsolationProfile{DisableNetwork: true}, true)
	if attr.Cloneflags&syscall.CLONE_NEWNET == 0 {
		t.Fatalf("expected network namespace")
	}
	if attr.Cloneflags&syscall.CLONE_NEWUSER == 0 || attr.Cloneflags&syscall.CLONE_NEWPID == 0 {
		t.Fatalf("expected user and pid namespaces")
	}
	if !attr.Setpgid || attr.Pdeathsig != syscall.SIGKILL {
		t.Fatalf("expected process group and parent death signal")
	}

	plain := buildSysProcAttr(security.IsolationProfile{DisableNetwork: true}, false)
	if plain.Cloneflags != 0 {
		t.Fatalf("expected no namespaces when disabled")
	}
}

func TestRunWithHelper(t *testing.T) {
	helper, err := exec.LookPath("sandbox-init")
	if err != nil {
		t.Skip("sandbox-init not installed")
	}
	eng, err := NewEngine(Config{HelperPath: helper}, staticResolver{})
	if err != nil {
		t.Fatalf("new engine failed: %v", err)
	}
	res, err := eng.Run(context.Background(), spec.RunSpec{
		SubmissionID: "engine-test",
		RunID:        "echo",
		WorkDir:      t.TempDir(),
		Cmd:          []string{"echo", "hello"},
		Profile:      "test",
		Limits:       spec.ResourceLimit{WallTimeMs: 2000},
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.ExitCode != 0 || strings.TrimSpace(string(res.Stdout)) != "hello" {
		t.Fatalf("unexpected result: %+v", res)
	}
}
