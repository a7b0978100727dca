package sandbox

import (
	"testing"

	"codejudge/internal/judge/sandbox/profile"
	appErr "codejudge/pkg/errors"
)

func TestContainerConfigs(t *testing.T) {
	var python profile.LanguageSpec
	for _, lang := range profile.DefaultLanguages() {
		if lang.ID == "python" {
			python = lang
		}
	}
	cfg, hostCfg, err := containerConfigs(Request{SubmissionID: "s", Language: python, HostDir: "/tmp/judge-z"})
	if err != nil {
		t.Fatalf("containerConfigs: %v", err)
	}
	if cfg.Image != "python:3.12-alpine" || !cfg.NetworkDisabled {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if last := cfg.Cmd[len(cfg.Cmd)-1]; last != "/work/main.py" {
		t.Fatalf("unexpected cmd %v", cfg.Cmd)
	}
	if hostCfg.NetworkMode != "none" || !hostCfg.ReadonlyRootfs {
		t.Fatalf("expected no network and read-only root")
	}
	if len(hostCfg.Binds) != 1 || hostCfg.Binds[0] != "/tmp/judge-z:/work:ro" {
		t.Fatalf("unexpected binds %v", hostCfg.Binds)
	}
	if hostCfg.Resources.Memory != 256*1024*1024 {
		t.Fatalf("unexpected memory %d", hostCfg.Resources.Memory)
	}
	if hostCfg.Resources.PidsLimit == nil || *hostCfg.Resources.PidsLimit != 16 {
		t.Fatalf("unexpected pids limit")
	}
}

func TestContainerConfigsRequiresImage(t *testing.T) {
	_, _, err := containerConfigs(Request{Language: profile.LanguageSpec{ID: "x", SourceFile: "a", RunCmdTpl: "x {src}"}})
	if !appErr.Is(err, appErr.SandboxUnavailable) {
		t.Fatalf("expected SandboxUnavailable, got %v", err)
	}
}
