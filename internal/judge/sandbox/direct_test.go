//go:build !windows

package sandbox

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codejudge/internal/judge/sandbox/profile"
)

func shellLanguage(timeout time.Duration) profile.LanguageSpec {
	return profile.LanguageSpec{
		ID:         "sh",
		Strategy:   profile.StrategyProcess,
		SourceFile: "main.sh",
		RunCmdTpl:  "sh {src}",
		Timeout:    timeout,
	}
}

func runScript(t *testing.T, script string, lang profile.LanguageSpec) Output {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, lang.SourceFile), []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out, err := NewProcessSandbox(0).Run(context.Background(), Request{
		SubmissionID: "s1",
		Language:     lang,
		HostDir:      dir,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out
}

func TestProcessSandboxCapturesStreams(t *testing.T) {
	out := runScript(t, "echo out; echo err 1>&2; exit 3\n", shellLanguage(5*time.Second))
	if strings.TrimSpace(string(out.Stdout)) != "out" {
		t.Fatalf("unexpected stdout %q", out.Stdout)
	}
	if strings.TrimSpace(string(out.Stderr)) != "err" {
		t.Fatalf("unexpected stderr %q", out.Stderr)
	}
	if out.ExitCode != 3 || out.TimedOut {
		t.Fatalf("unexpected exit=%d timedOut=%v", out.ExitCode, out.TimedOut)
	}
}

func TestProcessSandboxTimesOut(t *testing.T) {
	start := time.Now()
	out := runScript(t, "while :; do :; done\n", shellLanguage(200*time.Millisecond))
	if !out.TimedOut {
		t.Fatalf("expected timeout, got exit %d", out.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("kill took too long: %s", elapsed)
	}
}

func TestProcessSandboxScrubsEnvironment(t *testing.T) {
	t.Setenv("JUDGE_SECRET", "leak")
	out := runScript(t, "echo \"[$JUDGE_SECRET]\"\n", shellLanguage(5*time.Second))
	if strings.TrimSpace(string(out.Stdout)) != "[]" {
		t.Fatalf("environment leaked: %q", out.Stdout)
	}
}

func TestProcessSandboxTruncatesOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	lang := shellLanguage(5 * time.Second)
	script := "i=0; while [ $i -lt 2000 ]; do echo 0123456789; i=$((i+1)); done\n"
	if err := os.WriteFile(filepath.Join(dir, lang.SourceFile), []byte(script), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	out, err := NewProcessSandbox(1024).Run(context.Background(), Request{Language: lang, HostDir: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Truncated || len(out.Stdout) > 1024 {
		t.Fatalf("expected truncated output, got %d bytes truncated=%v", len(out.Stdout), out.Truncated)
	}
}
