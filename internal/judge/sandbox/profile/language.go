// Package profile defines the languages the judge accepts and how each one
// is executed.
package profile

import (
	"math"
	"path/filepath"
	"strings"
	"time"

	"codejudge/internal/judge/sandbox/security"
	"codejudge/internal/judge/sandbox/spec"
	appErr "codejudge/pkg/errors"

	"github.com/google/shlex"
)

// Strategy selects where submissions of a language run.
type Strategy string

const (
	// StrategyInProcess evaluates the submission inside the judge process.
	// It has no isolation and must be enabled explicitly.
	StrategyInProcess Strategy = "inprocess"
	// StrategyProcess generates a harness and runs it in a sandboxed child process.
	StrategyProcess Strategy = "process"
)

// Harness names the generator family for process strategies.
const (
	HarnessPython     = "python"
	HarnessJava       = "java"
	HarnessJavaScript = "javascript"
)

// LanguageSpec defines how to run a language.
type LanguageSpec struct {
	ID               string             `yaml:"id"`
	Name             string             `yaml:"name"`
	Aliases          []string           `yaml:"aliases"`
	Strategy         Strategy           `yaml:"strategy"`
	Harness          string             `yaml:"harness"`
	SourceFile       string             `yaml:"sourceFile"`
	RunCmdTpl        string             `yaml:"runCmd"`
	Env              []string           `yaml:"env"`
	Image            string             `yaml:"image"`
	Timeout          time.Duration      `yaml:"timeout"`
	Limits           spec.ResourceLimit `yaml:"limits"`
	TimeMultiplier   float64            `yaml:"timeMultiplier"`
	MemoryMultiplier float64            `yaml:"memoryMultiplier"`
	RootFS           string             `yaml:"rootfs"`
	SeccompProfile   string             `yaml:"seccompProfile"`
}

// DefaultLimits apply to every language before its own overrides.
var DefaultLimits = spec.ResourceLimit{
	MemoryMB: 256,
	StackMB:  64,
	OutputMB: 16,
	PIDs:     64,
}

// DefaultLanguages returns the built-in language table.
func DefaultLanguages() []LanguageSpec {
	return []LanguageSpec{
		{
			ID:         "javascript",
			Name:       "JavaScript",
			Aliases:    []string{"js"},
			Strategy:   StrategyProcess,
			Harness:    HarnessJavaScript,
			SourceFile: "main.js",
			RunCmdTpl:  "node {src}",
			Image:      "node:22-alpine",
			Timeout:    2 * time.Second,
		},
		{
			ID:         "typescript",
			Name:       "TypeScript",
			Aliases:    []string{"ts"},
			Strategy:   StrategyProcess,
			Harness:    HarnessJavaScript,
			SourceFile: "main.ts",
			RunCmdTpl:  "node --experimental-strip-types --no-warnings {src}",
			Image:      "node:22-alpine",
			Timeout:    2 * time.Second,
		},
		{
			ID:         "python",
			Name:       "Python 3",
			Aliases:    []string{"py", "python3"},
			Strategy:   StrategyProcess,
			Harness:    HarnessPython,
			SourceFile: "main.py",
			RunCmdTpl:  "python3 -I -B {src}",
			Image:      "python:3.12-alpine",
			Timeout:    2 * time.Second,
			Limits:     spec.ResourceLimit{AddressSpaceMB: 1024, PIDs: 16},
		},
		{
			ID:         "java",
			Name:       "Java",
			Strategy:   StrategyProcess,
			Harness:    HarnessJava,
			SourceFile: "Main.java",
			RunCmdTpl:  "java -XX:+UseSerialGC -XX:TieredStopAtLevel=1 -Xss64m {src}",
			Image:      "eclipse-temurin:21-jdk-alpine",
			Timeout:    5 * time.Second,
			Limits:     spec.ResourceLimit{MemoryMB: 512, PIDs: 128},
		},
	}
}

// Budget is the wall-clock budget of one run after multipliers.
func (l LanguageSpec) Budget() time.Duration {
	if l.TimeMultiplier <= 0 {
		return l.Timeout
	}
	return time.Duration(math.Ceil(float64(l.Timeout) * l.TimeMultiplier))
}

// EffectiveLimits merges the language overrides onto DefaultLimits and
// derives time limits from the budget.
func (l LanguageSpec) EffectiveLimits() spec.ResourceLimit {
	limits := spec.Merge(DefaultLimits, l.Limits)
	budgetMs := l.Budget().Milliseconds()
	if limits.WallTimeMs <= 0 {
		limits.WallTimeMs = budgetMs
	}
	if limits.CPUTimeMs <= 0 {
		limits.CPUTimeMs = budgetMs
	}
	limits.MemoryMB = scaleLimit(limits.MemoryMB, l.MemoryMultiplier)
	limits.AddressSpaceMB = scaleLimit(limits.AddressSpaceMB, l.MemoryMultiplier)
	return limits
}

// Isolation returns the isolation profile used by the namespaced engine.
func (l LanguageSpec) Isolation() security.IsolationProfile {
	return security.IsolationProfile{
		RootFS:         l.RootFS,
		ReadOnlyRoot:   l.RootFS != "",
		TmpfsMB:        64,
		SeccompProfile: l.SeccompProfile,
		DisableNetwork: true,
	}
}

// BuildCommand expands the run template for a source file located at dir.
func (l LanguageSpec) BuildCommand(dir string) ([]string, error) {
	tpl := l.RunCmdTpl
	if strings.TrimSpace(tpl) == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command template is required")
	}
	expanded := strings.ReplaceAll(tpl, "{src}", filepath.Join(dir, l.SourceFile))
	expanded = strings.ReplaceAll(expanded, "{dir}", dir)
	fields, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command is empty after expansion")
	}
	return fields, nil
}

func scaleLimit(value int64, multiplier float64) int64 {
	if value <= 0 {
		return 0
	}
	if multiplier <= 0 {
		return value
	}
	return int64(math.Ceil(float64(value) * multiplier))
}
