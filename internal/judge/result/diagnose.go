package result

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const maxDiagnosticBytes = 4096

// Diagnostic is a user-facing explanation of a failed run.
type Diagnostic struct {
	Kind    FailureKind
	Message string
}

type diagnosticRule struct {
	pattern *regexp.Regexp
	kind    FailureKind
	message string // empty reports the "msg" group
}

const missingBraceMessage = "Compilation Error: It seems you are missing a closing brace '}'. Please check your syntax."

var diagnosticRules = []diagnosticRule{
	{
		pattern: regexp.MustCompile(`reached end of file while parsing`),
		kind:    FailureCompile,
		message: missingBraceMessage,
	},
	{
		pattern: regexp.MustCompile(`class, interface, (enum, or record|or enum) expected`),
		kind:    FailureCompile,
		message: "Compilation Error: Please ensure you are not using 'package' declarations and imports are valid.",
	},
	{
		pattern: regexp.MustCompile(`Unexpected end of input`),
		kind:    FailureCompile,
		message: missingBraceMessage,
	},
	{
		pattern: regexp.MustCompile(`'[({\[]' was never closed|unexpected EOF while parsing`),
		kind:    FailureCompile,
		message: "Compilation Error: It seems a bracket or brace is never closed. Please check your syntax.",
	},
	{
		pattern: regexp.MustCompile(`(?m)^.*\.java:\d+: error: (?P<msg>.*)$`),
		kind:    FailureCompile,
	},
	{
		pattern: regexp.MustCompile(`(?m)^\s*(?P<msg>(SyntaxError|IndentationError|TabError)\b.*)$`),
		kind:    FailureCompile,
	},
}

// launchRejectedPatterns match a runtime refusing its own command line,
// for example a node too old for a flag in the run template.
var launchRejectedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^(?:\S*/)?node: (?:bad option|\S+ is not allowed in NODE_OPTIONS).*$`),
	regexp.MustCompile(`(?m)^Error: Could not create the Java Virtual Machine\.$`),
	regexp.MustCompile(`(?m)^[Uu]nknown option:? \S+\s*\n(?:usage|Usage): \S*python`),
}

// LaunchRejected reports whether stderr shows the interpreter rejected its
// launch command before running any submitted code. The first matching line
// is returned for logging.
func LaunchRejected(stderr string) (string, bool) {
	for _, re := range launchRejectedPatterns {
		if loc := re.FindStringIndex(stderr); loc != nil {
			line, _, _ := strings.Cut(stderr[loc[0]:], "\n")
			return strings.TrimSpace(line), true
		}
	}
	return "", false
}

// Diagnose turns the stderr of a failed run into a diagnostic. Known
// compiler and parser messages are rewritten; anything else is reported as
// a runtime error.
func Diagnose(stderr string, exitCode int) Diagnostic {
	stderr = strings.TrimSpace(stderr)
	for _, rule := range diagnosticRules {
		match := rule.pattern.FindStringSubmatch(stderr)
		if match == nil {
			continue
		}
		msg := rule.message
		if msg == "" {
			msg = "Compilation Error: " + strings.TrimSpace(match[rule.pattern.SubexpIndex("msg")])
		}
		return Diagnostic{Kind: rule.kind, Message: msg}
	}
	if stderr == "" {
		return Diagnostic{Kind: FailureRuntime, Message: fmt.Sprintf("Runtime Error: process exited with code %d", exitCode)}
	}
	return Diagnostic{Kind: FailureRuntime, Message: "Runtime Error: " + truncate(stderr, maxDiagnosticBytes)}
}

// TimeoutDiagnostic describes a run killed at its wall-clock budget.
func TimeoutDiagnostic(budget time.Duration) Diagnostic {
	return Diagnostic{
		Kind:    FailureTimeout,
		Message: fmt.Sprintf("Time Limit Exceeded: execution did not finish within %s", budget),
	}
}

// MemoryDiagnostic describes a run killed for exceeding its memory limit.
func MemoryDiagnostic(limitMB int64) Diagnostic {
	return Diagnostic{
		Kind:    FailureMemory,
		Message: fmt.Sprintf("Memory Limit Exceeded: execution used more than %d MB", limitMB),
	}
}

// OutputParseDiagnostic describes unparsable harness output.
func OutputParseDiagnostic(err error) Diagnostic {
	return Diagnostic{
		Kind:    FailureOutputParse,
		Message: "Output Parse Error: " + err.Error(),
	}
}

// Fail synthesizes the whole-run failure for d.
func (d Diagnostic) Fail(total int) AggregateResult {
	return WholeRunFailure(total, d.Kind, d.Message)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + "... (truncated)"
}
