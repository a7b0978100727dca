// Package jsvm evaluates JavaScript submissions inside the judge process.
//
// The submission is compiled once. Every test case then runs in a fresh
// runtime with its own wall-clock budget, so state left behind by one case
// never leaks into the next and a runaway case is interrupted on its own.
//
// Memory is only approximately bounded: buffer and typed array constructors
// refuse allocations above the limit, and a watchdog interrupts a case once
// the judge process grows past the limit while it runs. The runtime still
// shares the judge's address space, so this strategy is an opt-in for
// trusted code.
package jsvm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"codejudge/internal/judge/compare"
	"codejudge/internal/judge/harness"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/result"
	"codejudge/internal/judge/sandbox/observer"
	"codejudge/internal/judge/value"

	"github.com/dop251/goja"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sourcegraph/conc/panics"
)

const (
	defaultBudget       = time.Second
	defaultMaxCallStack = 10000
	defaultMemoryMB     = 256
	memoryPollInterval  = 5 * time.Millisecond
)

var runtimeProgram = goja.MustCompile("judge.js", harness.JSRuntime, false)

// allocGuard wraps the buffer constructors so that a single allocation is
// checked against the limit before any memory is reserved.
var allocGuard = goja.MustCompile("guard.js", `(function (g) {
  var names = ["ArrayBuffer", "SharedArrayBuffer", "Int8Array", "Uint8Array", "Uint8ClampedArray",
    "Int16Array", "Uint16Array", "Int32Array", "Uint32Array", "Float32Array", "Float64Array",
    "BigInt64Array", "BigUint64Array"];
  names.forEach(function (name) {
    var C = g[name];
    if (typeof C !== "function") return;
    var size = C.BYTES_PER_ELEMENT || 1;
    g[name] = new Proxy(C, {
      construct: function (target, args, newTarget) {
        if (typeof args[0] === "number" && !__judgeReserve(args[0] * size)) {
          throw new RangeError("Memory Limit Exceeded");
        }
        return Reflect.construct(target, args, newTarget);
      }
    });
  });
})(this);`, false)

var (
	// errCaseTimeout is the interrupt value used when a case exceeds its budget.
	errCaseTimeout = errors.New("case budget exceeded")
	// errCaseMemory is the interrupt value used when a case exceeds its memory limit.
	errCaseMemory = errors.New("case memory exceeded")
)

type outcome int

const (
	outcomeDone outcome = iota
	outcomeTimeout
	outcomeMemory
)

// Evaluator runs JavaScript submissions in embedded runtimes.
type Evaluator struct {
	budget       time.Duration
	maxCallStack int
	memoryMB     int64
	onStage      func(observer.Stage)
	resolver     harness.Resolver
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithMemoryLimit sets the per-case memory limit in MB.
func WithMemoryLimit(mb int64) Option {
	return func(e *Evaluator) {
		if mb > 0 {
			e.memoryMB = mb
		}
	}
}

// WithStageHook reports pipeline stages as Run reaches them.
func WithStageHook(fn func(observer.Stage)) Option {
	return func(e *Evaluator) {
		e.onStage = fn
	}
}

// New creates an evaluator with a per-case budget.
func New(budget time.Duration, opts ...Option) *Evaluator {
	if budget <= 0 {
		budget = defaultBudget
	}
	e := &Evaluator{
		budget:       budget,
		maxCallStack: defaultMaxCallStack,
		memoryMB:     defaultMemoryMB,
		onStage:      func(observer.Stage) {},
		resolver:     harness.LastDefinedResolver{Flavor: harness.FlavorJavaScript},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.onStage == nil {
		e.onStage = func(observer.Stage) {}
	}
	return e
}

// Budget returns the per-case budget.
func (e *Evaluator) Budget() time.Duration {
	return e.budget
}

// Run judges src against cases. The returned error is non-nil only for
// context cancellation and unsupported test case values; every submission
// failure is reported inside the AggregateResult.
func (e *Evaluator) Run(ctx context.Context, src string, cases []model.TestCase) (result.AggregateResult, error) {
	res := e.resolver.Resolve(src)
	entry, ok := res.EntryPoint()
	if !ok {
		return result.WholeRunFailure(len(cases), result.FailureNoEntryPoint, res.Err().Error()), nil
	}

	calls := make([]string, len(cases))
	for i, tc := range cases {
		call, err := caseCall(entry.Name, tc)
		if err != nil {
			return result.AggregateResult{}, err
		}
		calls[i] = call
	}

	program, err := goja.Compile("main.js", src, false)
	if err != nil {
		return compileDiagnostic(err).Fail(len(cases)), nil
	}
	e.onStage(observer.StageHarnessGenerated)

	results := make([]result.ExecutionResult, len(cases))
	counts := make(map[outcome]int)
	for i := range cases {
		if err := ctx.Err(); err != nil {
			return result.AggregateResult{}, err
		}
		if i == 0 {
			e.onStage(observer.StageSpawned)
		}
		r, oc, err := e.runCase(ctx, program, calls[i])
		if err != nil {
			return result.AggregateResult{}, err
		}
		counts[oc]++
		results[i] = r
	}

	agg := result.Aggregate(results)
	if len(cases) > 0 {
		var d result.Diagnostic
		switch len(cases) {
		case counts[outcomeTimeout]:
			d = result.TimeoutDiagnostic(e.budget)
		case counts[outcomeMemory]:
			d = result.MemoryDiagnostic(e.memoryMB)
		}
		if d.Kind != "" {
			agg.Failure = &result.Failure{Kind: d.Kind, Message: d.Message}
		}
	}
	return agg, nil
}

func (e *Evaluator) runCase(ctx context.Context, program *goja.Program, call string) (result.ExecutionResult, outcome, error) {
	vm := goja.New()
	vm.SetMaxCallStackSize(e.maxCallStack)
	installGlobals(vm)
	if err := e.installAllocGuard(vm); err != nil {
		return result.ExecutionResult{}, outcomeDone, err
	}

	timer := time.AfterFunc(e.budget, func() { vm.Interrupt(errCaseTimeout) })
	defer timer.Stop()
	stop := context.AfterFunc(ctx, func() { vm.Interrupt(ctx.Err()) })
	defer stop()
	stopWatch := e.watchMemory(vm)
	defer stopWatch()

	var (
		out    result.ExecutionResult
		runErr error
	)
	if rec := panics.Try(func() { out, runErr = invoke(vm, program, call) }); rec != nil {
		return result.ExecutionResult{Error: fmt.Sprintf("Runtime Error: %v", rec.Value)}, outcomeDone, nil
	}
	if runErr == nil {
		return out, outcomeDone, nil
	}

	var interrupted *goja.InterruptedError
	if errors.As(runErr, &interrupted) {
		cause, _ := interrupted.Value().(error)
		switch {
		case errors.Is(cause, errCaseTimeout):
			return result.ExecutionResult{Error: result.TimeoutDiagnostic(e.budget).Message}, outcomeTimeout, nil
		case errors.Is(cause, errCaseMemory):
			return result.ExecutionResult{Error: result.MemoryDiagnostic(e.memoryMB).Message}, outcomeMemory, nil
		case cause != nil:
			return result.ExecutionResult{}, outcomeDone, cause
		}
		return result.ExecutionResult{Error: "Runtime Error: " + runErr.Error()}, outcomeDone, nil
	}
	var exc *goja.Exception
	if errors.As(runErr, &exc) {
		return result.ExecutionResult{Error: "Runtime Error: " + exc.Value().String()}, outcomeDone, nil
	}
	return result.ExecutionResult{Error: "Runtime Error: " + runErr.Error()}, outcomeDone, nil
}

func (e *Evaluator) limitBytes() int64 {
	return e.memoryMB << 20
}

// installAllocGuard rejects single buffer allocations above the limit and
// interrupts the case that attempted them.
func (e *Evaluator) installAllocGuard(vm *goja.Runtime) error {
	limit := float64(e.limitBytes())
	_ = vm.Set("__judgeReserve", func(bytes float64) bool {
		if bytes > limit {
			vm.Interrupt(errCaseMemory)
			return false
		}
		return true
	})
	_, err := vm.RunProgram(allocGuard)
	return err
}

// watchMemory polls the judge's resident size while a case runs and
// interrupts the case once growth exceeds the limit.
func (e *Evaluator) watchMemory(vm *goja.Runtime) func() {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return func() {}
	}
	base, err := proc.MemoryInfo()
	if err != nil {
		return func() {}
	}
	limit := uint64(e.limitBytes())
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(memoryPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				info, err := proc.MemoryInfo()
				if err != nil {
					continue
				}
				if info.RSS > base.RSS && info.RSS-base.RSS > limit {
					vm.Interrupt(errCaseMemory)
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

// invoke runs the submission's top level, the shared case runner and one
// case call, then decodes the record exactly as harness stdout is decoded.
func invoke(vm *goja.Runtime, program *goja.Program, call string) (result.ExecutionResult, error) {
	if _, err := vm.RunProgram(program); err != nil {
		return result.ExecutionResult{}, err
	}
	if _, err := vm.RunProgram(runtimeProgram); err != nil {
		return result.ExecutionResult{}, err
	}
	v, err := vm.RunString(call)
	if err != nil {
		return result.ExecutionResult{}, err
	}
	records, err := result.ParseHarnessOutput([]byte(v.String()), 1)
	if err != nil {
		return result.ExecutionResult{Error: result.OutputParseDiagnostic(err).Message}, nil
	}
	return records[0], nil
}

func caseCall(entry string, tc model.TestCase) (string, error) {
	input, err := value.Format(tc.Input, value.SyntaxJavaScript)
	if err != nil {
		return "", err
	}
	expected, err := value.Format(tc.ExpectedOutput, value.SyntaxJavaScript)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JSON.stringify([__judgeRunCase(__judgeResolve(%s), %s, %s, %q, %t)])",
		entry, input, expected, string(tc.Style()), tc.Mode() == compare.Ordered), nil
}

// installGlobals provides the host objects submissions commonly touch:
// a silent console and a monotonic performance.now.
func installGlobals(vm *goja.Runtime) {
	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	console := vm.NewObject()
	for _, name := range []string{"log", "info", "debug", "warn", "error", "trace"} {
		_ = console.Set(name, noop)
	}
	_ = vm.Set("console", console)

	start := time.Now()
	perf := vm.NewObject()
	_ = perf.Set("now", func() float64 {
		return float64(time.Since(start).Nanoseconds()) / 1e6
	})
	_ = vm.Set("performance", perf)
}

// compileDiagnostic reports a syntax error, rewriting well-known messages.
func compileDiagnostic(err error) result.Diagnostic {
	d := result.Diagnose(err.Error(), 1)
	if d.Kind == result.FailureRuntime {
		return result.Diagnostic{Kind: result.FailureCompile, Message: "Compilation Error: " + err.Error()}
	}
	return d
}
