// Package service implements the execution dispatcher: it routes a
// submission to its language pipeline and returns the aggregated result.
package service

import (
	"context"
	"errors"
	"time"

	"codejudge/internal/judge/harness"
	"codejudge/internal/judge/jsvm"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/result"
	"codejudge/internal/judge/sandbox"
	"codejudge/internal/judge/sandbox/observer"
	"codejudge/internal/judge/sandbox/profile"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"
)

const (
	defaultQueueWait    = 2 * time.Second
	defaultMaxCodeBytes = 64 * 1024
	defaultMaxTestCases = 256
)

// Service judges submissions.
type Service struct {
	languages    *profile.Registry
	sandbox      sandbox.Sandbox
	workspace    *sandbox.Workspace
	observer     observer.Recorder
	limiter      *TokenLimiter
	queueWait    time.Duration
	maxCodeBytes int
	maxTestCases int
}

// Config holds service dependencies and settings.
type Config struct {
	Languages      *profile.Registry
	Sandbox        sandbox.Sandbox
	Workspace      *sandbox.Workspace
	Observer       observer.Recorder
	WorkerPoolSize int
	QueueWait      time.Duration
	MaxCodeBytes   int
	MaxTestCases   int
}

// Outcome is delivered by ExecuteAsync.
type Outcome struct {
	Result result.AggregateResult
	Status result.Status
	Err    error
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Languages == nil {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("language registry is required")
	}
	needsSandbox := false
	for _, lang := range cfg.Languages.Languages() {
		switch lang.Strategy {
		case profile.StrategyInProcess:
			if lang.Harness != profile.HarnessJavaScript {
				return nil, appErr.Newf(appErr.InvalidParams, "language %s: in-process execution supports javascript only", lang.ID)
			}
			logger.Warn(context.Background(), "language runs inside the judge process without isolation",
				zap.String("language", lang.ID))
		case profile.StrategyProcess:
			needsSandbox = true
			if _, err := harness.ForLanguage(lang); err != nil {
				return nil, appErr.Wrapf(err, appErr.InvalidParams, "language %s: %v", lang.ID, err)
			}
		default:
			return nil, appErr.Newf(appErr.InvalidParams, "language %s: unknown strategy %q", lang.ID, lang.Strategy)
		}
	}
	if needsSandbox && (cfg.Sandbox == nil || cfg.Workspace == nil) {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("sandbox and workspace are required")
	}
	rec := cfg.Observer
	if rec == nil {
		rec = observer.Nop{}
	}
	queueWait := cfg.QueueWait
	if queueWait <= 0 {
		queueWait = defaultQueueWait
	}
	maxCode := cfg.MaxCodeBytes
	if maxCode <= 0 {
		maxCode = defaultMaxCodeBytes
	}
	maxCases := cfg.MaxTestCases
	if maxCases <= 0 {
		maxCases = defaultMaxTestCases
	}
	return &Service{
		languages:    cfg.Languages,
		sandbox:      cfg.Sandbox,
		workspace:    cfg.Workspace,
		observer:     rec,
		limiter:      NewTokenLimiter(cfg.WorkerPoolSize),
		queueWait:    queueWait,
		maxCodeBytes: maxCode,
		maxTestCases: maxCases,
	}, nil
}

// Languages lists the supported languages.
func (s *Service) Languages() []profile.LanguageSpec {
	return s.languages.Languages()
}

// Execute judges one submission. Only request errors (unsupported language,
// invalid or unrepresentable test data) and infrastructure errors (queue
// full, sandbox unavailable, cancellation) are returned; every failure of
// the submission itself is reported inside the AggregateResult.
func (s *Service) Execute(ctx context.Context, sub model.Submission) (result.AggregateResult, error) {
	if err := sub.Normalize(); err != nil {
		return result.AggregateResult{}, err
	}
	lang, err := s.languages.Lookup(sub.Language)
	if err != nil {
		return result.AggregateResult{}, err
	}
	if err := s.validate(sub); err != nil {
		return result.AggregateResult{}, err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	ctx = logger.WithSubmission(ctx, sub.ID, lang.ID)
	s.observer.ObserveStage(ctx, lang.ID, observer.StageDispatched)

	if err := s.limiter.Acquire(ctx, s.queueWait); err != nil {
		return result.AggregateResult{}, err
	}
	defer s.limiter.Release()

	start := time.Now()
	var agg result.AggregateResult
	switch lang.Strategy {
	case profile.StrategyInProcess:
		agg, err = s.runInProcess(ctx, lang, sub)
	default:
		agg, err = s.runProcess(ctx, sub.ID, lang, sub)
	}
	if err != nil {
		logger.Warn(ctx, "execution aborted", zap.Error(err))
		return result.AggregateResult{}, err
	}

	s.observer.ObserveStage(ctx, lang.ID, observer.StageAggregated)
	s.observer.ObserveRun(ctx, lang.ID, string(result.Classify(agg)), time.Since(start).Milliseconds(), 0, 0)
	return agg, nil
}

// ExecuteAsync runs Execute on its own goroutine. The channel receives
// exactly one Outcome and is then closed.
func (s *Service) ExecuteAsync(ctx context.Context, sub model.Submission) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		var out Outcome
		if rec := panics.Try(func() { out.Result, out.Err = s.Execute(ctx, sub) }); rec != nil {
			logger.Error(ctx, "execution panicked", zap.Any("panic", rec.Value), zap.String("stack", string(rec.Stack)))
			out = Outcome{Err: appErr.Newf(appErr.JudgeSystemError, "execution panicked: %v", rec.Value)}
		}
		if out.Err == nil {
			out.Status = result.Classify(out.Result)
		}
		ch <- out
	}()
	return ch
}

func (s *Service) validate(sub model.Submission) error {
	if sub.SourceCode == "" {
		return appErr.ValidationError("code", "required")
	}
	if len(sub.SourceCode) > s.maxCodeBytes {
		return appErr.Newf(appErr.CodeTooLarge, "source code exceeds %d bytes", s.maxCodeBytes)
	}
	if len(sub.TestCases) > s.maxTestCases {
		return appErr.ValidationError("testCases", "too many test cases")
	}
	return nil
}

func (s *Service) runInProcess(ctx context.Context, lang profile.LanguageSpec, sub model.Submission) (result.AggregateResult, error) {
	evaluator := jsvm.New(lang.Budget(),
		jsvm.WithMemoryLimit(lang.EffectiveLimits().MemoryMB),
		jsvm.WithStageHook(func(stage observer.Stage) { s.observer.ObserveStage(ctx, lang.ID, stage) }),
	)
	agg, err := evaluator.Run(ctx, sub.SourceCode, sub.TestCases)
	if err != nil {
		return result.AggregateResult{}, err
	}
	s.observer.ObserveStage(ctx, lang.ID, stageOf(agg))
	return agg, nil
}

func (s *Service) runProcess(ctx context.Context, id string, lang profile.LanguageSpec, sub model.Submission) (result.AggregateResult, error) {
	total := len(sub.TestCases)
	gen, err := harness.ForLanguage(lang)
	if err != nil {
		return result.AggregateResult{}, err
	}
	prog, err := gen.Generate(sub.SourceCode, sub.TestCases)
	if err != nil {
		if appErr.Is(err, appErr.NoEntryPointFound) {
			s.observer.ObserveStage(ctx, lang.ID, observer.StageCrashed)
			return result.WholeRunFailure(total, result.FailureNoEntryPoint, err.Error()), nil
		}
		return result.AggregateResult{}, err
	}
	s.observer.ObserveStage(ctx, lang.ID, observer.StageHarnessGenerated)

	var agg result.AggregateResult
	err = s.workspace.With(ctx, prog.FileName, []byte(prog.Source), func(dir string) error {
		s.observer.ObserveStage(ctx, lang.ID, observer.StageSpawned)
		out, runErr := s.sandbox.Run(ctx, sandbox.Request{
			SubmissionID: id,
			Language:     lang,
			HostDir:      dir,
			Budget:       lang.Budget(),
		})
		if runErr != nil {
			return runErr
		}
		if out.ExitCode != 0 && !out.TimedOut && !out.OOMKilled {
			if line, ok := result.LaunchRejected(string(out.Stderr)); ok {
				logger.Error(ctx, "runtime rejected launch command",
					zap.String("run_cmd", lang.RunCmdTpl),
					zap.String("stderr", line),
				)
				return appErr.Newf(appErr.SandboxUnavailable, "%s runtime cannot start: %s", lang.ID, line)
			}
		}
		agg = interpret(out, lang, total)
		s.observer.ObserveStage(ctx, lang.ID, stageOf(agg))
		if agg.Failure != nil {
			logger.Info(ctx, "run failed",
				zap.String("kind", string(agg.Failure.Kind)),
				zap.Int("exit_code", out.ExitCode),
				zap.Duration("duration", out.Duration),
				zap.Bool("output_truncated", out.Truncated),
			)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return result.AggregateResult{}, err
		}
		if appErr.GetCode(err) == appErr.InternalServerError {
			return result.AggregateResult{}, appErr.Wrapf(err, appErr.JudgeSystemError, "run harness failed")
		}
		return result.AggregateResult{}, err
	}
	return agg, nil
}

// interpret turns raw sandbox output into an aggregate. Any run that did not
// finish cleanly with parsable output fails every case with one diagnostic.
func interpret(out sandbox.Output, lang profile.LanguageSpec, total int) result.AggregateResult {
	switch {
	case out.TimedOut:
		return result.TimeoutDiagnostic(lang.Budget()).Fail(total)
	case out.OOMKilled:
		return result.MemoryDiagnostic(lang.EffectiveLimits().MemoryMB).Fail(total)
	case out.ExitCode != 0:
		return result.Diagnose(string(out.Stderr), out.ExitCode).Fail(total)
	}
	results, err := result.ParseHarnessOutput(out.Stdout, total)
	if err != nil {
		return result.OutputParseDiagnostic(err).Fail(total)
	}
	return result.Aggregate(results)
}

func stageOf(agg result.AggregateResult) observer.Stage {
	if agg.Failure == nil {
		return observer.StageCompleted
	}
	if agg.Failure.Kind == result.FailureTimeout {
		return observer.StageTimedOut
	}
	return observer.StageCrashed
}
