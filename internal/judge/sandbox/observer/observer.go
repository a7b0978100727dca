// Package observer defines logging hooks for the execution pipeline.
package observer

import (
	"context"

	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// Stage is a step of one execution.
type Stage string

const (
	StageDispatched       Stage = "dispatched"
	StageHarnessGenerated Stage = "harness_generated"
	StageSpawned          Stage = "spawned"
	StageCompleted        Stage = "completed"
	StageTimedOut         Stage = "timed_out"
	StageCrashed          Stage = "crashed_or_unparsable"
	StageAggregated       Stage = "aggregated"
)

// Recorder records pipeline transitions and run outcomes.
type Recorder interface {
	ObserveStage(ctx context.Context, languageID string, stage Stage)
	ObserveRun(ctx context.Context, languageID string, status string, timeMs int64, memoryKB int64, outputKB int64)
}

// LogRecorder writes transitions at debug level and run summaries at info.
type LogRecorder struct{}

func (LogRecorder) ObserveStage(ctx context.Context, languageID string, stage Stage) {
	logger.Debug(ctx, "execution stage", zap.String("language", languageID), zap.String("stage", string(stage)))
}

func (LogRecorder) ObserveRun(ctx context.Context, languageID string, status string, timeMs int64, memoryKB int64, outputKB int64) {
	logger.Info(ctx, "execution finished",
		zap.String("language", languageID),
		zap.String("status", status),
		zap.Int64("time_ms", timeMs),
		zap.Int64("memory_kb", memoryKB),
		zap.Int64("output_kb", outputKB),
	)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveStage(context.Context, string, Stage) {}

func (Nop) ObserveRun(context.Context, string, string, int64, int64, int64) {}
