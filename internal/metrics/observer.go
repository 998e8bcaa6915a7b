package metrics

import (
	"context"
	"errors"
	"time"

	"ssupscaler/internal/execshell"
	"ssupscaler/internal/media"
	"ssupscaler/internal/pipeline"
)

// Command failure reason labels.
const (
	ReasonExit      = "exit"
	ReasonStart     = "start"
	ReasonCancelled = "cancelled"
	ReasonTimeout   = "timeout"
)

// Frame result labels.
const (
	FrameUpscaled = "upscaled"
	FrameFallback = "fallback"
)

// pipelineObserver implements pipeline.Observer using the Prometheus
// metrics declared in this package.
type pipelineObserver struct{}

// NewPipelineObserver creates an observer that records file, frame and queue
// statistics.
func NewPipelineObserver() pipeline.Observer {
	return &pipelineObserver{}
}

func (o *pipelineObserver) FileFinished(kind media.Kind, status string, elapsed time.Duration) {
	FilesProcessedTotal.WithLabelValues(kind.String(), status).Inc()
	if status == pipeline.StatusCompleted {
		FileDuration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
	}
}

func (o *pipelineObserver) FrameProcessed(failed bool) {
	if failed {
		FramesProcessedTotal.WithLabelValues(FrameFallback).Inc()
		return
	}
	FramesProcessedTotal.WithLabelValues(FrameUpscaled).Inc()
}

func (o *pipelineObserver) QueueLength(remaining int) {
	QueueLength.Set(float64(remaining))
}

// commandObserver implements execshell.CommandEventObserver.
type commandObserver struct{}

// NewCommandObserver creates an observer that records subprocess run times
// and failures per tool.
func NewCommandObserver() execshell.CommandEventObserver {
	return &commandObserver{}
}

func (o *commandObserver) CommandStarted(execshell.ShellCommand) {
	CommandsInFlight.Inc()
}

func (o *commandObserver) CommandCompleted(command execshell.ShellCommand, result execshell.ExecutionResult, elapsed time.Duration) {
	CommandsInFlight.Dec()
	CommandDuration.WithLabelValues(command.ToolName()).Observe(elapsed.Seconds())
	if result.ExitCode != 0 {
		CommandFailuresTotal.WithLabelValues(command.ToolName(), ReasonExit).Inc()
	}
}

func (o *commandObserver) CommandExecutionFailed(command execshell.ShellCommand, err error) {
	CommandsInFlight.Dec()
	CommandFailuresTotal.WithLabelValues(command.ToolName(), failureReason(err)).Inc()
}

// failureReason separates user stops and per-frame timeouts from processes
// that never started.
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	default:
		return ReasonStart
	}
}
