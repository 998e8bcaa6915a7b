package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ssupscaler/internal/config"
	"ssupscaler/internal/media"
)

var (
	ErrEmptyQueue     = errors.New("please add files to process")
	ErrNoOutputDir    = errors.New("please select an output folder")
	ErrAlreadyRunning = errors.New("processing is already running")
)

// StopGracePeriod bounds how long Stop waits for the active file to wind down.
const StopGracePeriod = 5 * time.Second

// Runner processes one job; *Worker is the production implementation.
type Runner interface {
	Run(executionContext context.Context, job Job, events chan<- Event) Outcome
}

// Summary describes a finished batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
	Stopped   bool
	Elapsed   time.Duration
	Outputs   []string
}

// Processor runs a queue one file at a time.
type Processor struct {
	runner   Runner
	logger   *zap.Logger
	observer Observer
	clock    func() time.Time

	lock   sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewProcessor creates a processor around runner.
func NewProcessor(logger *zap.Logger, runner Runner) *Processor {
	return &Processor{runner: runner, logger: logger, observer: noopObserver{}, clock: time.Now}
}

// WithObserver registers a statistics observer.
func (processor *Processor) WithObserver(observer Observer) *Processor {
	if observer == nil {
		observer = noopObserver{}
	}
	processor.observer = observer
	return processor
}

// WithClock replaces the time source used for elapsed and remaining time.
func (processor *Processor) WithClock(clock func() time.Time) *Processor {
	processor.clock = clock
	return processor
}

// Validate checks the batch preconditions without starting anything.
func Validate(files []string, settings config.Settings) error {
	if len(files) == 0 {
		return ErrEmptyQueue
	}
	if settings.OutputDir == "" {
		return ErrNoOutputDir
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return media.ValidateOutputDir(settings.OutputDir)
}

// Run processes files sequentially, sending every Event to events, and
// closes events before returning. A failed file is reported and the batch
// moves on; cancelling executionContext or calling Stop ends the batch after
// the active file winds down.
func (processor *Processor) Run(executionContext context.Context, files []string, settings config.Settings, events chan<- Event) (Summary, error) {
	defer close(events)

	if err := Validate(files, settings); err != nil {
		return Summary{}, err
	}

	batchContext, cancel := context.WithCancel(executionContext)
	defer cancel()
	if err := processor.begin(cancel); err != nil {
		return Summary{}, err
	}
	defer processor.finish()

	total := len(files)
	startedAt := processor.clock()
	summary := Summary{Total: total}
	processed := 0
	events <- Event{Kind: EventLog, Message: fmt.Sprintf("Started processing %d files", total)}
	events <- Event{Kind: EventOverall, Total: total}
	processor.logger.Info("batch started", zap.Int("files", total), zap.String("output_dir", settings.OutputDir))

	for index, file := range files {
		if batchContext.Err() != nil {
			break
		}
		processor.observer.QueueLength(total - index)

		job := Job{Input: file, Output: media.OutputPath(file, settings.OutputDir, settings), Settings: settings}
		outcome := processor.runner.Run(batchContext, job, events)
		switch outcome.Status() {
		case StatusCompleted:
			summary.Succeeded++
			summary.Outputs = append(summary.Outputs, outcome.Job.Output)
		case StatusFailed:
			summary.Failed++
		case StatusCancelled:
			summary.Cancelled++
		}

		processed = index + 1
		elapsed := processor.clock().Sub(startedAt)
		average := elapsed / time.Duration(processed)
		events <- Event{
			Kind:      EventOverall,
			Percent:   Percent(processed, total),
			Processed: processed,
			Total:     total,
			Elapsed:   elapsed,
			Remaining: average * time.Duration(total-processed),
		}
	}
	processor.observer.QueueLength(0)

	summary.Elapsed = processor.clock().Sub(startedAt)
	summary.Stopped = batchContext.Err() != nil
	events <- Event{Kind: EventBatchDone, Processed: processed, Total: total, Elapsed: summary.Elapsed, Stopped: summary.Stopped}
	processor.logger.Info("batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Bool("stopped", summary.Stopped),
		zap.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

func (processor *Processor) begin(cancel context.CancelFunc) error {
	processor.lock.Lock()
	defer processor.lock.Unlock()
	if processor.done != nil {
		return ErrAlreadyRunning
	}
	processor.cancel = cancel
	processor.done = make(chan struct{})
	return nil
}

func (processor *Processor) finish() {
	processor.lock.Lock()
	defer processor.lock.Unlock()
	close(processor.done)
	processor.done = nil
	processor.cancel = nil
}

// Running reports whether a batch is in progress.
func (processor *Processor) Running() bool {
	processor.lock.Lock()
	defer processor.lock.Unlock()
	return processor.done != nil
}

// Stop cancels the active batch and waits up to StopGracePeriod for it to
// end. It returns false if the batch was still running when the wait expired.
func (processor *Processor) Stop() bool {
	return processor.StopWithin(StopGracePeriod)
}

// StopWithin is Stop with an explicit wait.
func (processor *Processor) StopWithin(wait time.Duration) bool {
	processor.lock.Lock()
	cancel, done := processor.cancel, processor.done
	processor.lock.Unlock()

	if done == nil {
		return true
	}
	cancel()
	processor.logger.Info("stop requested")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
