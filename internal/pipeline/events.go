// Package pipeline sequences the per-file upscaling work and reports it to
// the foreground as a stream of Event values.
package pipeline

import "time"

// EventKind identifies what an Event carries.
type EventKind int

const (
	// EventLog is a line for the activity journal.
	EventLog EventKind = iota
	// EventProgress is the current file's progress in Percent.
	EventProgress
	// EventResult announces a finished output file in Output.
	EventResult
	// EventError is a failed file; Message is prefixed with the file kind.
	EventError
	// EventFinished is sent exactly once per file, after success, error or cancellation.
	EventFinished
	// EventOverall carries batch progress and timing.
	EventOverall
	// EventBatchDone closes a batch; Stopped reports a user cancellation.
	EventBatchDone
)

func (kind EventKind) String() string {
	switch kind {
	case EventLog:
		return "log"
	case EventProgress:
		return "progress"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventFinished:
		return "finished"
	case EventOverall:
		return "overall"
	case EventBatchDone:
		return "batch_done"
	default:
		return "unknown"
	}
}

// Event is the only value shared between the worker and the foreground.
type Event struct {
	Kind    EventKind
	File    string
	Message string
	Output  string
	// Percent is 0..100 for EventProgress and EventOverall.
	Percent   int
	Processed int
	Total     int
	Elapsed   time.Duration
	Remaining time.Duration
	Stopped   bool
}

// Percent converts current/total into a 0..100 integer percentage.
func Percent(current, total int) int {
	if total <= 0 {
		return 0
	}
	value := current * 100 / total
	switch {
	case value < 0:
		return 0
	case value > 100:
		return 100
	default:
		return value
	}
}
