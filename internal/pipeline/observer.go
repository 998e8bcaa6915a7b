package pipeline

import (
	"time"

	"ssupscaler/internal/media"
)

// File outcome labels.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Observer receives processing statistics, e.g. for metrics export.
type Observer interface {
	FileFinished(kind media.Kind, status string, elapsed time.Duration)
	FrameProcessed(failed bool)
	QueueLength(remaining int)
}

type noopObserver struct{}

func (noopObserver) FileFinished(media.Kind, string, time.Duration) {}

func (noopObserver) FrameProcessed(bool) {}

func (noopObserver) QueueLength(int) {}
