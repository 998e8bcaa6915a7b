package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// File metrics
var (
	FilesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssupscaler_files_processed_total",
			Help: "Total number of files processed",
		},
		[]string{"kind", "status"},
	)

	FileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ssupscaler_file_duration_seconds",
			Help:    "Time spent upscaling one file in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"kind"},
	)

	QueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ssupscaler_queue_length",
			Help: "Number of files still waiting in the active batch",
		},
	)
)

// Frame metrics
var (
	FramesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssupscaler_frames_processed_total",
			Help: "Total number of video frames processed",
		},
		[]string{"result"}, // "upscaled", "fallback"
	)
)

// Subprocess metrics
var (
	CommandsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ssupscaler_commands_in_flight",
			Help: "Number of external tool processes currently running",
		},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ssupscaler_command_duration_seconds",
			Help:    "External tool run time in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"tool"},
	)

	CommandFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ssupscaler_command_failures_total",
			Help: "Total number of external tool failures",
		},
		[]string{"tool", "reason"}, // "exit", "start", "cancelled", "timeout"
	)
)
