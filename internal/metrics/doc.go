// Package metrics exports Prometheus instrumentation for upscaling batches.
//
// All metrics are registered with the default registry through promauto and
// are prefixed with "ssupscaler_".
//
// # Files
//   - FilesProcessedTotal: files finished, by kind and status
//   - FileDuration: wall time per file, by kind
//   - QueueLength: files still waiting in the active batch
//
// # Frames
//   - FramesProcessedTotal: video frames upscaled, by result
//     ("upscaled" or "fallback")
//
// # Subprocesses
//   - CommandsInFlight: external tools currently running
//   - CommandDuration: tool run time, by tool
//   - CommandFailuresTotal: non-zero exits, start failures, cancellations and timeouts, by tool and reason
//
// Serve exposes the registry on /metrics next to a /healthz probe.
package metrics
