// Package execshell runs the external executables ssupscaler orchestrates.
//
// OSCommandRunner wraps os/exec with cooperative cancellation (terminate,
// grace period, kill) and optional line streaming for progress parsing.
// ShellExecutor adds structured logging, typed errors and lifecycle
// notifications on top of any CommandRunner so callers can be tested
// against a recording fake.
package execshell
