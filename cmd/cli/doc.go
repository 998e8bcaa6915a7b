// Package cli wires the cobra command tree: configuration and logger
// initialisation, the upscale batch command, dependency and model reports,
// media inspection and settings management.
package cli
