// Package logging provides a minimal logging interface and adapters for SupportMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runner, agents and tools use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter and MeshLogger wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	run := runner.New(coordinator, store, func(o *runner.Options) {
//		o.Logger = logger
//	})
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
