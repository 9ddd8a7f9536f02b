// Package logging assembles structured slog loggers and formatting helpers used
// across romscribe.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so the run orchestrator can tag
// log lines with the run ID, the ROM file being processed, and the current
// stage. The package also provides a no-op logger for tests and wiring code
// that cannot fail.
package logging
