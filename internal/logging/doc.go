// Package logging assembles the structured slog loggers used by beebuild.
//
// It owns the console and JSON handlers, level parsing and output plumbing
// (stderr plus an optional log file), and exposes small attribute helpers so
// every component tags its lines with the same keys (component, build_id,
// target, version). A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
