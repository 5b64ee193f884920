// Package logging provides slog-based structured logging with console and
// JSON handlers plus helpers for component- and task-scoped loggers.
package logging
