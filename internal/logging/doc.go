// Package logging builds the slog loggers used across recap and defines the
// standardized structured field names shared by the pipeline, the stages, and
// the progress reporter.
package logging
