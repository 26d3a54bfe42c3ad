/*
Package log provides structured logging for Stovetop built on zerolog.

Init configures the global logger once at process start; components then
derive child loggers with stable fields:

	logger := log.WithComponent("engine")
	logger.Info().Str("timer_id", id).Msg("timer started")

Console output is the default; JSON output is available for log
aggregation. Nothing in the timer engine surfaces errors to callers
through panics or user-facing failures, so the log stream is the primary
observability channel for absorbed errors (failed commands, corrupt
envelopes, socket drops).
*/
package log
