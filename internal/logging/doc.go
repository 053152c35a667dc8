// Package logging provides structured logging for goveectl.
//
// This package wraps a package-global zap logger with convenience functions
// for the logging patterns used by the transport and cloud clients.
//
// # Log Levels
//
//   - Debug: Frame hex dumps, retry attempts, HTTP request ids
//   - Info: Connections, commands sent, cloud calls
//   - Warn: Retried failures
//   - Error: Failed commands
//
// # Silent by Default
//
// goveectl is a CLI, so logging is off unless GOVEECTL_LOG_LEVEL (or the
// --log-level flag) selects a level:
//
//	if err := logging.InitializeFromEnv(); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// Console output goes to stderr. When GOVEECTL_LOG_FILE is set, JSON lines
// are also written to that file, rotated by size with lumberjack.
//
// # Structured Logging
//
//	logging.Info("Device connected",
//	    zap.String("address", "A4:C1:38:00:11:22"),
//	    zap.Int("attempt", 2),
//	)
//
//	logging.LogFrame(address, i, len(frames), frame.Bytes())
package logging
