// Package logging provides structured logging for mamba commands.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. Lock
// acquisition, trash reclamation, and command execution all log through it,
// so a failed run can be reconstructed from the log stream alone.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (component, prefix, lock target)
//   - Output to stderr or an append-only log file
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. Child
// loggers created via With* methods share the underlying writer safely.
//
// # Basic Usage
//
// Create a logger writing to stderr:
//
//	logger, err := logging.NewLogger("", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("probing marker", "marker", markerPath)
//	logger.Info("trash reclaimed", "deleted", 12, "remaining", 1)
//	logger.Warn("waiting for other mamba process to finish")
//	logger.Error("lockfile can't be set", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add component context
//	lockLog := logger.WithComponent("lockfile")
//
//	// Add target context
//	targetLog := lockLog.WithTarget("/opt/envs/base")
//
//	// All logs from targetLog will include component and target
//	targetLog.Debug("non-blocking attempt failed")
//
// Output:
//
//	{"time":"...","level":"DEBUG","msg":"non-blocking attempt failed","component":"lockfile","target":"/opt/envs/base"}
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via the .mambarc config file:
//
//	log_level: info
//	log_file: /var/log/mamba.log
//
// or the MAMBA_LOG_LEVEL and MAMBA_LOG_FILE environment variables.
package logging
