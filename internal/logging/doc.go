// Package logging provides structured logging for mdcctl.
//
// This package wraps a package-global zap logger with convenience functions
// for the few logging patterns the session, bridge and simulator share.
//
// # Log Levels
//
//   - Debug: frame hex dumps, dispatcher queue events
//   - Info: connection events, HTTP requests, bridge clients
//   - Warn: transport failures, dropped clients
//   - Error: startup failures
//
// # Configuration
//
// Logging is silent unless a level is given, either explicitly or through
// the MDCCTL_LOG_LEVEL environment variable:
//
//	if err := logging.InitializeWithOptions(logging.Options{
//	    Level: "debug",
//	    File:  "/var/log/mdcctl.log",
//	}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Console output is written to stderr. When File is set, JSON entries are
// also written to a size-rotated file (lumberjack).
//
// # Specialized Logging
//
//	logging.LogConnection(sessionID, "10.0.0.20:1515", "connected")
//	logging.LogFrame("tx", frame)
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. Initialize and
// SetLogger are meant to be called once at startup.
package logging
