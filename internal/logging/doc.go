// Package logging provides structured logging for the softap provisioning
// server and its companion CLI.
//
// This package wraps a zap logger with convenience functions for the patterns
// used throughout the portal: HTTP request/response logging, provisioning
// state transitions and raw payload dumps for debugging the captive page.
//
// # Log Levels
//
//   - Debug: raw response fragments, radio command lines, event fan-out
//   - Info: requests, state transitions, successful connections
//   - Warn: failed connection attempts, write failures, ignored POSTs
//   - Error: unrecoverable request failures
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is given, SOFTAP_LOG_LEVEL is consulted. When that is unset
// too, the logger is a no-op so CLI commands stay quiet by default.
//
// # Credentials
//
// Request bodies carry the Wi-Fi password. Never pass them to LogRawBytes;
// log their length instead. Response fragments carry only the SSID and are
// dumped at debug level.
package logging
