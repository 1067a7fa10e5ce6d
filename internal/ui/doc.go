// Package ui renders terminal output for the softap binaries.
//
// Output follows a "run once and exit" pattern built on Lipgloss: a
// bordered header (the server's startup banner is one), result boxes for
// success and failure, and a table of discovered portals. The one
// interactive piece is WatchModel, a Bubble Tea model that follows a
// portal's event stream until the device is configured.
//
// # Logging Integration
//
// Logging is controlled via the SOFTAP_LOG_LEVEL environment variable. When
// unset, zap logging is silent so the styled output stays clean.
package ui
