// Package logging provides structured logging for tsbuffer.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Rotating file output via lumberjack
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, file
//	  file:
//	    path: "./logs/tsbuffer.log"
//	    max_size: 10     # megabytes
//	    max_backups: 3
//	    max_age: 28      # days
//
// # Security
//
// Never log the target token. Log the URL, org and bucket instead.
package logging
