// Package log provides structured access logging for published attributes.
//
// This package defines the Logger interface and Event types for capturing
// attribute reads and writes, namespace lifecycle changes and errors. It is
// separate from operational logging (slog): the event trace is a complete,
// machine-readable record of what happened to each attribute.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	logger, _ := log.NewFileLogger("/var/log/sysattr/device.alog")
//
//	// Both: use MultiLogger
//	logger := log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at three sources:
//   - Store: attribute reads and writes, including rejected writes
//   - Namespace: publish, teardown and rollback of the directory
//   - Transport: requests served by a network host
//
// # File Format
//
// Log files use CBOR encoding with the .alog extension. The sysattr-log
// tool provides viewing and statistics.
package log
