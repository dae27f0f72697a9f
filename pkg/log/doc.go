// Package log provides structured protocol capture for the SmartScope server.
//
// It is separate from operational logging (slog): operational logs say what
// the server is doing, protocol capture records exactly what went over the
// wire so a session can be replayed and inspected offline.
//
// # Basic Usage
//
//	// For development: protocol events on the console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For field debugging: binary capture file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/sss/session.sslog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent), truncated for large frames
//   - Wire: decoded commands with controller addressing (CommandEvent)
//   - Server: lifecycle, connection and advertisement state (StateChangeEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Capture files start with the CBOR self-describe tag followed by a
// sequence of CBOR-encoded events with integer keys. A file cut short
// mid-event reads as ErrTruncatedCapture after its complete events.
// `sss-server log view` prints and filters them.
package log
