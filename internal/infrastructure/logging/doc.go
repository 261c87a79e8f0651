// Package logging provides structured logging for depthcam.
//
// It wraps log/slog so that every component logs JSON (or text during
// development) with the service name and version attached.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	dev.SetLogger(logger.Component("device"))
//
// *Logger satisfies the small Logger interfaces declared by the device,
// tick, telemetry and session packages.
package logging
