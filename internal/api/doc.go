// Package api implements the HTTP control API and WebSocket stream for
// depthcam.
//
// This package provides:
//   - REST endpoints for device status, source initialisation, texture
//     toggling and open/close
//   - The session event log and recorded sessions
//   - The last recorded world render as a JSON draw list
//   - A WebSocket hub streaming frames, scenes and lifecycle events
//   - Prometheus exposition on the configured metrics path
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// The device is owned by the tick loop. Handlers never touch it directly;
// every read and write goes through the Controller, which runs the call on
// the loop goroutine between ticks. The Hub is registered as a tick
// observer and device event sink, so it sees every frame and event.
//
// # Graceful Degradation
//
// The event store, MQTT client, database and Prometheus handler are all
// optional. Endpoints backed by a missing dependency return 503.
package api
