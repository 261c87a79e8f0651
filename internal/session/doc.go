// Package session keeps the device session log in SQLite.
//
// Every lifecycle event the device emits (open, open failure, close, source
// init, duplicate init, init failure) is stored in device_events. Each
// open/close cycle is also stored in device_sessions together with the
// sources initialised during it.
//
// Recorder implements device.EventSink. It never blocks the tick goroutine:
// events are queued and written by Run; when the queue is full the event is
// dropped and counted.
package session
