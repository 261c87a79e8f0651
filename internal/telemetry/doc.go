// Package telemetry publishes device state to MQTT and InfluxDB and accepts
// device commands over MQTT.
//
// Topics (see mqtt.Topics):
//
//	depthcam/device/{id}/status          retained, published when open state,
//	                                     source set or texture use changes
//	depthcam/device/{id}/frames          frame statistics every stats interval
//	depthcam/device/{id}/event/{type}    one message per lifecycle event
//	depthcam/device/{id}/command/{cmd}   inbound: textures, open, close, init
//
// The Reporter is a tick.Observer and a device.EventSink. Both are called
// on the tick goroutine, so MQTT publishes are queued and sent from Run;
// InfluxDB writes are already non-blocking and happen inline.
package telemetry
