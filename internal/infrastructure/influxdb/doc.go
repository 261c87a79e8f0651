// Package influxdb records depthcam frame statistics in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, non-blocking batched writes and health monitoring.
//
// # Measurements
//
//	depthcam_tick    device_id                 open, frame_new, sources, tick_ms, draw_ops
//	depthcam_source  device_id, kind           frames, frame_new, use_texture
//	depthcam_event   device_id, type, kind     detail
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSnapshot(cfg.Device.ID, dev.Snapshot(), stats, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use. Write errors are delivered
// asynchronously through SetOnError.
package influxdb
