package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/depthcam-core/internal/device"
)

// Measurement names.
const (
	MeasurementTick   = "depthcam_tick"
	MeasurementSource = "depthcam_source"
	MeasurementEvent  = "depthcam_event"
)

// TickStats carries per-tick figures that are not part of the device
// snapshot.
type TickStats struct {
	// Duration is the wall time of the update and render.
	Duration time.Duration
	// DrawOps is the number of recorded graphics calls, 0 when rendering is off.
	DrawOps int
}

// WriteSnapshot records one depthcam_tick point and a depthcam_source point
// per registered source. The write is non-blocking.
func (c *Client) WriteSnapshot(deviceID string, snap device.Snapshot, stats TickStats, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	for _, p := range snapshotPoints(deviceID, snap, stats, ts) {
		c.writeAPI.WritePoint(p)
	}
}

// WriteEvent records a device lifecycle event.
func (c *Client) WriteEvent(deviceID string, e device.Event) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(eventPoint(deviceID, e))
}

// WritePoint writes a custom point with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

func snapshotPoints(deviceID string, snap device.Snapshot, stats TickStats, ts time.Time) []*write.Point {
	points := make([]*write.Point, 0, len(snap.Sources)+1)

	points = append(points, write.NewPoint(
		MeasurementTick,
		map[string]string{"device_id": deviceID},
		map[string]interface{}{
			"open":      snap.Open,
			"frame_new": snap.FrameNew,
			"sources":   len(snap.Sources),
			"tick_ms":   float64(stats.Duration) / float64(time.Millisecond),
			"draw_ops":  stats.DrawOps,
		},
		ts,
	))

	for _, st := range snap.Sources {
		fields := map[string]interface{}{
			"frames":    st.Frames,
			"frame_new": st.FrameNew,
		}
		if st.HasTexture {
			fields["use_texture"] = st.UseTexture
		}
		points = append(points, write.NewPoint(
			MeasurementSource,
			map[string]string{
				"device_id": deviceID,
				"kind":      st.Kind.String(),
			},
			fields,
			ts,
		))
	}

	return points
}

func eventPoint(deviceID string, e device.Event) *write.Point {
	tags := map[string]string{
		"device_id": deviceID,
		"type":      string(e.Type),
	}
	if e.Kind != "" {
		tags["kind"] = e.Kind
	}
	return write.NewPoint(
		MeasurementEvent,
		tags,
		map[string]interface{}{"detail": e.Detail},
		e.Time,
	)
}
