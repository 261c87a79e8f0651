// Package device is the depth camera façade: it owns the sensor handle and
// the frame sources created on demand, pumps them each tick and composes the
// 3-D world view.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                           Device                             │
//	│                                                              │
//	│  ┌────────────────┐    ┌────────────────┐   ┌────────────┐  │
//	│  │ sensor.Handle  │    │    Registry    │   │  frameNew  │  │
//	│  │ open/close     │◀───│ ≤ 1 per kind   │──▶│  OR latch  │  │
//	│  │ is-open        │    │ insert order   │   └────────────┘  │
//	│  └────────────────┘    └────────────────┘                   │
//	│                               │                              │
//	└───────────────────────────────│──────────────────────────────┘
//	                                ▼
//	                    render.DrawWorld (read only)
//
// # Failure Policy
//
// No method returns an error. Sensor and source failures are logged and
// show up in return values: a nil source, a false IsOpen, an unchanged
// latch. An optional EventSink receives a record of each lifecycle event.
//
// # Usage
//
//	dev := device.New(simulated.New(simulated.DefaultConfig()))
//	dev.SetLogger(log)
//	dev.Open()
//	defer dev.Close()
//
//	depth := dev.InitDepthSource()
//	dev.InitColorSource()
//
//	for range ticker.C {
//	    dev.Update()
//	    if dev.IsFrameNew() {
//	        dev.DrawWorld(renderer)
//	    }
//	}
//
// # Thread Safety
//
// Device is single-threaded. Callers that share it across goroutines
// must serialise access, as internal/tick does with its command queue.
package device
