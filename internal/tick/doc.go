// Package tick runs the device update loop.
//
// A Device is not safe for concurrent use, so one goroutine owns it. The
// Loop calls Update on a fixed interval, optionally records the world
// render into a gfx.Recorder and hands the resulting Frame to observers
// (telemetry, metrics, the WebSocket hub). Everything else that needs to
// touch the device (HTTP handlers, MQTT commands, config reloads) goes
// through Submit, which runs the function on the loop goroutine between
// ticks.
//
// Usage:
//
//	loop := tick.New(dev, tick.Options{Interval: 33 * time.Millisecond, Render: true, GLMajor: 3})
//	loop.AddObserver(tick.ObserverFunc(func(f tick.Frame) { ... }))
//	go loop.Run(ctx)
//
//	err := loop.SetUseTextures(ctx, true)
package tick
