// Package process supervises the external capture daemon that feeds the
// netstream sensor backend.
//
// Manager is a generic subprocess supervisor: it starts a binary in its own
// process group, logs its output line by line, restarts it with exponential
// backoff, and kills it when its health check fails repeatedly. A process
// that stays up for StableThreshold has its restart count reset.
//
// FrameWatchdog turns frame delivery into a health check. Register it as a
// tick observer and hand it to NewDaemon:
//
//	wd := process.NewFrameWatchdog(10 * time.Second)
//	loop.AddObserver(wd)
//
//	daemon := process.NewDaemon(cfg.Sensor.Daemon, wd)
//	daemon.SetLogger(log)
//	if err := daemon.Start(ctx); err != nil {
//	    return err
//	}
//	defer daemon.Stop()
package process
