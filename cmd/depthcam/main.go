// depthcam - depth camera device service
//
// This is the main entry point for depthcam. It opens one depth sensor
// (simulated or streamed from a capture daemon), runs the per-frame update
// and world render on a fixed tick, and exposes the device over:
//   - a REST and WebSocket API
//   - MQTT status, statistics and commands
//   - InfluxDB time series and Prometheus metrics
//   - a SQLite session and event log
package main

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nerrad567/depthcam-core/internal/api"
	"github.com/nerrad567/depthcam-core/internal/device"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/config"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/database"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/logging"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/depthcam-core/internal/metrics"
	"github.com/nerrad567/depthcam-core/internal/process"
	"github.com/nerrad567/depthcam-core/internal/sensor"
	"github.com/nerrad567/depthcam-core/internal/sensor/netstream"
	"github.com/nerrad567/depthcam-core/internal/sensor/simulated"
	"github.com/nerrad567/depthcam-core/internal/session"
	"github.com/nerrad567/depthcam-core/internal/telemetry"
	"github.com/nerrad567/depthcam-core/internal/tick"
	"github.com/nerrad567/depthcam-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// startupOpenTimeout bounds the initial sensor open.
const startupOpenTimeout = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting depthcam",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Workers stop and drain before InfluxDB, MQTT and the database close.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer stopWorkers()
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if runErr := fn(workerCtx); runErr != nil {
				log.Error("worker stopped with error", "worker", name, "error", runErr)
			}
		}()
	}

	sessions := session.NewSQLiteRepository(db.DB)
	recorder := session.NewRecorder(sessions, cfg.Device.ID, 0)
	recorder.SetLogger(log.Component("session"))
	goRun("session", recorder.Run)

	reporter := telemetry.New(telemetry.Options{
		DeviceID:      cfg.Device.ID,
		DeviceName:    cfg.Device.Name,
		StatsInterval: time.Duration(cfg.MQTT.StatsInterval) * time.Second,
		QoS:           byte(cfg.MQTT.QoS), //nolint:gosec // validated 0-2
	})
	reporter.SetLogger(log.Component("telemetry"))
	if mqttClient != nil {
		reporter.SetMQTT(mqttClient)
	}
	if influxClient != nil {
		reporter.SetStats(influxClient)
	}
	goRun("telemetry", reporter.Run)

	// Device and tick loop
	sdk, err := newSDK(cfg)
	if err != nil {
		return fmt.Errorf("creating sensor SDK: %w", err)
	}
	dev := device.New(sdk)
	dev.SetLogger(log.Component("device"))

	loop := tick.New(dev, tick.Options{
		Interval: cfg.GetTickInterval(),
		Render:   cfg.Render.Enabled,
		GLMajor:  cfg.Render.GLMajor,
	})
	loop.SetLogger(log.Component("tick"))

	hub := api.NewHub(cfg.WebSocket, log)
	goRun("websocket", func(ctx context.Context) error {
		hub.Run(ctx)
		return nil
	})

	var promMetrics *metrics.Metrics
	sinks := []device.EventSink{recorder, reporter, hub}
	if cfg.Metrics.Enabled {
		promMetrics = metrics.New(cfg.Device.ID)
		sinks = append(sinks, promMetrics)
		loop.AddObserver(tick.ObserverFunc(func(f tick.Frame) {
			promMetrics.ObserveTick(f.Snapshot, f.Took, f.DrawOps())
		}))
	}
	dev.SetEventSink(device.MultiSink(sinks...))

	watchdog := process.NewFrameWatchdog(time.Duration(cfg.Sensor.Daemon.FrameTimeoutSeconds) * time.Second)
	loop.AddObserver(reporter)
	loop.AddObserver(hub)
	loop.AddObserver(watchdog)
	goRun("tick", loop.Run)

	if mqttClient != nil {
		if listenErr := reporter.ListenCommands(loop); listenErr != nil {
			return fmt.Errorf("subscribing to device commands: %w", listenErr)
		}
		defer func() {
			if stopErr := reporter.StopCommands(); stopErr != nil {
				log.Warn("error unsubscribing device commands", "error", stopErr)
			}
		}()
	}

	// Capture daemon (if managed)
	if cfg.Sensor.Daemon.Managed {
		daemon := process.NewDaemon(cfg.Sensor.Daemon, watchdog)
		daemon.SetLogger(log.Component("daemon"))
		if startErr := daemon.Start(ctx); startErr != nil {
			return fmt.Errorf("starting capture daemon: %w", startErr)
		}
		defer func() {
			log.Info("stopping capture daemon")
			if stopErr := daemon.Stop(); stopErr != nil {
				log.Error("error stopping capture daemon", "error", stopErr)
			}
		}()
		log.Info("capture daemon started", "binary", cfg.Sensor.Daemon.Binary, "pid", daemon.PID())
	}

	// API server
	deps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Device:      cfg.Device,
		Logger:      log,
		Controller:  loop,
		Events:      sessions,
		DB:          db,
		MetricsPath: cfg.Metrics.Path,
		Hub:         hub,
		Version:     version,
	}
	if mqttClient != nil {
		deps.MQTT = mqttClient
	}
	if influxClient != nil {
		deps.InfluxDB = influxClient
	}
	if promMetrics != nil {
		deps.Metrics = promMetrics.Handler()
	}
	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	goRun("config-watch", func(ctx context.Context) error {
		return config.Watch(ctx, configPath, applyReload(ctx, loop, log))
	})

	// Open the sensor. Failure is not fatal: the device can be opened
	// later over the API or MQTT once the sensor is reachable.
	openCtx, cancelOpen := context.WithTimeout(ctx, startupOpenTimeout)
	if openErr := loop.Open(openCtx, cfg.SourceKinds()...); openErr != nil {
		log.Warn("sensor not opened at startup", "error", openErr)
	} else if texErr := loop.SetUseTextures(openCtx, cfg.Render.UseTextures); texErr != nil {
		log.Warn("could not apply texture setting", "error", texErr)
	}
	cancelOpen()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. API server and capture daemon
	// 2. Workers (the tick loop closes the device, telemetry and the
	//    session log drain)
	// 3. InfluxDB, MQTT, database
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DEPTHCAM_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DEPTHCAM_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newSDK builds the sensor SDK selected by sensor.backend.
func newSDK(cfg *config.Config) (sensor.SDK, error) {
	switch cfg.Sensor.Backend {
	case config.BackendSimulated:
		sc := simulated.DefaultConfig()
		s := cfg.Sensor.Simulated
		if s.FPS > 0 {
			sc.FPS = s.FPS
		}
		if s.DepthWidth > 0 && s.DepthHeight > 0 {
			sc.DepthWidth, sc.DepthHeight = s.DepthWidth, s.DepthHeight
		}
		if s.ColorWidth > 0 && s.ColorHeight > 0 {
			sc.ColorWidth, sc.ColorHeight = s.ColorWidth, s.ColorHeight
		}
		sc.FailOpen = s.FailOpen
		return simulated.New(sc), nil

	case config.BackendNetstream:
		group, err := netip.ParseAddrPort(cfg.Sensor.Netstream.Group)
		if err != nil {
			return nil, fmt.Errorf("parsing netstream group: %w", err)
		}
		return netstream.New(netstream.Config{
			Group:      group,
			Interface:  cfg.Sensor.Netstream.Interface,
			PollBudget: time.Duration(cfg.Sensor.Netstream.PollBudgetMS) * time.Millisecond,
		}), nil

	default:
		return nil, fmt.Errorf("unknown sensor backend %q", cfg.Sensor.Backend)
	}
}

// textureSetter is the part of the tick loop a config reload touches.
type textureSetter interface {
	SetUseTextures(ctx context.Context, use bool) error
}

// applyReload returns the config.Watch callback. Only render.use_textures
// is applied live; other changes need a restart.
func applyReload(ctx context.Context, loop textureSetter, log *logging.Logger) config.ReloadFunc {
	return func(cfg *config.Config, err error) {
		if err != nil {
			log.Warn("config reload failed, keeping previous settings", "error", err)
			return
		}
		setCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if setErr := loop.SetUseTextures(setCtx, cfg.Render.UseTextures); setErr != nil {
			log.Warn("could not apply reloaded texture setting", "error", setErr)
			return
		}
		log.Info("config reloaded", "use_textures", cfg.Render.UseTextures)
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
