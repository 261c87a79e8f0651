package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/depthcam-core/internal/device"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/config"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/logging"
	"github.com/nerrad567/depthcam-core/internal/session"
	"github.com/nerrad567/depthcam-core/internal/source"
	"github.com/nerrad567/depthcam-core/internal/tick"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// deviceCallTimeout bounds how long a handler waits for the tick loop.
const deviceCallTimeout = 5 * time.Second

// Controller runs device operations on the tick loop. *tick.Loop
// implements it.
type Controller interface {
	Open(ctx context.Context, kinds ...source.Kind) error
	Close(ctx context.Context) error
	InitSource(ctx context.Context, kind source.Kind) error
	SetUseTextures(ctx context.Context, use bool) error
	Snapshot(ctx context.Context) (device.Snapshot, error)
	Last() (tick.Frame, bool)
}

// EventStore lists recorded device events and sessions.
type EventStore interface {
	List(ctx context.Context, filter session.Filter) (*session.ListResult, error)
	Sessions(ctx context.Context, deviceID string, limit int) ([]session.Session, error)
}

// ConnectionStatus reports whether an external connection is up.
type ConnectionStatus interface {
	IsConnected() bool
}

// DBStatser exposes connection pool statistics.
type DBStatser interface {
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Device     config.DeviceConfig
	Logger     *logging.Logger
	Controller Controller
	Events     EventStore       // optional
	MQTT       ConnectionStatus // optional
	InfluxDB   ConnectionStatus // optional
	DB         DBStatser        // optional
	Metrics    http.Handler     // optional: Prometheus handler
	// MetricsPath is where Metrics is mounted. Default: /metrics
	MetricsPath string
	Hub         *Hub // If set, the server uses this hub instead of creating its own
	Version     string
}

// Server is the HTTP API server for depthcam.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	device      config.DeviceConfig
	logger      *logging.Logger
	ctrl        Controller
	events      EventStore
	mqtt        ConnectionStatus
	influx      ConnectionStatus
	db          DBStatser
	metrics     http.Handler
	metricsPath string
	version     string
	startTime   time.Time
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, controller)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("device controller is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		device:      deps.Device,
		logger:      deps.Logger,
		ctrl:        deps.Controller,
		events:      deps.Events,
		mqtt:        deps.MQTT,
		influx:      deps.InfluxDB,
		db:          deps.DB,
		metrics:     deps.Metrics,
		metricsPath: deps.MetricsPath,
		version:     deps.Version,
		startTime:   time.Now(),
	}
	if s.metricsPath == "" {
		s.metricsPath = "/metrics"
	}

	// The hub is usually created by main so it can be registered with the
	// tick loop before the server starts.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the server's WebSocket hub, or nil before Start when none
// was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub if one was not injected,
// and launches the HTTP listener in a background goroutine. The server can
// be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
