package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/depthcam-core/internal/infrastructure/config"
	"github.com/nerrad567/depthcam-core/internal/infrastructure/logging"
	"github.com/nerrad567/depthcam-core/internal/sensor/netstream"
	"github.com/nerrad567/depthcam-core/internal/sensor/simulated"
)

// writeConfig writes content to a temp config file and points
// DEPTHCAM_CONFIG at it.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("DEPTHCAM_CONFIG", path)
	return path
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("DEPTHCAM_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want config load failure", err)
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, `
device:
  id: test-cam

database:
  path: ""

logging:
  level: error
  format: text
  output: stdout
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_SimulatedStartsAndStops runs the whole service against the
// simulated sensor with MQTT and InfluxDB disabled.
func TestRun_SimulatedStartsAndStops(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, `
device:
  id: test-cam
sensor:
  backend: simulated
  simulated:
    fps: 30
    depth_width: 32
    depth_height: 24
    color_width: 32
    color_height: 24
sources:
  init: [depth, color]
tick:
  interval_ms: 10
database:
  path: "`+filepath.Join(dir, "depthcam.db")+`"
mqtt:
  enabled: false
influxdb:
  enabled: false
api:
  host: 127.0.0.1
  port: 19182
logging:
  level: error
  format: text
  output: stdout
`)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- run(ctx) }()

	time.Sleep(300 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() = %v, want nil on shutdown", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	if _, err := os.Stat(filepath.Join(dir, "depthcam.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("DEPTHCAM_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("DEPTHCAM_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestNewSDK(t *testing.T) {
	t.Run("simulated", func(t *testing.T) {
		cfg := &config.Config{Sensor: config.SensorConfig{
			Backend:   config.BackendSimulated,
			Simulated: config.SimulatedConfig{FPS: 15},
		}}
		sdk, err := newSDK(cfg)
		if err != nil {
			t.Fatalf("newSDK() error: %v", err)
		}
		if _, ok := sdk.(*simulated.SDK); !ok {
			t.Errorf("newSDK() = %T, want *simulated.SDK", sdk)
		}
	})

	t.Run("simulated fail open", func(t *testing.T) {
		cfg := &config.Config{Sensor: config.SensorConfig{
			Backend:   config.BackendSimulated,
			Simulated: config.SimulatedConfig{FailOpen: true},
		}}
		sdk, err := newSDK(cfg)
		if err != nil {
			t.Fatalf("newSDK() error: %v", err)
		}
		native, err := sdk.DefaultSensor()
		if err != nil {
			t.Fatalf("DefaultSensor() error: %v", err)
		}
		if err := native.Open(); !errors.Is(err, simulated.ErrOpenRefused) {
			t.Errorf("Open() = %v, want ErrOpenRefused", err)
		}
	})

	t.Run("netstream", func(t *testing.T) {
		cfg := &config.Config{Sensor: config.SensorConfig{
			Backend:   config.BackendNetstream,
			Netstream: config.NetstreamConfig{Group: "239.0.0.77:5600", PollBudgetMS: 2},
		}}
		sdk, err := newSDK(cfg)
		if err != nil {
			t.Fatalf("newSDK() error: %v", err)
		}
		if _, ok := sdk.(*netstream.SDK); !ok {
			t.Errorf("newSDK() = %T, want *netstream.SDK", sdk)
		}
	})

	t.Run("bad group", func(t *testing.T) {
		cfg := &config.Config{Sensor: config.SensorConfig{
			Backend:   config.BackendNetstream,
			Netstream: config.NetstreamConfig{Group: "not-an-address"},
		}}
		if _, err := newSDK(cfg); err == nil {
			t.Error("newSDK() with bad group should fail")
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := &config.Config{Sensor: config.SensorConfig{Backend: "usb"}}
		if _, err := newSDK(cfg); err == nil {
			t.Error("newSDK() with unknown backend should fail")
		}
	})
}

type fakeTextures struct {
	calls []bool
	err   error
}

func (f *fakeTextures) SetUseTextures(_ context.Context, use bool) error {
	f.calls = append(f.calls, use)
	return f.err
}

func TestApplyReload(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWriter(&buf, config.LoggingConfig{Level: "debug", Format: "text"}, "test")
	loop := &fakeTextures{}
	reload := applyReload(context.Background(), loop, log)

	reload(&config.Config{Render: config.RenderConfig{UseTextures: false}}, nil)
	if len(loop.calls) != 1 || loop.calls[0] {
		t.Errorf("SetUseTextures calls = %v, want [false]", loop.calls)
	}

	reload(nil, errors.New("yaml: line 3: bad indentation"))
	if len(loop.calls) != 1 {
		t.Errorf("failed reload applied settings: %v", loop.calls)
	}
	if !strings.Contains(buf.String(), "config reload failed") {
		t.Errorf("log = %q, want reload failure warning", buf.String())
	}

	loop.err = errors.New("tick: loop stopped")
	reload(&config.Config{Render: config.RenderConfig{UseTextures: true}}, nil)
	if !strings.Contains(buf.String(), "could not apply reloaded texture setting") {
		t.Errorf("log = %q, want apply failure warning", buf.String())
	}
}
