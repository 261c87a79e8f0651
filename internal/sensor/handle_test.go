package sensor_test

import (
	"errors"
	"testing"

	"github.com/nerrad567/depthcam-core/internal/sensor"
	"github.com/nerrad567/depthcam-core/internal/sensor/sensortest"
)

// captureLogger records Error calls.
type captureLogger struct {
	errors []string
}

func (l *captureLogger) Debug(string, ...any)       {}
func (l *captureLogger) Info(string, ...any)        {}
func (l *captureLogger) Warn(string, ...any)        {}
func (l *captureLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

func TestHandle_OpenClose(t *testing.T) {
	sdk := sensortest.NewSDK()
	h := sensor.NewHandle(sdk)

	if h.IsOpen() {
		t.Fatal("IsOpen() = true before Open()")
	}
	if h.Native() != nil {
		t.Fatal("Native() should be nil before Open()")
	}

	if err := h.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !h.IsOpen() {
		t.Error("IsOpen() = false after Open()")
	}
	if h.Native() == nil {
		t.Error("Native() = nil after Open()")
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if h.IsOpen() {
		t.Error("IsOpen() = true after Close()")
	}
	if sdk.Native.CloseCalls != 1 {
		t.Errorf("CloseCalls = %d, want 1", sdk.Native.CloseCalls)
	}
}

func TestHandle_CloseIdempotent(t *testing.T) {
	sdk := sensortest.NewSDK()
	h := sensor.NewHandle(sdk)
	if err := h.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := h.Close(); err != nil {
			t.Fatalf("Close() #%d error = %v", i+1, err)
		}
	}
	if sdk.Native.CloseCalls != 1 {
		t.Errorf("CloseCalls = %d, want 1", sdk.Native.CloseCalls)
	}
	if h.IsOpen() {
		t.Error("IsOpen() = true after repeated Close()")
	}
}

func TestHandle_OpenFailures(t *testing.T) {
	tests := []struct {
		name    string
		sdk     func() *sensortest.SDK
		wantErr error
	}{
		{
			name: "discovery fails",
			sdk: func() *sensortest.SDK {
				s := sensortest.NewSDK()
				s.Err = errors.New("no usb device")
				return s
			},
			wantErr: sensor.ErrNoSensor,
		},
		{
			name: "no sensor returned",
			sdk: func() *sensortest.SDK {
				s := sensortest.NewSDK()
				s.Native = nil
				return s
			},
			wantErr: sensor.ErrNoSensor,
		},
		{
			name: "open fails",
			sdk: func() *sensortest.SDK {
				s := sensortest.NewSDK()
				s.Native.OpenErr = errors.New("device busy")
				return s
			},
			wantErr: sensor.ErrOpenFailed,
		},
		{
			name: "sdk panics",
			sdk: func() *sensortest.SDK {
				s := sensortest.NewSDK()
				s.Panic = "access violation"
				return s
			},
			wantErr: sensor.ErrSDKPanic,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := sensor.NewHandle(tt.sdk())
			err := h.Open()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Open() error = %v, want %v", err, tt.wantErr)
			}
			if h.Native() != nil {
				t.Error("Native() should be nil after failed Open()")
			}
			if h.IsOpen() {
				t.Error("IsOpen() = true after failed Open()")
			}
		})
	}
}

func TestHandle_NilSDK(t *testing.T) {
	h := sensor.NewHandle(nil)
	if err := h.Open(); !errors.Is(err, sensor.ErrNoSensor) {
		t.Errorf("Open() error = %v, want %v", err, sensor.ErrNoSensor)
	}
}

func TestHandle_IsOpenQueryFailure(t *testing.T) {
	sdk := sensortest.NewSDK()
	log := &captureLogger{}
	h := sensor.NewHandle(sdk)
	h.SetLogger(log)

	if err := h.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sdk.Native.IsOpenErr = errors.New("E_FAIL")

	if h.IsOpen() {
		t.Error("IsOpen() = true when query fails, want false")
	}
	if len(log.errors) != 1 || log.errors[0] != "failed to check if sensor is open" {
		t.Errorf("logged errors = %v", log.errors)
	}
}

func TestHandle_CloseErrorStillCloses(t *testing.T) {
	sdk := sensortest.NewSDK()
	sdk.Native.CloseErr = errors.New("usb reset")
	h := sensor.NewHandle(sdk)
	if err := h.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := h.Close(); err == nil {
		t.Error("Close() error = nil, want SDK error")
	}
	if h.Native() != nil {
		t.Error("Native() should be nil even when Close() fails")
	}
}

func TestStream_String(t *testing.T) {
	tests := []struct {
		stream sensor.Stream
		want   string
	}{
		{sensor.StreamDepth, "depth"},
		{sensor.StreamLongExposureInfrared, "long_exposure_infrared"},
		{sensor.StreamBody, "body"},
		{sensor.Stream(42), "stream(42)"},
	}
	for _, tt := range tests {
		if got := tt.stream.String(); got != tt.want {
			t.Errorf("Stream(%d).String() = %q, want %q", tt.stream, got, tt.want)
		}
	}
	if sensor.Stream(42).Valid() {
		t.Error("Stream(42).Valid() = true")
	}
}

func TestIntrinsics_Scaled(t *testing.T) {
	in := sensor.DefaultCalibration().Depth
	half := in.Scaled(in.Width/2, in.Height/2)

	if half.FocalX != in.FocalX/2 {
		t.Errorf("FocalX = %v, want %v", half.FocalX, in.FocalX/2)
	}
	if half.HFOV != in.HFOV {
		t.Errorf("HFOV = %v, want unchanged %v", half.HFOV, in.HFOV)
	}
}
