package telemetry

import (
	"time"

	"github.com/nerrad567/depthcam-core/internal/device"
)

// StatusMessage is the retained device status payload.
type StatusMessage struct {
	DeviceID    string   `json:"device_id"`
	Name        string   `json:"name,omitempty"`
	Open        bool     `json:"open"`
	Sources     []string `json:"sources"`
	UseTextures bool     `json:"use_textures"`
	Timestamp   string   `json:"timestamp"`
}

// FramesMessage carries frame statistics for one tick.
type FramesMessage struct {
	Seq       uint64                `json:"seq"`
	FrameNew  bool                  `json:"frame_new"`
	TickMS    float64               `json:"tick_ms"`
	DrawOps   int                   `json:"draw_ops"`
	Sources   []device.SourceStatus `json:"sources"`
	Timestamp string                `json:"timestamp"`
}

// EventMessage is one device lifecycle event.
type EventMessage struct {
	Type      string `json:"type"`
	Kind      string `json:"kind,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

// statusKey holds the fields whose change triggers a status publish.
type statusKey struct {
	open     bool
	sources  string
	textures bool
}

func statusOf(snap device.Snapshot) (statusKey, []string) {
	kinds := make([]string, len(snap.Sources))
	key := statusKey{open: snap.Open}
	for i, s := range snap.Sources {
		kinds[i] = s.Kind.String()
		key.sources += kinds[i] + ","
		key.textures = key.textures || s.UseTexture
	}
	return key, kinds
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
