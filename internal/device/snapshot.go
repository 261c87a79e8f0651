package device

import (
	"github.com/nerrad567/depthcam-core/internal/source"
)

// Snapshot is an immutable view of the device after a tick.
type Snapshot struct {
	Open     bool           `json:"open"`
	FrameNew bool           `json:"frame_new"`
	Sources  []SourceStatus `json:"sources"`
}

// SourceStatus describes one registered source.
type SourceStatus struct {
	Kind       source.Kind `json:"kind"`
	FrameNew   bool        `json:"frame_new"`
	Frames     uint64      `json:"frames"`
	HasTexture bool        `json:"has_texture"`
	UseTexture bool        `json:"use_texture"`
}

// Snapshot captures the current state. Sources are listed in insertion
// order.
func (d *Device) Snapshot() Snapshot {
	snap := Snapshot{
		Open:     d.IsOpen(),
		FrameNew: d.frameNew,
		Sources:  make([]SourceStatus, 0, d.sources.Len()),
	}
	for _, s := range d.sources.order {
		st := SourceStatus{
			Kind:     s.Kind(),
			FrameNew: s.IsFrameNew(),
			Frames:   s.FrameCount(),
		}
		if tt, ok := s.(source.TextureToggler); ok {
			st.HasTexture = true
			st.UseTexture = tt.UseTexture()
		}
		snap.Sources = append(snap.Sources, st)
	}
	return snap
}

// Source returns the status of one kind and whether it is registered.
func (s Snapshot) Source(kind source.Kind) (SourceStatus, bool) {
	for _, st := range s.Sources {
		if st.Kind == kind {
			return st, true
		}
	}
	return SourceStatus{}, false
}
