package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/depthcam-core/internal/device"
	"github.com/nerrad567/depthcam-core/internal/source"
)

// DeviceResponse is the body of GET /device and the open/close commands.
type DeviceResponse struct {
	ID       string                `json:"id"`
	Name     string                `json:"name,omitempty"`
	Open     bool                  `json:"open"`
	FrameNew bool                  `json:"frame_new"`
	Sources  []device.SourceStatus `json:"sources"`
}

// OpenRequest is the optional body of POST /device/open.
type OpenRequest struct {
	Sources []string `json:"sources"`
}

// TexturesRequest is the body of PUT /textures.
type TexturesRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) deviceCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), deviceCallTimeout)
}

func (s *Server) deviceResponse(snap device.Snapshot) DeviceResponse {
	return DeviceResponse{
		ID:       s.device.ID,
		Name:     s.device.Name,
		Open:     snap.Open,
		FrameNew: snap.FrameNew,
		Sources:  snap.Sources,
	}
}

// writeSnapshot reads the current snapshot and writes it with status.
func (s *Server) writeSnapshot(ctx context.Context, w http.ResponseWriter, status int) {
	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, status, s.deviceResponse(snap))
}

// handleGetDevice returns the device status.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.deviceCtx(r)
	defer cancel()
	s.writeSnapshot(ctx, w, http.StatusOK)
}

// handleOpenDevice opens the sensor and initialises any requested sources.
// The body is optional.
func (s *Server) handleOpenDevice(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	kinds := make([]source.Kind, 0, len(req.Sources))
	for _, name := range req.Sources {
		k, err := source.ParseKind(name)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		kinds = append(kinds, k)
	}

	ctx, cancel := s.deviceCtx(r)
	defer cancel()

	if err := s.ctrl.Open(ctx, kinds...); err != nil {
		s.logger.Warn("device open failed", "error", err)
		writeDeviceError(w, err)
		return
	}
	s.writeSnapshot(ctx, w, http.StatusOK)
}

// handleCloseDevice closes the sensor and releases every source.
func (s *Server) handleCloseDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.deviceCtx(r)
	defer cancel()

	if err := s.ctrl.Close(ctx); err != nil {
		writeDeviceError(w, err)
		return
	}
	s.writeSnapshot(ctx, w, http.StatusOK)
}

// handleListSources returns every registered source in insertion order.
func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.deviceCtx(r)
	defer cancel()

	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": snap.Sources, "count": len(snap.Sources)})
}

// handleGetSource returns one source's status.
func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	kind, err := source.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ctx, cancel := s.deviceCtx(r)
	defer cancel()

	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	st, ok := snap.Source(kind)
	if !ok {
		writeNotFound(w, "source not initialised")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleInitSource initialises a source. Initialising a kind that already
// exists returns the existing source with 200; a new source returns 201.
func (s *Server) handleInitSource(w http.ResponseWriter, r *http.Request) {
	kind, err := source.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	ctx, cancel := s.deviceCtx(r)
	defer cancel()

	before, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	_, existed := before.Source(kind)

	if err := s.ctrl.InitSource(ctx, kind); err != nil {
		writeDeviceError(w, err)
		return
	}

	snap, err := s.ctrl.Snapshot(ctx)
	if err != nil {
		writeDeviceError(w, err)
		return
	}
	st, ok := snap.Source(kind)
	if !ok {
		// closed between the two calls
		writeError(w, http.StatusConflict, ErrCodeConflict, "source was released")
		return
	}

	status := http.StatusCreated
	if existed {
		status = http.StatusOK
	}
	writeJSON(w, status, st)
}

// handleSetTextures toggles texture upload on every textured source.
func (s *Server) handleSetTextures(w http.ResponseWriter, r *http.Request) {
	var req TexturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	ctx, cancel := s.deviceCtx(r)
	defer cancel()

	if err := s.ctrl.SetUseTextures(ctx, *req.Enabled); err != nil {
		writeDeviceError(w, err)
		return
	}
	s.writeSnapshot(ctx, w, http.StatusOK)
}

// handleGetScene returns the draw list recorded on the last tick.
func (s *Server) handleGetScene(w http.ResponseWriter, _ *http.Request) {
	f, ok := s.ctrl.Last()
	if !ok || f.Scene == nil {
		writeNotFound(w, "no scene recorded")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"seq":   f.Seq,
		"time":  f.Time.UTC(),
		"calls": f.Scene.Calls,
		"count": len(f.Scene.Calls),
	})
}
