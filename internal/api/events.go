package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/depthcam-core/internal/session"
)

// handleListEvents returns paginated device events with optional filters.
//
// Query parameters:
//   - type: filter by event type (open, close, source_init, ...)
//   - kind: filter by source kind
//   - since: RFC 3339 timestamp; only events at or after it
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeUnavailable(w, "event log not configured")
		return
	}

	q := r.URL.Query()
	filter := session.Filter{
		DeviceID: s.device.ID,
		Type:     q.Get("type"),
		Kind:     q.Get("kind"),
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.events.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list device events", "error", err)
		writeInternalError(w, "failed to list device events")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListSessions returns the most recent open/close sessions.
//
// Query parameters:
//   - limit: max results (default 50, max 200)
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeUnavailable(w, "event log not configured")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	sessions, err := s.events.Sessions(r.Context(), s.device.ID, limit)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		writeInternalError(w, "failed to list sessions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}
