package session

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Event is one row of the session log.
type Event struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	Type      string    `json:"type"`
	Kind      string    `json:"kind,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one open/close cycle of the sensor. ClosedAt is nil while the
// session is still open.
type Session struct {
	ID       string     `json:"id"`
	DeviceID string     `json:"device_id"`
	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	Sources  []string   `json:"sources"`
}

// Filter controls which events List returns.
type Filter struct {
	DeviceID string    // optional
	Type     string    // optional: open, close, source_init, ...
	Kind     string    // optional: depth, color, ...
	Since    time.Time // optional: only events at or after this time
	Limit    int       // default 50, max 200
	Offset   int
}

// ListResult contains a page of events, most recent first.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines the session log operations.
type Repository interface {
	CreateEvent(ctx context.Context, e *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	OpenSession(ctx context.Context, s *Session) error
	CloseSession(ctx context.Context, id string, closedAt time.Time, sources []string) error
	Sessions(ctx context.Context, deviceID string, limit int) ([]Session, error)
}

// SQLiteRepository stores the session log in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an open database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateEvent inserts an event. ID and CreatedAt are generated if empty.
func (r *SQLiteRepository) CreateEvent(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = "evt-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_events (id, device_id, type, kind, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.DeviceID, e.Type, e.Kind, e.Detail, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting device event: %w", err)
	}
	return nil
}

// List returns events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, formatTime(filter.Since))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM device_events " + where //nolint:gosec // WHERE built from parameterised conditions
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting device events: %w", err)
	}

	query := "SELECT id, device_id, type, kind, detail, created_at FROM device_events " + //nolint:gosec // WHERE built from parameterised conditions
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying device events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var createdAt string
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Type, &e.Kind, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning device event: %w", err)
		}
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device events: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// OpenSession inserts a new open session. ID and OpenedAt are generated if
// empty.
func (r *SQLiteRepository) OpenSession(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = "ses-" + uuid.NewString()[:8]
	}
	if s.OpenedAt.IsZero() {
		s.OpenedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_sessions (id, device_id, opened_at, sources) VALUES (?, ?, ?, ?)`,
		s.ID, s.DeviceID, formatTime(s.OpenedAt), strings.Join(s.Sources, ","),
	)
	if err != nil {
		return fmt.Errorf("inserting device session: %w", err)
	}
	return nil
}

// CloseSession records the close time and the sources used.
func (r *SQLiteRepository) CloseSession(ctx context.Context, id string, closedAt time.Time, sources []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE device_sessions SET closed_at = ?, sources = ? WHERE id = ? AND closed_at IS NULL`,
		formatTime(closedAt), strings.Join(sources, ","), id,
	)
	if err != nil {
		return fmt.Errorf("closing device session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("closing device session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Sessions returns the most recent sessions for a device.
func (r *SQLiteRepository) Sessions(ctx context.Context, deviceID string, limit int) ([]Session, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, opened_at, closed_at, sources FROM device_sessions
		 WHERE device_id = ? ORDER BY opened_at DESC, rowid DESC LIMIT ?`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var s Session
		var openedAt, sources string
		var closedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.DeviceID, &openedAt, &closedAt, &sources); err != nil {
			return nil, fmt.Errorf("scanning device session: %w", err)
		}
		if s.OpenedAt, err = parseTime(openedAt); err != nil {
			return nil, err
		}
		if closedAt.Valid {
			t, err := parseTime(closedAt.String)
			if err != nil {
				return nil, err
			}
			s.ClosedAt = &t
		}
		s.Sources = []string{}
		if sources != "" {
			s.Sources = strings.Split(sources, ",")
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device sessions: %w", err)
	}
	return sessions, nil
}

// timeLayout sorts lexically in the same order as the instants it encodes.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
