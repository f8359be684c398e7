package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/sonogest/internal/knob"
)

// Event is a gesture change recorded during a session.
type Event struct {
	ID         int64
	SessionID  string
	Tick       uint64
	Gesture    string
	Source     string
	Intensity  float64
	PitchValue float64
	Knobs      knob.Vector
	CreatedAt  time.Time
}

// EventRepository provides access to the gesture_events table.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts an event and sets its ID. The session must exist.
func (r *EventRepository) Create(e *Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	knobs, err := json.Marshal(e.Knobs)
	if err != nil {
		return fmt.Errorf("failed to marshal knobs: %w", err)
	}

	result, err := r.db.Exec(
		`INSERT INTO gesture_events (session_id, tick, gesture, source, intensity, pitch_value, knobs, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID, int64(e.Tick), e.Gesture, e.Source, e.Intensity, e.PitchValue, string(knobs), e.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// ListBySession returns a session's events in tick order. limit <= 0 returns all.
func (r *EventRepository) ListBySession(sessionID string, limit int) ([]*Event, error) {
	query := `SELECT id, session_id, tick, gesture, source, intensity, pitch_value, knobs, created_at
		FROM gesture_events WHERE session_id = ? ORDER BY tick, id`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		var tick int64
		var knobs string

		err := rows.Scan(&e.ID, &e.SessionID, &tick, &e.Gesture, &e.Source,
			&e.Intensity, &e.PitchValue, &knobs, &e.CreatedAt)
		if err != nil {
			return nil, err
		}

		e.Tick = uint64(tick)
		if err := json.Unmarshal([]byte(knobs), &e.Knobs); err != nil {
			return nil, fmt.Errorf("failed to decode knobs for event %d: %w", e.ID, err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// CountBySession returns the number of events recorded for a session.
func (r *EventRepository) CountBySession(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM gesture_events WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
