package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is one try-on session, from entering to exiting try-on mode.
type Session struct {
	ID           string     `json:"id"`
	Facing       string     `json:"facing"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	Frames       int        `json:"frames"`
	LockedFrames int        `json:"locked_frames"`
}

// StatusEvent is a published tracking status transition.
type StatusEvent struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	State     string    `json:"state"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRepository records sessions and their status transitions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new open session.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, facing, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Facing, sess.StartedAt,
	)
	return err
}

// End closes a session and stores its frame counters.
func (r *SessionRepository) End(id string, frames, lockedFrames int) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = ?, frames = ?, locked_frames = ? WHERE id = ?`,
		time.Now(), frames, lockedFrames, id,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, facing, started_at, ended_at, frames, locked_frames
		 FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List retrieves the most recent sessions, newest first. A limit of zero or less returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, facing, started_at, ended_at, frames, locked_frames
		 FROM sessions ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// Delete removes a session along with its events and captures.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

// AddStatusEvent appends a status transition to a session.
func (r *SessionRepository) AddStatusEvent(sessionID, state, message string) error {
	_, err := r.db.Exec(
		`INSERT INTO status_events (session_id, state, message, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, state, message, time.Now(),
	)
	return err
}

// StatusEvents retrieves the transitions of a session in the order they happened.
func (r *SessionRepository) StatusEvents(sessionID string) ([]StatusEvent, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, state, message, created_at
		 FROM status_events WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []StatusEvent
	for rows.Next() {
		var e StatusEvent
		if err := rows.Scan(&e.ID, &e.SessionID, &e.State, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime

	err := row.Scan(&sess.ID, &sess.Facing, &sess.StartedAt, &ended, &sess.Frames, &sess.LockedFrames)
	if err != nil {
		return nil, err
	}

	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
