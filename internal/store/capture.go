package store

import (
	"database/sql"
	"errors"
	"time"
)

// Capture is a composite snapshot taken during a session.
type Capture struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Path      string    `json:"path,omitempty"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// CaptureRepository provides CRUD operations for captures.
type CaptureRepository struct {
	db *sql.DB
}

// Captures returns the capture repository for this store.
func (s *Store) Captures() *CaptureRepository {
	return &CaptureRepository{db: s.db}
}

// Create inserts a new capture.
func (r *CaptureRepository) Create(c *Capture) error {
	c.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO captures (id, session_id, path, size, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.SessionID, c.Path, c.Size, c.CreatedAt,
	)
	return err
}

// GetByID retrieves a capture by its ID.
func (r *CaptureRepository) GetByID(id string) (*Capture, error) {
	c := &Capture{}
	err := r.db.QueryRow(
		`SELECT id, session_id, path, size, created_at FROM captures WHERE id = ?`,
		id,
	).Scan(&c.ID, &c.SessionID, &c.Path, &c.Size, &c.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListBySession retrieves the captures of a session, oldest first.
func (r *CaptureRepository) ListBySession(sessionID string) ([]*Capture, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, path, size, created_at
		 FROM captures WHERE session_id = ? ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var captures []*Capture
	for rows.Next() {
		c := &Capture{}
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Path, &c.Size, &c.CreatedAt); err != nil {
			return nil, err
		}
		captures = append(captures, c)
	}

	return captures, rows.Err()
}

// Delete removes a capture by its ID.
func (r *CaptureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM captures WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}
