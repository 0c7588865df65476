// Package audit records key-wrapping events in a local SQLite journal so
// operators can answer "who was granted access to which document, when"
// without parsing the documents themselves.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Event is one recorded key-wrapping grant.
type Event struct {
	ID        string
	Document  string
	Backend   string
	Recipient string
	CreatedAt time.Time
}

// Journal is an append-only SQLite log of wrap events.
type Journal struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the journal at the given path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit journal: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS wrap_events (
			id         TEXT PRIMARY KEY,
			document   TEXT NOT NULL,
			backend    TEXT NOT NULL,
			recipient  TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one wrap event. Events are never updated or deleted.
func (j *Journal) Record(ctx context.Context, document, backend, recipient string) error {
	id := uuid.NewString()
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO wrap_events (id, document, backend, recipient, created_at) VALUES (?, ?, ?, ?, ?)
	`, id, document, backend, recipient, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record wrap event: %w", err)
	}
	return nil
}

// Events returns the journal for one document, oldest first.
func (j *Journal) Events(ctx context.Context, document string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, document, backend, recipient, created_at FROM wrap_events
		WHERE document = ?
		ORDER BY created_at, id
	`, document)
	if err != nil {
		return nil, fmt.Errorf("failed to query wrap events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Document, &e.Backend, &e.Recipient, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wrap event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read wrap events: %w", err)
	}
	return events, nil
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}
