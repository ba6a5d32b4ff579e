package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request is a single queued song request scoped to one event.
type Request struct {
	ID              uuid.UUID     `json:"id"`
	EventID         uuid.UUID     `json:"eventId"`
	Title           string        `json:"title"`
	Artist          string        `json:"artist,omitempty"`
	Note            string        `json:"note,omitempty"`
	Status          RequestStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	StatusChangedAt time.Time     `json:"statusChangedAt"`
}

const requestColumns = `id, event_id, title, artist, note, status, created_at, status_changed_at`

func scanRequest(row interface{ Scan(...any) error }) (Request, error) {
	var (
		req          Request
		artist, note sql.NullString
	)
	err := row.Scan(&req.ID, &req.EventID, &req.Title, &artist, &note, &req.Status, &req.CreatedAt, &req.StatusChangedAt)
	if err != nil {
		return Request{}, err
	}
	req.Artist = artist.String
	req.Note = note.String
	return req, nil
}

// CreateRequest inserts a new pending request for the event.
func (s *Store) CreateRequest(ctx context.Context, eventID uuid.UUID, title, artist, note string) (Request, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Request{}, ErrTitleRequired
	}
	artist = strings.TrimSpace(artist)
	note = strings.TrimSpace(note)

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO song_requests (id, event_id, title, artist, note, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+requestColumns+`
	`, uuid.New(), eventID, title, nullIfEmpty(artist), nullIfEmpty(note), StatusPending)

	req, err := scanRequest(row)
	if err != nil {
		return Request{}, fmt.Errorf("insert request: %w", err)
	}
	return req, nil
}

// RequestByID returns a single request within the given event scope.
func (s *Store) RequestByID(ctx context.Context, eventID, id uuid.UUID) (Request, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM song_requests
		WHERE id = $1 AND event_id = $2
	`, id, eventID)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("select request: %w", err)
	}
	return req, nil
}

// SetRequestStatus moves a request to the given status. Any of the three
// statuses is reachable from any other; the store imposes no ordering.
func (s *Store) SetRequestStatus(ctx context.Context, eventID, id uuid.UUID, status RequestStatus) (Request, error) {
	if !status.Valid() {
		return Request{}, ErrInvalidStatus
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE song_requests
		SET status = $1, status_changed_at = $2
		WHERE id = $3 AND event_id = $4
		RETURNING `+requestColumns+`
	`, status, time.Now().UTC(), id, eventID)

	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, fmt.Errorf("update request status: %w", err)
	}
	return req, nil
}

// BulkTransitionRequests moves every request in fromStatus to toStatus for
// the event in one statement. Individual SetRequestStatus calls racing this
// resolve by row-level last write wins.
func (s *Store) BulkTransitionRequests(ctx context.Context, eventID uuid.UUID, from, to RequestStatus) (int64, error) {
	if !from.Valid() || !to.Valid() {
		return 0, ErrInvalidStatus
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE song_requests
		SET status = $1, status_changed_at = $2
		WHERE event_id = $3 AND status = $4
	`, to, time.Now().UTC(), eventID, from)
	if err != nil {
		return 0, fmt.Errorf("bulk transition: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk transition rows: %w", err)
	}
	return n, nil
}

// DeleteRequest hard-deletes a request and its votes. Irreversible.
func (s *Store) DeleteRequest(ctx context.Context, eventID, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	// Explicit vote cleanup in case the cascade is missing.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM song_votes
		WHERE request_id = $1
	`, id); err != nil {
		return fmt.Errorf("delete votes: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM song_requests
		WHERE id = $1 AND event_id = $2
	`, id, eventID)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete request rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return nil
}

// RequestsByEvent lists every request for the event, oldest first.
func (s *Store) RequestsByEvent(ctx context.Context, eventID uuid.UUID) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+`
		FROM song_requests
		WHERE event_id = $1
		ORDER BY created_at ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("select requests: %w", err)
	}
	defer rows.Close()

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	return requests, nil
}
