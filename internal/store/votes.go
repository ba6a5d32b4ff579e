package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ToggleVote casts the guest's vote on a pending request, or retracts it if
// one already exists. The (request_id, guest_id) unique constraint is the
// authority on uniqueness: the insert is ON CONFLICT DO NOTHING, so a
// concurrent duplicate toggle lands as a successful cast instead of
// aborting the transaction.
func (s *Store) ToggleVote(ctx context.Context, eventID, requestID, guestID uuid.UUID) (bool, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var status RequestStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status
		FROM song_requests
		WHERE id = $1 AND event_id = $2
	`, requestID, eventID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, 0, ErrNotFound
		}
		return false, 0, fmt.Errorf("lookup request: %w", err)
	}
	if status != StatusPending {
		return false, 0, ErrInvalidState
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM song_votes
		WHERE request_id = $1 AND guest_id = $2
	`, requestID, guestID)
	if err != nil {
		return false, 0, fmt.Errorf("delete vote: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("delete vote rows: %w", err)
	}

	voted := false
	if removed == 0 {
		// DO NOTHING keeps the transaction live when a concurrent toggle
		// already inserted this vote; either way the guest ends up voted.
		_, err = tx.ExecContext(ctx, `
			INSERT INTO song_votes (request_id, guest_id)
			VALUES ($1, $2)
			ON CONFLICT (request_id, guest_id) DO NOTHING
		`, requestID, guestID)
		if err != nil {
			return false, 0, fmt.Errorf("insert vote: %w", err)
		}
		voted = true
	}

	var count int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM song_votes
		WHERE request_id = $1
	`, requestID).Scan(&count); err != nil {
		return false, 0, fmt.Errorf("count votes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return voted, count, nil
}

// CountVotes returns the committed vote count for a single request.
func (s *Store) CountVotes(ctx context.Context, requestID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM song_votes
		WHERE request_id = $1
	`, requestID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return count, nil
}

// CountVotesForMany returns vote counts for the given requests in one round
// trip. Requests with zero votes are omitted from the result map.
func (s *Store) CountVotesForMany(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(requestIDs))
	if len(requestIDs) == 0 {
		return counts, nil
	}

	ids := make([]string, len(requestIDs))
	for i, id := range requestIDs {
		ids[i] = id.String()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT request_id, COUNT(*)
		FROM song_votes
		WHERE request_id = ANY($1)
		GROUP BY request_id
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    uuid.UUID
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan vote count: %w", err)
		}
		counts[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vote counts: %w", err)
	}

	return counts, nil
}

// HasVoted reports whether the guest currently holds a vote on the request.
func (s *Store) HasVoted(ctx context.Context, requestID, guestID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM song_votes
			WHERE request_id = $1 AND guest_id = $2
		)
	`, requestID, guestID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup vote: %w", err)
	}
	return exists, nil
}
