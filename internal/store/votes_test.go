package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

const (
	toggleStatusQuery = `
		SELECT status
		FROM song_requests
		WHERE id = $1 AND event_id = $2
	`
	toggleDeleteQuery = `
		DELETE FROM song_votes
		WHERE request_id = $1 AND guest_id = $2
	`
	toggleInsertQuery = `
		INSERT INTO song_votes (request_id, guest_id)
		VALUES ($1, $2)
		ON CONFLICT (request_id, guest_id) DO NOTHING
	`
	toggleCountQuery = `
		SELECT COUNT(*)
		FROM song_votes
		WHERE request_id = $1
	`
)

func TestToggleVoteCasts(t *testing.T) {
	s, mock := newMockStore(t)

	eventID := uuid.New()
	requestID := uuid.New()
	guestID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(toggleStatusQuery)).
		WithArgs(requestID, eventID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(StatusPending)))
	mock.ExpectExec(regexp.QuoteMeta(toggleDeleteQuery)).
		WithArgs(requestID, guestID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(toggleInsertQuery)).
		WithArgs(requestID, guestID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(toggleCountQuery)).
		WithArgs(requestID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectCommit()

	voted, count, err := s.ToggleVote(context.Background(), eventID, requestID, guestID)
	if err != nil {
		t.Fatalf("ToggleVote error: %v", err)
	}
	if !voted {
		t.Fatalf("expected vote cast")
	}
	if count != 4 {
		t.Fatalf("expected count 4, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleVoteRetracts(t *testing.T) {
	s, mock := newMockStore(t)

	eventID := uuid.New()
	requestID := uuid.New()
	guestID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(toggleStatusQuery)).
		WithArgs(requestID, eventID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(StatusPending)))
	mock.ExpectExec(regexp.QuoteMeta(toggleDeleteQuery)).
		WithArgs(requestID, guestID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(toggleCountQuery)).
		WithArgs(requestID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	voted, count, err := s.ToggleVote(context.Background(), eventID, requestID, guestID)
	if err != nil {
		t.Fatalf("ToggleVote error: %v", err)
	}
	if voted {
		t.Fatalf("expected vote retracted")
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
}

// A concurrent toggle by the same guest can land its insert first. The
// conflict clause absorbs the collision without aborting the transaction,
// so the count and commit still run and the caller sees a cast vote.
func TestToggleVoteConcurrentDuplicateIsCast(t *testing.T) {
	s, mock := newMockStore(t)

	eventID := uuid.New()
	requestID := uuid.New()
	guestID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(toggleStatusQuery)).
		WithArgs(requestID, eventID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(StatusPending)))
	mock.ExpectExec(regexp.QuoteMeta(toggleDeleteQuery)).
		WithArgs(requestID, guestID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Conflict with the concurrently inserted row: zero rows affected.
	mock.ExpectExec(regexp.QuoteMeta(toggleInsertQuery)).
		WithArgs(requestID, guestID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(toggleCountQuery)).
		WithArgs(requestID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectCommit()

	voted, count, err := s.ToggleVote(context.Background(), eventID, requestID, guestID)
	if err != nil {
		t.Fatalf("ToggleVote error: %v", err)
	}
	if !voted {
		t.Fatalf("expected collision to report a cast vote")
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestToggleVoteRejectsNonPending(t *testing.T) {
	s, mock := newMockStore(t)

	eventID := uuid.New()
	requestID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(toggleStatusQuery)).
		WithArgs(requestID, eventID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(string(StatusPlayed)))
	mock.ExpectRollback()

	_, _, err := s.ToggleVote(context.Background(), eventID, requestID, uuid.New())
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestToggleVoteUnknownRequest(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(toggleStatusQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	_, _, err := s.ToggleVote(context.Background(), uuid.New(), uuid.New(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHasVoted(t *testing.T) {
	s, mock := newMockStore(t)

	requestID := uuid.New()
	guestID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT EXISTS (
			SELECT 1 FROM song_votes
			WHERE request_id = $1 AND guest_id = $2
		)
	`)).
		WithArgs(requestID, guestID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	voted, err := s.HasVoted(context.Background(), requestID, guestID)
	if err != nil {
		t.Fatalf("HasVoted error: %v", err)
	}
	if !voted {
		t.Fatalf("expected voted true")
	}
}

func TestCountVotesForManyOmitsZeroVoteIDs(t *testing.T) {
	s, mock := newMockStore(t)

	a := uuid.New()
	b := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT request_id, COUNT(*)
		FROM song_votes
		WHERE request_id = ANY($1)
		GROUP BY request_id
	`)).
		WillReturnRows(sqlmock.NewRows([]string{"request_id", "count"}).AddRow(a.String(), 5))

	counts, err := s.CountVotesForMany(context.Background(), []uuid.UUID{a, b})
	if err != nil {
		t.Fatalf("CountVotesForMany error: %v", err)
	}
	if counts[a] != 5 {
		t.Fatalf("expected 5 votes for %s, got %d", a, counts[a])
	}
	if _, ok := counts[b]; ok {
		t.Fatalf("expected zero-vote request omitted from map")
	}
}

func TestCountVotesForManyEmptyInput(t *testing.T) {
	s, _ := newMockStore(t)

	counts, err := s.CountVotesForMany(context.Background(), nil)
	if err != nil {
		t.Fatalf("CountVotesForMany error: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected empty map, got %v", counts)
	}
}
