package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateGuestSessionUniquifiesUsername(t *testing.T) {
	s, mock := newMockStore(t)

	eventID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
		SELECT username
		FROM guests
		WHERE event_id = $1 AND username LIKE $2
	`)).
		WithArgs(eventID, "anna-nowak%").
		WillReturnRows(sqlmock.NewRows([]string{"username"}).
			AddRow("anna-nowak").
			AddRow("anna-nowak-2"))
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO guests (id, event_id, username, display_name)
		VALUES ($1, $2, $3, $4)
	`)).
		WithArgs(sqlmock.AnyArg(), eventID, "anna-nowak-3", "Anna Nowak").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`
		INSERT INTO sessions (token, guest_id)
		VALUES ($1, $2)
	`)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	token, guest, err := s.CreateGuestSession(context.Background(), eventID, "anna-nowak", "Anna Nowak")
	if err != nil {
		t.Fatalf("CreateGuestSession error: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a session token")
	}
	if guest.Username != "anna-nowak-3" {
		t.Fatalf("expected uniquified username, got %q", guest.Username)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGuestByTokenUnauthenticated(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT g.id, g.event_id, g.username, g.display_name`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "username", "display_name"}))

	_, err := s.GuestByToken(context.Background(), "bogus")
	if !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthenticateModerator(t *testing.T) {
	s, mock := newMockStore(t)

	eventID := uuid.New()
	modID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	query := regexp.QuoteMeta(`
		SELECT id, event_id, passcode_hash
		FROM moderators
		WHERE event_id = $1
	`)

	mock.ExpectQuery(query).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "passcode_hash"}).
			AddRow(modID.String(), eventID.String(), hash))

	mod, err := s.AuthenticateModerator(context.Background(), eventID, "secret")
	if err != nil {
		t.Fatalf("AuthenticateModerator error: %v", err)
	}
	if mod.ID != modID || mod.EventID != eventID {
		t.Fatalf("unexpected moderator: %+v", mod)
	}

	mock.ExpectQuery(query).
		WithArgs(eventID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_id", "passcode_hash"}).
			AddRow(modID.String(), eventID.String(), hash))

	if _, err := s.AuthenticateModerator(context.Background(), eventID, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
