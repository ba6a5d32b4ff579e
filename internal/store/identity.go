package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var dummyPasscodeHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")

// Event is a single party whose guests share one request queue.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Guest is a resolved guest identity within one event.
type Guest struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"eventId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
}

// Moderator is the privileged operator of one event's queue.
type Moderator struct {
	ID      uuid.UUID
	EventID uuid.UUID
}

// EventByCode resolves an event join code.
func (s *Store) EventByCode(ctx context.Context, code string) (Event, error) {
	var ev Event
	err := s.db.QueryRowContext(ctx, `
		SELECT id, code, name, created_at
		FROM events
		WHERE code = $1
	`, strings.TrimSpace(code)).Scan(&ev.ID, &ev.Code, &ev.Name, &ev.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, ErrNotFound
		}
		return Event{}, fmt.Errorf("lookup event: %w", err)
	}
	return ev, nil
}

// CreateEvent registers a new event with its join code.
func (s *Store) CreateEvent(ctx context.Context, code, name string) (Event, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return Event{}, fmt.Errorf("event code and name are required")
	}

	var ev Event
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO events (id, code, name)
		VALUES ($1, $2, $3)
		RETURNING id, code, name, created_at
	`, uuid.New(), code, name).Scan(&ev.ID, &ev.Code, &ev.Name, &ev.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return s.EventByCode(ctx, code)
		}
		return Event{}, fmt.Errorf("insert event: %w", err)
	}
	return ev, nil
}

// CreateGuestSession registers a guest under a username unique within the
// event (base, base-2, base-3, ...) and issues an opaque session token.
func (s *Store) CreateGuestSession(ctx context.Context, eventID uuid.UUID, username, displayName string) (string, Guest, error) {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	if username == "" || displayName == "" {
		return "", Guest{}, fmt.Errorf("username and display name are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", Guest{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, `
		SELECT username
		FROM guests
		WHERE event_id = $1 AND username LIKE $2
	`, eventID, username+"%")
	if err != nil {
		return "", Guest{}, fmt.Errorf("select usernames: %w", err)
	}
	used := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return "", Guest{}, fmt.Errorf("scan username: %w", err)
		}
		used[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", Guest{}, fmt.Errorf("iterate usernames: %w", err)
	}

	unique := username
	for n := 2; used[unique]; n++ {
		unique = fmt.Sprintf("%s-%d", username, n)
	}

	guest := Guest{ID: uuid.New(), EventID: eventID, Username: unique, DisplayName: displayName}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO guests (id, event_id, username, display_name)
		VALUES ($1, $2, $3, $4)
	`, guest.ID, guest.EventID, guest.Username, guest.DisplayName); err != nil {
		return "", Guest{}, fmt.Errorf("insert guest: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return "", Guest{}, fmt.Errorf("create token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (token, guest_id)
		VALUES ($1, $2)
	`, token, guest.ID); err != nil {
		return "", Guest{}, fmt.Errorf("store session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", Guest{}, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return token, guest, nil
}

// GuestByToken resolves an opaque session token to its guest.
func (s *Store) GuestByToken(ctx context.Context, token string) (Guest, error) {
	var guest Guest
	err := s.db.QueryRowContext(ctx, `
		SELECT g.id, g.event_id, g.username, g.display_name
		FROM sessions s
		JOIN guests g ON g.id = s.guest_id
		WHERE s.token = $1
	`, token).Scan(&guest.ID, &guest.EventID, &guest.Username, &guest.DisplayName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Guest{}, ErrUnauthenticated
		}
		return Guest{}, fmt.Errorf("lookup session: %w", err)
	}
	return guest, nil
}

// AuthenticateModerator validates a moderator passcode for the event.
func (s *Store) AuthenticateModerator(ctx context.Context, eventID uuid.UUID, passcode string) (Moderator, error) {
	var (
		mod  Moderator
		hash []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, passcode_hash
		FROM moderators
		WHERE event_id = $1
	`, eventID).Scan(&mod.ID, &mod.EventID, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasscodeHash, []byte(passcode))
			return Moderator{}, ErrInvalidCredentials
		}
		return Moderator{}, fmt.Errorf("lookup moderator: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(passcode)); err != nil {
		return Moderator{}, ErrInvalidCredentials
	}
	return mod, nil
}

// ModeratorExists reports whether the event already has a moderator credential.
func (s *Store) ModeratorExists(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM moderators WHERE event_id = $1
		)
	`, eventID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup moderator: %w", err)
	}
	return exists, nil
}

// CreateModerator registers the moderator credential for an event.
func (s *Store) CreateModerator(ctx context.Context, eventID uuid.UUID, passcode string) (Moderator, error) {
	if passcode == "" {
		return Moderator{}, fmt.Errorf("passcode is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return Moderator{}, fmt.Errorf("hash passcode: %w", err)
	}

	mod := Moderator{ID: uuid.New(), EventID: eventID}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO moderators (id, event_id, passcode_hash)
		VALUES ($1, $2, $3)
	`, mod.ID, mod.EventID, string(hash)); err != nil {
		return Moderator{}, fmt.Errorf("insert moderator: %w", err)
	}
	return mod, nil
}
