package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound signals the row does not exist or is outside the caller's event.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates a missing or unresolvable identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUnauthorized indicates the identity lacks moderator scope.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidState indicates the operation is not valid for the request's status.
	ErrInvalidState = errors.New("invalid request state")
	// ErrInvalidCredentials indicates a moderator login failure.
	ErrInvalidCredentials = errors.New("invalid event code or passcode")
	// ErrTitleRequired indicates a request submission without a usable title.
	ErrTitleRequired = errors.New("title is required")
	// ErrInvalidStatus indicates a status value outside the three-state domain.
	ErrInvalidStatus = errors.New("invalid status")
)

// RequestStatus is the lifecycle state of a song request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusPlayed   RequestStatus = "played"
	StatusRejected RequestStatus = "rejected"
)

// Valid reports whether s is one of the three known statuses.
func (s RequestStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPlayed, StatusRejected:
		return true
	}
	return false
}

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
