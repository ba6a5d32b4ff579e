// Package identity resolves bearer tokens into explicit identities and
// issues them. Every service call downstream takes the resolved Identity as
// a parameter; nothing below the HTTP boundary reads tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"crowdqueue/internal/store"
)

// Identity is a resolved caller. The zero value is anonymous.
type Identity struct {
	UserID    uuid.UUID
	EventID   uuid.UUID
	Moderator bool
}

// Anonymous reports whether the identity is unresolved.
func (i Identity) Anonymous() bool {
	return !i.Moderator && i.UserID == uuid.Nil
}

// Session is the result of a guest login.
type Session struct {
	Token    string      `json:"token"`
	Guest    store.Guest `json:"guest"`
	Identity Identity    `json:"-"`
}

// Store defines the persistence hooks for identity workflows.
type Store interface {
	EventByCode(ctx context.Context, code string) (store.Event, error)
	CreateGuestSession(ctx context.Context, eventID uuid.UUID, username, displayName string) (string, store.Guest, error)
	GuestByToken(ctx context.Context, token string) (store.Guest, error)
	AuthenticateModerator(ctx context.Context, eventID uuid.UUID, passcode string) (store.Moderator, error)
}

// Service issues and resolves guest sessions and moderator tokens.
type Service struct {
	store    Store
	secret   []byte
	tokenTTL time.Duration
}

// NewService constructs an identity Service. The secret signs moderator JWTs.
func NewService(st Store, secret []byte) *Service {
	return &Service{store: st, secret: secret, tokenTTL: 12 * time.Hour}
}

// GuestLogin registers a guest for the event behind the join code and
// returns an opaque session token.
func (s *Service) GuestLogin(ctx context.Context, eventCode, firstName, lastName string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	if first == "" || last == "" {
		return Session{}, fmt.Errorf("first and last name are required")
	}

	event, err := s.store.EventByCode(ctx, eventCode)
	if err != nil {
		return Session{}, err
	}

	username := slugify(first) + "-" + slugify(last)
	displayName := strings.Join(strings.Fields(first+" "+last), " ")

	token, guest, err := s.store.CreateGuestSession(ctx, event.ID, username, displayName)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token: token,
		Guest: guest,
		Identity: Identity{
			UserID:  guest.ID,
			EventID: guest.EventID,
		},
	}, nil
}

// ModeratorLogin validates an event passcode and returns an event-scoped
// signed token.
func (s *Service) ModeratorLogin(ctx context.Context, eventCode, passcode string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	event, err := s.store.EventByCode(ctx, eventCode)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", store.ErrInvalidCredentials
		}
		return "", err
	}

	mod, err := s.store.AuthenticateModerator(ctx, event.ID, passcode)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := moderatorClaims{
		EventID: event.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   mod.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Resolve maps a bearer token to an Identity. An empty token resolves to
// the anonymous identity without error; a present but invalid token fails
// with ErrUnauthenticated.
func (s *Service) Resolve(ctx context.Context, token string) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if token == "" {
		return Identity{}, nil
	}

	// Moderator tokens are JWTs; guest tokens are opaque session rows.
	if strings.Count(token, ".") == 2 {
		return s.resolveModerator(token)
	}

	guest, err := s.store.GuestByToken(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: guest.ID, EventID: guest.EventID}, nil
}

type moderatorClaims struct {
	EventID string `json:"evt"`
	jwt.RegisteredClaims
}

func (s *Service) resolveModerator(token string) (Identity, error) {
	var claims moderatorClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, store.ErrUnauthenticated
	}

	eventID, err := uuid.Parse(claims.EventID)
	if err != nil {
		return Identity{}, store.ErrUnauthenticated
	}
	modID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, store.ErrUnauthenticated
	}

	return Identity{UserID: modID, EventID: eventID, Moderator: true}, nil
}

// slugify lowercases, strips diacritics and collapses runs of non
// alphanumerics into single dashes.
func slugify(s string) string {
	decomposed := norm.NFKD.String(strings.ToLower(strings.TrimSpace(s)))

	var b strings.Builder
	lastDash := true
	for _, r := range decomposed {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from decomposition
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
