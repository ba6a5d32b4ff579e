// Package requests owns the request lifecycle: creation and the fully
// connected pending/played/rejected state machine. Moderators correct
// mistakes live, so every status is reachable from every other.
package requests

import (
	"context"

	"github.com/google/uuid"

	"crowdqueue/internal/identity"
	"crowdqueue/internal/store"
)

// Store defines the persistence hooks for lifecycle workflows.
type Store interface {
	CreateRequest(ctx context.Context, eventID uuid.UUID, title, artist, note string) (store.Request, error)
	RequestByID(ctx context.Context, eventID, id uuid.UUID) (store.Request, error)
	SetRequestStatus(ctx context.Context, eventID, id uuid.UUID, status store.RequestStatus) (store.Request, error)
	BulkTransitionRequests(ctx context.Context, eventID uuid.UUID, from, to store.RequestStatus) (int64, error)
	DeleteRequest(ctx context.Context, eventID, id uuid.UUID) error
}

// Service coordinates request lifecycle operations.
type Service interface {
	Create(ctx context.Context, author identity.Identity, title, artist, note string) (store.Request, error)
	Get(ctx context.Context, caller identity.Identity, id uuid.UUID) (store.Request, error)
	SetStatus(ctx context.Context, mod identity.Identity, id uuid.UUID, status store.RequestStatus) (store.Request, error)
	BulkTransition(ctx context.Context, mod identity.Identity, from, to store.RequestStatus) (int64, error)
	Delete(ctx context.Context, mod identity.Identity, id uuid.UUID) error
}

type service struct {
	store Store
}

// New constructs a lifecycle Service backed by the given Store.
func New(store Store) Service {
	return &service{store: store}
}

// Create submits a new request into the author's event queue. Requests
// always start pending.
func (s *service) Create(ctx context.Context, author identity.Identity, title, artist, note string) (store.Request, error) {
	if err := ctx.Err(); err != nil {
		return store.Request{}, err
	}
	if author.Anonymous() {
		return store.Request{}, store.ErrUnauthenticated
	}
	return s.store.CreateRequest(ctx, author.EventID, title, artist, note)
}

// Get returns a single request within the caller's event. Requests in other
// events are not found.
func (s *service) Get(ctx context.Context, caller identity.Identity, id uuid.UUID) (store.Request, error) {
	if err := ctx.Err(); err != nil {
		return store.Request{}, err
	}
	if caller.Anonymous() {
		return store.Request{}, store.ErrUnauthenticated
	}
	return s.store.RequestByID(ctx, caller.EventID, id)
}

// SetStatus moves a request into any of the three statuses. Moderator only;
// requests outside the moderator's event are not found.
func (s *service) SetStatus(ctx context.Context, mod identity.Identity, id uuid.UUID, status store.RequestStatus) (store.Request, error) {
	if err := ctx.Err(); err != nil {
		return store.Request{}, err
	}
	if err := requireModerator(mod); err != nil {
		return store.Request{}, err
	}
	if !status.Valid() {
		return store.Request{}, store.ErrInvalidStatus
	}
	return s.store.SetRequestStatus(ctx, mod.EventID, id, status)
}

// BulkTransition moves every request in from to to for the moderator's
// event as one logical operation.
func (s *service) BulkTransition(ctx context.Context, mod identity.Identity, from, to store.RequestStatus) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := requireModerator(mod); err != nil {
		return 0, err
	}
	if !from.Valid() || !to.Valid() {
		return 0, store.ErrInvalidStatus
	}
	return s.store.BulkTransitionRequests(ctx, mod.EventID, from, to)
}

// Delete hard-deletes a request together with its votes.
func (s *service) Delete(ctx context.Context, mod identity.Identity, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := requireModerator(mod); err != nil {
		return err
	}
	return s.store.DeleteRequest(ctx, mod.EventID, id)
}

func requireModerator(id identity.Identity) error {
	if id.Anonymous() {
		return store.ErrUnauthenticated
	}
	if !id.Moderator {
		return store.ErrUnauthorized
	}
	return nil
}
