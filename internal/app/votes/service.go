// Package votes is the vote ledger: it owns "at most one vote per guest per
// request" and vote counting. Uniqueness itself is delegated to the store's
// unique constraint; the service never takes application-level locks.
package votes

import (
	"context"

	"github.com/google/uuid"

	"crowdqueue/internal/identity"
	"crowdqueue/internal/store"
)

// Store defines the persistence hooks for vote workflows.
type Store interface {
	ToggleVote(ctx context.Context, eventID, requestID, guestID uuid.UUID) (bool, int, error)
	CountVotes(ctx context.Context, requestID uuid.UUID) (int, error)
	CountVotesForMany(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]int, error)
	HasVoted(ctx context.Context, requestID, guestID uuid.UUID) (bool, error)
}

// ToggleResult reports the outcome of a vote toggle.
type ToggleResult struct {
	Voted bool `json:"voted"`
	Count int  `json:"count"`
}

// Service coordinates vote toggles and counts.
type Service interface {
	Toggle(ctx context.Context, voter identity.Identity, requestID uuid.UUID) (ToggleResult, error)
	Count(ctx context.Context, requestID uuid.UUID) (int, error)
	CountMany(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]int, error)
	HasVoted(ctx context.Context, voter identity.Identity, requestID uuid.UUID) (bool, error)
}

type service struct {
	store Store
}

// New constructs a vote Service backed by the given Store.
func New(store Store) Service {
	return &service{store: store}
}

// Toggle casts or retracts the voter's vote on a pending request. Concurrent
// toggles by the same guest on the same request can never produce two votes.
func (s *service) Toggle(ctx context.Context, voter identity.Identity, requestID uuid.UUID) (ToggleResult, error) {
	if err := ctx.Err(); err != nil {
		return ToggleResult{}, err
	}
	if voter.Anonymous() {
		return ToggleResult{}, store.ErrUnauthenticated
	}
	// Votes belong to guests; a moderator id has no guest row to hang one on.
	if voter.Moderator {
		return ToggleResult{}, store.ErrUnauthorized
	}

	voted, count, err := s.store.ToggleVote(ctx, voter.EventID, requestID, voter.UserID)
	if err != nil {
		return ToggleResult{}, err
	}
	return ToggleResult{Voted: voted, Count: count}, nil
}

func (s *service) Count(ctx context.Context, requestID uuid.UUID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store.CountVotes(ctx, requestID)
}

func (s *service) CountMany(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.CountVotesForMany(ctx, requestIDs)
}

// HasVoted reports whether the voter currently holds a vote on the request.
// Moderators never hold votes.
func (s *service) HasVoted(ctx context.Context, voter identity.Identity, requestID uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if voter.Anonymous() {
		return false, store.ErrUnauthenticated
	}
	if voter.Moderator {
		return false, nil
	}
	return s.store.HasVoted(ctx, requestID, voter.UserID)
}
