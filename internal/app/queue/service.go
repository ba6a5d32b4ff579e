// Package queue derives the ordered read views from requests plus votes.
// Projections are pure given a snapshot and are never stored.
package queue

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"crowdqueue/internal/store"
)

// Item is a request annotated with its current vote count.
type Item struct {
	store.Request
	Votes int `json:"votes"`
}

// Board is the moderator-facing projection: three ordered buckets. The
// guest view is the Pending bucket alone.
type Board struct {
	Pending  []Item `json:"pending"`
	Played   []Item `json:"played"`
	Rejected []Item `json:"rejected"`
}

// Store defines the reads the projection is computed from.
type Store interface {
	RequestsByEvent(ctx context.Context, eventID uuid.UUID) ([]store.Request, error)
	CountVotesForMany(ctx context.Context, requestIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Service computes queue projections.
type Service interface {
	Project(ctx context.Context, eventID uuid.UUID) (Board, error)
}

type service struct {
	store Store
}

// New constructs a projection Service backed by the given Store.
func New(store Store) Service {
	return &service{store: store}
}

// Project reads a snapshot of the event's requests and votes and buckets
// them. The two reads are not transactional; a request whose status flips
// between them may land in a stale bucket for this one projection, which
// self-corrects on the next one.
func (s *service) Project(ctx context.Context, eventID uuid.UUID) (Board, error) {
	if err := ctx.Err(); err != nil {
		return Board{}, err
	}

	requests, err := s.store.RequestsByEvent(ctx, eventID)
	if err != nil {
		return Board{}, err
	}

	ids := make([]uuid.UUID, len(requests))
	for i, req := range requests {
		ids[i] = req.ID
	}
	counts, err := s.store.CountVotesForMany(ctx, ids)
	if err != nil {
		return Board{}, err
	}

	return Build(requests, counts), nil
}

// Build buckets and orders a snapshot. Pure: same inputs, same board.
func Build(requests []store.Request, counts map[uuid.UUID]int) Board {
	var board Board
	for _, req := range requests {
		item := Item{Request: req, Votes: counts[req.ID]}
		switch req.Status {
		case store.StatusPlayed:
			board.Played = append(board.Played, item)
		case store.StatusRejected:
			board.Rejected = append(board.Rejected, item)
		default:
			board.Pending = append(board.Pending, item)
		}
	}

	SortPending(board.Pending)
	sortByRecency(board.Played)
	sortByRecency(board.Rejected)
	return board
}

// SortPending orders items by vote count descending, ties broken by
// earliest submission. The moderator sync engine applies the same ordering
// to its local pending bucket.
func SortPending(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Votes != items[j].Votes {
			return items[i].Votes > items[j].Votes
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}

// sortByRecency orders played/rejected buckets most recently transitioned
// first.
func sortByRecency(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StatusChangedAt.After(items[j].StatusChangedAt)
	})
}
