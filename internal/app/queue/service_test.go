package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"crowdqueue/internal/store"
)

func pendingRequest(title string, createdAt time.Time) store.Request {
	return store.Request{
		ID:        uuid.New(),
		Title:     title,
		Status:    store.StatusPending,
		CreatedAt: createdAt,
	}
}

// Votes descending, ties broken by earliest submission.
func TestBuildOrdersPendingByVotesThenAge(t *testing.T) {
	t0 := time.Date(2026, 6, 20, 18, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Minute)
	t2 := t0.Add(2 * time.Minute)

	a := pendingRequest("A", t1)
	b := pendingRequest("B", t2)
	c := pendingRequest("C", t0)

	counts := map[uuid.UUID]int{
		a.ID: 2,
		b.ID: 5,
		c.ID: 2,
	}

	board := Build([]store.Request{a, b, c}, counts)

	got := make([]string, len(board.Pending))
	for i, item := range board.Pending {
		got[i] = item.Title
	}
	want := []string{"B", "C", "A"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestBuildBucketsByStatusAndRecency(t *testing.T) {
	base := time.Date(2026, 6, 20, 18, 0, 0, 0, time.UTC)

	oldPlayed := store.Request{ID: uuid.New(), Title: "old", Status: store.StatusPlayed, StatusChangedAt: base}
	newPlayed := store.Request{ID: uuid.New(), Title: "new", Status: store.StatusPlayed, StatusChangedAt: base.Add(time.Hour)}
	rejected := store.Request{ID: uuid.New(), Title: "nope", Status: store.StatusRejected, StatusChangedAt: base}

	board := Build([]store.Request{oldPlayed, newPlayed, rejected}, nil)

	if len(board.Pending) != 0 {
		t.Fatalf("expected empty pending bucket, got %d items", len(board.Pending))
	}
	if len(board.Played) != 2 || board.Played[0].Title != "new" {
		t.Fatalf("expected most recently played first, got %+v", board.Played)
	}
	if len(board.Rejected) != 1 || board.Rejected[0].Title != "nope" {
		t.Fatalf("unexpected rejected bucket: %+v", board.Rejected)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	t0 := time.Date(2026, 6, 20, 18, 0, 0, 0, time.UTC)
	reqs := []store.Request{
		pendingRequest("x", t0),
		pendingRequest("y", t0.Add(time.Second)),
		pendingRequest("z", t0.Add(2*time.Second)),
	}
	counts := map[uuid.UUID]int{reqs[2].ID: 1}

	first := Build(reqs, counts)
	second := Build(reqs, counts)

	for i := range first.Pending {
		if first.Pending[i].ID != second.Pending[i].ID {
			t.Fatalf("projection not reproducible at index %d", i)
		}
	}
}

type fakeStore struct {
	requests []store.Request
	counts   map[uuid.UUID]int
}

func (f *fakeStore) RequestsByEvent(ctx context.Context, eventID uuid.UUID) ([]store.Request, error) {
	return f.requests, nil
}

func (f *fakeStore) CountVotesForMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return f.counts, nil
}

func TestProjectAnnotatesVoteCounts(t *testing.T) {
	req := pendingRequest("song", time.Now().UTC())
	svc := New(&fakeStore{
		requests: []store.Request{req},
		counts:   map[uuid.UUID]int{req.ID: 7},
	})

	board, err := svc.Project(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Project error: %v", err)
	}
	if len(board.Pending) != 1 || board.Pending[0].Votes != 7 {
		t.Fatalf("expected one pending item with 7 votes, got %+v", board.Pending)
	}
}
