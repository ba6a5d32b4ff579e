// Package modsync is the moderator-side sync engine. It keeps a local
// three-bucket mirror of the queue projection, applies moderator actions
// optimistically before the backend confirms them, rolls the exact prior
// state back on failure, and reconciles with backend truth through
// deferred and periodic loads that never overwrite an in-flight edit.
package modsync

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"crowdqueue/internal/app/queue"
	"crowdqueue/internal/store"
)

// DefaultRefreshInterval is the cadence of the background refresh loop.
const DefaultRefreshInterval = 5 * time.Minute

// Backend is the server surface the engine drives.
type Backend interface {
	ListRequests(ctx context.Context) (queue.Board, error)
	SetStatus(ctx context.Context, id uuid.UUID, status store.RequestStatus) error
	BulkTransition(ctx context.Context, from, to store.RequestStatus) (int, error)
	DeleteRequest(ctx context.Context, id uuid.UUID) error
}

// Result is the tagged outcome of a mutating engine operation. Applied
// means the backend confirmed the optimistic edit; otherwise Err carries
// the rollback reason. The zero Result means the request was not held
// locally and nothing was issued.
type Result struct {
	Applied bool
	Err     error
}

// RolledBack reports whether the optimistic edit was undone.
func (r Result) RolledBack() bool {
	return !r.Applied && r.Err != nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithRefreshInterval overrides the background refresh cadence.
func WithRefreshInterval(d time.Duration) Option {
	return func(e *Engine) { e.refreshEvery = d }
}

// WithLogger attaches a logger for soft failures in the refresh loop.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine is the per-event moderator session state. The bucket cache is
// mutated only through Engine methods; the inFlight set is what keeps
// Load from clobbering an edit whose confirmation has not arrived yet.
type Engine struct {
	backend Backend
	log     zerolog.Logger

	mu       sync.Mutex
	pending  []queue.Item
	played   []queue.Item
	rejected []queue.Item
	inFlight map[uuid.UUID]struct{}

	visible      atomic.Bool
	refreshEvery time.Duration
	reconcile    chan struct{}
}

// New constructs an Engine over the given backend. The session starts
// visible.
func New(backend Backend, opts ...Option) *Engine {
	e := &Engine{
		backend:      backend,
		log:          zerolog.Nop(),
		inFlight:     make(map[uuid.UUID]struct{}),
		refreshEvery: DefaultRefreshInterval,
		reconcile:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.visible.Store(true)
	return e
}

// Load pulls a fresh projection and replaces the local cache wholesale,
// except for items currently in flight: those keep their locally projected
// bucket and status, and the server's copy of them is discarded, so a
// refresh racing a just-issued mutation cannot revert it.
func (e *Engine) Load(ctx context.Context) error {
	board, err := e.backend.ListRequests(ctx)
	if err != nil {
		return fmt.Errorf("list requests: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = e.mergeLocked(e.pending, board.Pending)
	e.played = e.mergeLocked(e.played, board.Played)
	e.rejected = e.mergeLocked(e.rejected, board.Rejected)
	queue.SortPending(e.pending)
	return nil
}

// mergeLocked keeps the local copies of in-flight items in their current
// bucket and takes everything else from the incoming bucket.
func (e *Engine) mergeLocked(local, incoming []queue.Item) []queue.Item {
	merged := make([]queue.Item, 0, len(incoming))
	for _, item := range local {
		if _, busy := e.inFlight[item.ID]; busy {
			merged = append(merged, item)
		}
	}
	for _, item := range incoming {
		if _, busy := e.inFlight[item.ID]; !busy {
			merged = append(merged, item)
		}
	}
	return merged
}

// Transition optimistically moves the request into the bucket for status,
// then confirms with the backend. On failure the exact prior bucket
// membership and status are restored.
func (e *Engine) Transition(ctx context.Context, id uuid.UUID, status store.RequestStatus) Result {
	e.mu.Lock()
	captured, ok := e.takeLocked(id)
	if !ok {
		e.mu.Unlock()
		return Result{}
	}

	moved := captured
	moved.Status = status
	e.insertLocked(moved)
	e.inFlight[id] = struct{}{}
	e.mu.Unlock()

	if err := e.backend.SetStatus(ctx, id, status); err != nil {
		e.mu.Lock()
		e.takeLocked(id)
		e.insertLocked(captured)
		delete(e.inFlight, id)
		e.mu.Unlock()
		return Result{Err: fmt.Errorf("set status: %w", err)}
	}

	e.mu.Lock()
	delete(e.inFlight, id)
	e.mu.Unlock()
	e.requestReconcile()
	return Result{Applied: true}
}

// Remove optimistically deletes the request from all buckets, then confirms
// with the backend. On failure the captured entry returns to its original
// bucket.
func (e *Engine) Remove(ctx context.Context, id uuid.UUID) Result {
	e.mu.Lock()
	captured, ok := e.takeLocked(id)
	if !ok {
		e.mu.Unlock()
		return Result{}
	}
	e.inFlight[id] = struct{}{}
	e.mu.Unlock()

	if err := e.backend.DeleteRequest(ctx, id); err != nil {
		e.mu.Lock()
		e.insertLocked(captured)
		delete(e.inFlight, id)
		e.mu.Unlock()
		return Result{Err: fmt.Errorf("delete request: %w", err)}
	}

	e.mu.Lock()
	delete(e.inFlight, id)
	e.mu.Unlock()
	e.requestReconcile()
	return Result{Applied: true}
}

// SweepPlayedToRejected optimistically prepends every played item onto the
// rejected bucket (most recently played first) and empties played, then
// issues the bulk transition. On failure both buckets are restored to
// their exact prior snapshots.
func (e *Engine) SweepPlayedToRejected(ctx context.Context) Result {
	e.mu.Lock()
	if len(e.played) == 0 {
		e.mu.Unlock()
		return Result{}
	}

	prevPlayed := append([]queue.Item(nil), e.played...)
	prevRejected := append([]queue.Item(nil), e.rejected...)

	for _, item := range e.played {
		item.Status = store.StatusRejected
		e.rejected = append([]queue.Item{item}, e.rejected...)
		e.inFlight[item.ID] = struct{}{}
	}
	e.played = nil
	e.mu.Unlock()

	settle := func() {
		for _, item := range prevPlayed {
			delete(e.inFlight, item.ID)
		}
	}

	if _, err := e.backend.BulkTransition(ctx, store.StatusPlayed, store.StatusRejected); err != nil {
		e.mu.Lock()
		e.played = prevPlayed
		e.rejected = prevRejected
		settle()
		e.mu.Unlock()
		return Result{Err: fmt.Errorf("bulk transition: %w", err)}
	}

	e.mu.Lock()
	settle()
	e.mu.Unlock()
	e.requestReconcile()
	return Result{Applied: true}
}

// Snapshot returns a copy of the current local board.
func (e *Engine) Snapshot() queue.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return queue.Board{
		Pending:  append([]queue.Item(nil), e.pending...),
		Played:   append([]queue.Item(nil), e.played...),
		Rejected: append([]queue.Item(nil), e.rejected...),
	}
}

// InFlight reports whether the request has an unconfirmed mutation.
func (e *Engine) InFlight(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.inFlight[id]
	return ok
}

// SetVisible marks the session foregrounded or backgrounded. The refresh
// loop never runs while hidden.
func (e *Engine) SetVisible(v bool) {
	e.visible.Store(v)
}

// Run drives the background refresh loop until ctx is cancelled. Periodic
// refreshes are skipped while hidden; deferred reconciles requested by
// confirmed mutations run regardless. Refresh failures are logged softly
// and never touch in-flight state.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !e.visible.Load() {
				continue
			}
			if err := e.Load(ctx); err != nil {
				e.log.Warn().Err(err).Msg("background refresh failed")
			}
		case <-e.reconcile:
			if err := e.Load(ctx); err != nil {
				e.log.Warn().Err(err).Msg("reconcile refresh failed")
			}
		}
	}
}

// requestReconcile schedules a deferred, non-blocking background load.
func (e *Engine) requestReconcile() {
	select {
	case e.reconcile <- struct{}{}:
	default:
	}
}

// takeLocked removes the request from whichever bucket holds it and
// returns the captured entry.
func (e *Engine) takeLocked(id uuid.UUID) (queue.Item, bool) {
	for _, bucket := range []*[]queue.Item{&e.pending, &e.played, &e.rejected} {
		for i, item := range *bucket {
			if item.ID == id {
				*bucket = append((*bucket)[:i], (*bucket)[i+1:]...)
				return item, true
			}
		}
	}
	return queue.Item{}, false
}

// insertLocked files the item into the bucket matching its status. The
// pending bucket keeps the projection ordering; played and rejected are
// most recent first.
func (e *Engine) insertLocked(item queue.Item) {
	switch item.Status {
	case store.StatusPlayed:
		e.played = append([]queue.Item{item}, e.played...)
	case store.StatusRejected:
		e.rejected = append([]queue.Item{item}, e.rejected...)
	default:
		e.pending = append([]queue.Item{item}, e.pending...)
		queue.SortPending(e.pending)
	}
}
