package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"crowdqueue/internal/app/queue"
	"crowdqueue/internal/app/votes"
	"crowdqueue/internal/identity"
	"crowdqueue/internal/store"
)

// RequestService captures the lifecycle operations needed by the HTTP handlers.
type RequestService interface {
	Create(ctx context.Context, author identity.Identity, title, artist, note string) (store.Request, error)
	Get(ctx context.Context, caller identity.Identity, id uuid.UUID) (store.Request, error)
	SetStatus(ctx context.Context, mod identity.Identity, id uuid.UUID, status store.RequestStatus) (store.Request, error)
	BulkTransition(ctx context.Context, mod identity.Identity, from, to store.RequestStatus) (int64, error)
	Delete(ctx context.Context, mod identity.Identity, id uuid.UUID) error
}

// VoteService captures the vote ledger operations.
type VoteService interface {
	Toggle(ctx context.Context, voter identity.Identity, requestID uuid.UUID) (votes.ToggleResult, error)
	Count(ctx context.Context, requestID uuid.UUID) (int, error)
	HasVoted(ctx context.Context, voter identity.Identity, requestID uuid.UUID) (bool, error)
}

// QueueService computes the derived read views.
type QueueService interface {
	Project(ctx context.Context, eventID uuid.UUID) (queue.Board, error)
}

// IdentityService issues and resolves identities at the boundary.
type IdentityService interface {
	GuestLogin(ctx context.Context, eventCode, firstName, lastName string) (identity.Session, error)
	ModeratorLogin(ctx context.Context, eventCode, passcode string) (string, error)
	Resolve(ctx context.Context, token string) (identity.Identity, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	requests RequestService
	votes    VoteService
	queue    QueueService
	identity IdentityService
}

// New configures a Server with the given services.
func New(requests RequestService, votes VoteService, queue QueueService, identity IdentityService) *Server {
	return &Server{
		requests: requests,
		votes:    votes,
		queue:    queue,
		identity: identity,
	}
}

// Routes exposes the HTTP handlers for the request queue.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Identity boundary
	mux.HandleFunc("POST /api/v1/auth/guest-login", s.handleGuestLogin)
	mux.HandleFunc("POST /api/v1/auth/moderator-login", s.handleModeratorLogin)

	// Guest-facing queue routes
	mux.HandleFunc("POST /api/v1/events/{eventID}/requests", s.handleCreateRequest)
	mux.HandleFunc("GET /api/v1/events/{eventID}/requests", s.handleListRequests)
	mux.HandleFunc("GET /api/v1/requests/{id}", s.handleGetRequest)
	mux.HandleFunc("POST /api/v1/requests/{id}/vote", s.handleToggleVote)

	// Moderator routes
	mux.HandleFunc("POST /api/v1/requests/{id}/status", s.handleSetStatus)
	mux.HandleFunc("POST /api/v1/events/{eventID}/requests/transition", s.handleBulkTransition)
	mux.HandleFunc("DELETE /api/v1/requests/{id}", s.handleDeleteRequest)

	return mux
}

// identityFromRequest resolves the bearer token, if any. A missing header
// yields the anonymous identity; handlers decide whether that is enough.
func (s *Server) identityFromRequest(r *http.Request) (identity.Identity, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return identity.Identity{}, nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return s.identity.Resolve(r.Context(), token)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the store's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUnauthenticated), errors.Is(err, store.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrUnauthorized):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrInvalidState):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrTitleRequired), errors.Is(err, store.ErrInvalidStatus):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		log.Error().Err(err).Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}
