package httpapi

import (
	"encoding/json"
	"net/http"

	"crowdqueue/internal/metrics"
	"crowdqueue/internal/store"
)

type createRequestBody struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Note   string `json:"note"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ident, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if ident.Anonymous() {
		writeError(w, store.ErrUnauthenticated)
		return
	}

	eventID, ok := pathUUID(r, "eventID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event ID"})
		return
	}
	// Requests land in the caller's own event, never a foreign one.
	if ident.EventID != eventID {
		writeError(w, store.ErrNotFound)
		return
	}

	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	req, err := s.requests.Create(r.Context(), ident, body.Title, body.Artist, body.Note)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.RequestsCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, req)
}

// requestDetail is the single-request view: the request plus its vote
// count and whether the caller has voted on it.
type requestDetail struct {
	store.Request
	Votes int  `json:"votes"`
	Voted bool `json:"voted"`
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	ident, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if ident.Anonymous() {
		writeError(w, store.ErrUnauthenticated)
		return
	}

	id, ok := pathUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request ID"})
		return
	}

	req, err := s.requests.Get(r.Context(), ident, id)
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := s.votes.Count(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	voted, err := s.votes.HasVoted(r.Context(), ident, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requestDetail{Request: req, Votes: count, Voted: voted})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	ident, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if ident.Anonymous() {
		writeError(w, store.ErrUnauthenticated)
		return
	}

	eventID, ok := pathUUID(r, "eventID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event ID"})
		return
	}
	if ident.EventID != eventID {
		writeError(w, store.ErrNotFound)
		return
	}

	board, err := s.queue.Project(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}

type setStatusBody struct {
	Status store.RequestStatus `json:"status"`
}

func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ident, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, ok := pathUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request ID"})
		return
	}

	var body setStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	req, err := s.requests.SetStatus(r.Context(), ident, id, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.StatusTransitionsTotal.WithLabelValues(string(req.Status)).Inc()
	writeJSON(w, http.StatusOK, req)
}

type bulkTransitionBody struct {
	From store.RequestStatus `json:"from"`
	To   store.RequestStatus `json:"to"`
}

func (s *Server) handleBulkTransition(w http.ResponseWriter, r *http.Request) {
	ident, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	eventID, ok := pathUUID(r, "eventID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid event ID"})
		return
	}
	if ident.Moderator && ident.EventID != eventID {
		writeError(w, store.ErrNotFound)
		return
	}

	var body bulkTransitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	updated, err := s.requests.BulkTransition(r.Context(), ident, body.From, body.To)
	if err != nil {
		writeError(w, err)
		return
	}

	metrics.SweepsTotal.Inc()
	writeJSON(w, http.StatusOK, struct {
		Updated int64 `json:"updated"`
	}{Updated: updated})
}

func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	ident, err := s.identityFromRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, ok := pathUUID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request ID"})
		return
	}

	if err := s.requests.Delete(r.Context(), ident, id); err != nil {
		writeError(w, err)
		return
	}

	metrics.RequestsDeletedTotal.Inc()
	w.WriteHeader(http.StatusNoContent)
}
