package httpapi

import (
	"net/http"

	"crowdqueue/internal/metrics"
)

func (s *Server) handleToggleVote(w http.ResponseWriter, r *http.Request) {
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

	result, err := s.votes.Toggle(r.Context(), ident, id)
	if err != nil {
		writeError(w, err)
		return
	}

	if result.Voted {
		metrics.VotesCastTotal.Inc()
	} else {
		metrics.VotesRetractedTotal.Inc()
	}
	writeJSON(w, http.StatusOK, result)
}
