package httpapi

import (
	"encoding/json"
	"net/http"
)

type guestLoginRequest struct {
	EventCode string `json:"eventCode"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Server) handleGuestLogin(w http.ResponseWriter, r *http.Request) {
	var req guestLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.EventCode == "" || req.FirstName == "" || req.LastName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "eventCode, firstName and lastName are required"})
		return
	}

	session, err := s.identity.GuestLogin(r.Context(), req.EventCode, req.FirstName, req.LastName)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

type moderatorLoginRequest struct {
	EventCode string `json:"eventCode"`
	Passcode  string `json:"passcode"`
}

func (s *Server) handleModeratorLogin(w http.ResponseWriter, r *http.Request) {
	var req moderatorLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.EventCode == "" || req.Passcode == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "eventCode and passcode are required"})
		return
	}

	token, err := s.identity.ModeratorLogin(r.Context(), req.EventCode, req.Passcode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Token string `json:"token"`
	}{Token: token})
}
