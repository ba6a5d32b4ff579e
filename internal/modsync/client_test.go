package modsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"crowdqueue/internal/store"
)

func TestClientListRequests(t *testing.T) {
	eventID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		wantPath := "/api/v1/events/" + eventID.String() + "/requests"
		if r.URL.Path != wantPath {
			t.Errorf("expected path %s, got %s", wantPath, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"pending": []map[string]any{{
				"id":     uuid.New().String(),
				"title":  "Dancing Queen",
				"status": "pending",
				"votes":  4,
			}},
			"played":   []any{},
			"rejected": []any{},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok-123", eventID)
	board, err := client.ListRequests(context.Background())
	if err != nil {
		t.Fatalf("ListRequests error: %v", err)
	}
	if len(board.Pending) != 1 {
		t.Fatalf("expected 1 pending item, got %d", len(board.Pending))
	}
	if board.Pending[0].Title != "Dancing Queen" || board.Pending[0].Votes != 4 {
		t.Fatalf("unexpected item: %+v", board.Pending[0])
	}
}

func TestClientSetStatus(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/api/v1/requests/" + id.String() + "/status"
		if r.Method != http.MethodPost || r.URL.Path != wantPath {
			t.Errorf("expected POST %s, got %s %s", wantPath, r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected json content type, got %q", ct)
		}
		var body struct {
			Status string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Status != "played" {
			t.Errorf("expected status played, got %q", body.Status)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", uuid.New())
	if err := client.SetStatus(context.Background(), id, store.StatusPlayed); err != nil {
		t.Fatalf("SetStatus error: %v", err)
	}
}

func TestClientBulkTransition(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.From != "played" || body.To != "rejected" {
			t.Errorf("unexpected transition body: %+v", body)
		}
		w.Write([]byte(`{"updated":3}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", uuid.New())
	n, err := client.BulkTransition(context.Background(), store.StatusPlayed, store.StatusRejected)
	if err != nil {
		t.Fatalf("BulkTransition error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 updated, got %d", n)
	}
}

func TestClientDeleteRequest(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/api/v1/requests/" + id.String()
		if r.Method != http.MethodDelete || r.URL.Path != wantPath {
			t.Errorf("expected DELETE %s, got %s %s", wantPath, r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", uuid.New())
	if err := client.DeleteRequest(context.Background(), id); err != nil {
		t.Fatalf("DeleteRequest error: %v", err)
	}
}

func TestClientSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"moderator access required"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok", uuid.New())
	err := client.SetStatus(context.Background(), uuid.New(), store.StatusPlayed)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "moderator access required") {
		t.Fatalf("expected API error message surfaced, got %v", err)
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status code in error, got %v", err)
	}
}
