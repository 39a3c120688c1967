package session

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
	feedbackservice "github.com/zhouzirui/feedback-collector/backend/internal/service/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
)

func setupRouter() (*chi.Mux, *feedbackservice.Store) {
	store := feedbackservice.NewStore()
	registry := push.NewRegistry()
	manager := feedbackservice.NewManager(store, registry, feedbackservice.Config{})
	handler := New(manager, feedbackservice.NewRouter(store, registry))

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, store
}

func TestGetSessionReturnsSummary(t *testing.T) {
	r, store := setupRouter()
	if _, err := store.Create("s1", "Deployed v2"); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/session/s1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var summary feedback.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if summary.SessionID != "s1" || summary.Question != "Deployed v2" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Status != feedback.StatusWaiting {
		t.Fatalf("expected waiting, got %s", summary.Status)
	}
	if summary.Response != nil {
		t.Fatalf("expected no response yet")
	}
}

func TestGetSessionMissing(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/session/missing", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSubmitFeedbackCompletesSession(t *testing.T) {
	r, store := setupRouter()
	if _, err := store.Create("s1", "prompt"); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	payload := []byte(`{"text":"LGTM","images":[{"name":"a.png","type":"image/png","size":3}],"files":[]}`)
	req := httptest.NewRequest(http.MethodPost, "/session/s1/feedback", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got, _ := store.Get("s1")
	if got.Status != feedback.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if got.Response.Text != "LGTM" || len(got.Response.Images) != 1 {
		t.Fatalf("unexpected response: %+v", got.Response)
	}

	req = httptest.NewRequest(http.MethodPost, "/session/s1/feedback", bytes.NewReader(payload))
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second submit, got %d", resp.Code)
	}
}

func TestSubmitFeedbackUnknownSession(t *testing.T) {
	r, _ := setupRouter()

	req := httptest.NewRequest(http.MethodPost, "/session/missing/feedback", bytes.NewReader([]byte(`{"text":"hi"}`)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSubmitFeedbackInvalidBody(t *testing.T) {
	r, store := setupRouter()
	if _, err := store.Create("s1", "prompt"); err != nil {
		t.Fatalf("Create err: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/session/s1/feedback", bytes.NewReader([]byte(`{`)))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
