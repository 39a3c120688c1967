package handler

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	feedbackService "github.com/zhouzirui/feedback-collector/backend/internal/service/feedback"
	"github.com/zhouzirui/feedback-collector/backend/internal/service/push"
)

func newDeps(t *testing.T) Dependencies {
	t.Helper()
	store := feedbackService.NewStore()
	registry := push.NewRegistry()
	return Dependencies{
		Store:    store,
		Registry: registry,
		Manager:  feedbackService.NewManager(store, registry, feedbackService.Config{}),
		Inbound:  feedbackService.NewRouter(store, registry),
	}
}

func TestRouterServesAPIAndHealth(t *testing.T) {
	deps := newDeps(t)
	if _, err := deps.Store.Create("s1", "prompt"); err != nil {
		t.Fatalf("Create err: %v", err)
	}
	r := NewRouter(deps)

	for path, want := range map[string]int{
		"/health":          http.StatusOK,
		"/api/session/s1":  http.StatusOK,
		"/api/session/nah": http.StatusNotFound,
		"/mcp":             http.StatusNotFound,
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, resp.Code)
		}
	}
}

func TestRouterMountsMCPHandler(t *testing.T) {
	deps := newDeps(t)
	deps.MCP = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected MCP handler, got %d", resp.Code)
	}
}

func TestRouterServesStaticUI(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "feedback_ui.html"), []byte("<html>ui</html>"), 0o644); err != nil {
		t.Fatalf("write err: %v", err)
	}

	deps := newDeps(t)
	deps.StaticDir = dir
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/feedback_ui.html?session=s1", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if resp.Body.String() != "<html>ui</html>" {
		t.Fatalf("unexpected body: %q", resp.Body.String())
	}
}
