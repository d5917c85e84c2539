package web

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/yuduki/chartkeeper/internal/ledger"
	"github.com/yuduki/chartkeeper/internal/registry"
	"github.com/yuduki/chartkeeper/internal/runlog"
)

func newTestHandler(t *testing.T) (*Handler, *runlog.Store, *registry.Registry) {
	t.Helper()
	dir := t.TempDir()
	passes := runlog.NewStore()
	reg := registry.Load(filepath.Join(dir, "charters.json"))
	led := ledger.Load(filepath.Join(dir, "sent.json"))

	handler, err := NewHandler(passes, reg, led)
	if err != nil {
		t.Fatalf("NewHandler failed: %v", err)
	}
	return handler, passes, reg
}

func TestHandler_PassList(t *testing.T) {
	handler, passes, _ := newTestHandler(t)

	passes.Begin("pass-20260830-120000")
	passes.Finish("pass-20260830-120000", runlog.StatusCompleted, 12, 1, 2)

	req := httptest.NewRequest("GET", "/passes", nil)
	w := httptest.NewRecorder()

	handler.PassList(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "pass-20260830-120000") {
		t.Error("pass list should mention the recorded pass")
	}
}

func TestHandler_PassDetail(t *testing.T) {
	handler, passes, _ := newTestHandler(t)

	passes.Begin("pass-1")
	passes.AddLog("pass-1", "success", "DM sent to 111")
	passes.Finish("pass-1", runlog.StatusCompleted, 3, 1, 1)

	req := httptest.NewRequest("GET", "/passes/pass-1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "pass-1"})
	w := httptest.NewRecorder()

	handler.PassDetail(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "DM sent to 111") {
		t.Error("pass detail should include the log entry")
	}
}

func TestHandler_PassDetail_NotFound(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest("GET", "/passes/ghost", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "ghost"})
	w := httptest.NewRecorder()

	handler.PassDetail(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestHandler_CharterList(t *testing.T) {
	handler, _, reg := newTestHandler(t)
	reg.Add("veal", 111)

	req := httptest.NewRequest("GET", "/charters", nil)
	w := httptest.NewRecorder()

	handler.CharterList(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "veal") || !strings.Contains(body, "111") {
		t.Error("charter list should show the alias and its user")
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	handler, passes, _ := newTestHandler(t)
	passes.Begin("pass-1")

	r := mux.NewRouter()
	handler.RegisterRoutes(r)

	req := httptest.NewRequest("GET", "/passes/pass-1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 via router, got %d", w.Code)
	}
}
