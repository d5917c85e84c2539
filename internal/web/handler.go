package web

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/yuduki/chartkeeper/internal/ledger"
	"github.com/yuduki/chartkeeper/internal/registry"
	"github.com/yuduki/chartkeeper/internal/runlog"
)

//go:embed templates/*
var templatesFS embed.FS

// Handler serves the operator status pages: reconciliation pass history and
// the current alias registry. Read-only; all business logic lives elsewhere.
type Handler struct {
	passes    *runlog.Store
	registry  *registry.Registry
	ledger    *ledger.Ledger
	templates *template.Template
}

// NewHandler creates a new status page handler
func NewHandler(passes *runlog.Store, reg *registry.Registry, led *ledger.Ledger) (*Handler, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"statusColor":   statusColor,
		"logLevelColor": logLevelColor,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	return &Handler{
		passes:    passes,
		registry:  reg,
		ledger:    led,
		templates: tmpl,
	}, nil
}

// RegisterRoutes registers the status page routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/passes", h.PassList).Methods("GET")
	r.HandleFunc("/passes/{id}", h.PassDetail).Methods("GET")
	r.HandleFunc("/charters", h.CharterList).Methods("GET")
}

// PassList renders the reconciliation pass history
func (h *Handler) PassList(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Passes     []*runlog.Pass
		LedgerSize int
	}{
		Passes:     h.passes.List(),
		LedgerSize: h.ledger.Len(),
	}

	if err := h.templates.ExecuteTemplate(w, "pass_list.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// PassDetail renders one pass with its log
func (h *Handler) PassDetail(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	pass, ok := h.passes.Get(vars["id"])
	if !ok {
		http.Error(w, "Pass not found", http.StatusNotFound)
		return
	}

	data := struct {
		Pass *runlog.Pass
	}{
		Pass: pass,
	}

	if err := h.templates.ExecuteTemplate(w, "pass_detail.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// CharterList renders the alias registry
func (h *Handler) CharterList(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Aliases map[string][]int64
	}{
		Aliases: h.registry.All(),
	}

	if err := h.templates.ExecuteTemplate(w, "charters.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Helper functions for templates
func statusColor(status runlog.PassStatus) string {
	switch status {
	case runlog.StatusRunning:
		return "#0d6efd"
	case runlog.StatusCompleted:
		return "#198754"
	case runlog.StatusFailed:
		return "#dc3545"
	default:
		return "#6c757d"
	}
}

func logLevelColor(level string) string {
	switch strings.ToLower(level) {
	case "error":
		return "#dc3545"
	case "success":
		return "#198754"
	case "info":
		return "#0d6efd"
	default:
		return "#6c757d"
	}
}
