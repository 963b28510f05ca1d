package mcphttp

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/unity-tools/unity-mcp/internal/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the operational HTTP surface: health and readiness probes,
// a read-only tool catalog listing, and Prometheus metrics. It runs on a
// separate listener from the MCP transport.
type Handler struct {
	repository usecase.ToolRepository
	registry   *prometheus.Registry
	logger     *slog.Logger
	ready      atomic.Bool
}

func NewHandler(repository usecase.ToolRepository, registry *prometheus.Registry, logger *slog.Logger) *Handler {
	return &Handler{
		repository: repository,
		registry:   registry,
		logger:     logger.With("component", "mcphttp.Handler"),
	}
}

// SetReady marks the server as ready to serve tool calls. Called once after
// tool registration completes.
func (h *Handler) SetReady() {
	h.ready.Store(true)
}

// Routes returns the admin mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/ready", h.handleReady)
	mux.HandleFunc("/live", h.handleLive)
	mux.HandleFunc("/tools", h.handleTools)
	mux.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
	return mux
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "starting"
	if h.ready.Load() {
		status = "ok"
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleTools lists the registered catalog: names and descriptions only,
// since full input schemas are the MCP transport's concern.
func (h *Handler) handleTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.repository.List(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	type entry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	entries := make([]entry, 0, len(tools))
	for _, t := range tools {
		entries = append(entries, entry{Name: t.Name, Description: t.Description})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(entries),
		"tools": entries,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("Failed to write response.", slog.Any("error", err))
	}
}
