package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/chingu-voyages/member-demographics/pkg/config"
	"github.com/chingu-voyages/member-demographics/pkg/metrics"
)

// ServiceName is reported by /ping.
const ServiceName = "member-demographics"

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthHandler handles health check, ping and metrics endpoints.
type HealthHandler struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. m may be nil, in which case
// /metrics answers 503.
func NewHealthHandler(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, metrics: m, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
	mux.HandleFunc("GET /metrics", h.Metrics)
}

// Health handles GET /health requests with a plain "ok" for liveness probes.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns detailed service information including version and environment.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     ServiceName,
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

// Metrics handles GET /metrics in the Prometheus exposition format.
func (h *HealthHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		if err := ErrorResponse(w, http.StatusServiceUnavailable, "metrics_disabled", "Metrics are not enabled"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}
	h.metrics.Handler().ServeHTTP(w, r)
}
