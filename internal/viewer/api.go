package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/neumerance/kerberos-swarm/internal/config"
	"github.com/neumerance/kerberos-swarm/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// OperationLister is the read side of the history store.
type OperationLister interface {
	List(ctx context.Context, limit int) ([]*models.Operation, error)
}

type API struct {
	cfg      *config.Config
	checker  *StatusChecker
	history  OperationLister
	gatherer prometheus.Gatherer
	logger   zerolog.Logger
}

// NewAPI wires the HTTP handlers. history may be nil when no store is configured.
func NewAPI(cfg *config.Config, checker *StatusChecker, history OperationLister, gatherer prometheus.Gatherer, logger zerolog.Logger) *API {
	return &API{
		cfg:      cfg,
		checker:  checker,
		history:  history,
		gatherer: gatherer,
		logger:   logger,
	}
}

func (api *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(api.cors)

	r.Get("/api/config", api.handleConfig)
	r.Get("/api/health", api.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/cameras", api.handleCameras)
		r.Get("/cameras/{name}", api.handleCamera)
		r.Get("/operations", api.handleOperations)
	})

	r.Handle("/metrics", promhttp.HandlerFor(api.gatherer, promhttp.HandlerOpts{}))

	return r
}

func (api *API) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := api.cfg.Viewer.CORSOrigin; origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (api *API) handleConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, api.cfg.Redacted())
}

func (api *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (api *API) handleCameras(w http.ResponseWriter, r *http.Request) {
	statuses := api.checker.All()

	live := 0
	for _, s := range statuses {
		if s.Status == models.AgentLive {
			live++
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"cameras": statuses,
		"count":   len(statuses),
		"live":    live,
	})
}

func (api *API) handleCamera(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, ok := api.checker.Status(name)
	if !ok {
		respondError(w, http.StatusNotFound, "camera not found")
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (api *API) handleOperations(w http.ResponseWriter, r *http.Request) {
	if api.history == nil {
		respondError(w, http.StatusServiceUnavailable, "operation history is disabled")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = l
	}

	ops, err := api.history.List(r.Context(), limit)
	if err != nil {
		api.logger.Error().Err(err).Msg("list operations")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"operations": ops,
		"count":      len(ops),
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
