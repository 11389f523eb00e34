package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/bidradar/rfp-discovery-bot/internal/models"
	"github.com/bidradar/rfp-discovery-bot/internal/storage"
)

// DiscoveryRunner triggers discovery runs. Implemented by the
// monitoring service; narrowed to an interface so handlers are testable
// without collaborators.
type DiscoveryRunner interface {
	RunDiscovery(ctx context.Context, sourceID string) (int, error)
	GetStats() string
}

// Store is the slice of the storage contract the handlers need.
type Store interface {
	ListSources(ctx context.Context, tenantID string) ([]models.Source, error)
	CreateSource(ctx context.Context, source *models.Source) error
	DeleteSource(ctx context.Context, id string) error
	SetSourceActive(ctx context.Context, id string, active bool) error
	ListRules(ctx context.Context, tenantID string) ([]models.MonitoringRule, error)
	CreateRule(ctx context.Context, rule *models.MonitoringRule) error
	ListOpportunities(ctx context.Context, tenantID string) ([]models.Opportunity, error)
	DismissOpportunity(ctx context.Context, id string) error
	PromoteOpportunity(ctx context.Context, id, pipelineItemID string) error
}

// Handler wires the HTTP surface: run triggers, stats and the CRUD
// endpoints for sources, rules and opportunities.
type Handler struct {
	runner DiscoveryRunner
	store  Store
}

// NewHandler creates an API handler.
func NewHandler(runner DiscoveryRunner, store Store) *Handler {
	return &Handler{runner: runner, store: store}
}

// Router builds the service's route table.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/stats", h.Stats).Methods("GET")
	router.HandleFunc("/trigger", h.Trigger).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sources", h.ListSources).Methods("GET")
	api.HandleFunc("/sources", h.CreateSource).Methods("POST")
	api.HandleFunc("/sources/{id}", h.DeleteSource).Methods("DELETE")
	api.HandleFunc("/sources/{id}/active", h.SetSourceActive).Methods("PATCH")
	api.HandleFunc("/rules", h.ListRules).Methods("GET")
	api.HandleFunc("/rules", h.CreateRule).Methods("POST")
	api.HandleFunc("/opportunities", h.ListOpportunities).Methods("GET")
	api.HandleFunc("/opportunities/{id}/dismiss", h.DismissOpportunity).Methods("POST")
	api.HandleFunc("/opportunities/{id}/promote", h.PromoteOpportunity).Methods("POST")

	return router
}

func jsonResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Stats returns the last run's stats as JSON.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.runner.GetStats()))
}

// Trigger starts a discovery run. An optional JSON body may name a
// single source; an absent or empty body scans all active sources. The
// run is synchronous and the response carries the inserted count.
func (h *Handler) Trigger(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceID string `json:"source_id"`
	}
	// A missing or empty body means "scan everything"
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	count, err := h.runner.RunDiscovery(r.Context(), body.SourceID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, err.Error())
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"success":    true,
		"discovered": count,
	})
}

// ListSources returns a tenant's registered sources.
func (h *Handler) ListSources(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		jsonError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	sources, err := h.store.ListSources(r.Context(), tenantID)
	if err != nil {
		logrus.Errorf("Failed to list sources for tenant %s: %v", tenantID, err)
		jsonError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}

	jsonResponse(w, http.StatusOK, sources)
}

// CreateSource registers a new monitored source for a tenant.
func (h *Handler) CreateSource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID string `json:"tenant_id"`
		Name     string `json:"name"`
		URL      string `json:"url"`
		Type     string `json:"type"`
		Active   *bool  `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.TenantID == "" || body.Name == "" || body.URL == "" {
		jsonError(w, http.StatusBadRequest, "tenant_id, name and url are required")
		return
	}

	switch body.Type {
	case "", models.SourceTypeAgency, models.SourceTypeManual, models.SourceTypeOther:
	default:
		jsonError(w, http.StatusBadRequest, "type must be 'agency', 'manual' or 'other'")
		return
	}

	active := true
	if body.Active != nil {
		active = *body.Active
	}

	source := &models.Source{
		TenantID: body.TenantID,
		Name:     body.Name,
		URL:      body.URL,
		Type:     body.Type,
		Active:   active,
	}

	if err := h.store.CreateSource(r.Context(), source); err != nil {
		logrus.Errorf("Failed to create source: %v", err)
		jsonError(w, http.StatusInternalServerError, "failed to create source")
		return
	}

	jsonResponse(w, http.StatusCreated, source)
}

// DeleteSource removes a monitored source.
func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteSource(r.Context(), id)
	if errors.Is(err, storage.ErrSourceNotFound) {
		jsonError(w, http.StatusNotFound, "source not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to delete source %s: %v", id, err)
		jsonError(w, http.StatusInternalServerError, "failed to delete source")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]bool{"deleted": true})
}

// SetSourceActive toggles a source's active flag.
func (h *Handler) SetSourceActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.store.SetSourceActive(r.Context(), id, body.Active)
	if errors.Is(err, storage.ErrSourceNotFound) {
		jsonError(w, http.StatusNotFound, "source not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to update source %s: %v", id, err)
		jsonError(w, http.StatusInternalServerError, "failed to update source")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]bool{"active": body.Active})
}

// ListRules returns a tenant's monitoring rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		jsonError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	rules, err := h.store.ListRules(r.Context(), tenantID)
	if err != nil {
		logrus.Errorf("Failed to list rules for tenant %s: %v", tenantID, err)
		jsonError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}

	jsonResponse(w, http.StatusOK, rules)
}

// CreateRule adds a monitoring rule for a tenant.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID     string   `json:"tenant_id"`
		Keywords     []string `json:"keywords"`
		AgencyFilter []string `json:"agency_filter"`
		MinValue     *float64 `json:"min_value"`
		MaxValue     *float64 `json:"max_value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if body.TenantID == "" || len(body.Keywords) == 0 {
		jsonError(w, http.StatusBadRequest, "tenant_id and keywords are required")
		return
	}

	rule := &models.MonitoringRule{
		TenantID:     body.TenantID,
		Keywords:     body.Keywords,
		AgencyFilter: body.AgencyFilter,
		MinValue:     body.MinValue,
		MaxValue:     body.MaxValue,
		Active:       true,
	}

	if err := h.store.CreateRule(r.Context(), rule); err != nil {
		logrus.Errorf("Failed to create rule: %v", err)
		jsonError(w, http.StatusInternalServerError, "failed to create rule")
		return
	}

	jsonResponse(w, http.StatusCreated, rule)
}

// ListOpportunities returns a tenant's discovery feed, highest
// relevance first.
func (h *Handler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	if tenantID == "" {
		jsonError(w, http.StatusBadRequest, "tenant_id is required")
		return
	}

	opportunities, err := h.store.ListOpportunities(r.Context(), tenantID)
	if err != nil {
		logrus.Errorf("Failed to list opportunities for tenant %s: %v", tenantID, err)
		jsonError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}

	jsonResponse(w, http.StatusOK, opportunities)
}

// DismissOpportunity hides an opportunity from the discovery feed.
func (h *Handler) DismissOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	err := h.store.DismissOpportunity(r.Context(), id)
	if errors.Is(err, storage.ErrOpportunityNotFound) {
		jsonError(w, http.StatusNotFound, "opportunity not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to dismiss opportunity %s: %v", id, err)
		jsonError(w, http.StatusInternalServerError, "failed to dismiss opportunity")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]bool{"dismissed": true})
}

// PromoteOpportunity marks an opportunity as added to the proposal
// pipeline, linking the pipeline item it became.
func (h *Handler) PromoteOpportunity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		PipelineItemID string `json:"pipeline_item_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.PipelineItemID == "" {
		jsonError(w, http.StatusBadRequest, "pipeline_item_id is required")
		return
	}

	err := h.store.PromoteOpportunity(r.Context(), id, body.PipelineItemID)
	if errors.Is(err, storage.ErrOpportunityNotFound) {
		jsonError(w, http.StatusNotFound, "opportunity not found")
		return
	}
	if err != nil {
		logrus.Errorf("Failed to promote opportunity %s: %v", id, err)
		jsonError(w, http.StatusInternalServerError, "failed to promote opportunity")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]bool{"added_to_pipeline": true})
}

// pathID extracts and validates the {id} path variable.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid id")
		return "", false
	}
	return id, true
}
