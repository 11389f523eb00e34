package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bidradar/rfp-discovery-bot/internal/models"
	"github.com/bidradar/rfp-discovery-bot/internal/storage"
)

// MockRunner is a mock implementation of the discovery runner
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) RunDiscovery(ctx context.Context, sourceID string) (int, error) {
	args := m.Called(ctx, sourceID)
	return args.Int(0), args.Error(1)
}

func (m *MockRunner) GetStats() string {
	args := m.Called()
	return args.String(0)
}

// MockAPIStore is a mock implementation of the handler store
type MockAPIStore struct {
	mock.Mock
}

func (m *MockAPIStore) ListSources(ctx context.Context, tenantID string) ([]models.Source, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]models.Source), args.Error(1)
}

func (m *MockAPIStore) CreateSource(ctx context.Context, source *models.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}

func (m *MockAPIStore) DeleteSource(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIStore) SetSourceActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *MockAPIStore) ListRules(ctx context.Context, tenantID string) ([]models.MonitoringRule, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]models.MonitoringRule), args.Error(1)
}

func (m *MockAPIStore) CreateRule(ctx context.Context, rule *models.MonitoringRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockAPIStore) ListOpportunities(ctx context.Context, tenantID string) ([]models.Opportunity, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]models.Opportunity), args.Error(1)
}

func (m *MockAPIStore) DismissOpportunity(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIStore) PromoteOpportunity(ctx context.Context, id, pipelineItemID string) error {
	args := m.Called(ctx, id, pipelineItemID)
	return args.Error(0)
}

func TestTrigger_AllSources(t *testing.T) {
	runner := &MockRunner{}
	runner.On("RunDiscovery", mock.Anything, "").Return(7, nil)

	handler := NewHandler(runner, &MockAPIStore{})

	req := httptest.NewRequest("POST", "/trigger", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "discovered": 7}`, rec.Body.String())
}

func TestTrigger_SingleSource(t *testing.T) {
	runner := &MockRunner{}
	runner.On("RunDiscovery", mock.Anything, "11111111-2222-3333-4444-555555555555").Return(2, nil)

	handler := NewHandler(runner, &MockAPIStore{})

	req := httptest.NewRequest("POST", "/trigger",
		strings.NewReader(`{"source_id": "11111111-2222-3333-4444-555555555555"}`))
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true, "discovered": 2}`, rec.Body.String())
}

func TestTrigger_FatalPrecondition(t *testing.T) {
	runner := &MockRunner{}
	runner.On("RunDiscovery", mock.Anything, "").
		Return(0, errors.New("AI gateway credential is not configured (AI_GATEWAY_API_KEY)"))

	handler := NewHandler(runner, &MockAPIStore{})

	req := httptest.NewRequest("POST", "/trigger", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "AI_GATEWAY_API_KEY")
}

func TestTrigger_MalformedBody(t *testing.T) {
	runner := &MockRunner{}

	handler := NewHandler(runner, &MockAPIStore{})

	req := httptest.NewRequest("POST", "/trigger", strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	runner.AssertNotCalled(t, "RunDiscovery", mock.Anything, mock.Anything)
}

func TestCreateSource(t *testing.T) {
	store := &MockAPIStore{}
	store.On("CreateSource", mock.Anything, mock.MatchedBy(func(s *models.Source) bool {
		return s.TenantID == "t1" && s.URL == "https://procurement.example.gov" && s.Active
	})).Return(nil)

	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("POST", "/api/sources", strings.NewReader(
		`{"tenant_id": "t1", "name": "Springfield", "url": "https://procurement.example.gov", "type": "agency"}`))
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	store.AssertExpectations(t)
}

func TestListSources(t *testing.T) {
	now := time.Now()
	store := &MockAPIStore{}
	store.On("ListSources", mock.Anything, "t1").Return([]models.Source{
		{ID: "s1", TenantID: "t1", Name: "Springfield", URL: "https://procurement.example.gov", Active: true, CreatedAt: now},
		{ID: "s2", TenantID: "t1", Name: "Shelbyville", URL: "https://bids.example.gov", Active: false, CreatedAt: now},
	}, nil)

	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("GET", "/api/sources?tenant_id=t1", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Springfield")
	assert.Contains(t, rec.Body.String(), "Shelbyville")
}

func TestListSources_MissingTenant(t *testing.T) {
	store := &MockAPIStore{}
	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("GET", "/api/sources", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNotCalled(t, "ListSources", mock.Anything, mock.Anything)
}

func TestListRules(t *testing.T) {
	store := &MockAPIStore{}
	store.On("ListRules", mock.Anything, "t1").Return([]models.MonitoringRule{
		{ID: "r1", TenantID: "t1", Keywords: []string{"paving", "roadwork"}, Active: true},
	}, nil)

	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("GET", "/api/rules?tenant_id=t1", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "roadwork")
}

func TestListRules_MissingTenant(t *testing.T) {
	handler := NewHandler(&MockRunner{}, &MockAPIStore{})

	req := httptest.NewRequest("GET", "/api/rules", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSource_Validation(t *testing.T) {
	store := &MockAPIStore{}
	handler := NewHandler(&MockRunner{}, store)

	tests := []struct {
		name string
		body string
	}{
		{"Missing url", `{"tenant_id": "t1", "name": "Springfield"}`},
		{"Bad type", `{"tenant_id": "t1", "name": "x", "url": "https://x", "type": "rss"}`},
		{"Malformed body", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/sources", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.Router().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	store.AssertNotCalled(t, "CreateSource", mock.Anything, mock.Anything)
}

func TestDismissOpportunity(t *testing.T) {
	id := "11111111-2222-3333-4444-555555555555"

	store := &MockAPIStore{}
	store.On("DismissOpportunity", mock.Anything, id).Return(nil)

	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("POST", "/api/opportunities/"+id+"/dismiss", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDismissOpportunity_NotFound(t *testing.T) {
	id := "11111111-2222-3333-4444-555555555555"

	store := &MockAPIStore{}
	store.On("DismissOpportunity", mock.Anything, id).Return(storage.ErrOpportunityNotFound)

	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("POST", "/api/opportunities/"+id+"/dismiss", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDismissOpportunity_InvalidID(t *testing.T) {
	store := &MockAPIStore{}
	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("POST", "/api/opportunities/not-a-uuid/dismiss", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	store.AssertNotCalled(t, "DismissOpportunity", mock.Anything, mock.Anything)
}

func TestPromoteOpportunity(t *testing.T) {
	id := "11111111-2222-3333-4444-555555555555"

	store := &MockAPIStore{}
	store.On("PromoteOpportunity", mock.Anything, id, "p1").Return(nil)

	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("POST", "/api/opportunities/"+id+"/promote",
		strings.NewReader(`{"pipeline_item_id": "p1"}`))
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListOpportunities(t *testing.T) {
	now := time.Now()
	store := &MockAPIStore{}
	store.On("ListOpportunities", mock.Anything, "t1").Return([]models.Opportunity{
		{ID: "o1", TenantID: "t1", Title: "Roof Replacement", RelevanceScore: 60, CreatedAt: now},
	}, nil)

	handler := NewHandler(&MockRunner{}, store)

	req := httptest.NewRequest("GET", "/api/opportunities?tenant_id=t1", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Roof Replacement")
}

func TestListOpportunities_MissingTenant(t *testing.T) {
	handler := NewHandler(&MockRunner{}, &MockAPIStore{})

	req := httptest.NewRequest("GET", "/api/opportunities", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	handler := NewHandler(&MockRunner{}, &MockAPIStore{})

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestStats(t *testing.T) {
	runner := &MockRunner{}
	runner.On("GetStats").Return(`{"total_discovered": 3}`)

	handler := NewHandler(runner, &MockAPIStore{})

	req := httptest.NewRequest("GET", "/stats", nil)
	rec := httptest.NewRecorder()
	handler.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"total_discovered": 3}`, rec.Body.String())
}
