package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bidradar/rfp-discovery-bot/internal/models"
)

// Domain-level storage error sentinels.
var (
	ErrSourceNotFound       = errors.New("source not found")
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrOpportunityNotFound  = errors.New("opportunity not found")
	ErrDuplicateOpportunity = errors.New("opportunity already recorded for this tenant and title")
)

// Store defines the persistence contract for the discovery pipeline and
// the management API. All reads and writes are scoped by tenant ID.
type Store interface {
	// Sources
	ListActiveSources(ctx context.Context) ([]models.Source, error)
	ListSources(ctx context.Context, tenantID string) ([]models.Source, error)
	GetSource(ctx context.Context, id string) (*models.Source, error)
	CreateSource(ctx context.Context, source *models.Source) error
	DeleteSource(ctx context.Context, id string) error
	SetSourceActive(ctx context.Context, id string, active bool) error
	StampSourceChecked(ctx context.Context, id string, checkedAt time.Time) error

	// Monitoring rules and tenant keywords
	ListActiveRules(ctx context.Context, tenantID string) ([]models.MonitoringRule, error)
	ListRules(ctx context.Context, tenantID string) ([]models.MonitoringRule, error)
	CreateRule(ctx context.Context, rule *models.MonitoringRule) error
	GetTenantKeywords(ctx context.Context, tenantID string) ([]string, error)

	// Opportunities
	InsertOpportunity(ctx context.Context, opp *models.Opportunity) error
	OpportunityExists(ctx context.Context, tenantID, title string) (bool, error)
	ListOpportunities(ctx context.Context, tenantID string) ([]models.Opportunity, error)
	DismissOpportunity(ctx context.Context, id string) error
	PromoteOpportunity(ctx context.Context, id, pipelineItemID string) error
}
