package models

import "time"

// Tenant is an isolated customer organization. Every persisted record is
// scoped by tenant ID.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Keywords  []string  `json:"keywords"` // general keywords, merged with rule keywords at scan time
	CreatedAt time.Time `json:"created_at"`
}

// Source is a monitored procurement portal or agency page.
type Source struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	Type        string     `json:"type"` // "agency", "manual" or "other"
	Active      bool       `json:"active"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Source types.
const (
	SourceTypeAgency = "agency"
	SourceTypeManual = "manual"
	SourceTypeOther  = "other"
)

// MonitoringRule is a tenant-configured filter used to score candidates.
type MonitoringRule struct {
	ID           string   `json:"id"`
	TenantID     string   `json:"tenant_id"`
	Keywords     []string `json:"keywords"`
	AgencyFilter []string `json:"agency_filter"`
	MinValue     *float64 `json:"min_value,omitempty"`
	MaxValue     *float64 `json:"max_value,omitempty"`
	Active       bool     `json:"active"`
}

// Candidate is a transient, unscored listing produced by the extractor.
// It is never persisted directly.
type Candidate struct {
	Title         string     `json:"title"`
	Agency        string     `json:"agency,omitempty"`
	Description   string     `json:"description,omitempty"`
	Deadline      *time.Time `json:"deadline,omitempty"`
	ValueEstimate *float64   `json:"value_estimate,omitempty"`
}

// Opportunity is the persisted, scored record a user sees in the
// discovery feed.
type Opportunity struct {
	ID                   string     `json:"id"`
	TenantID             string     `json:"tenant_id"`
	Title                string     `json:"title"`
	Agency               string     `json:"agency,omitempty"`
	Description          string     `json:"description,omitempty"`
	SourceURL            string     `json:"source_url"`
	RelevanceScore       int        `json:"relevance_score"` // 0-100
	MatchReason          string     `json:"match_reason"`
	Deadline             *time.Time `json:"deadline,omitempty"`
	ValueEstimate        *float64   `json:"value_estimate,omitempty"`
	IsDismissed          bool       `json:"is_dismissed"`
	AddedToPipeline      bool       `json:"added_to_pipeline"`
	LinkedPipelineItemID *string    `json:"linked_pipeline_item_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// RunStats is a snapshot of the most recent discovery run.
type RunStats struct {
	TotalDiscovered int            `json:"total_discovered"`
	SourcesScanned  int            `json:"sources_scanned"`
	SourceErrors    int            `json:"source_errors"`
	LastRun         time.Time      `json:"last_run"`
	LastRunDuration string         `json:"last_run_duration"`
	TenantMetrics   map[string]int `json:"tenant_metrics"`
}
