package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bidradar/rfp-discovery-bot/internal/models"
	"github.com/bidradar/rfp-discovery-bot/migrations"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// PostgresStore persists sources, rules and opportunities in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a connection pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// RunMigrations applies all embedded SQL migrations.
func (s *PostgresStore) RunMigrations(connString string) error {
	sourceDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, connString)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

const sourceColumns = `id, tenant_id, name, url, type, active, last_checked, created_at`

func scanSource(row pgx.Row) (*models.Source, error) {
	var src models.Source
	err := row.Scan(
		&src.ID,
		&src.TenantID,
		&src.Name,
		&src.URL,
		&src.Type,
		&src.Active,
		&src.LastChecked,
		&src.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

func collectSources(rows pgx.Rows) ([]models.Source, error) {
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var src models.Source
		if err := rows.Scan(
			&src.ID,
			&src.TenantID,
			&src.Name,
			&src.URL,
			&src.Type,
			&src.Active,
			&src.LastChecked,
			&src.CreatedAt,
		); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return sources, rows.Err()
}

// ListActiveSources returns every active source across all tenants.
func (s *PostgresStore) ListActiveSources(ctx context.Context) ([]models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE active ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	return collectSources(rows)
}

// ListSources returns every source registered by a tenant, active or not.
func (s *PostgresStore) ListSources(ctx context.Context, tenantID string) ([]models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE tenant_id = $1 ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}

	return collectSources(rows)
}

// GetSource returns one source by ID.
func (s *PostgresStore) GetSource(ctx context.Context, id string) (*models.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`
	return scanSource(s.pool.QueryRow(ctx, query, id))
}

// CreateSource inserts a new source and fills in generated fields.
func (s *PostgresStore) CreateSource(ctx context.Context, source *models.Source) error {
	query := `
		INSERT INTO sources (tenant_id, name, url, type, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	sourceType := source.Type
	if sourceType == "" {
		sourceType = models.SourceTypeOther
	}

	return s.pool.QueryRow(ctx, query,
		source.TenantID,
		source.Name,
		source.URL,
		sourceType,
		source.Active,
	).Scan(&source.ID, &source.CreatedAt)
}

// DeleteSource removes a source.
func (s *PostgresStore) DeleteSource(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sources WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// SetSourceActive toggles a source's active flag.
func (s *PostgresStore) SetSourceActive(ctx context.Context, id string, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sources SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// StampSourceChecked records when a source was last scanned.
func (s *PostgresStore) StampSourceChecked(ctx context.Context, id string, checkedAt time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE sources SET last_checked = $2 WHERE id = $1`, id, checkedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSourceNotFound
	}
	return nil
}

const ruleColumns = `id, tenant_id, keywords, agency_filter, min_value, max_value, active`

func collectRules(rows pgx.Rows) ([]models.MonitoringRule, error) {
	defer rows.Close()

	var rules []models.MonitoringRule
	for rows.Next() {
		var rule models.MonitoringRule
		if err := rows.Scan(
			&rule.ID,
			&rule.TenantID,
			&rule.Keywords,
			&rule.AgencyFilter,
			&rule.MinValue,
			&rule.MaxValue,
			&rule.Active,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// ListActiveRules returns a tenant's active monitoring rules.
func (s *PostgresStore) ListActiveRules(ctx context.Context, tenantID string) ([]models.MonitoringRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM monitoring_rules WHERE tenant_id = $1 AND active`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}

	return collectRules(rows)
}

// ListRules returns every monitoring rule a tenant has configured,
// including inactive ones.
func (s *PostgresStore) ListRules(ctx context.Context, tenantID string) ([]models.MonitoringRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM monitoring_rules WHERE tenant_id = $1`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}

	return collectRules(rows)
}

// CreateRule inserts a new monitoring rule.
func (s *PostgresStore) CreateRule(ctx context.Context, rule *models.MonitoringRule) error {
	query := `
		INSERT INTO monitoring_rules (tenant_id, keywords, agency_filter, min_value, max_value, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	return s.pool.QueryRow(ctx, query,
		rule.TenantID,
		rule.Keywords,
		rule.AgencyFilter,
		rule.MinValue,
		rule.MaxValue,
		rule.Active,
	).Scan(&rule.ID)
}

// GetTenantKeywords returns a tenant's general keyword list.
func (s *PostgresStore) GetTenantKeywords(ctx context.Context, tenantID string) ([]string, error) {
	var keywords []string
	err := s.pool.QueryRow(ctx, `SELECT keywords FROM tenants WHERE id = $1`, tenantID).Scan(&keywords)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, err
	}
	return keywords, nil
}

// InsertOpportunity persists a scored candidate. A unique index on
// (tenant_id, title) backstops the orchestrator's dedupe check; a
// constraint hit is returned as ErrDuplicateOpportunity.
func (s *PostgresStore) InsertOpportunity(ctx context.Context, opp *models.Opportunity) error {
	query := `
		INSERT INTO opportunities
			(tenant_id, title, agency, description, source_url, relevance_score,
			 match_reason, deadline, value_estimate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query,
		opp.TenantID,
		opp.Title,
		opp.Agency,
		opp.Description,
		opp.SourceURL,
		opp.RelevanceScore,
		opp.MatchReason,
		opp.Deadline,
		opp.ValueEstimate,
	).Scan(&opp.ID, &opp.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateOpportunity
		}
		return err
	}

	return nil
}

// OpportunityExists reports whether an opportunity is already recorded
// for this tenant under the exact same title.
func (s *PostgresStore) OpportunityExists(ctx context.Context, tenantID, title string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM opportunities WHERE tenant_id = $1 AND title = $2)`,
		tenantID, title).Scan(&exists)
	return exists, err
}

// ListOpportunities returns a tenant's discovered opportunities, highest
// relevance first.
func (s *PostgresStore) ListOpportunities(ctx context.Context, tenantID string) ([]models.Opportunity, error) {
	query := `
		SELECT id, tenant_id, title, agency, description, source_url, relevance_score,
		       match_reason, deadline, value_estimate, is_dismissed, added_to_pipeline,
		       linked_pipeline_item_id, created_at
		FROM opportunities
		WHERE tenant_id = $1
		ORDER BY relevance_score DESC, created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opportunities []models.Opportunity
	for rows.Next() {
		var opp models.Opportunity
		if err := rows.Scan(
			&opp.ID,
			&opp.TenantID,
			&opp.Title,
			&opp.Agency,
			&opp.Description,
			&opp.SourceURL,
			&opp.RelevanceScore,
			&opp.MatchReason,
			&opp.Deadline,
			&opp.ValueEstimate,
			&opp.IsDismissed,
			&opp.AddedToPipeline,
			&opp.LinkedPipelineItemID,
			&opp.CreatedAt,
		); err != nil {
			return nil, err
		}
		opportunities = append(opportunities, opp)
	}

	return opportunities, rows.Err()
}

// DismissOpportunity hides an opportunity from the discovery feed.
func (s *PostgresStore) DismissOpportunity(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE opportunities SET is_dismissed = TRUE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOpportunityNotFound
	}
	return nil
}

// PromoteOpportunity marks an opportunity as added to the proposal
// pipeline and links the created pipeline item.
func (s *PostgresStore) PromoteOpportunity(ctx context.Context, id, pipelineItemID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET added_to_pipeline = TRUE, linked_pipeline_item_id = $2 WHERE id = $1`,
		id, pipelineItemID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOpportunityNotFound
	}
	return nil
}
