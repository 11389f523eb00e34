package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bidradar/rfp-discovery-bot/internal/archive"
	"github.com/bidradar/rfp-discovery-bot/internal/config"
	"github.com/bidradar/rfp-discovery-bot/internal/extractor"
	"github.com/bidradar/rfp-discovery-bot/internal/fetcher"
	"github.com/bidradar/rfp-discovery-bot/internal/metrics"
	"github.com/bidradar/rfp-discovery-bot/internal/models"
	"github.com/bidradar/rfp-discovery-bot/internal/notifications"
	"github.com/bidradar/rfp-discovery-bot/internal/scoring"
	"github.com/bidradar/rfp-discovery-bot/internal/storage"
)

// runTimeout bounds one full discovery run.
const runTimeout = 30 * time.Minute

// Service drives discovery runs: fetch each active source, extract
// candidate listings, score and deduplicate them, persist the survivors
// and stamp the source as checked. Sources are processed sequentially
// and independently; one source's failure never stops the others.
type Service struct {
	config    *config.Config
	store     storage.Store
	fetcher   fetcher.PageFetcher
	extractor extractor.ListingExtractor
	scorer    *scoring.Scorer
	archiver  archive.Archiver       // optional, best-effort
	notifier  notifications.Notifier // optional
	stats     models.RunStats
	mu        sync.RWMutex
}

// NewService creates a discovery service. The archiver and notifier are
// optional and may be nil.
func NewService(cfg *config.Config, store storage.Store, pageFetcher fetcher.PageFetcher,
	listingExtractor extractor.ListingExtractor, archiver archive.Archiver,
	notifier notifications.Notifier) *Service {
	return &Service{
		config:    cfg,
		store:     store,
		fetcher:   pageFetcher,
		extractor: listingExtractor,
		scorer:    scoring.NewScorer(cfg.ScoreIncrement),
		archiver:  archiver,
		notifier:  notifier,
		stats: models.RunStats{
			TenantMetrics: make(map[string]int),
		},
	}
}

// RunDiscovery performs one discovery run. With an empty sourceID it
// scans every active source across all tenants; otherwise only the
// named source. It returns the number of opportunities inserted.
//
// A missing external credential is fatal and reported before any source
// is touched. All other failures are source-scoped: logged, skipped and
// absent from the returned count.
func (s *Service) RunDiscovery(ctx context.Context, sourceID string) (int, error) {
	start := time.Now()

	if !s.config.HasFetchCredentials() {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("page fetcher credential is not configured (FIRECRAWL_API_KEY)")
	}
	if !s.config.HasExtractionCredentials() {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return 0, fmt.Errorf("AI gateway credential is not configured (AI_GATEWAY_API_KEY)")
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	sources, err := s.resolveSources(ctx, sourceID)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("failed").Inc()
		return 0, err
	}

	logrus.Infof("Starting discovery run over %d source(s)", len(sources))

	var discovered []models.Opportunity
	errorCount := 0

	for _, src := range sources {
		inserted, err := s.processSource(ctx, src)
		// Opportunities inserted before a mid-source failure still count.
		discovered = append(discovered, inserted...)
		if err != nil {
			logrus.Errorf("Error processing source %s (%s): %v", src.Name, src.URL, err)
			metrics.SourceErrors.Inc()
			errorCount++
			continue
		}
		logrus.Infof("Source %s yielded %d new opportunities", src.Name, len(inserted))
	}

	s.updateStats(discovered, len(sources), errorCount, time.Since(start))
	metrics.RunsTotal.WithLabelValues("completed").Inc()
	metrics.OpportunitiesDiscovered.Add(float64(len(discovered)))
	metrics.RunDuration.Observe(time.Since(start).Seconds())

	if s.notifier != nil && len(discovered) > 0 {
		if err := s.notifier.SendDigest(discovered); err != nil {
			logrus.Errorf("Failed to send discovery digest: %v", err)
		}
	}

	logrus.Infof("Discovery run completed in %v: %d discovered, %d source errors",
		time.Since(start), len(discovered), errorCount)
	return len(discovered), nil
}

// resolveSources returns the sources to scan. An explicitly named source
// that does not exist or is inactive resolves to an empty scan, matching
// the behavior of scanning zero active sources.
func (s *Service) resolveSources(ctx context.Context, sourceID string) ([]models.Source, error) {
	if sourceID == "" {
		sources, err := s.store.ListActiveSources(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active sources: %w", err)
		}
		return sources, nil
	}

	src, err := s.store.GetSource(ctx, sourceID)
	if errors.Is(err, storage.ErrSourceNotFound) {
		logrus.Warnf("Requested source %s not found", sourceID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load source %s: %w", sourceID, err)
	}
	if !src.Active {
		logrus.Infof("Requested source %s is inactive, skipping", sourceID)
		return nil, nil
	}

	return []models.Source{*src}, nil
}

// processSource runs the fetch-extract-score-persist sequence for one
// source. On success the source's last_checked timestamp is stamped,
// even when zero candidates were found. On failure no stamp is written.
func (s *Service) processSource(ctx context.Context, src models.Source) ([]models.Opportunity, error) {
	keywords, err := s.tenantKeywords(ctx, src.TenantID)
	if err != nil {
		return nil, err
	}

	content, err := s.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}
	if content == "" {
		return nil, fmt.Errorf("fetch returned empty content")
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveSnapshot(ctx, src.ID, content); err != nil {
			logrus.Warnf("Failed to archive snapshot for source %s: %v", src.ID, err)
		}
	}

	candidates, err := s.extractor.Extract(ctx, content, keywords)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	var inserted []models.Opportunity
	for _, candidate := range candidates {
		opp, ok, err := s.recordCandidate(ctx, src, candidate, keywords)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted = append(inserted, *opp)
		}
	}

	if err := s.store.StampSourceChecked(ctx, src.ID, time.Now()); err != nil {
		return inserted, fmt.Errorf("failed to stamp source as checked: %w", err)
	}

	return inserted, nil
}

// tenantKeywords merges the keywords of a tenant's active monitoring
// rules with its general keyword list, rule keywords first.
func (s *Service) tenantKeywords(ctx context.Context, tenantID string) ([]string, error) {
	rules, err := s.store.ListActiveRules(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load monitoring rules: %w", err)
	}

	var ruleKeywords []string
	for _, rule := range rules {
		ruleKeywords = append(ruleKeywords, rule.Keywords...)
	}

	general, err := s.store.GetTenantKeywords(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant keywords: %w", err)
	}

	return scoring.MergeKeywords(ruleKeywords, general), nil
}

// recordCandidate scores one candidate and inserts it unless it is a
// duplicate. Duplicates are skipped silently, whether detected by the
// pre-insert check or by the storage layer's unique constraint.
func (s *Service) recordCandidate(ctx context.Context, src models.Source,
	candidate models.Candidate, keywords []string) (*models.Opportunity, bool, error) {

	score, matched := s.scorer.Score(scoring.SearchableText(candidate), keywords)

	agency := candidate.Agency
	if agency == "" {
		agency = src.Name
	}

	exists, err := s.store.OpportunityExists(ctx, src.TenantID, candidate.Title)
	if err != nil {
		return nil, false, fmt.Errorf("duplicate check failed: %w", err)
	}
	if exists {
		logrus.Debugf("Skipping duplicate opportunity %q for tenant %s", candidate.Title, src.TenantID)
		metrics.DuplicatesSkipped.Inc()
		return nil, false, nil
	}

	opp := &models.Opportunity{
		TenantID:       src.TenantID,
		Title:          candidate.Title,
		Agency:         agency,
		Description:    candidate.Description,
		SourceURL:      src.URL,
		RelevanceScore: score,
		MatchReason:    scoring.MatchReason(matched),
		Deadline:       candidate.Deadline,
		ValueEstimate:  candidate.ValueEstimate,
	}

	err = s.store.InsertOpportunity(ctx, opp)
	if errors.Is(err, storage.ErrDuplicateOpportunity) {
		// A concurrent run recorded it between the check and the insert.
		logrus.Debugf("Concurrent insert of %q for tenant %s, skipping", candidate.Title, src.TenantID)
		metrics.DuplicatesSkipped.Inc()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert opportunity %q: %w", candidate.Title, err)
	}

	return opp, true, nil
}

func (s *Service) updateStats(discovered []models.Opportunity, scanned, errorCount int, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.TotalDiscovered = len(discovered)
	s.stats.SourcesScanned = scanned
	s.stats.SourceErrors = errorCount
	s.stats.LastRun = time.Now()
	s.stats.LastRunDuration = duration.String()

	s.stats.TenantMetrics = make(map[string]int)
	for _, opp := range discovered {
		s.stats.TenantMetrics[opp.TenantID]++
	}
}

// GetStats returns the last run's stats as JSON.
func (s *Service) GetStats() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.stats, "", "  ")
	return string(data)
}
