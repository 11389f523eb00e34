package extractor

import (
	"context"

	"github.com/bidradar/rfp-discovery-bot/internal/models"
)

// ListingExtractor turns raw page text into candidate opportunity
// records. Implementations are free to drop listings they cannot parse;
// a returned error aborts only the source being scanned.
type ListingExtractor interface {
	Extract(ctx context.Context, content string, keywordHints []string) ([]models.Candidate, error)
}
