package notifications

import "github.com/bidradar/rfp-discovery-bot/internal/models"

// Notifier delivers a digest of newly discovered opportunities after a
// run. Delivery failures never fail the run that produced the digest.
type Notifier interface {
	SendDigest(opportunities []models.Opportunity) error
}
