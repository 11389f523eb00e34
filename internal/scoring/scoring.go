package scoring

import (
	"fmt"
	"strings"

	"github.com/bidradar/rfp-discovery-bot/internal/models"
)

// FallbackReason is recorded when a candidate matched no keyword but was
// still found on a monitored source.
const FallbackReason = "Found on monitored source"

// Default scoring parameters. These are product tuning knobs and can be
// overridden through configuration.
const (
	DefaultIncrement = 20
	DefaultMax       = 100
)

// Scorer assigns relevance scores to candidates based on keyword coverage.
// Scoring is a coverage heuristic, not a ranking model: each matching
// keyword adds Increment points and the total is clamped to [0, Max].
type Scorer struct {
	Increment int
	Max       int
}

// NewScorer creates a scorer with the given per-keyword increment.
// Non-positive values fall back to the defaults.
func NewScorer(increment int) *Scorer {
	if increment <= 0 {
		increment = DefaultIncrement
	}
	return &Scorer{Increment: increment, Max: DefaultMax}
}

// Score computes the relevance score for the given searchable text and
// returns the keywords that matched, in their original order and casing.
// Comparison is case-insensitive substring containment.
func (s *Scorer) Score(text string, keywords []string) (int, []string) {
	folded := strings.ToLower(text)

	score := 0
	var matched []string
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(folded, strings.ToLower(keyword)) {
			score += s.Increment
			matched = append(matched, keyword)
		}
	}

	if score > s.Max {
		score = s.Max
	}

	return score, matched
}

// SearchableText builds the case-folded text a candidate is scored
// against: title, description and agency joined with spaces.
func SearchableText(c models.Candidate) string {
	return strings.ToLower(c.Title + " " + c.Description + " " + c.Agency)
}

// MatchReason formats the matched keywords into the human-readable
// explanation stored alongside an opportunity. Keyword casing is
// preserved as configured by the tenant.
func MatchReason(matched []string) string {
	if len(matched) == 0 {
		return FallbackReason
	}

	reasons := make([]string, 0, len(matched))
	for _, keyword := range matched {
		reasons = append(reasons, fmt.Sprintf("Matches keyword: %s", keyword))
	}

	return strings.Join(reasons, "; ")
}

// MergeKeywords combines rule keywords with a tenant's general keyword
// list, preserving first-seen order and dropping case-insensitive
// duplicates and blanks.
func MergeKeywords(ruleKeywords, tenantKeywords []string) []string {
	seen := make(map[string]bool)
	var merged []string

	for _, keyword := range append(append([]string{}, ruleKeywords...), tenantKeywords...) {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		folded := strings.ToLower(keyword)
		if seen[folded] {
			continue
		}
		seen[folded] = true
		merged = append(merged, keyword)
	}

	return merged
}
