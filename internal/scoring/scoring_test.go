package scoring

import (
	"testing"

	"github.com/bidradar/rfp-discovery-bot/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(20)

	tests := []struct {
		name            string
		text            string
		keywords        []string
		expectedScore   int
		expectedMatches []string
	}{
		{
			name:            "Single keyword match",
			text:            "city hall renovation rfp for general contractor",
			keywords:        []string{"renovation"},
			expectedScore:   20,
			expectedMatches: []string{"renovation"},
		},
		{
			name:            "Adding a matching keyword increases the score",
			text:            "city hall renovation rfp for general contractor",
			keywords:        []string{"renovation", "contractor"},
			expectedScore:   40,
			expectedMatches: []string{"renovation", "contractor"},
		},
		{
			name:            "No keyword matches",
			text:            "city hall renovation rfp for general contractor",
			keywords:        []string{"aerospace"},
			expectedScore:   0,
			expectedMatches: nil,
		},
		{
			name:          "Six matches clamp to 100",
			text:          "roof paving hvac plumbing electrical landscaping bid",
			keywords:      []string{"roof", "paving", "hvac", "plumbing", "electrical", "landscaping"},
			expectedScore: 100,
			expectedMatches: []string{
				"roof", "paving", "hvac", "plumbing", "electrical", "landscaping",
			},
		},
		{
			name:            "Case-folded comparison preserves keyword casing",
			text:            "seeking federal contractor",
			keywords:        []string{"Federal"},
			expectedScore:   20,
			expectedMatches: []string{"Federal"},
		},
		{
			name:            "Empty keyword set",
			text:            "seeking federal contractor",
			keywords:        nil,
			expectedScore:   0,
			expectedMatches: nil,
		},
		{
			name:            "Empty candidate text",
			text:            "",
			keywords:        []string{"roofing"},
			expectedScore:   0,
			expectedMatches: nil,
		},
		{
			name:            "Blank keywords are ignored",
			text:            "road resurfacing project",
			keywords:        []string{"", "road"},
			expectedScore:   20,
			expectedMatches: []string{"road"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, matched := scorer.Score(tt.text, tt.keywords)
			assert.Equal(t, tt.expectedScore, score)
			assert.Equal(t, tt.expectedMatches, matched)
		})
	}
}

func TestScorer_Monotonicity(t *testing.T) {
	scorer := NewScorer(20)
	text := "city hall renovation rfp for general contractor"

	keywords := []string{"renovation"}
	base, _ := scorer.Score(text, keywords)

	// Adding a matching keyword never decreases the score
	withMore, _ := scorer.Score(text, append(keywords, "contractor"))
	assert.GreaterOrEqual(t, withMore, base)

	// Adding a non-matching keyword never changes the score
	withMiss, _ := scorer.Score(text, append(keywords, "aerospace"))
	assert.Equal(t, base, withMiss)

	// Score always stays in [0, 100]
	many := []string{"city", "hall", "renovation", "rfp", "general", "contractor", "for"}
	saturated, _ := scorer.Score(text, many)
	assert.LessOrEqual(t, saturated, 100)
	assert.GreaterOrEqual(t, saturated, 0)
	assert.Equal(t, 100, saturated)
}

func TestScorer_CustomIncrement(t *testing.T) {
	scorer := NewScorer(10)

	score, _ := scorer.Score("bridge repair tender", []string{"bridge", "repair"})
	assert.Equal(t, 20, score)

	// Non-positive increments fall back to the default
	assert.Equal(t, DefaultIncrement, NewScorer(0).Increment)
	assert.Equal(t, DefaultIncrement, NewScorer(-5).Increment)
}

func TestMatchReason(t *testing.T) {
	tests := []struct {
		name     string
		matched  []string
		expected string
	}{
		{
			name:     "Single match",
			matched:  []string{"renovation"},
			expected: "Matches keyword: renovation",
		},
		{
			name:     "Multiple matches joined in order",
			matched:  []string{"renovation", "contractor"},
			expected: "Matches keyword: renovation; Matches keyword: contractor",
		},
		{
			name:     "Original casing preserved",
			matched:  []string{"Federal"},
			expected: "Matches keyword: Federal",
		},
		{
			name:     "No matches falls back",
			matched:  nil,
			expected: "Found on monitored source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchReason(tt.matched))
		})
	}
}

func TestSearchableText(t *testing.T) {
	candidate := models.Candidate{
		Title:       "Roof Replacement RFP",
		Agency:      "City of Springfield",
		Description: "Full tear-off and replacement",
	}

	text := SearchableText(candidate)
	assert.Equal(t, "roof replacement rfp full tear-off and replacement city of springfield", text)
}

func TestMergeKeywords(t *testing.T) {
	tests := []struct {
		name     string
		rules    []string
		tenant   []string
		expected []string
	}{
		{
			name:     "Rule keywords come first",
			rules:    []string{"paving", "roadwork"},
			tenant:   []string{"construction"},
			expected: []string{"paving", "roadwork", "construction"},
		},
		{
			name:     "Case-insensitive duplicates keep first casing",
			rules:    []string{"Paving"},
			tenant:   []string{"paving", "asphalt"},
			expected: []string{"Paving", "asphalt"},
		},
		{
			name:     "Blanks dropped",
			rules:    []string{"", " "},
			tenant:   []string{"hvac"},
			expected: []string{"hvac"},
		},
		{
			name:     "Both empty",
			rules:    nil,
			tenant:   nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MergeKeywords(tt.rules, tt.tenant))
		})
	}
}
