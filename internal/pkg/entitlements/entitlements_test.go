package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected Plan
	}{
		{"premium", PlanPremium},
		{" Premium ", PlanPremium},
		{"STUDIO", PlanStudio},
		{"standard", PlanStandard},
		{"trial", PlanTrial},
		{"free", PlanFree},
		{"", PlanFree},
		{"enterprise", PlanFree},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestRankOrdering(t *testing.T) {
	assert.Greater(t, Rank(PlanStudio), Rank(PlanPremium))
	assert.Greater(t, Rank(PlanPremium), Rank(PlanStandard))
	assert.Greater(t, Rank(PlanStandard), Rank(PlanTrial))
	assert.Greater(t, Rank(PlanTrial), Rank(PlanFree))
}

func TestAllowedQualities(t *testing.T) {
	standard, high, lossless := AllowedQualities(PlanFree)
	assert.True(t, standard)
	assert.False(t, high)
	assert.False(t, lossless)

	standard, high, lossless = AllowedQualities(PlanPremium)
	assert.True(t, standard)
	assert.True(t, high)
	assert.False(t, lossless)

	standard, high, lossless = AllowedQualities(PlanStudio)
	assert.True(t, standard)
	assert.True(t, high)
	assert.True(t, lossless)
}

func TestMaxConcurrentStreams(t *testing.T) {
	assert.Equal(t, 1, MaxConcurrentStreams(PlanFree))
	assert.Equal(t, 2, MaxConcurrentStreams(PlanTrial))
	assert.Equal(t, 2, MaxConcurrentStreams(PlanStandard))
	assert.Equal(t, 3, MaxConcurrentStreams(PlanPremium))
	assert.Equal(t, 5, MaxConcurrentStreams(PlanStudio))
}
