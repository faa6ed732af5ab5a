package tender

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestNormalizedScore(t *testing.T) {
	tests := []struct {
		name     string
		score    float64
		maxScore float64
		expected float64
	}{
		{name: "full marks", score: 10, maxScore: 10, expected: 100},
		{name: "half marks", score: 5, maxScore: 10, expected: 50},
		{name: "non-decimal maximum", score: 3, maxScore: 4, expected: 75},
		{name: "zero score", score: 0, maxScore: 20, expected: 0},
		{name: "degenerate maximum yields zero", score: 5, maxScore: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Evaluation{Score: tt.score, CriterionMaxScore: tt.maxScore}
			assert.InDelta(t, tt.expected, ev.NormalizedScore(), 1e-10)
		})
	}
}

func TestOfferHasPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    *float64
		expected bool
	}{
		{name: "positive price", price: fptr(1500), expected: true},
		{name: "nil price", price: nil, expected: false},
		{name: "zero price", price: fptr(0), expected: false},
		{name: "negative price", price: fptr(-10), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Offer{Price: tt.price}.HasPrice())
		})
	}
}

func TestTenderStatusAllowsEvaluation(t *testing.T) {
	tests := []struct {
		status   TenderStatus
		expected bool
	}{
		{status: StatusDraft, expected: false},
		{status: StatusPublished, expected: false},
		{status: StatusClosed, expected: true},
		{status: StatusAwarded, expected: true},
		{status: StatusCancelled, expected: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.AllowsEvaluation())
		})
	}
}

func TestCriterionCategoryValid(t *testing.T) {
	assert.True(t, CategoryTechnical.Valid())
	assert.True(t, CategoryFinancial.Valid())
	assert.True(t, CategoryOther.Valid())
	assert.False(t, CriterionCategory("quality").Valid())
	assert.False(t, CriterionCategory("").Valid())
}

func TestDefaultScoringWeights(t *testing.T) {
	weights := DefaultScoringWeights()
	assert.InDelta(t, 70.0, weights.TechnicalWeight, 1e-10)
	assert.InDelta(t, 30.0, weights.FinancialWeight, 1e-10)
	require.NoError(t, weights.Validate())
}

func TestScoringWeightsValidate(t *testing.T) {
	tests := []struct {
		name      string
		technical float64
		financial float64
		wantErr   bool
	}{
		{name: "default blend", technical: 70, financial: 30, wantErr: false},
		{name: "even blend", technical: 50, financial: 50, wantErr: false},
		{name: "all technical", technical: 100, financial: 0, wantErr: false},
		{name: "sum below 100", technical: 60, financial: 30, wantErr: true},
		{name: "sum above 100", technical: 70, financial: 40, wantErr: true},
		{name: "negative weight", technical: -10, financial: 110, wantErr: true},
		{name: "weight above 100", technical: 110, financial: -10, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ScoringWeights{TechnicalWeight: tt.technical, FinancialWeight: tt.financial}.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
