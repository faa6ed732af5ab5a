package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderlens/tenderlens/tender"
)

func TestDetectPriceOutliersTooFewPrices(t *testing.T) {
	detector := NewOutlierDetector(DefaultThresholds())

	tests := []struct {
		name   string
		offers []tender.Offer
	}{
		{name: "no offers", offers: nil},
		{name: "one priced offer", offers: []tender.Offer{pricedOffer("o1", "v1", 100)}},
		{
			name: "two offers but one unpriced",
			offers: []tender.Offer{
				pricedOffer("o1", "v1", 100),
				{OfferID: "o2", VendorID: "v2", Status: tender.OfferStatusSubmitted},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := detector.DetectPriceOutliers(tt.offers)
			assert.False(t, report.Performed)
			assert.Equal(t, "At least 2 priced offers required", report.Reason)
		})
	}
}

// Four prices cannot exceed z = sqrt(3) against their own cohort, so even a
// price five times the others stays under the threshold. Wide spreads in
// small cohorts surface through clustering instead.
func TestDetectPriceOutliersSmallCohortStaysUnflagged(t *testing.T) {
	offers := []tender.Offer{
		pricedOffer("o1", "v1", 100),
		pricedOffer("o2", "v2", 105),
		pricedOffer("o3", "v3", 110),
		pricedOffer("o4", "v4", 500),
	}

	report := NewOutlierDetector(DefaultThresholds()).DetectPriceOutliers(offers)

	assert.True(t, report.Performed)
	assert.Equal(t, 4, report.PricesAnalyzed)
	assert.InDelta(t, 203.75, report.MeanPrice, 1e-10)
	assert.InDelta(t, 171.08, report.StdDev, 0.01)
	assert.Empty(t, report.Outliers)
}

func TestDetectPriceOutliersHighSeverity(t *testing.T) {
	offers := make([]tender.Offer, 0, 11)
	for i := 0; i < 10; i++ {
		offers = append(offers, pricedOffer(string(rune('a'+i)), "v1", 100))
	}
	offers = append(offers, pricedOffer("spike", "v2", 500))

	report := NewOutlierDetector(DefaultThresholds()).DetectPriceOutliers(offers)

	assert.True(t, report.Performed)
	assert.Equal(t, 11, report.PricesAnalyzed)
	require.Len(t, report.Outliers, 1)

	outlier := report.Outliers[0]
	assert.Equal(t, "spike", outlier.OfferID)
	assert.Equal(t, "v2", outlier.VendorID)
	assert.InDelta(t, 500.0, outlier.Price, 1e-10)
	assert.InDelta(t, 3.16, outlier.ZScore, 1e-10) // sqrt(10), rounded
	assert.InDelta(t, 100.0, outlier.Percentile, 1e-10)
	assert.Equal(t, SeverityHigh, outlier.Severity)
}

func TestDetectPriceOutliersMediumSeverity(t *testing.T) {
	offers := make([]tender.Offer, 0, 10)
	for i := 0; i < 9; i++ {
		offers = append(offers, pricedOffer(string(rune('a'+i)), "v1", 100))
	}
	offers = append(offers, pricedOffer("spike", "v2", 300))

	report := NewOutlierDetector(DefaultThresholds()).DetectPriceOutliers(offers)

	// nine identical prices plus one spike: z of the spike is exactly 3,
	// above the outlier threshold but not above the high severity bar
	require.Len(t, report.Outliers, 1)
	assert.InDelta(t, 3.0, report.Outliers[0].ZScore, 1e-10)
	assert.Equal(t, SeverityMedium, report.Outliers[0].Severity)
}

func TestDetectPriceOutliersSortedByZScore(t *testing.T) {
	// a permissive threshold flags both ends of the cohort
	cfg := DefaultThresholds()
	cfg.OutlierZScore = 0.5

	offers := []tender.Offer{
		pricedOffer("low", "v1", 40),
		pricedOffer("mid1", "v2", 100),
		pricedOffer("mid2", "v3", 100),
		pricedOffer("mid3", "v4", 100),
		pricedOffer("high", "v5", 220),
	}

	report := NewOutlierDetector(cfg).DetectPriceOutliers(offers)

	require.NotEmpty(t, report.Outliers)
	for i := 1; i < len(report.Outliers); i++ {
		assert.LessOrEqual(t, report.Outliers[i].ZScore, report.Outliers[i-1].ZScore)
	}
	assert.Equal(t, "high", report.Outliers[0].OfferID)
}

func TestDetectEvaluationOutliersNoEvaluations(t *testing.T) {
	report := NewOutlierDetector(DefaultThresholds()).DetectEvaluationOutliers(nil)

	assert.False(t, report.Performed)
	assert.Equal(t, "No evaluations found", report.Reason)
}

func TestDetectEvaluationOutliersNotFlaggedAtLowZ(t *testing.T) {
	evaluations := []tender.Evaluation{
		makeEval("o1", "e1", "c1", 60, 100),
		makeEval("o1", "e2", "c1", 90, 100),
	}

	report := NewOutlierDetector(DefaultThresholds()).DetectEvaluationOutliers(evaluations)

	// mean 75, stddev 15: both scores sit at z = 1.0
	assert.True(t, report.Performed)
	assert.Equal(t, 1, report.GroupsAnalyzed)
	assert.Empty(t, report.Outliers)
}

func TestDetectEvaluationOutliersFlagsDissent(t *testing.T) {
	evaluations := []tender.Evaluation{
		makeEval("o1", "e1", "c1", 80, 100),
		makeEval("o1", "e2", "c1", 80, 100),
		makeEval("o1", "e3", "c1", 80, 100),
		makeEval("o1", "e4", "c1", 80, 100),
		makeEval("o1", "e5", "c1", 80, 100),
		makeEval("o1", "e6", "c1", 20, 100),
	}

	report := NewOutlierDetector(DefaultThresholds()).DetectEvaluationOutliers(evaluations)

	assert.True(t, report.Performed)
	assert.Equal(t, 1, report.GroupsAnalyzed)
	require.Len(t, report.Outliers, 1)

	outlier := report.Outliers[0]
	assert.Equal(t, "e6", outlier.EvaluatorID)
	assert.Equal(t, "o1", outlier.OfferID)
	assert.Equal(t, "c1", outlier.CriterionID)
	assert.InDelta(t, 20.0, outlier.Score, 1e-10)
	assert.InDelta(t, 20.0, outlier.NormalizedScore, 1e-10)
	assert.InDelta(t, 70.0, outlier.GroupMean, 1e-10)
	assert.InDelta(t, 2.24, outlier.ZScore, 1e-10) // sqrt(5), rounded
	assert.Equal(t, SeverityMedium, outlier.Severity)
}

func TestDetectEvaluationOutliersSingleEvaluationGroups(t *testing.T) {
	evaluations := []tender.Evaluation{
		makeEval("o1", "e1", "c1", 10, 100),
		makeEval("o2", "e1", "c1", 90, 100),
	}

	report := NewOutlierDetector(DefaultThresholds()).DetectEvaluationOutliers(evaluations)

	assert.True(t, report.Performed)
	assert.Zero(t, report.GroupsAnalyzed)
	assert.Empty(t, report.Outliers)
}

func TestDetectEvaluationOutliersNormalizedScoreUsesMaxScore(t *testing.T) {
	cfg := DefaultThresholds()
	cfg.OutlierZScore = 0.5

	evaluations := []tender.Evaluation{
		makeEval("o1", "e1", "c1", 2, 10),
		makeEval("o1", "e2", "c1", 8, 10),
	}

	report := NewOutlierDetector(cfg).DetectEvaluationOutliers(evaluations)

	require.Len(t, report.Outliers, 2)
	for _, outlier := range report.Outliers {
		switch outlier.EvaluatorID {
		case "e1":
			assert.InDelta(t, 20.0, outlier.NormalizedScore, 1e-10)
		case "e2":
			assert.InDelta(t, 80.0, outlier.NormalizedScore, 1e-10)
		}
	}
}
