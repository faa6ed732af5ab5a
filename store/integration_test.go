package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderlens/tenderlens/analysis"
	"github.com/tenderlens/tenderlens/engine"
	"github.com/tenderlens/tenderlens/logging"
	"github.com/tenderlens/tenderlens/tender"
)

type staticCompliance struct {
	rate float64
}

func (c staticCompliance) OfferCompliance(ctx context.Context, offerID string) (tender.Compliance, error) {
	return tender.Compliance{MandatoryComplianceRate: c.rate}, nil
}

type staticDocuments struct {
	types []string
}

func (d staticDocuments) OfferDocuments(ctx context.Context, offerID string) ([]tender.Document, error) {
	documents := make([]tender.Document, 0, len(d.types))
	for _, documentType := range d.types {
		documents = append(documents, tender.Document{DocumentType: documentType})
	}
	return documents, nil
}

// TestEngineOverStore drives the full recompute, report, and suggestion
// paths through the persisted store rather than fakes.
func TestEngineOverStore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	eng, err := engine.New(engine.Dependencies{
		Source:     st,
		Sink:       st,
		History:    st,
		Compliance: staticCompliance{rate: 100},
		Documents:  staticDocuments{types: []string{"delivery plan annex"}},
	}, engine.Options{
		Logger: logging.New(logging.Config{Level: "error"}),
	})
	require.NoError(t, err)

	tenderRow, err := st.CreateTender(ctx, "Regional data center build-out")
	require.NoError(t, err)
	delivery, err := st.RegisterCriterion(ctx, tenderRow.ID, "Delivery plan", tender.CategoryTechnical, 60, 10)
	require.NoError(t, err)
	experience, err := st.RegisterCriterion(ctx, tenderRow.ID, "Team experience", tender.CategoryTechnical, 40, 5)
	require.NoError(t, err)
	_, err = st.RegisterCriterion(ctx, tenderRow.ID, "Price", tender.CategoryFinancial, 100, 10)
	require.NoError(t, err)
	require.NoError(t, st.SetTenderStatus(ctx, tenderRow.ID, tender.StatusClosed))

	offerA, err := st.CreateOffer(ctx, tenderRow.ID, "v1", fptr(100000), tender.OfferStatusSubmitted)
	require.NoError(t, err)
	offerB, err := st.CreateOffer(ctx, tenderRow.ID, "v2", fptr(120000), tender.OfferStatusSubmitted)
	require.NoError(t, err)
	_, err = st.CreateOffer(ctx, tenderRow.ID, "v3", fptr(150000), tender.OfferStatusSubmitted)
	require.NoError(t, err)

	_, err = st.RecordEvaluation(ctx, offerA.ID, "e1", delivery.ID, 8, "")
	require.NoError(t, err)
	_, err = st.RecordEvaluation(ctx, offerA.ID, "e1", experience.ID, 4, "")
	require.NoError(t, err)
	_, err = st.RecordEvaluation(ctx, offerA.ID, "e2", delivery.ID, 9, "")
	require.NoError(t, err)

	// recompute offer A: technical (0.8*60 + 0.8*40 + 0.9*60)/160 = 83.75,
	// financial 100 as the cheapest bid, total 83.75*0.7 + 100*0.3
	scores, err := eng.RecomputeOfferScores(ctx, tenderRow.ID, offerA.ID)
	require.NoError(t, err)
	require.NotNil(t, scores.Technical)
	require.NotNil(t, scores.Financial)
	require.NotNil(t, scores.Total)
	assert.InDelta(t, 83.75, *scores.Technical, 1e-10)
	assert.InDelta(t, 100.0, *scores.Financial, 1e-10)
	assert.InDelta(t, 88.63, *scores.Total, 1e-10)

	_, version, err := st.OfferSnapshot(ctx, offerA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// offer B has no evaluations: financial-only scores persist
	scores, err = eng.RecomputeOfferScores(ctx, tenderRow.ID, offerB.ID)
	require.NoError(t, err)
	assert.Nil(t, scores.Technical)
	require.NotNil(t, scores.Financial)
	assert.InDelta(t, 83.33, *scores.Financial, 1e-10)
	assert.Nil(t, scores.Total)

	var rereadB Offer
	require.NoError(t, st.db.Where("id = ?", offerB.ID).First(&rereadB).Error)
	assert.Nil(t, rereadB.TechnicalScore)
	require.NotNil(t, rereadB.FinancialScore)
	assert.InDelta(t, 83.33, *rereadB.FinancialScore, 1e-10)
	assert.Nil(t, rereadB.TotalScore)

	// an evaluator revises a score; recomputation picks up the new set
	_, err = st.RecordEvaluation(ctx, offerA.ID, "e2", delivery.ID, 7, "revised after demo")
	require.NoError(t, err)
	scores, err = eng.RecomputeOfferScores(ctx, tenderRow.ID, offerA.ID)
	require.NoError(t, err)
	require.NotNil(t, scores.Technical)
	require.NotNil(t, scores.Total)
	assert.InDelta(t, 76.25, *scores.Technical, 1e-10)
	assert.InDelta(t, 83.38, *scores.Total, 1e-10)

	_, version, err = st.OfferSnapshot(ctx, offerA.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)

	report, err := eng.BuildTenderReport(ctx, tenderRow.ID)
	require.NoError(t, err)
	assert.Equal(t, tenderRow.ID, report.TenderID)

	require.True(t, report.Consistency.Performed)
	require.Len(t, report.Consistency.Issues, 1)
	assert.Equal(t, offerA.ID, report.Consistency.Issues[0].OfferID)
	assert.Equal(t, delivery.ID, report.Consistency.Issues[0].CriterionID)
	assert.InDelta(t, 0.25, report.Consistency.Issues[0].Variance, 1e-10)
	require.NotNil(t, report.Consistency.Overall)
	assert.Equal(t, analysis.RatingExcellent, report.Consistency.Overall.Rating)

	require.True(t, report.PriceOutliers.Performed)
	assert.Equal(t, 3, report.PriceOutliers.PricesAnalyzed)
	assert.Empty(t, report.PriceOutliers.Outliers)

	require.True(t, report.PriceClusters.Performed)
	assert.Len(t, report.PriceClusters.Clusters, 3)

	require.True(t, report.EvaluationOutliers.Performed)
	assert.Equal(t, 1, report.EvaluationOutliers.GroupsAnalyzed)
	assert.Empty(t, report.EvaluationOutliers.Outliers)

	require.True(t, report.Bias.Performed)
	assert.Equal(t, 2, report.Bias.EvaluatorsAnalyzed)
	assert.Empty(t, report.Bias.BiasedEvaluators)

	// vendor v1 now has scored history feeding suggestions
	history, err := st.VendorHistory(ctx, "v1")
	require.NoError(t, err)
	require.NotNil(t, history.AvgTotalScore)
	assert.InDelta(t, 83.38, *history.AvgTotalScore, 1e-10)

	support, err := st.RegisterCriterion(ctx, tenderRow.ID, "Support model", tender.CategoryOther, 20, 10)
	require.NoError(t, err)
	criterion, err := st.Criterion(ctx, support.ID)
	require.NoError(t, err)

	// history projects 83.38 onto a 10-point scale, full compliance
	// lifts 8.338 to 8.75
	suggestion, err := eng.SuggestEvaluationScore(ctx, offerA.ID, criterion)
	require.NoError(t, err)
	assert.InDelta(t, 8.75, suggestion.SuggestedScore, 1e-10)
	assert.InDelta(t, 0.4, suggestion.Confidence, 1e-10)
	require.Len(t, suggestion.Factors, 2)
	assert.Equal(t, analysis.FactorVendorHistory, suggestion.Factors[0].Factor)
}
