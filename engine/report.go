package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tenderlens/tenderlens/analysis"
	"github.com/tenderlens/tenderlens/apperr"
	"github.com/tenderlens/tenderlens/tender"
)

// TenderReport bundles every analysis over one tender's snapshot. Each
// section carries its own performed/reason tag, so a tender with no
// evaluations still yields a complete, serializable report.
type TenderReport struct {
	TenderID           string                           `json:"tender_id"`
	GeneratedAt        time.Time                        `json:"generated_at"`
	Consistency        analysis.ConsistencyReport       `json:"consistency"`
	PriceOutliers      analysis.PriceOutlierReport      `json:"price_outliers"`
	EvaluationOutliers analysis.EvaluationOutlierReport `json:"evaluation_outliers"`
	PriceClusters      analysis.ClusterReport           `json:"price_clusters"`
	Bias               analysis.BiasReport              `json:"bias"`
}

// BuildTenderReport fetches the tender's evaluation and offer snapshots
// once and runs all five analyses over them in parallel. The analyses are
// pure and read-only, so they share the snapshots without locking; each
// goroutine writes a distinct report section.
func (e *Engine) BuildTenderReport(ctx context.Context, tenderID string) (TenderReport, error) {
	start := time.Now()

	var (
		evaluations []tender.Evaluation
		offers      []tender.Offer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		evaluations, err = e.source.TenderEvaluations(gctx, tenderID)
		return err
	})
	g.Go(func() error {
		var err error
		offers, err = e.source.TenderOffers(gctx, tenderID)
		return err
	})
	if err := g.Wait(); err != nil {
		return TenderReport{}, apperr.Wrap(err, "loading snapshots for tender %s", tenderID)
	}

	prices := make([]float64, 0, len(offers))
	for _, offer := range offers {
		if offer.HasPrice() {
			prices = append(prices, *offer.Price)
		}
	}

	report := TenderReport{
		TenderID:    tenderID,
		GeneratedAt: time.Now().UTC(),
	}

	var sections errgroup.Group
	sections.Go(func() error {
		t := time.Now()
		report.Consistency = e.consistency.Analyze(evaluations)
		e.log.AnalysisLogger(tenderID, "consistency", report.Consistency.Performed, time.Since(t))
		return nil
	})
	sections.Go(func() error {
		t := time.Now()
		report.PriceOutliers = e.outliers.DetectPriceOutliers(offers)
		e.log.AnalysisLogger(tenderID, "price_outliers", report.PriceOutliers.Performed, time.Since(t))
		return nil
	})
	sections.Go(func() error {
		t := time.Now()
		report.EvaluationOutliers = e.outliers.DetectEvaluationOutliers(evaluations)
		e.log.AnalysisLogger(tenderID, "evaluation_outliers", report.EvaluationOutliers.Performed, time.Since(t))
		return nil
	})
	sections.Go(func() error {
		t := time.Now()
		report.PriceClusters = e.clusterer.ClusterPrices(prices)
		e.log.AnalysisLogger(tenderID, "price_clusters", report.PriceClusters.Performed, time.Since(t))
		return nil
	})
	sections.Go(func() error {
		t := time.Now()
		report.Bias = e.bias.DetectBias(evaluations)
		e.log.AnalysisLogger(tenderID, "bias", report.Bias.Performed, time.Since(t))
		return nil
	})
	if err := sections.Wait(); err != nil {
		return TenderReport{}, err
	}

	e.log.ReportLogger(tenderID, len(evaluations), len(offers), time.Since(start))
	return report, nil
}
