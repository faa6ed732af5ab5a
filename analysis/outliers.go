package analysis

import (
	"sort"

	"github.com/tenderlens/tenderlens/stat"
	"github.com/tenderlens/tenderlens/tender"
)

// Severity grades a flagged outlier.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// PriceOutlier is one offer whose price sits unusually far from the
// cohort mean.
type PriceOutlier struct {
	OfferID    string   `json:"offer_id"`
	VendorID   string   `json:"vendor_id"`
	Price      float64  `json:"price"`
	ZScore     float64  `json:"z_score"`
	Percentile float64  `json:"percentile"`
	Severity   Severity `json:"severity"`
}

// PriceOutlierReport summarizes the price cohort and any flagged offers.
type PriceOutlierReport struct {
	Outcome
	PricesAnalyzed int            `json:"prices_analyzed"`
	MeanPrice      float64        `json:"mean_price"`
	StdDev         float64        `json:"std_dev"`
	Outliers       []PriceOutlier `json:"outliers"`
}

// EvaluationOutlier is one evaluator's score that sits unusually far from
// the other scores of the same (offer, criterion) pair.
type EvaluationOutlier struct {
	OfferID         string   `json:"offer_id"`
	CriterionID     string   `json:"criterion_id"`
	EvaluatorID     string   `json:"evaluator_id"`
	Score           float64  `json:"score"`
	NormalizedScore float64  `json:"normalized_score"`
	GroupMean       float64  `json:"group_mean"`
	ZScore          float64  `json:"z_score"`
	Severity        Severity `json:"severity"`
}

// EvaluationOutlierReport lists flagged evaluations across all scored
// (offer, criterion) pairs.
type EvaluationOutlierReport struct {
	Outcome
	GroupsAnalyzed int                 `json:"groups_analyzed"`
	Outliers       []EvaluationOutlier `json:"outliers"`
}

// OutlierDetector flags prices and evaluations by z-score against their
// own cohort. The cohort always includes the candidate itself.
type OutlierDetector struct {
	cfg Thresholds
}

func NewOutlierDetector(cfg Thresholds) *OutlierDetector {
	return &OutlierDetector{cfg: cfg}
}

// DetectPriceOutliers flags offers whose price z-score exceeds the
// configured threshold. Offers without a usable price are ignored; fewer
// than two priced offers skips the analysis.
func (d *OutlierDetector) DetectPriceOutliers(offers []tender.Offer) PriceOutlierReport {
	priced := make([]tender.Offer, 0, len(offers))
	prices := make([]float64, 0, len(offers))
	for _, offer := range offers {
		if offer.HasPrice() {
			priced = append(priced, offer)
			prices = append(prices, *offer.Price)
		}
	}
	if len(priced) < 2 {
		return PriceOutlierReport{Outcome: notPerformed(ReasonTooFewPrices)}
	}

	mean := stat.Mean(prices)
	stdDev := stat.StdDev(prices)

	outliers := make([]PriceOutlier, 0)
	for _, offer := range priced {
		z := stat.ZScore(*offer.Price, mean, stdDev)
		if z <= d.cfg.OutlierZScore {
			continue
		}
		outliers = append(outliers, PriceOutlier{
			OfferID:    offer.OfferID,
			VendorID:   offer.VendorID,
			Price:      *offer.Price,
			ZScore:     stat.Round2(z),
			Percentile: stat.Round2(stat.PercentileRank(*offer.Price, prices)),
			Severity:   d.severity(z),
		})
	}
	sort.SliceStable(outliers, func(i, j int) bool {
		return outliers[i].ZScore > outliers[j].ZScore
	})

	return PriceOutlierReport{
		Outcome:        performed(),
		PricesAnalyzed: len(prices),
		MeanPrice:      stat.Round2(mean),
		StdDev:         stat.Round2(stdDev),
		Outliers:       outliers,
	}
}

// DetectEvaluationOutliers flags evaluations whose raw score z-score
// against the other evaluations of the same (offer, criterion) pair
// exceeds the configured threshold. Pairs with a single evaluation carry
// no signal and are skipped.
func (d *OutlierDetector) DetectEvaluationOutliers(evaluations []tender.Evaluation) EvaluationOutlierReport {
	if len(evaluations) == 0 {
		return EvaluationOutlierReport{Outcome: notPerformed(ReasonNoEvaluations)}
	}

	analyzed := 0
	outliers := make([]EvaluationOutlier, 0)
	for _, g := range groupByOfferCriterion(evaluations) {
		if len(g.Evaluations) < 2 {
			continue
		}
		analyzed++
		scores := rawScores(g.Evaluations)
		mean := stat.Mean(scores)
		stdDev := stat.StdDev(scores)
		for _, ev := range g.Evaluations {
			z := stat.ZScore(ev.Score, mean, stdDev)
			if z <= d.cfg.OutlierZScore {
				continue
			}
			outliers = append(outliers, EvaluationOutlier{
				OfferID:         ev.OfferID,
				CriterionID:     ev.CriterionID,
				EvaluatorID:     ev.EvaluatorID,
				Score:           ev.Score,
				NormalizedScore: stat.Round2(ev.NormalizedScore()),
				GroupMean:       stat.Round2(mean),
				ZScore:          stat.Round2(z),
				Severity:        d.severity(z),
			})
		}
	}
	sort.SliceStable(outliers, func(i, j int) bool {
		return outliers[i].ZScore > outliers[j].ZScore
	})

	return EvaluationOutlierReport{
		Outcome:        performed(),
		GroupsAnalyzed: analyzed,
		Outliers:       outliers,
	}
}

func (d *OutlierDetector) severity(z float64) Severity {
	if z > d.cfg.HighSeverityZScore {
		return SeverityHigh
	}
	return SeverityMedium
}
