// Package scoring computes the authoritative score triple for an offer:
// technical (weighted criterion evaluations), financial (price relative to
// the cheapest eligible sibling), and the blended total. Scores are
// nullable; a missing input yields null rather than zero so "unscored" and
// "scored zero" stay distinguishable.
package scoring

import (
	"github.com/tenderlens/tenderlens/stat"
	"github.com/tenderlens/tenderlens/tender"
)

// ScoreSet is the score triple persisted back onto an offer. Fields are
// nil when the corresponding score could not be computed.
type ScoreSet struct {
	Technical *float64 `json:"technical_score"`
	Financial *float64 `json:"financial_score"`
	Total     *float64 `json:"total_score"`
}

// Calculator derives offer scores under a fixed technical/financial
// weight blend. It is stateless beyond the weights and safe for
// concurrent use.
type Calculator struct {
	weights tender.ScoringWeights
}

func NewCalculator(weights tender.ScoringWeights) *Calculator {
	return &Calculator{weights: weights}
}

// ComputeScores builds the score triple for an offer from its evaluation
// snapshot and the sibling offers of the same tender. The computation is
// pure: recomputing on an unchanged snapshot yields identical scores.
func (c *Calculator) ComputeScores(offer tender.Offer, evaluations []tender.Evaluation, siblings []tender.Offer) ScoreSet {
	technical := c.technicalScore(evaluations)
	financial := c.financialScore(offer, siblings)
	return ScoreSet{
		Technical: technical,
		Financial: financial,
		Total:     c.totalScore(technical, financial),
	}
}

// technicalScore is the weighted average of normalized technical
// evaluations, rescaled to 0-100. Nil when no technical evaluation
// carries usable weight.
func (c *Calculator) technicalScore(evaluations []tender.Evaluation) *float64 {
	var weighted, totalWeight float64
	for _, ev := range evaluations {
		if ev.CriterionCategory != tender.CategoryTechnical {
			continue
		}
		if ev.CriterionMaxScore <= 0 {
			continue
		}
		weighted += ev.Score / ev.CriterionMaxScore * ev.CriterionWeight
		totalWeight += ev.CriterionWeight
	}
	if totalWeight <= 0 {
		return nil
	}
	score := stat.Round2(weighted / totalWeight * 100)
	return &score
}

// financialScore relates the offer's price to the lowest price among
// submitted, priced siblings. The offer's own price always participates,
// so the cheapest eligible offer scores exactly 100 and a lone priced
// offer scores 100 by itself. Nil when the offer has no usable price.
func (c *Calculator) financialScore(offer tender.Offer, siblings []tender.Offer) *float64 {
	if !offer.HasPrice() {
		return nil
	}
	lowest := *offer.Price
	for _, sibling := range siblings {
		if sibling.OfferID == offer.OfferID {
			continue
		}
		if sibling.Status != tender.OfferStatusSubmitted || !sibling.HasPrice() {
			continue
		}
		if *sibling.Price < lowest {
			lowest = *sibling.Price
		}
	}
	score := stat.Round2(lowest / *offer.Price * 100)
	return &score
}

// totalScore blends the two component scores, or nil if either is
// missing.
func (c *Calculator) totalScore(technical, financial *float64) *float64 {
	if technical == nil || financial == nil {
		return nil
	}
	total := stat.Round2(*technical*c.weights.TechnicalWeight/100 + *financial*c.weights.FinancialWeight/100)
	return &total
}
