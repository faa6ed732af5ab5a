package analysis

import (
	"sort"

	"github.com/tenderlens/tenderlens/stat"
	"github.com/tenderlens/tenderlens/tender"
)

// Qualitative ratings for overall evaluator agreement, best to worst.
const (
	RatingExcellent = "Excellent"
	RatingGood      = "Good"
	RatingModerate  = "Moderate"
	RatingPoor      = "Poor"
	RatingVeryPoor  = "Very Poor"
)

// ConsistencyIssue is one (offer, criterion) pair whose evaluators
// disagree. Values are rounded to two decimals for reporting.
type ConsistencyIssue struct {
	OfferID     string  `json:"offer_id"`
	CriterionID string  `json:"criterion_id"`
	Evaluations int     `json:"evaluations"`
	Mean        float64 `json:"mean"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Variance    float64 `json:"variance"`
	StdDev      float64 `json:"std_dev"`
}

// OverallConsistency condenses the issue list into a single tender-wide
// verdict.
type OverallConsistency struct {
	AverageVariance float64 `json:"average_variance"`
	Rating          string  `json:"rating"`
}

// ConsistencyReport lists the worst disagreements plus an overall rating.
type ConsistencyReport struct {
	Outcome
	Issues      []ConsistencyIssue  `json:"consistency_issues,omitempty"`
	TotalIssues int                 `json:"total_issues"`
	Overall     *OverallConsistency `json:"overall_consistency,omitempty"`
}

// ConsistencyAnalyzer measures how much evaluators disagree on the same
// (offer, criterion) pair, using population variance of the raw scores.
type ConsistencyAnalyzer struct {
	cfg Thresholds
}

func NewConsistencyAnalyzer(cfg Thresholds) *ConsistencyAnalyzer {
	return &ConsistencyAnalyzer{cfg: cfg}
}

// Analyze builds the consistency report for an evaluation snapshot.
// Pairs with a single evaluator or with identical scores are not issues;
// the report lists at most ConsistencyIssueLimit rows, worst first, while
// TotalIssues counts all of them.
func (a *ConsistencyAnalyzer) Analyze(evaluations []tender.Evaluation) ConsistencyReport {
	if len(evaluations) == 0 {
		return ConsistencyReport{Outcome: notPerformed(ReasonNoEvaluations)}
	}

	issues := make([]ConsistencyIssue, 0)
	for _, g := range groupByOfferCriterion(evaluations) {
		if len(g.Evaluations) < 2 {
			continue
		}
		scores := rawScores(g.Evaluations)
		variance := stat.PopulationVariance(scores)
		if variance <= 0 {
			continue
		}
		lo, hi := stat.MinMax(scores)
		issues = append(issues, ConsistencyIssue{
			OfferID:     g.OfferID,
			CriterionID: g.CriterionID,
			Evaluations: len(g.Evaluations),
			Mean:        stat.Round2(stat.Mean(scores)),
			Min:         lo,
			Max:         hi,
			Variance:    stat.Round2(variance),
			StdDev:      stat.Round2(stat.StdDev(scores)),
		})
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Variance > issues[j].Variance
	})

	report := ConsistencyReport{
		Outcome:     performed(),
		TotalIssues: len(issues),
	}

	var varianceSum float64
	for _, issue := range issues {
		varianceSum += issue.Variance
	}
	average := 0.0
	if len(issues) > 0 {
		average = varianceSum / float64(len(issues))
	}
	report.Overall = &OverallConsistency{
		AverageVariance: stat.Round2(average),
		Rating:          consistencyRating(average),
	}

	if len(issues) > a.cfg.ConsistencyIssueLimit {
		issues = issues[:a.cfg.ConsistencyIssueLimit]
	}
	report.Issues = issues
	return report
}

func consistencyRating(averageVariance float64) string {
	switch {
	case averageVariance < 5:
		return RatingExcellent
	case averageVariance < 10:
		return RatingGood
	case averageVariance < 15:
		return RatingModerate
	case averageVariance < 25:
		return RatingPoor
	default:
		return RatingVeryPoor
	}
}
