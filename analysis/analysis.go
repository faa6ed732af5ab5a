// Package analysis provides the statistical quality checks that run over a
// tender's evaluations and offer prices: evaluator consistency, price and
// evaluation outliers, price clustering, and evaluator bias. None of the
// analyses feed back into offer scores; they annotate, the calculator
// decides.
package analysis

import (
	"github.com/tenderlens/tenderlens/tender"
)

// Outcome tags a report as performed or skipped. A skipped report carries
// the reason and zero values everywhere else, so callers can always
// serialize the full report envelope.
type Outcome struct {
	Performed bool   `json:"performed"`
	Reason    string `json:"reason,omitempty"`
}

func performed() Outcome {
	return Outcome{Performed: true}
}

func notPerformed(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Reasons for skipped analyses.
const (
	ReasonNoEvaluations    = "No evaluations found"
	ReasonTooFewPrices     = "At least 2 priced offers required"
	ReasonTooFewForCluster = "At least 2 prices required for clustering"
)

// Thresholds carries the tuning knobs shared by the analyzers. Zero values
// are not usable; start from DefaultThresholds.
type Thresholds struct {
	// OutlierZScore is the z-score above which a price or evaluation is
	// flagged as an outlier.
	OutlierZScore float64 `json:"outlier_z_score" mapstructure:"outlier_z_score" validate:"gt=0"`
	// HighSeverityZScore escalates a flagged outlier from medium to high.
	HighSeverityZScore float64 `json:"high_severity_z_score" mapstructure:"high_severity_z_score" validate:"gt=0"`
	// ClusterTolerance is the relative distance to a cluster seed within
	// which a price joins the cluster.
	ClusterTolerance float64 `json:"cluster_tolerance" mapstructure:"cluster_tolerance" validate:"gt=0,lte=1"`
	// BiasDeviation is how far an evaluator's average normalized score may
	// sit from the panel average before they are flagged.
	BiasDeviation float64 `json:"bias_deviation" mapstructure:"bias_deviation" validate:"gt=0"`
	// BiasMinEvaluations is the minimum sample size before an evaluator can
	// be flagged at all.
	BiasMinEvaluations int `json:"bias_min_evaluations" mapstructure:"bias_min_evaluations" validate:"min=1"`
	// ConsistencyIssueLimit caps how many disagreement rows a consistency
	// report lists.
	ConsistencyIssueLimit int `json:"consistency_issue_limit" mapstructure:"consistency_issue_limit" validate:"min=1"`
}

// DefaultThresholds returns the tuning used in production.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OutlierZScore:         2.0,
		HighSeverityZScore:    3.0,
		ClusterTolerance:      0.10,
		BiasDeviation:         15.0,
		BiasMinEvaluations:    3,
		ConsistencyIssueLimit: 5,
	}
}

// group is the (offer, criterion) slice of an evaluation snapshot that the
// consistency and outlier analyzers score together.
type group struct {
	OfferID     string
	CriterionID string
	Evaluations []tender.Evaluation
}

// groupByOfferCriterion buckets evaluations by (offer, criterion) keeping
// first-seen order, so reports are deterministic for a given snapshot.
func groupByOfferCriterion(evaluations []tender.Evaluation) []group {
	index := make(map[string]int)
	groups := make([]group, 0)
	for _, ev := range evaluations {
		key := ev.OfferID + "|" + ev.CriterionID
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{OfferID: ev.OfferID, CriterionID: ev.CriterionID})
		}
		groups[i].Evaluations = append(groups[i].Evaluations, ev)
	}
	return groups
}

func rawScores(evaluations []tender.Evaluation) []float64 {
	scores := make([]float64, len(evaluations))
	for i, ev := range evaluations {
		scores[i] = ev.Score
	}
	return scores
}
