package analysis

import (
	"math"
	"sort"

	"github.com/tenderlens/tenderlens/stat"
	"github.com/tenderlens/tenderlens/tender"
)

// BiasType labels the direction of a flagged evaluator's drift.
type BiasType string

const (
	BiasLenient BiasType = "lenient"
	BiasStrict  BiasType = "strict"
)

// BiasedEvaluator is one evaluator whose average normalized score drifts
// too far from the panel average.
type BiasedEvaluator struct {
	EvaluatorID  string   `json:"evaluator_id"`
	Evaluations  int      `json:"evaluations"`
	AverageScore float64  `json:"average_score"`
	Deviation    float64  `json:"deviation"`
	BiasType     BiasType `json:"bias_type"`
}

// BiasReport lists flagged evaluators, furthest from the panel first.
type BiasReport struct {
	Outcome
	GrandAverage       float64           `json:"grand_average"`
	EvaluatorsAnalyzed int               `json:"evaluators_analyzed"`
	BiasedEvaluators   []BiasedEvaluator `json:"biased_evaluators"`
}

// BiasDetector compares each evaluator's average normalized score against
// the unweighted average of all evaluators' averages. Normalization keeps
// criteria with different maxima from skewing the comparison; the
// unweighted grand average keeps prolific evaluators from defining the
// baseline.
type BiasDetector struct {
	cfg Thresholds
}

func NewBiasDetector(cfg Thresholds) *BiasDetector {
	return &BiasDetector{cfg: cfg}
}

// DetectBias builds the bias report for an evaluation snapshot. Evaluators
// below the minimum sample size still count toward the grand average but
// are never flagged themselves.
func (d *BiasDetector) DetectBias(evaluations []tender.Evaluation) BiasReport {
	if len(evaluations) == 0 {
		return BiasReport{Outcome: notPerformed(ReasonNoEvaluations)}
	}

	type evaluatorScores struct {
		id     string
		scores []float64
	}
	index := make(map[string]int)
	evaluators := make([]evaluatorScores, 0)
	for _, ev := range evaluations {
		i, ok := index[ev.EvaluatorID]
		if !ok {
			i = len(evaluators)
			index[ev.EvaluatorID] = i
			evaluators = append(evaluators, evaluatorScores{id: ev.EvaluatorID})
		}
		evaluators[i].scores = append(evaluators[i].scores, ev.NormalizedScore())
	}

	averages := make([]float64, len(evaluators))
	for i, e := range evaluators {
		averages[i] = stat.Mean(e.scores)
	}
	grandAverage := stat.Mean(averages)

	biased := make([]BiasedEvaluator, 0)
	for i, e := range evaluators {
		if len(e.scores) < d.cfg.BiasMinEvaluations {
			continue
		}
		deviation := averages[i] - grandAverage
		if math.Abs(deviation) <= d.cfg.BiasDeviation {
			continue
		}
		biasType := BiasStrict
		if deviation > 0 {
			biasType = BiasLenient
		}
		biased = append(biased, BiasedEvaluator{
			EvaluatorID:  e.id,
			Evaluations:  len(e.scores),
			AverageScore: stat.Round2(averages[i]),
			Deviation:    stat.Round2(deviation),
			BiasType:     biasType,
		})
	}
	sort.SliceStable(biased, func(i, j int) bool {
		return math.Abs(biased[i].Deviation) > math.Abs(biased[j].Deviation)
	})

	return BiasReport{
		Outcome:            performed(),
		GrandAverage:       stat.Round2(grandAverage),
		EvaluatorsAnalyzed: len(evaluators),
		BiasedEvaluators:   biased,
	}
}
