package tender

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/tenderlens/tenderlens/apperr"
)

var validate = validator.New()

func errWeightRange(field string, value float64) error {
	return apperr.NewValidationErrorWithMap("invalid scoring weights", map[string]string{
		field: fmt.Sprintf("must be between 0 and 100, got %.2f", value),
	})
}

func errWeightSum(sum float64) error {
	return apperr.NewValidationErrorWithMap("invalid scoring weights", map[string]string{
		"weights": fmt.Sprintf("technical and financial weights must sum to 100, got %.2f", sum),
	})
}

// ValidateEvaluations checks an evaluation snapshot before it is scored.
// All offending rows are reported at once so a caller can fix the whole
// batch in one pass.
func ValidateEvaluations(evaluations []Evaluation) error {
	fields := make(map[string]string)
	for i, ev := range evaluations {
		key := fmt.Sprintf("evaluations[%d]", i)
		if err := validate.Struct(ev); err != nil {
			fields[key] = err.Error()
			continue
		}
		if ev.Score > ev.CriterionMaxScore {
			fields[key] = fmt.Sprintf("score %.2f exceeds criterion maximum %.2f", ev.Score, ev.CriterionMaxScore)
		}
	}
	if len(fields) > 0 {
		return apperr.NewValidationErrorWithMap("invalid evaluation snapshot", fields)
	}
	return nil
}

// ValidateCriterionWeights enforces the per-category weight budget: the
// criteria of one tender and category may not carry more than 100 weight
// points in total.
func ValidateCriterionWeights(criteria []Criterion) error {
	fields := make(map[string]string)
	sums := make(map[string]float64)
	for i, c := range criteria {
		key := fmt.Sprintf("criteria[%d]", i)
		if err := validate.Struct(c); err != nil {
			fields[key] = err.Error()
			continue
		}
		sums[c.TenderID+"|"+string(c.Category)] += c.Weight
	}
	for group, sum := range sums {
		if sum > 100+1e-9 {
			fields[group] = fmt.Sprintf("criterion weights sum to %.2f, the budget is 100", sum)
		}
	}
	if len(fields) > 0 {
		return apperr.NewValidationErrorWithMap("invalid criteria", fields)
	}
	return nil
}
