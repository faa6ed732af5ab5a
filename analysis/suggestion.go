package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/tenderlens/tenderlens/stat"
	"github.com/tenderlens/tenderlens/tender"
)

// Factor names recorded on a suggestion, in the order the blend applies
// them.
const (
	FactorPeerEvaluations   = "peer_evaluations"
	FactorVendorHistory     = "vendor_history"
	FactorDefaultBaseline   = "default_baseline"
	FactorDocumentMatch     = "document_match"
	FactorDocumentMissing   = "document_missing"
	FactorFullCompliance    = "full_compliance"
	FactorPartialCompliance = "partial_compliance"
)

// SuggestionFactor is one applied step of the blend, kept for
// explainability.
type SuggestionFactor struct {
	Factor      string `json:"factor"`
	Description string `json:"description"`
}

// Suggestion is a heuristic score proposal for an unscored
// (offer, criterion) pair. Confidence never reaches 1.
type Suggestion struct {
	SuggestedScore float64            `json:"suggested_score"`
	Confidence     float64            `json:"confidence"`
	Factors        []SuggestionFactor `json:"factors"`
}

// SuggestionEngine proposes evaluation scores from whatever signal is
// available: peer evaluations first, vendor history second, a safe
// baseline last, then document and compliance adjustments on top.
type SuggestionEngine struct{}

func NewSuggestionEngine() *SuggestionEngine {
	return &SuggestionEngine{}
}

// SuggestScore runs the blend for one (offer, criterion) pair. The
// evaluation snapshot may span the whole offer; only rows matching the
// pair count as peers. The steps run in fixed order so the same inputs
// always produce the same suggestion and factor trail.
func (e *SuggestionEngine) SuggestScore(offer tender.Offer, criterion tender.Criterion, evaluations []tender.Evaluation, documents []tender.Document, history tender.VendorHistory, compliance tender.Compliance) Suggestion {
	peers := make([]float64, 0, len(evaluations))
	for _, ev := range evaluations {
		if ev.OfferID == offer.OfferID && ev.CriterionID == criterion.CriterionID {
			peers = append(peers, ev.Score)
		}
	}

	var baseScore, confidence float64
	factors := make([]SuggestionFactor, 0, 3)

	switch {
	case len(peers) > 0:
		baseScore = stat.Mean(peers)
		confidence = 0.6
		factors = append(factors, SuggestionFactor{
			Factor:      FactorPeerEvaluations,
			Description: fmt.Sprintf("averaged %d peer evaluations for this criterion", len(peers)),
		})
	case history.AvgTotalScore != nil:
		avg := math.Min(*history.AvgTotalScore, 100)
		baseScore = avg / 100 * criterion.MaxScore
		confidence = 0.3
		factors = append(factors, SuggestionFactor{
			Factor:      FactorVendorHistory,
			Description: fmt.Sprintf("projected from vendor historical average score %.2f", avg),
		})
	default:
		baseScore = criterion.MaxScore * 0.7
		confidence = 0.2
		factors = append(factors, SuggestionFactor{
			Factor:      FactorDefaultBaseline,
			Description: "no peer evaluations or vendor history, starting at 70% of maximum",
		})
	}

	if criterion.Category == tender.CategoryTechnical {
		if documentMentions(documents, criterion.Name) {
			baseScore = math.Min(baseScore*1.1, criterion.MaxScore)
			confidence += 0.1
			factors = append(factors, SuggestionFactor{
				Factor:      FactorDocumentMatch,
				Description: "a submitted document type references the criterion",
			})
		} else {
			baseScore *= 0.9
			factors = append(factors, SuggestionFactor{
				Factor:      FactorDocumentMissing,
				Description: "no submitted document type references the criterion",
			})
		}
	}

	if compliance.MandatoryComplianceRate < 100 {
		rate := compliance.MandatoryComplianceRate / 100
		baseScore *= rate * rate
		confidence -= 0.1
		factors = append(factors, SuggestionFactor{
			Factor:      FactorPartialCompliance,
			Description: fmt.Sprintf("mandatory compliance at %.1f%%, quadratic penalty applied", compliance.MandatoryComplianceRate),
		})
	} else {
		baseScore = math.Min(baseScore*1.05, criterion.MaxScore)
		confidence += 0.1
		factors = append(factors, SuggestionFactor{
			Factor:      FactorFullCompliance,
			Description: "all mandatory requirements met",
		})
	}

	return Suggestion{
		SuggestedScore: stat.Round2(clamp(baseScore, 0, criterion.MaxScore)),
		Confidence:     stat.Round2(clamp(confidence, 0, 0.95)),
		Factors:        factors,
	}
}

func documentMentions(documents []tender.Document, name string) bool {
	needle := strings.ToLower(name)
	for _, doc := range documents {
		if strings.Contains(strings.ToLower(doc.DocumentType), needle) {
			return true
		}
	}
	return false
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}
