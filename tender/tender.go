// Package tender defines the domain snapshots the scoring and analysis
// engine operates on. The types here are read models: denormalized,
// storage-agnostic views of tenders, offers, criteria, and evaluations.
package tender

import "math"

// CriterionCategory classifies an evaluation criterion. Only technical
// criteria participate in the technical score; financial standing is
// derived from offer prices, not from criterion scores.
type CriterionCategory string

const (
	CategoryTechnical CriterionCategory = "technical"
	CategoryFinancial CriterionCategory = "financial"
	CategoryOther     CriterionCategory = "other"
)

// Valid reports whether the category is one of the known values.
func (c CriterionCategory) Valid() bool {
	switch c {
	case CategoryTechnical, CategoryFinancial, CategoryOther:
		return true
	}
	return false
}

// OfferStatus tracks an offer through its lifecycle.
type OfferStatus string

const (
	OfferStatusDraft     OfferStatus = "draft"
	OfferStatusSubmitted OfferStatus = "submitted"
	OfferStatusEvaluated OfferStatus = "evaluated"
	OfferStatusAwarded   OfferStatus = "awarded"
	OfferStatusRejected  OfferStatus = "rejected"
)

// Valid reports whether the status is one of the known values.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferStatusDraft, OfferStatusSubmitted, OfferStatusEvaluated, OfferStatusAwarded, OfferStatusRejected:
		return true
	}
	return false
}

// TenderStatus tracks a tender through its lifecycle.
type TenderStatus string

const (
	StatusDraft     TenderStatus = "draft"
	StatusPublished TenderStatus = "published"
	StatusClosed    TenderStatus = "closed"
	StatusAwarded   TenderStatus = "awarded"
	StatusCancelled TenderStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s TenderStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusClosed, StatusAwarded, StatusCancelled:
		return true
	}
	return false
}

// AllowsEvaluation reports whether evaluations may be recorded for a
// tender in this state. Scoring happens after bidding closes.
func (s TenderStatus) AllowsEvaluation() bool {
	return s == StatusClosed || s == StatusAwarded
}

// Evaluation is one evaluator's score for one criterion of one offer,
// denormalized with the criterion fields the engine needs so scoring
// never reaches back into storage.
type Evaluation struct {
	OfferID           string            `json:"offer_id" validate:"required"`
	EvaluatorID       string            `json:"evaluator_id" validate:"required"`
	CriterionID       string            `json:"criterion_id" validate:"required"`
	Score             float64           `json:"score" validate:"min=0"`
	CriterionMaxScore float64           `json:"criterion_max_score" validate:"gt=0"`
	CriterionWeight   float64           `json:"criterion_weight" validate:"min=0,max=100"`
	CriterionCategory CriterionCategory `json:"criterion_category" validate:"required,oneof=technical financial other"`
}

// NormalizedScore rescales the raw score to a 0-100 range so scores on
// criteria with different maxima are comparable.
func (e Evaluation) NormalizedScore() float64 {
	if e.CriterionMaxScore <= 0 {
		return 0
	}
	return e.Score / e.CriterionMaxScore * 100
}

// Offer is the snapshot of a vendor's bid used for scoring and price
// analysis.
type Offer struct {
	OfferID  string      `json:"offer_id" validate:"required"`
	VendorID string      `json:"vendor_id"`
	Price    *float64    `json:"price,omitempty"`
	Status   OfferStatus `json:"status"`
}

// HasPrice reports whether the offer carries a usable price. Offers
// without one are excluded from financial scoring and price analysis.
func (o Offer) HasPrice() bool {
	return o.Price != nil && *o.Price > 0
}

// Criterion describes one evaluation criterion of a tender.
type Criterion struct {
	CriterionID string            `json:"criterion_id" validate:"required"`
	TenderID    string            `json:"tender_id"`
	Name        string            `json:"name"`
	Weight      float64           `json:"weight" validate:"min=0,max=100"`
	MaxScore    float64           `json:"max_score" validate:"gt=0"`
	Category    CriterionCategory `json:"category" validate:"required,oneof=technical financial other"`
}

// Document is the slice of an offer's submission the suggestion engine
// looks at: the declared document type.
type Document struct {
	DocumentType string `json:"document_type"`
}

// VendorHistory aggregates a vendor's past performance. AvgTotalScore is
// nil for vendors with no scored offers on record.
type VendorHistory struct {
	AvgTotalScore *float64 `json:"avg_total_score,omitempty"`
}

// Compliance summarizes how much of the tender's mandatory requirements
// an offer satisfies, as a 0-100 percentage.
type Compliance struct {
	MandatoryComplianceRate float64 `json:"mandatory_compliance_rate"`
}

// ScoringWeights sets the technical/financial blend for total scores.
// The two weights are percentages and must sum to 100.
type ScoringWeights struct {
	TechnicalWeight float64 `json:"technical_weight" mapstructure:"technical_weight" validate:"min=0,max=100"`
	FinancialWeight float64 `json:"financial_weight" mapstructure:"financial_weight" validate:"min=0,max=100"`
}

// DefaultScoringWeights returns the standard 70/30 technical-heavy blend.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{TechnicalWeight: 70, FinancialWeight: 30}
}

// Validate checks both weights are in range and sum to 100.
func (w ScoringWeights) Validate() error {
	if w.TechnicalWeight < 0 || w.TechnicalWeight > 100 {
		return errWeightRange("technical_weight", w.TechnicalWeight)
	}
	if w.FinancialWeight < 0 || w.FinancialWeight > 100 {
		return errWeightRange("financial_weight", w.FinancialWeight)
	}
	if math.Abs(w.TechnicalWeight+w.FinancialWeight-100) > 1e-9 {
		return errWeightSum(w.TechnicalWeight + w.FinancialWeight)
	}
	return nil
}
