package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/tenderlens/tenderlens/tender"
)

// Tender is the persisted procurement process offers belong to.
type Tender struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Title     string    `json:"title" gorm:"size:256;not null"`
	Status    string    `json:"status" gorm:"size:16;not null;default:draft"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Tender) TableName() string {
	return "tenders"
}

// EvaluationCriterion is one scored dimension of a tender. Weights within
// a (tender, category) pair may not sum past 100.
type EvaluationCriterion struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	TenderID  string    `json:"tender_id" gorm:"size:36;not null;index"`
	Name      string    `json:"name" gorm:"size:256;not null"`
	Category  string    `json:"category" gorm:"size:16;not null"`
	Weight    float64   `json:"weight" gorm:"type:decimal(5,2);not null"`
	MaxScore  float64   `json:"max_score" gorm:"type:decimal(8,2);not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (EvaluationCriterion) TableName() string {
	return "evaluation_criteria"
}

// Offer is a vendor's bid. The three score columns are derived caches,
// rewritten wholesale on recomputation and guarded by the version column.
type Offer struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	TenderID       string    `json:"tender_id" gorm:"size:36;not null;index"`
	VendorID       string    `json:"vendor_id" gorm:"size:36;not null;index"`
	Price          *float64  `json:"price,omitempty" gorm:"type:decimal(14,2)"`
	Status         string    `json:"status" gorm:"size:16;not null;default:draft"`
	TechnicalScore *float64  `json:"technical_score,omitempty" gorm:"type:decimal(5,2)"`
	FinancialScore *float64  `json:"financial_score,omitempty" gorm:"type:decimal(5,2)"`
	TotalScore     *float64  `json:"total_score,omitempty" gorm:"type:decimal(5,2)"`
	Version        int64     `json:"version" gorm:"not null;default:1"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Offer) TableName() string {
	return "offers"
}

// snapshot projects the row onto the read model the engine consumes.
func (o *Offer) snapshot() tender.Offer {
	return tender.Offer{
		OfferID:  o.ID,
		VendorID: o.VendorID,
		Price:    o.Price,
		Status:   tender.OfferStatus(o.Status),
	}
}

// Evaluation is one evaluator's score for one criterion of one offer.
// The unique index makes re-scoring an update, never a duplicate row.
type Evaluation struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	OfferID     string    `json:"offer_id" gorm:"size:36;not null;uniqueIndex:idx_offer_evaluator_criterion"`
	EvaluatorID string    `json:"evaluator_id" gorm:"size:36;not null;uniqueIndex:idx_offer_evaluator_criterion"`
	CriterionID string    `json:"criterion_id" gorm:"size:36;not null;uniqueIndex:idx_offer_evaluator_criterion"`
	Score       float64   `json:"score" gorm:"type:decimal(8,2);not null"`
	Comment     string    `json:"comment" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// NewTender creates a draft tender with a generated ID.
func NewTender(title string) *Tender {
	now := time.Now().UTC()
	return &Tender{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    string(tender.StatusDraft),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewCriterion creates a criterion row with a generated ID.
func NewCriterion(tenderID, name string, category tender.CriterionCategory, weight, maxScore float64) *EvaluationCriterion {
	return &EvaluationCriterion{
		ID:        uuid.New().String(),
		TenderID:  tenderID,
		Name:      name,
		Category:  string(category),
		Weight:    weight,
		MaxScore:  maxScore,
		CreatedAt: time.Now().UTC(),
	}
}

// NewOffer creates an offer row at version 1 with a generated ID.
func NewOffer(tenderID, vendorID string, price *float64, status tender.OfferStatus) *Offer {
	now := time.Now().UTC()
	return &Offer{
		ID:        uuid.New().String(),
		TenderID:  tenderID,
		VendorID:  vendorID,
		Price:     price,
		Status:    string(status),
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewEvaluation creates an evaluation row with a generated ID.
func NewEvaluation(offerID, evaluatorID, criterionID string, score float64, comment string) *Evaluation {
	now := time.Now().UTC()
	return &Evaluation{
		ID:          uuid.New().String(),
		OfferID:     offerID,
		EvaluatorID: evaluatorID,
		CriterionID: criterionID,
		Score:       score,
		Comment:     comment,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
