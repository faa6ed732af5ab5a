// Package store persists tenders, criteria, offers, and evaluations and
// serves the engine's snapshot and sink contracts over GORM. Offer score
// writes are guarded by a version column: a stale expected version is
// rejected as a conflict rather than silently overwritten.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/tenderlens/tenderlens/apperr"
	"github.com/tenderlens/tenderlens/config"
	"github.com/tenderlens/tenderlens/scoring"
	"github.com/tenderlens/tenderlens/tender"
)

// Store wraps a GORM handle. Safe for concurrent use.
type Store struct {
	db *gorm.DB
}

// New wraps an existing database handle and runs migrations.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, apperr.NewConfigurationError("store requires a database handle", nil)
	}
	if err := db.AutoMigrate(&Tender{}, &EvaluationCriterion{}, &Offer{}, &Evaluation{}); err != nil {
		return nil, apperr.NewStorageError("running migrations", err)
	}
	return &Store{db: db}, nil
}

// Open connects to postgres with the configured pool limits and runs
// migrations.
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, apperr.NewStorageError("connecting to database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperr.NewStorageError("accessing connection pool", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return New(db)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return apperr.NewStorageError("accessing connection pool", err)
	}
	return sqlDB.Close()
}

// CreateTender inserts a new draft tender.
func (s *Store) CreateTender(ctx context.Context, title string) (*Tender, error) {
	if title == "" {
		return nil, apperr.NewValidationError("tender title is required")
	}
	row := NewTender(title)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, apperr.NewStorageError("creating tender", err)
	}
	return row, nil
}

// SetTenderStatus moves a tender to a new lifecycle state.
func (s *Store) SetTenderStatus(ctx context.Context, tenderID string, status tender.TenderStatus) error {
	if !status.Valid() {
		return apperr.NewValidationError(fmt.Sprintf("unknown tender status %q", status))
	}
	res := s.db.WithContext(ctx).
		Model(&Tender{}).
		Where("id = ?", tenderID).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return apperr.NewStorageError(fmt.Sprintf("updating tender %s", tenderID), res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFoundError("tender", tenderID)
	}
	return nil
}

// RegisterCriterion adds a criterion to a tender, enforcing the per
// category weight budget: existing weights plus the new one must not
// exceed 100.
func (s *Store) RegisterCriterion(ctx context.Context, tenderID, name string, category tender.CriterionCategory, weight, maxScore float64) (*EvaluationCriterion, error) {
	if !category.Valid() {
		return nil, apperr.NewValidationError(fmt.Sprintf("unknown criterion category %q", category))
	}
	if weight < 0 || weight > 100 {
		return nil, apperr.NewValidationError(fmt.Sprintf("criterion weight %.2f outside [0, 100]", weight))
	}
	if maxScore <= 0 {
		return nil, apperr.NewValidationError(fmt.Sprintf("criterion max score %.2f must be positive", maxScore))
	}

	row := NewCriterion(tenderID, name, category, weight, maxScore)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenderRow Tender
		if err := tx.Where("id = ?", tenderID).First(&tenderRow).Error; err != nil {
			return notFoundOr(err, "tender", tenderID)
		}

		var allocated float64
		if err := tx.Model(&EvaluationCriterion{}).
			Select("COALESCE(SUM(weight), 0)").
			Where("tender_id = ? AND category = ?", tenderID, string(category)).
			Scan(&allocated).Error; err != nil {
			return apperr.NewStorageError("summing criterion weights", err)
		}
		if allocated+weight > 100+1e-9 {
			return apperr.NewValidationError(fmt.Sprintf(
				"%s criterion weights for tender %s would total %.2f, exceeding 100",
				category, tenderID, allocated+weight))
		}

		if err := tx.Create(row).Error; err != nil {
			return apperr.NewStorageError("creating criterion", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Criterion loads one criterion as the read model the engine consumes.
func (s *Store) Criterion(ctx context.Context, criterionID string) (tender.Criterion, error) {
	var row EvaluationCriterion
	if err := s.db.WithContext(ctx).Where("id = ?", criterionID).First(&row).Error; err != nil {
		return tender.Criterion{}, notFoundOr(err, "criterion", criterionID)
	}
	return tender.Criterion{
		CriterionID: row.ID,
		TenderID:    row.TenderID,
		Name:        row.Name,
		Weight:      row.Weight,
		MaxScore:    row.MaxScore,
		Category:    tender.CriterionCategory(row.Category),
	}, nil
}

// CreateOffer inserts a vendor's offer at version 1.
func (s *Store) CreateOffer(ctx context.Context, tenderID, vendorID string, price *float64, status tender.OfferStatus) (*Offer, error) {
	if !status.Valid() {
		return nil, apperr.NewValidationError(fmt.Sprintf("unknown offer status %q", status))
	}
	if price != nil && *price <= 0 {
		return nil, apperr.NewValidationError(fmt.Sprintf("offer price %.2f must be positive", *price))
	}

	row := NewOffer(tenderID, vendorID, price, status)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenderRow Tender
		if err := tx.Where("id = ?", tenderID).First(&tenderRow).Error; err != nil {
			return notFoundOr(err, "tender", tenderID)
		}
		if err := tx.Create(row).Error; err != nil {
			return apperr.NewStorageError("creating offer", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// SetOfferStatus moves an offer to a new lifecycle state. The version
// bump invalidates any recomputation in flight against the old snapshot.
func (s *Store) SetOfferStatus(ctx context.Context, offerID string, status tender.OfferStatus) error {
	if !status.Valid() {
		return apperr.NewValidationError(fmt.Sprintf("unknown offer status %q", status))
	}
	res := s.db.WithContext(ctx).
		Model(&Offer{}).
		Where("id = ?", offerID).
		Updates(map[string]interface{}{
			"status":     string(status),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return apperr.NewStorageError(fmt.Sprintf("updating offer %s", offerID), res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFoundError("offer", offerID)
	}
	return nil
}

// RecordEvaluation stores one evaluator's score for one criterion of one
// offer. The tender must be closed or awarded, the criterion must belong
// to the offer's tender, and the score must lie in [0, maxScore].
// Re-scoring the same (offer, evaluator, criterion) triple updates the
// existing row.
func (s *Store) RecordEvaluation(ctx context.Context, offerID, evaluatorID, criterionID string, score float64, comment string) (*Evaluation, error) {
	if offerID == "" || evaluatorID == "" || criterionID == "" {
		return nil, apperr.NewValidationError("offer, evaluator, and criterion ids are required")
	}

	var saved Evaluation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var offerRow Offer
		if err := tx.Where("id = ?", offerID).First(&offerRow).Error; err != nil {
			return notFoundOr(err, "offer", offerID)
		}
		var tenderRow Tender
		if err := tx.Where("id = ?", offerRow.TenderID).First(&tenderRow).Error; err != nil {
			return notFoundOr(err, "tender", offerRow.TenderID)
		}
		if !tender.TenderStatus(tenderRow.Status).AllowsEvaluation() {
			return apperr.NewValidationError(fmt.Sprintf(
				"tender %s is %s, evaluations require a closed or awarded tender",
				tenderRow.ID, tenderRow.Status))
		}
		var criterionRow EvaluationCriterion
		if err := tx.Where("id = ?", criterionID).First(&criterionRow).Error; err != nil {
			return notFoundOr(err, "criterion", criterionID)
		}
		if criterionRow.TenderID != offerRow.TenderID {
			return apperr.NewValidationError(fmt.Sprintf(
				"criterion %s belongs to tender %s, not %s",
				criterionID, criterionRow.TenderID, offerRow.TenderID))
		}
		if score < 0 || score > criterionRow.MaxScore {
			return apperr.NewValidationError(fmt.Sprintf(
				"score %.2f outside [0, %.2f] for criterion %s",
				score, criterionRow.MaxScore, criterionID))
		}

		row := NewEvaluation(offerID, evaluatorID, criterionID, score, comment)
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "offer_id"},
				{Name: "evaluator_id"},
				{Name: "criterion_id"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"score":      score,
				"comment":    comment,
				"updated_at": row.UpdatedAt,
			}),
		}).Create(row).Error; err != nil {
			return apperr.NewStorageError("recording evaluation", err)
		}

		if err := tx.
			Where("offer_id = ? AND evaluator_id = ? AND criterion_id = ?", offerID, evaluatorID, criterionID).
			First(&saved).Error; err != nil {
			return apperr.NewStorageError("reloading evaluation", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// OfferSnapshot loads one offer's read model together with its current
// version for a later guarded score write.
func (s *Store) OfferSnapshot(ctx context.Context, offerID string) (tender.Offer, int64, error) {
	var row Offer
	if err := s.db.WithContext(ctx).Where("id = ?", offerID).First(&row).Error; err != nil {
		return tender.Offer{}, 0, notFoundOr(err, "offer", offerID)
	}
	return row.snapshot(), row.Version, nil
}

// TenderOffers lists a tender's offers in creation order.
func (s *Store) TenderOffers(ctx context.Context, tenderID string) ([]tender.Offer, error) {
	var rows []Offer
	if err := s.db.WithContext(ctx).
		Where("tender_id = ?", tenderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, apperr.NewStorageError(fmt.Sprintf("listing offers for tender %s", tenderID), err)
	}
	offers := make([]tender.Offer, 0, len(rows))
	for i := range rows {
		offers = append(offers, rows[i].snapshot())
	}
	return offers, nil
}

// evaluationRow is the denormalized join row backing evaluation
// snapshots.
type evaluationRow struct {
	OfferID           string  `gorm:"column:offer_id"`
	EvaluatorID       string  `gorm:"column:evaluator_id"`
	CriterionID       string  `gorm:"column:criterion_id"`
	Score             float64 `gorm:"column:score"`
	CriterionMaxScore float64 `gorm:"column:criterion_max_score"`
	CriterionWeight   float64 `gorm:"column:criterion_weight"`
	CriterionCategory string  `gorm:"column:criterion_category"`
}

func (r evaluationRow) snapshot() tender.Evaluation {
	return tender.Evaluation{
		OfferID:           r.OfferID,
		EvaluatorID:       r.EvaluatorID,
		CriterionID:       r.CriterionID,
		Score:             r.Score,
		CriterionMaxScore: r.CriterionMaxScore,
		CriterionWeight:   r.CriterionWeight,
		CriterionCategory: tender.CriterionCategory(r.CriterionCategory),
	}
}

const evaluationSelect = "evaluations.offer_id, evaluations.evaluator_id, evaluations.criterion_id, evaluations.score, " +
	"evaluation_criteria.max_score AS criterion_max_score, " +
	"evaluation_criteria.weight AS criterion_weight, " +
	"evaluation_criteria.category AS criterion_category"

// OfferEvaluations loads one offer's evaluations denormalized with their
// criterion fields, in creation order.
func (s *Store) OfferEvaluations(ctx context.Context, offerID string) ([]tender.Evaluation, error) {
	var rows []evaluationRow
	if err := s.db.WithContext(ctx).
		Model(&Evaluation{}).
		Select(evaluationSelect).
		Joins("JOIN evaluation_criteria ON evaluation_criteria.id = evaluations.criterion_id").
		Where("evaluations.offer_id = ?", offerID).
		Order("evaluations.created_at ASC, evaluations.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, apperr.NewStorageError(fmt.Sprintf("listing evaluations for offer %s", offerID), err)
	}
	return evaluationSnapshots(rows), nil
}

// TenderEvaluations loads every evaluation across a tender's offers, in
// creation order.
func (s *Store) TenderEvaluations(ctx context.Context, tenderID string) ([]tender.Evaluation, error) {
	var rows []evaluationRow
	if err := s.db.WithContext(ctx).
		Model(&Evaluation{}).
		Select(evaluationSelect).
		Joins("JOIN evaluation_criteria ON evaluation_criteria.id = evaluations.criterion_id").
		Joins("JOIN offers ON offers.id = evaluations.offer_id").
		Where("offers.tender_id = ?", tenderID).
		Order("evaluations.created_at ASC, evaluations.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, apperr.NewStorageError(fmt.Sprintf("listing evaluations for tender %s", tenderID), err)
	}
	return evaluationSnapshots(rows), nil
}

func evaluationSnapshots(rows []evaluationRow) []tender.Evaluation {
	evaluations := make([]tender.Evaluation, 0, len(rows))
	for _, row := range rows {
		evaluations = append(evaluations, row.snapshot())
	}
	return evaluations
}

// SaveOfferScores writes the derived score triple if and only if the
// offer is still at the expected version, bumping the version on success.
// A version mismatch is a conflict; the caller retries with a fresh
// snapshot.
func (s *Store) SaveOfferScores(ctx context.Context, offerID string, scores scoring.ScoreSet, expectedVersion int64) error {
	res := s.db.WithContext(ctx).
		Model(&Offer{}).
		Where("id = ? AND version = ?", offerID, expectedVersion).
		Updates(map[string]interface{}{
			"technical_score": scores.Technical,
			"financial_score": scores.Financial,
			"total_score":     scores.Total,
			"version":         gorm.Expr("version + 1"),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return apperr.NewStorageError(fmt.Sprintf("saving scores for offer %s", offerID), res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&Offer{}).Where("id = ?", offerID).Count(&count).Error; err != nil {
			return apperr.NewStorageError(fmt.Sprintf("checking offer %s", offerID), err)
		}
		if count == 0 {
			return apperr.NewNotFoundError("offer", offerID)
		}
		return apperr.NewConflictError(offerID, expectedVersion)
	}
	return nil
}

// VendorHistory averages the total score across a vendor's scored offers
// on any tender. AvgTotalScore is nil for vendors with no scored history.
func (s *Store) VendorHistory(ctx context.Context, vendorID string) (tender.VendorHistory, error) {
	var avg sql.NullFloat64
	if err := s.db.WithContext(ctx).
		Model(&Offer{}).
		Select("AVG(total_score)").
		Where("vendor_id = ? AND total_score IS NOT NULL", vendorID).
		Scan(&avg).Error; err != nil {
		return tender.VendorHistory{}, apperr.NewStorageError(fmt.Sprintf("averaging history for vendor %s", vendorID), err)
	}

	var history tender.VendorHistory
	if avg.Valid {
		value := avg.Float64
		history.AvgTotalScore = &value
	}
	return history, nil
}

func notFoundOr(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NewNotFoundError(entity, id)
	}
	return apperr.NewStorageError(fmt.Sprintf("loading %s %s", entity, id), err)
}
