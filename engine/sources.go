package engine

import (
	"context"

	"github.com/tenderlens/tenderlens/scoring"
	"github.com/tenderlens/tenderlens/tender"
)

// SnapshotSource supplies the immutable read models scoring and analysis
// run over. Implementations must return rows in a stable order so
// order-sensitive analyses stay deterministic for an unchanged dataset.
type SnapshotSource interface {
	// OfferSnapshot returns one offer and the version its data was read at.
	OfferSnapshot(ctx context.Context, offerID string) (tender.Offer, int64, error)
	// TenderOffers returns all offers of a tender.
	TenderOffers(ctx context.Context, tenderID string) ([]tender.Offer, error)
	// OfferEvaluations returns the denormalized evaluations of one offer.
	OfferEvaluations(ctx context.Context, offerID string) ([]tender.Evaluation, error)
	// TenderEvaluations returns the denormalized evaluations across a
	// whole tender.
	TenderEvaluations(ctx context.Context, tenderID string) ([]tender.Evaluation, error)
}

// ScoreSink persists a computed score triple. Implementations must reject
// the write with a conflict error when the offer's version no longer
// matches expectedVersion.
type ScoreSink interface {
	SaveOfferScores(ctx context.Context, offerID string, scores scoring.ScoreSet, expectedVersion int64) error
}

// VendorHistorySource aggregates a vendor's past scored offers.
type VendorHistorySource interface {
	VendorHistory(ctx context.Context, vendorID string) (tender.VendorHistory, error)
}

// ComplianceSource reports how much of the mandatory requirements an
// offer satisfies. Compliance checking itself lives outside the engine.
type ComplianceSource interface {
	OfferCompliance(ctx context.Context, offerID string) (tender.Compliance, error)
}

// DocumentSource lists the documents submitted with an offer.
type DocumentSource interface {
	OfferDocuments(ctx context.Context, offerID string) ([]tender.Document, error)
}
