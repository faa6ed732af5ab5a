// Package engine orchestrates scoring and analysis over snapshot sources:
// it recomputes and persists offer scores with last-recompute-wins
// semantics, assembles tender-wide analysis reports, and produces score
// suggestions for unscored evaluations.
package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tenderlens/tenderlens/analysis"
	"github.com/tenderlens/tenderlens/apperr"
	"github.com/tenderlens/tenderlens/config"
	"github.com/tenderlens/tenderlens/logging"
	"github.com/tenderlens/tenderlens/retry"
	"github.com/tenderlens/tenderlens/scoring"
	"github.com/tenderlens/tenderlens/tender"
)

// Dependencies carries the external collaborators the engine reads from
// and writes to. Source and Sink are required; the other three are only
// needed for score suggestions.
type Dependencies struct {
	Source     SnapshotSource
	Sink       ScoreSink
	History    VendorHistorySource
	Compliance ComplianceSource
	Documents  DocumentSource
}

// Options tunes the engine. Zero values fall back to production
// defaults.
type Options struct {
	Weights    tender.ScoringWeights
	Thresholds analysis.Thresholds
	Retry      retry.Config
	Logger     *logging.Logger
}

// OptionsFromConfig maps loaded configuration onto engine options.
func OptionsFromConfig(cfg *config.Config, log *logging.Logger) Options {
	return Options{
		Weights:    cfg.Scoring,
		Thresholds: cfg.Thresholds,
		Retry: retry.Config{
			MaxAttempts:   cfg.Recompute.MaxAttempts,
			InitialDelay:  cfg.Recompute.InitialDelay,
			MaxDelay:      cfg.Recompute.MaxDelay,
			BackoffFactor: cfg.Recompute.BackoffFactor,
			JitterEnabled: cfg.Recompute.JitterEnabled,
			Retryable:     apperr.IsRetryable,
		},
		Logger: log,
	}
}

// Engine is safe for concurrent use across tenders and offers.
type Engine struct {
	source     SnapshotSource
	sink       ScoreSink
	history    VendorHistorySource
	compliance ComplianceSource
	documents  DocumentSource

	calculator  *scoring.Calculator
	consistency *analysis.ConsistencyAnalyzer
	outliers    *analysis.OutlierDetector
	clusterer   *analysis.PriceClusterer
	bias        *analysis.BiasDetector
	suggestions *analysis.SuggestionEngine

	retryCfg retry.Config
	log      *logging.Logger
	locks    *keyedMutex
}

// New builds an engine over the given collaborators.
func New(deps Dependencies, opts Options) (*Engine, error) {
	if deps.Source == nil {
		return nil, apperr.NewConfigurationError("engine requires a snapshot source", nil)
	}
	if deps.Sink == nil {
		return nil, apperr.NewConfigurationError("engine requires a score sink", nil)
	}
	if opts.Weights == (tender.ScoringWeights{}) {
		opts.Weights = tender.DefaultScoringWeights()
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}
	if opts.Thresholds == (analysis.Thresholds{}) {
		opts.Thresholds = analysis.DefaultThresholds()
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(logging.Config{})
	}

	return &Engine{
		source:      deps.Source,
		sink:        deps.Sink,
		history:     deps.History,
		compliance:  deps.Compliance,
		documents:   deps.Documents,
		calculator:  scoring.NewCalculator(opts.Weights),
		consistency: analysis.NewConsistencyAnalyzer(opts.Thresholds),
		outliers:    analysis.NewOutlierDetector(opts.Thresholds),
		clusterer:   analysis.NewPriceClusterer(opts.Thresholds),
		bias:        analysis.NewBiasDetector(opts.Thresholds),
		suggestions: analysis.NewSuggestionEngine(),
		retryCfg:    opts.Retry,
		log:         opts.Logger,
		locks:       newKeyedMutex(),
	}, nil
}

// RecomputeOfferScores rebuilds the score triple for one offer from its
// current evaluation and sibling snapshots, and persists it guarded by
// the offer version. Recomputations of the same offer serialize on a
// per-offer lock; a concurrent version bump surfaces as a conflict and is
// retried with fresh snapshots, so the last recomputation to run reflects
// the full evaluation set it read.
func (e *Engine) RecomputeOfferScores(ctx context.Context, tenderID, offerID string) (scoring.ScoreSet, error) {
	start := time.Now()
	unlock := e.locks.lock(offerID)
	defer unlock()

	var (
		scores      scoring.ScoreSet
		evaluations int
		attempts    int
	)
	err := retry.Do(ctx, e.retryCfg, func() error {
		attempts++

		offer, version, err := e.source.OfferSnapshot(ctx, offerID)
		if err != nil {
			return apperr.Wrap(err, "loading offer %s", offerID)
		}
		snapshot, err := e.source.OfferEvaluations(ctx, offerID)
		if err != nil {
			return apperr.Wrap(err, "loading evaluations for offer %s", offerID)
		}
		if err := tender.ValidateEvaluations(snapshot); err != nil {
			return err
		}
		siblings, err := e.source.TenderOffers(ctx, tenderID)
		if err != nil {
			return apperr.Wrap(err, "loading offers for tender %s", tenderID)
		}

		scores = e.calculator.ComputeScores(offer, snapshot, siblings)
		evaluations = len(snapshot)

		if err := e.sink.SaveOfferScores(ctx, offerID, scores, version); err != nil {
			if apperr.IsConflict(err) {
				e.log.ConflictLogger(offerID, attempts)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return scoring.ScoreSet{}, err
	}

	e.log.RecomputeLogger(tenderID, offerID, evaluations, attempts, time.Since(start))
	return scores, nil
}

// SuggestEvaluationScore proposes a score for an unscored (offer,
// criterion) pair from peer evaluations, vendor history, submitted
// documents, and the offer's compliance rate.
func (e *Engine) SuggestEvaluationScore(ctx context.Context, offerID string, criterion tender.Criterion) (analysis.Suggestion, error) {
	if e.history == nil || e.compliance == nil || e.documents == nil {
		return analysis.Suggestion{}, apperr.NewConfigurationError("suggestion sources not configured", nil)
	}

	offer, _, err := e.source.OfferSnapshot(ctx, offerID)
	if err != nil {
		return analysis.Suggestion{}, apperr.Wrap(err, "loading offer %s", offerID)
	}

	var (
		evaluations []tender.Evaluation
		documents   []tender.Document
		history     tender.VendorHistory
		compliance  tender.Compliance
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		evaluations, err = e.source.OfferEvaluations(gctx, offerID)
		return err
	})
	g.Go(func() error {
		var err error
		documents, err = e.documents.OfferDocuments(gctx, offerID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = e.history.VendorHistory(gctx, offer.VendorID)
		return err
	})
	g.Go(func() error {
		var err error
		compliance, err = e.compliance.OfferCompliance(gctx, offerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return analysis.Suggestion{}, apperr.Wrap(err, "loading suggestion inputs for offer %s", offerID)
	}

	suggestion := e.suggestions.SuggestScore(offer, criterion, evaluations, documents, history, compliance)
	e.log.SuggestionLogger(offerID, criterion.CriterionID, suggestion.SuggestedScore, suggestion.Confidence)
	return suggestion, nil
}
