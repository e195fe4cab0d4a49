// Package recommendations surfaces actionable trade suggestions derived from
// fresh analyses of the user's watchlist.
package recommendations

import (
	"context"

	"github.com/alphadesk/alphadesk/internal/app/domain/analysis"
	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/recommendation"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// A suggestion needs at least this much model confidence to surface.
const minConfidence = 60

// Analyzer produces (or serves a cached) analysis for a symbol.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, typ asset.Type, refresh bool) (analysis.Record, error)
}

// Service derives and stores per-user recommendations.
type Service struct {
	store     storage.RecommendationStore
	watchlist storage.WatchlistStore
	analyzer  Analyzer
	log       *logger.Logger
}

// New constructs the recommendations service.
func New(store storage.RecommendationStore, watchlist storage.WatchlistStore, analyzer Analyzer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("recommendations")
	}
	return &Service{store: store, watchlist: watchlist, analyzer: analyzer, log: log}
}

// Refresh analyzes the user's watchlist and records a suggestion for every
// confident non-hold stance that is not already sitting unviewed. Symbols
// whose analysis fails are skipped. Returns the newly created suggestions.
func (s *Service) Refresh(ctx context.Context, userID string) ([]recommendation.Recommendation, error) {
	items, err := s.watchlist.ListWatchlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	unviewed, err := s.store.ListRecommendations(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]bool, len(unviewed))
	for _, r := range unviewed {
		pending[r.Symbol] = true
	}

	var created []recommendation.Recommendation
	for _, item := range items {
		if pending[item.Symbol] {
			continue
		}
		rec, err := s.analyzer.Analyze(ctx, item.Symbol, item.Type, false)
		if err != nil {
			s.log.WithError(err).WithField("symbol", item.Symbol).Debug("analysis unavailable for recommendation")
			continue
		}
		if rec.Recommendation == analysis.RecommendHold || rec.Confidence < minConfidence {
			continue
		}
		saved, err := s.store.CreateRecommendation(ctx, recommendation.Recommendation{
			UserID:     userID,
			Symbol:     item.Symbol,
			Type:       item.Type,
			Action:     rec.Recommendation,
			Confidence: rec.Confidence,
			Reasoning:  rec.Reasoning,
		})
		if err != nil {
			s.log.WithError(err).WithField("symbol", item.Symbol).Error("store recommendation failed")
			continue
		}
		created = append(created, saved)
	}
	return created, nil
}

// List returns the user's recommendations, optionally only unviewed ones.
func (s *Service) List(ctx context.Context, userID string, unviewedOnly bool) ([]recommendation.Recommendation, error) {
	return s.store.ListRecommendations(ctx, userID, unviewedOnly)
}

// MarkViewed dismisses a recommendation from the dashboard.
func (s *Service) MarkViewed(ctx context.Context, id string) error {
	return s.store.MarkRecommendationViewed(ctx, id)
}
