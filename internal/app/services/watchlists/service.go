// Package watchlists manages per-user tracked symbols and decorates them
// with live quotes for the dashboard.
package watchlists

import (
	"context"
	"fmt"

	"github.com/alphadesk/alphadesk/internal/app/domain/asset"
	"github.com/alphadesk/alphadesk/internal/app/domain/watchlist"
	"github.com/alphadesk/alphadesk/internal/app/storage"
	"github.com/alphadesk/alphadesk/pkg/logger"
)

// QuoteSource supplies current prices for list decoration.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string, typ asset.Type) (asset.Quote, error)
}

// Service manages watchlist items.
type Service struct {
	store  storage.WatchlistStore
	quotes QuoteSource
	log    *logger.Logger
}

// New constructs the watchlist service.
func New(store storage.WatchlistStore, quotes QuoteSource, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("watchlists")
	}
	return &Service{store: store, quotes: quotes, log: log}
}

// Add tracks a symbol for the user. The display name comes from the live
// quote when a source has one.
func (s *Service) Add(ctx context.Context, userID, symbol string, typ asset.Type) (watchlist.Item, error) {
	symbol = asset.NormalizeSymbol(symbol)
	if symbol == "" {
		return watchlist.Item{}, fmt.Errorf("symbol required")
	}

	item := watchlist.Item{
		UserID: userID,
		Symbol: symbol,
		Type:   typ,
	}
	if s.quotes != nil {
		if quote, err := s.quotes.Quote(ctx, symbol, typ); err == nil {
			item.Name = quote.Name
		} else {
			s.log.WithError(err).WithField("symbol", symbol).Debug("no quote while adding watchlist item")
		}
	}
	return s.store.AddWatchlistItem(ctx, item)
}

// Remove stops tracking a symbol.
func (s *Service) Remove(ctx context.Context, userID, symbol string) error {
	return s.store.RemoveWatchlistItem(ctx, userID, asset.NormalizeSymbol(symbol))
}

// List returns the user's watchlist decorated with live quotes. Items whose
// quote cannot be fetched come back with zero market fields rather than
// failing the whole list.
func (s *Service) List(ctx context.Context, userID string) ([]watchlist.QuotedItem, error) {
	items, err := s.store.ListWatchlist(ctx, userID)
	if err != nil {
		return nil, err
	}

	quoted := make([]watchlist.QuotedItem, 0, len(items))
	for _, item := range items {
		qi := watchlist.QuotedItem{Item: item}
		if s.quotes != nil {
			if quote, err := s.quotes.Quote(ctx, item.Symbol, item.Type); err == nil {
				if qi.Name == "" {
					qi.Name = quote.Name
				}
				qi.Price = quote.Price
				qi.Change = quote.Change
				qi.ChangePercent = quote.ChangePercent
				qi.Volume = quote.Volume
				qi.MarketCap = quote.MarketCap
			} else {
				s.log.WithError(err).WithField("symbol", item.Symbol).Debug("watchlist quote unavailable")
			}
		}
		quoted = append(quoted, qi)
	}
	return quoted, nil
}
