package feed

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trade-anomaly-alerts/internal/storage"
	"trade-anomaly-alerts/internal/trades"
)

// StoreFeed reads the trade stream from the trades table.
type StoreFeed struct {
	store  storage.TradeStore
	logger zerolog.Logger
}

// NewStoreFeed constructs a database-backed trade feed.
func NewStoreFeed(store storage.TradeStore, logger zerolog.Logger) *StoreFeed {
	return &StoreFeed{
		store:  store,
		logger: logger.With().Str("component", "store_feed").Logger(),
	}
}

// FetchTrades lists the window's trades from storage.
func (f *StoreFeed) FetchTrades(ctx context.Context, from, to time.Time) ([]trades.Trade, error) {
	batch, err := f.store.ListTradesBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	f.logger.Debug().Time("from", from).Time("to", to).Int("trades", len(batch)).Msg("fetched trades")
	return batch, nil
}

var _ TradeFeeder = (*StoreFeed)(nil)
