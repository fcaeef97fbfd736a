// Package feed supplies trade batches to the training and streaming paths.
package feed

import (
	"context"
	"time"

	"trade-anomaly-alerts/internal/trades"
)

// TradeFeeder retrieves the trades recorded within a time window, ordered
// by timestamp.
type TradeFeeder interface {
	FetchTrades(ctx context.Context, from, to time.Time) ([]trades.Trade, error)
}
